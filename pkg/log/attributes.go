// Standard attribute keys for framefit log records.
//
// Keys follow a hierarchical naming convention ("data.samples", "training.fold")
// so that records from extraction, splitting, training and search can be filtered
// the same way regardless of which component emitted them.

package log

// Model and operation context.
const (
	// ModelNameKey identifies the model type, e.g. "NeuralModel", "MultiModel".
	ModelNameKey = "model.name"

	// OperationKey specifies the operation being performed.
	OperationKey = "ml.operation"

	// ComponentKey identifies which package emitted the record.
	ComponentKey = "ml.component"

	// PhaseKey indicates whether rows belong to training, test or inference.
	PhaseKey = "ml.phase"

	// GoalKey names the prediction goal a record refers to.
	GoalKey = "ml.goal"
)

// Data shape.
const (
	SamplesKey  = "data.samples"
	FeaturesKey = "data.features"
	LabelsKey   = "data.labels"
	LagsKey     = "data.lags"
	DroppedKey  = "data.dropped_rows"

	// BatchSizeKey indicates the mini-batch size used by gradient training.
	BatchSizeKey = "data.batch_size"
)

// Split context.
const (
	SplitTrainKey    = "split.train"
	SplitTestKey     = "split.test"
	SplitYoungestKey = "split.youngest"
	SplitModeKey     = "split.mode"
)

// Training and search progress.
const (
	// EpochKey records the cross-validation epoch or the optimizer epoch.
	EpochKey = "training.epoch"

	// FoldKey records the fold index inside a cross-validation epoch.
	FoldKey = "training.fold"

	// TrialKey records the hyperparameter search trial number.
	TrialKey = "training.trial"

	// LossKey records a loss value. Lower is better.
	LossKey = "metrics.loss"

	// ThresholdKey records the probability cutoff used for classification.
	ThresholdKey = "preds.threshold"

	// PredsKey records the number of predicted rows.
	PredsKey = "preds.count"

	DurationMsKey = "perf.duration_ms"
)

// Configuration.
const (
	// HyperParamsKey contains the parameter set of a trial.
	HyperParamsKey = "model.hyperparams"

	RandomSeedKey = "config.random_seed"
)

// Error context.
const (
	ErrorKey      = "error"
	ErrorTypeKey  = "error.type"
	StacktraceKey = "error.stacktrace"
)

// Standard operation values.
const (
	OperationExtract   = "extract"
	OperationSplit     = "split"
	OperationTrain     = "train"
	OperationSearch    = "search"
	OperationAssemble  = "assemble"
	OperationSummarize = "summarize"
	OperationPredict   = "predict"
	OperationBacktest  = "backtest"
	OperationFit       = "fit"
)

// Standard phase values.
const (
	PhaseTraining  = "training"
	PhaseTesting   = "testing"
	PhaseInference = "inference"
)
