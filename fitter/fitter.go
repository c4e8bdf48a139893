// Package fitter runs the whole workflow on a table: feature and label
// extraction, train/test split, optional hyperparameter search, training,
// prediction frame assembly and classification summaries.
//
//	res, err := fitter.Fit(df, models.NewNeuralProvider(spec),
//	    fitter.WithTestSize(0.3),
//	    fitter.WithYoungestSize(0.5),
//	    fitter.WithCrossValidation(1, dataset.NewKFold(5, true, 42)),
//	)
//	fmt.Println(res.TestSummary["target"])
package fitter

import (
	"time"

	"github.com/YuminosukeSato/framefit/core/frame"
	"github.com/YuminosukeSato/framefit/core/model"
	"github.com/YuminosukeSato/framefit/dataset"
	"github.com/YuminosukeSato/framefit/features"
	"github.com/YuminosukeSato/framefit/hyperopt"
	"github.com/YuminosukeSato/framefit/models"
	"github.com/YuminosukeSato/framefit/pkg/errors"
	"github.com/YuminosukeSato/framefit/pkg/log"
	"github.com/YuminosukeSato/framefit/prediction"
	"github.com/YuminosukeSato/framefit/summary"
	"github.com/YuminosukeSato/framefit/training"
)

// FitResult is the outcome of Fit.
type FitResult struct {
	Model models.Model
	// Loss is what the final training reported.
	Loss model.Loss

	// Training and Test are the assembled prediction frames. Test is nil
	// without a held-out portion.
	Training *frame.LabeledFrame
	Test     *frame.LabeledFrame

	// Summaries per goal key. TestSummary is nil without a held-out portion.
	TrainingSummary map[string]*summary.ClassificationSummary
	TestSummary     map[string]*summary.ClassificationSummary

	// Trials is the search history, nil without a search.
	Trials *hyperopt.Trials
}

// SetProbabilityCutoff recomputes every summary at cutoff.
func (r *FitResult) SetProbabilityCutoff(cutoff float64) error {
	train, err := withCutoff(r.TrainingSummary, cutoff)
	if err != nil {
		return err
	}
	test, err := withCutoff(r.TestSummary, cutoff)
	if err != nil {
		return err
	}
	r.TrainingSummary, r.TestSummary = train, test
	return nil
}

func withCutoff(in map[string]*summary.ClassificationSummary, cutoff float64) (map[string]*summary.ClassificationSummary, error) {
	if in == nil {
		return nil, nil
	}
	out := make(map[string]*summary.ClassificationSummary, len(in))
	for k, s := range in {
		c, err := s.WithCutoff(cutoff)
		if err != nil {
			return nil, err
		}
		out[k] = c
	}
	return out, nil
}

// Fit trains a model from provider on df.
//
// provider is called once with empty params to learn the feature/label spec;
// without a search that model is the one trained. Extraction and split errors
// abort before any model is fitted.
func Fit(df *frame.Frame, provider models.Provider, opts ...Option) (*FitResult, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.Logger == nil {
		o.Logger = log.GetLoggerWithName("fitter")
	}
	if provider == nil {
		return nil, errors.NewValueError("Fit", "provider is nil")
	}

	m, err := provider(hyperopt.Params{})
	if err != nil {
		return nil, errors.Wrap(err, "build model")
	}
	spec := m.FeaturesAndLabels()
	if spec == nil {
		return nil, errors.NewInvalidSpecError("features_and_labels", "model has no feature/label spec")
	}

	ds, err := features.Extract(df, spec, features.WithLogger(o.Logger))
	if err != nil {
		return nil, err
	}
	split, err := dataset.Split(ds, o.splitOptions()...)
	if err != nil {
		return nil, err
	}
	o.Logger.Info("create model",
		log.OperationKey, log.OperationFit,
		log.FeaturesKey, spec.String(),
		log.SplitTrainKey, split.Train.Len(),
		log.SplitTestKey, len(split.TestRows),
	)

	orch := training.NewOrchestrator(
		training.WithLogger(o.Logger),
		training.WithCrossValidation(o.CVEpochs, o.Folds),
		training.WithMissingLossPolicy(o.MissingLoss),
	)

	start := time.Now()
	res := &FitResult{}
	if o.HyperParameterSpace != nil {
		m, res.Trials, err = orch.Search(provider, o.HyperParameterSpace, split, o.Optimizer)
		if err != nil {
			return nil, err
		}
	}
	if res.Loss, err = orch.Train(m, split); err != nil {
		return nil, err
	}
	o.Logger.Info("fitting model done",
		log.OperationKey, log.OperationFit,
		log.LossKey, res.Loss.String(),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	res.Model = m

	goals := spec.Goals()
	if res.Training, err = assembled(df, split.Train, m, goals); err != nil {
		return nil, err
	}
	if res.TrainingSummary, err = summary.FromFrame(res.Training, goals, spec.ProbabilityCutoff()); err != nil {
		return nil, err
	}
	if split.HasTest() {
		if res.Test, err = assembled(df, split.Test, m, goals); err != nil {
			return nil, err
		}
		if res.TestSummary, err = summary.FromFrame(res.Test, goals, spec.ProbabilityCutoff()); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// assembled predicts ds with m and assembles the rows of df it came from.
func assembled(df *frame.Frame, ds *dataset.Dataset, m models.Model, goals []features.Goal) (*frame.LabeledFrame, error) {
	preds, err := m.Predict(ds.X)
	if err != nil {
		return nil, err
	}
	rows, err := df.Loc(ds.Index)
	if err != nil {
		return nil, err
	}
	return prediction.Assemble(rows, goals, preds)
}

// Backtest predicts every row of df that has a complete feature window and
// labels, and returns the prediction frame with the feature columns appended.
func Backtest(df *frame.Frame, m models.Model, opts ...Option) (*frame.LabeledFrame, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.Logger == nil {
		o.Logger = log.GetLoggerWithName("fitter")
	}
	spec := m.FeaturesAndLabels()

	ds, err := features.Extract(df, spec, features.WithLogger(o.Logger))
	if err != nil {
		return nil, err
	}
	preds, err := m.Predict(ds.X)
	if err != nil {
		return nil, err
	}
	rows, err := df.Loc(ds.Index)
	if err != nil {
		return nil, err
	}
	o.Logger.Info("backtest",
		log.OperationKey, log.OperationBacktest,
		log.PredsKey, ds.Len(),
	)
	return prediction.AssembleBacktest(rows, spec, preds)
}

// BacktestSummary summarizes the backtest of df per goal at the model's probability cutoff.
func BacktestSummary(df *frame.Frame, m models.Model, opts ...Option) (map[string]*summary.ClassificationSummary, error) {
	lf, err := Backtest(df, m, opts...)
	if err != nil {
		return nil, err
	}
	spec := m.FeaturesAndLabels()
	return summary.FromFrame(lf, spec.Goals(), spec.ProbabilityCutoff())
}

// Predict forecasts df without labels. With tail > 0 only the last tail rows
// are predicted, and only as many rows as their feature windows need are
// extracted. tail == 0 predicts every row.
func Predict(df *frame.Frame, m models.Model, tail int, opts ...Option) (*frame.LabeledFrame, error) {
	rows, preds, err := forecast(df, m, tail, opts)
	if err != nil {
		return nil, err
	}
	return prediction.AssembleForecast(rows, m.FeaturesAndLabels(), preds)
}

// Classify is Predict with each prediction split into its probability and the
// class decided at the model's probability cutoff.
func Classify(df *frame.Frame, m models.Model, tail int, opts ...Option) (*frame.LabeledFrame, error) {
	rows, preds, err := forecast(df, m, tail, opts)
	if err != nil {
		return nil, err
	}
	return prediction.AssembleClassification(rows, m.FeaturesAndLabels(), preds)
}

func forecast(df *frame.Frame, m models.Model, tail int, opts []Option) (*frame.Frame, models.Predictions, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.Logger == nil {
		o.Logger = log.GetLoggerWithName("fitter")
	}
	if tail < 0 {
		return nil, nil, errors.NewValidationError("tail", "must be >= 0", tail)
	}
	spec := m.FeaturesAndLabels()
	if tail > 0 {
		df = df.Tail(tail + spec.MinRequiredSamples() - 1)
	}

	ds, err := features.ExtractFeatures(df, spec, features.WithLogger(o.Logger))
	if err != nil {
		return nil, nil, err
	}
	preds, err := m.Predict(ds.X)
	if err != nil {
		return nil, nil, err
	}
	rows, err := df.Loc(ds.Index)
	if err != nil {
		return nil, nil, err
	}
	o.Logger.Info("predict",
		log.OperationKey, log.OperationPredict,
		log.PredsKey, ds.Len(),
	)
	return rows, preds, nil
}
