// Package training drives model fitting: a single fit or k-fold cross-validation
// over the training portion, and hyperparameter search over a model provider.
package training

import (
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/framefit/core/model"
	"github.com/YuminosukeSato/framefit/dataset"
	"github.com/YuminosukeSato/framefit/models"
	"github.com/YuminosukeSato/framefit/pkg/errors"
	"github.com/YuminosukeSato/framefit/pkg/log"
)

// Step phases named in errors and logs.
const (
	PhaseFit    = "fit"
	PhaseFold   = "fold"
	PhaseTrial  = "trial"
	PhaseSearch = "search"
)

// MissingLossPolicy decides what a search does with a trial without loss.
type MissingLossPolicy int

const (
	// AbortOnMissingLoss fails the whole search with a NoLossSignalError.
	AbortOnMissingLoss MissingLossPolicy = iota
	// SkipMissingLoss records the trial as failed and continues.
	SkipMissingLoss
)

func (p MissingLossPolicy) String() string {
	if p == SkipMissingLoss {
		return "skip"
	}
	return "abort"
}

// CrossValidation repeats a fold generator Epochs times.
type CrossValidation struct {
	Epochs int
	Folds  dataset.FoldGenerator
}

// Orchestrator fits models. Folds and trials run sequentially and each fit
// owns its model for the duration of the call.
type Orchestrator struct {
	logger log.Logger
	cv     *CrossValidation
	policy MissingLossPolicy
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(logger log.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithCrossValidation enables cross-validation with epochs repetitions of folds.
// A nil generator or epochs below 1 disables it.
func WithCrossValidation(epochs int, folds dataset.FoldGenerator) Option {
	return func(o *Orchestrator) {
		if epochs < 1 || folds == nil {
			o.cv = nil
			return
		}
		o.cv = &CrossValidation{Epochs: epochs, Folds: folds}
	}
}

// WithMissingLossPolicy sets how a search treats trials without loss.
func WithMissingLossPolicy(policy MissingLossPolicy) Option {
	return func(o *Orchestrator) {
		o.policy = policy
	}
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(opts ...Option) *Orchestrator {
	o := &Orchestrator{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = log.GetLoggerWithName("training")
	}
	return o
}

// CrossValidation returns the cross-validation settings, nil when disabled.
func (o *Orchestrator) CrossValidation() *CrossValidation {
	return o.cv
}

// Train fits m in place.
//
// Without cross-validation m is fitted once on the training rows, validated on
// the test rows when there are any, and its loss is returned as reported.
// With cross-validation m is fitted once per fold of every epoch, using only
// training rows, and the mean fold loss is returned. When no fold reports a
// loss the result is NoLoss; when only some do, a NoLossSignalError names the
// first fold without one.
func (o *Orchestrator) Train(m models.Model, split *dataset.SplitResult) (model.Loss, error) {
	if m == nil {
		return model.NoLoss, errors.NewValueError("Train", "model is nil")
	}
	if split == nil || split.Train == nil || split.Train.Len() == 0 {
		return model.NoLoss, errors.NewInsufficientDataError("Train", 1, 0)
	}
	params := paramsOf(m)

	if o.cv == nil {
		train := split.Train
		var xVal, yVal *mat.Dense
		var idxVal []time.Time
		if split.HasTest() {
			xVal, yVal, idxVal = split.Test.X, split.Test.Y, split.Test.Index
		}

		start := time.Now()
		var loss model.Loss
		err := errors.SafeStep(PhaseFit, 0, params, func() error {
			var err error
			loss, err = m.Fit(train.X, train.Y, xVal, yVal, train.Index, idxVal)
			return err
		})
		if err != nil {
			return model.NoLoss, err
		}
		o.logger.Info("model fitted",
			log.OperationKey, log.OperationFit,
			log.SamplesKey, train.Len(),
			log.LossKey, loss.String(),
			log.DurationMsKey, time.Since(start).Milliseconds(),
		)
		return loss, nil
	}

	return o.crossValidate(m, split.Train, params)
}

func (o *Orchestrator) crossValidate(m models.Model, train *dataset.Dataset, params map[string]interface{}) (model.Loss, error) {
	var losses []float64
	missing := -1
	index := 0

	for epoch := 0; epoch < o.cv.Epochs; epoch++ {
		folds, err := o.cv.Folds.Split(train.Len(), epoch)
		if err != nil {
			return model.NoLoss, errors.Wrapf(err, "cross-validation epoch %d", epoch)
		}

		for f, fold := range folds {
			fitTrain, err := train.Subset(fold.Train)
			if err != nil {
				return model.NoLoss, errors.Wrapf(err, "fold %d", index)
			}
			fitVal, err := train.Subset(fold.Validation)
			if err != nil {
				return model.NoLoss, errors.Wrapf(err, "fold %d", index)
			}

			o.logger.Info("fit fold",
				log.OperationKey, log.OperationTrain,
				log.EpochKey, epoch,
				log.FoldKey, f,
				log.SplitTrainKey, fitTrain.Len(),
				log.SplitTestKey, fitVal.Len(),
			)

			var loss model.Loss
			err = errors.SafeStep(PhaseFold, index, params, func() error {
				var err error
				loss, err = m.Fit(fitTrain.X, fitTrain.Y, fitVal.X, fitVal.Y, fitTrain.Index, fitVal.Index)
				return err
			})
			if err != nil {
				return model.NoLoss, err
			}

			if v, ok := loss.Get(); ok {
				losses = append(losses, v)
			} else if missing < 0 {
				missing = index
			}
			index++
		}
	}

	switch {
	case len(losses) == 0:
		return model.NoLoss, nil
	case missing >= 0:
		return model.NoLoss, errors.NewNoLossSignalError(PhaseFold, missing, params)
	}

	mean := stat.Mean(losses, nil)
	o.logger.Info("cross-validation done",
		log.OperationKey, log.OperationTrain,
		log.SamplesKey, train.Len(),
		log.LossKey, mean,
	)
	return model.LossOf(mean), nil
}

// paramsOf returns the hyperparameters of m when it exposes them.
func paramsOf(m models.Model) map[string]interface{} {
	if pg, ok := m.(model.ParamsGetter); ok {
		return pg.GetParams()
	}
	return nil
}
