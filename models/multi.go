package models

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/framefit/core/model"
	"github.com/YuminosukeSato/framefit/features"
	"github.com/YuminosukeSato/framefit/hyperopt"
	"github.com/YuminosukeSato/framefit/pkg/errors"
)

// MultiModel fits one sub-model per goal. Each sub-model sees a spec reduced
// to its goal. The reported loss is the mean of the sub-model losses that are
// present, or no loss when none reports one.
type MultiModel struct {
	Spec   *features.Spec
	Models map[string]Model
}

// NewMultiFactory returns a Factory building a MultiModel whose sub-models are
// built by sub with the same params.
func NewMultiFactory(sub Factory) Factory {
	return func(spec *features.Spec, params hyperopt.Params) (Model, error) {
		mm := &MultiModel{Spec: spec, Models: make(map[string]Model)}
		for _, g := range spec.Goals() {
			goalSpec, err := spec.OnlyGoal(g.Key())
			if err != nil {
				return nil, err
			}
			m, err := sub(goalSpec, params)
			if err != nil {
				return nil, errors.Wrapf(err, "build model for goal %q", g.Key())
			}
			mm.Models[g.Key()] = m
		}
		return mm, nil
	}
}

// FeaturesAndLabels implements Model.
func (mm *MultiModel) FeaturesAndLabels() *features.Spec { return mm.Spec }

// Fit implements Model. Sub-models are fitted in goal order.
func (mm *MultiModel) Fit(xTrain, yTrain, xVal, yVal *mat.Dense, idxTrain, idxVal []time.Time) (model.Loss, error) {
	var losses []float64
	for _, g := range mm.Spec.Goals() {
		m, ok := mm.Models[g.Key()]
		if !ok {
			return model.NoLoss, errors.NewModelError("MultiModel.Fit", fmt.Sprintf("no sub-model for goal %q", g.Key()), errors.ErrNotImplemented)
		}
		loss, err := m.Fit(xTrain, yTrain, xVal, yVal, idxTrain, idxVal)
		if err != nil {
			return model.NoLoss, errors.Wrapf(err, "goal %q", g.Key())
		}
		if v, ok := loss.Get(); ok {
			losses = append(losses, v)
		}
	}
	if len(losses) == 0 {
		return model.NoLoss, nil
	}
	return model.LossOf(floats.Sum(losses) / float64(len(losses))), nil
}

// Predict implements Model.
func (mm *MultiModel) Predict(x *mat.Dense) (Predictions, error) {
	preds := make(Predictions)
	for _, g := range mm.Spec.Goals() {
		m, ok := mm.Models[g.Key()]
		if !ok {
			return nil, errors.NewNotFittedError("MultiModel", "Predict")
		}
		p, err := m.Predict(x)
		if err != nil {
			return nil, errors.Wrapf(err, "goal %q", g.Key())
		}
		goalPred, ok := p[g.Key()]
		if !ok {
			return nil, errors.NewValueError("MultiModel.Predict", fmt.Sprintf("sub-model returned no prediction for goal %q", g.Key()))
		}
		preds[g.Key()] = goalPred
	}
	return preds, nil
}

func (mm *MultiModel) String() string {
	return fmt.Sprintf("MultiModel(goals=%d)", len(mm.Models))
}
