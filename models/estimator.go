package models

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/framefit/core/model"
	"github.com/YuminosukeSato/framefit/features"
	"github.com/YuminosukeSato/framefit/hyperopt"
	"github.com/YuminosukeSato/framefit/metrics"
	"github.com/YuminosukeSato/framefit/pkg/errors"
)

// EstimatorModel wraps a classical estimator. One estimator is fitted per label
// used by the goals, on the flattened lag rows. Probability estimators report
// the positive class column.
type EstimatorModel struct {
	Spec       *features.Spec
	Estimators map[string]model.Estimator
	// LossName selects a metrics loss evaluated on the validation rows.
	// Empty means the model reports no loss.
	LossName string

	newEstimator func() model.Estimator
}

// NewEstimatorModel returns a model building estimators with newEstimator.
func NewEstimatorModel(spec *features.Spec, newEstimator func() model.Estimator, lossName string) *EstimatorModel {
	return &EstimatorModel{
		Spec:         spec,
		LossName:     lossName,
		newEstimator: newEstimator,
	}
}

// NewEstimatorFactory returns a Factory building EstimatorModels. newEstimator
// receives the params of the trial.
func NewEstimatorFactory(newEstimator func(params hyperopt.Params) model.Estimator, lossName string) Factory {
	return func(spec *features.Spec, params hyperopt.Params) (Model, error) {
		if lossName != "" {
			if _, err := metrics.ByName(lossName); err != nil {
				return nil, err
			}
		}
		return NewEstimatorModel(spec, func() model.Estimator { return newEstimator(params) }, lossName), nil
	}
}

// FeaturesAndLabels implements Model.
func (m *EstimatorModel) FeaturesAndLabels() *features.Spec { return m.Spec }

// Fit implements Model.
func (m *EstimatorModel) Fit(xTrain, yTrain, xVal, yVal *mat.Dense, _, _ []time.Time) (model.Loss, error) {
	if err := checkInput("EstimatorModel.Fit", m.Spec, xTrain, yTrain); err != nil {
		return model.NoLoss, err
	}
	if m.newEstimator == nil {
		return model.NoLoss, errors.NewModelError("EstimatorModel.Fit", "no estimator constructor (loaded models can only predict)", errors.ErrNotImplemented)
	}

	estimators := make(map[string]model.Estimator)
	for _, label := range m.usedLabels() {
		est := m.newEstimator()
		y := selectColumns(yTrain, []int{m.Spec.LabelIndex(label)})
		if err := est.Fit(xTrain, y); err != nil {
			return model.NoLoss, errors.Wrapf(err, "fit estimator for label %q", label)
		}
		estimators[label] = est
	}
	m.Estimators = estimators

	if m.LossName == "" || !hasRows(xVal) || yVal == nil {
		return model.NoLoss, nil
	}
	if err := checkInput("EstimatorModel.Fit", m.Spec, xVal, yVal); err != nil {
		return model.NoLoss, err
	}
	fn, err := metrics.ByName(m.LossName)
	if err != nil {
		return model.NoLoss, err
	}
	preds, err := m.Predict(xVal)
	if err != nil {
		return model.NoLoss, err
	}
	return goalLoss(m.Spec, yVal, preds, fn)
}

// Predict implements Model.
func (m *EstimatorModel) Predict(x *mat.Dense) (Predictions, error) {
	if err := checkInput("EstimatorModel.Predict", m.Spec, x, nil); err != nil {
		return nil, err
	}
	if m.Estimators == nil {
		return nil, errors.NewNotFittedError("EstimatorModel", "Predict")
	}

	r, _ := x.Dims()
	columns := make(map[string][]float64)
	for label, est := range m.Estimators {
		col, err := estimate(est, x)
		if err != nil {
			return nil, errors.Wrapf(err, "predict label %q", label)
		}
		columns[label] = col
	}

	preds := make(Predictions)
	for _, g := range m.Spec.Goals() {
		out := mat.NewDense(r, len(g.Labels), nil)
		for j, l := range g.Labels {
			out.SetCol(j, columns[l])
		}
		preds[g.Key()] = out
	}
	return preds, nil
}

func estimate(est model.Estimator, x *mat.Dense) ([]float64, error) {
	var out mat.Matrix
	var err error
	col := 0
	if pp, ok := est.(model.ProbabilityPredictor); ok {
		out, err = pp.PredictProba(x)
		if err == nil {
			if _, c := out.Dims(); c > 1 {
				col = 1
			}
		}
	} else {
		out, err = est.Predict(x)
	}
	if err != nil {
		return nil, err
	}
	r, _ := out.Dims()
	return mat.Col(make([]float64, r), col, out), nil
}

func (m *EstimatorModel) usedLabels() []string {
	used := make(map[string]bool)
	for _, g := range m.Spec.Goals() {
		for _, l := range g.Labels {
			used[l] = true
		}
	}
	var out []string
	for _, l := range m.Spec.Labels() {
		if used[l] {
			out = append(out, l)
		}
	}
	return out
}

func (m *EstimatorModel) String() string {
	return fmt.Sprintf("EstimatorModel(labels=%v, loss=%q)", m.usedLabels(), m.LossName)
}
