// Package models defines the trainable model capability consumed by the
// training orchestrator, and its variants: EstimatorModel wraps a classical
// estimator, NeuralModel is a small gradient-trained network and MultiModel
// fits one sub-model per goal.
package models

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/framefit/core/model"
	"github.com/YuminosukeSato/framefit/features"
	"github.com/YuminosukeSato/framefit/hyperopt"
	"github.com/YuminosukeSato/framefit/pkg/errors"
)

// Predictions maps a goal key to a rows × len(goal labels) matrix.
type Predictions map[string]*mat.Dense

// Rows returns the row count shared by all goals, or -1 when they disagree.
func (p Predictions) Rows() int {
	rows := -1
	for _, m := range p {
		r, _ := m.Dims()
		if rows >= 0 && r != rows {
			return -1
		}
		rows = r
	}
	return rows
}

// Model is a trainable model bound to a feature/label spec.
//
// Fit trains in place on lag-major feature rows and the label matrix of the
// spec. xVal and yVal may be nil when there is no validation data. Fit returns
// model.NoLoss when it has no meaningful loss to report.
type Model interface {
	FeaturesAndLabels() *features.Spec
	Fit(xTrain, yTrain, xVal, yVal *mat.Dense, idxTrain, idxVal []time.Time) (model.Loss, error)
	Predict(x *mat.Dense) (Predictions, error)
}

// Provider builds a fresh, unfitted model from params.
type Provider func(params hyperopt.Params) (Model, error)

// Factory builds a fresh model for spec from params.
type Factory func(spec *features.Spec, params hyperopt.Params) (Model, error)

// Bind fixes the spec of f.
func (f Factory) Bind(spec *features.Spec) Provider {
	return func(params hyperopt.Params) (Model, error) {
		return f(spec, params)
	}
}

// Single returns a Provider that always returns m, ignoring params.
// It is meant for fitting without a search.
func Single(m Model) Provider {
	return func(hyperopt.Params) (Model, error) {
		return m, nil
	}
}

// checkInput validates X against the spec and, when y is given, the labels.
func checkInput(op string, spec *features.Spec, x, y *mat.Dense) error {
	if x == nil {
		return errors.NewValueError(op, "feature matrix is nil")
	}
	r, c := x.Dims()
	if want := spec.ExpandedFeatureLength(); c != want {
		return errors.NewDimensionError(op, want, c, 1)
	}
	if y == nil {
		return nil
	}
	yr, yc := y.Dims()
	if yr != r {
		return errors.NewShapeMismatchError(op, map[string]int{"x.rows": r, "y.rows": yr})
	}
	if want := len(spec.Labels()); yc != want {
		return errors.NewDimensionError(op, want, yc, 1)
	}
	return nil
}

func hasRows(m *mat.Dense) bool {
	if m == nil || m.IsEmpty() {
		return false
	}
	r, _ := m.Dims()
	return r > 0
}

// goalColumns returns the positions in Labels() of the labels of g.
func goalColumns(spec *features.Spec, g features.Goal) []int {
	cols := make([]int, len(g.Labels))
	for i, l := range g.Labels {
		cols[i] = spec.LabelIndex(l)
	}
	return cols
}

// selectColumns copies the given columns of m.
func selectColumns(m mat.Matrix, cols []int) *mat.Dense {
	r, _ := m.Dims()
	out := mat.NewDense(r, len(cols), nil)
	for j, c := range cols {
		for i := 0; i < r; i++ {
			out.Set(i, j, m.At(i, c))
		}
	}
	return out
}

// goalLoss is the mean over goals of fn(truth, prediction) on the goal's labels.
func goalLoss(spec *features.Spec, y *mat.Dense, preds Predictions, fn func(yTrue, yPred mat.Matrix) (float64, error)) (model.Loss, error) {
	goals := spec.Goals()
	var sum float64
	for _, g := range goals {
		p, ok := preds[g.Key()]
		if !ok {
			return model.NoLoss, errors.NewValueError("loss", fmt.Sprintf("no prediction for goal %q", g.Key()))
		}
		v, err := fn(selectColumns(y, goalColumns(spec, g)), p)
		if err != nil {
			return model.NoLoss, err
		}
		sum += v
	}
	return model.LossOf(sum / float64(len(goals))), nil
}
