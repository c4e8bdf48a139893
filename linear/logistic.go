package linear

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/framefit/core/model"
	"github.com/YuminosukeSato/framefit/pkg/errors"
)

// LogisticRegression is a binary logistic regression trained by full-batch
// gradient descent with L2 regularization. Labels are 0/1 (values > 0.5 are positive).
type LogisticRegression struct {
	model.StateManager

	// Hyperparameters
	C            float64 // Inverse regularization strength (1/alpha); <= 0 disables it
	FitIntercept bool
	MaxIter      int
	Tol          float64
	Seed         uint64

	// Model parameters
	Coef      []float64
	Intercept float64
	NIter     int
}

// NewLogisticRegression creates a new LogisticRegression classifier
func NewLogisticRegression(opts ...LogisticOption) *LogisticRegression {
	lr := &LogisticRegression{
		C:            1.0,
		FitIntercept: true,
		MaxIter:      100,
		Tol:          1e-4,
	}
	for _, opt := range opts {
		opt(lr)
	}
	return lr
}

// Fit trains the logistic regression model
func (lr *LogisticRegression) Fit(X, y mat.Matrix) error {
	nSamples, nFeatures := X.Dims()
	yRows, yCols := y.Dims()

	if nSamples == 0 || nFeatures == 0 {
		return errors.NewModelError("LogisticRegression.Fit", "empty data", errors.ErrEmptyData)
	}
	if nSamples != yRows {
		return errors.NewDimensionError("LogisticRegression.Fit", nSamples, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewValueError("LogisticRegression.Fit", fmt.Sprintf("y must be a column vector: got shape (%d, %d)", yRows, yCols))
	}

	rng := rand.New(rand.NewPCG(lr.Seed, lr.Seed))
	lr.Coef = make([]float64, nFeatures)
	for j := range lr.Coef {
		lr.Coef[j] = rng.NormFloat64() * 0.01
	}
	lr.Intercept = 0

	target := make([]float64, nSamples)
	for i := range target {
		if y.At(i, 0) > 0.5 {
			target[i] = 1
		}
	}

	baseLearningRate := 1.0
	gradWeights := make([]float64, nFeatures)
	for iter := 0; iter < lr.MaxIter; iter++ {
		for j := range gradWeights {
			gradWeights[j] = 0
		}
		gradIntercept := 0.0

		for i := 0; i < nSamples; i++ {
			z := lr.Intercept
			for j := 0; j < nFeatures; j++ {
				z += X.At(i, j) * lr.Coef[j]
			}
			residual := sigmoid(z) - target[i]
			gradIntercept += residual
			for j := 0; j < nFeatures; j++ {
				gradWeights[j] += residual * X.At(i, j)
			}
		}

		for j := range gradWeights {
			gradWeights[j] /= float64(nSamples)
			if lr.C > 0 {
				gradWeights[j] += lr.Coef[j] / (lr.C * float64(nSamples))
			}
		}
		gradIntercept /= float64(nSamples)

		learningRate := baseLearningRate / (1.0 + 0.1*float64(iter))
		for j := range lr.Coef {
			lr.Coef[j] -= learningRate * gradWeights[j]
		}
		if lr.FitIntercept {
			lr.Intercept -= learningRate * gradIntercept
		}
		lr.NIter = iter + 1

		maxGrad := math.Abs(gradIntercept)
		for _, g := range gradWeights {
			maxGrad = math.Max(maxGrad, math.Abs(g))
		}
		if maxGrad < lr.Tol {
			break
		}
	}

	lr.SetFitted(nFeatures, nSamples)
	return nil
}

// PredictProba returns [P(y=0), P(y=1)] per row.
func (lr *LogisticRegression) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := lr.RequireFitted("LogisticRegression", "PredictProba"); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	if err := lr.RequireFeatures("LogisticRegression.PredictProba", c); err != nil {
		return nil, err
	}

	proba := mat.NewDense(r, 2, nil)
	for i := 0; i < r; i++ {
		z := lr.Intercept
		for j := 0; j < c; j++ {
			z += X.At(i, j) * lr.Coef[j]
		}
		p := sigmoid(z)
		proba.Set(i, 0, 1-p)
		proba.Set(i, 1, p)
	}
	return proba, nil
}

// Predict returns the predicted class (0 or 1) per row.
func (lr *LogisticRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := lr.PredictProba(X)
	if err != nil {
		return nil, err
	}
	r, _ := proba.Dims()
	out := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		if proba.At(i, 1) > 0.5 {
			out.Set(i, 0, 1)
		}
	}
	return out, nil
}

// GetParams implements model.ParamsGetter.
func (lr *LogisticRegression) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"C":             lr.C,
		"fit_intercept": lr.FitIntercept,
		"max_iter":      lr.MaxIter,
		"tol":           lr.Tol,
		"random_state":  lr.Seed,
	}
}

func (lr *LogisticRegression) String() string {
	return fmt.Sprintf("LogisticRegression(C=%g, max_iter=%d, tol=%g)", lr.C, lr.MaxIter, lr.Tol)
}

// sigmoid computes the sigmoid function
func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1.0 / (1.0 + math.Exp(-z))
	}
	ez := math.Exp(z)
	return ez / (1.0 + ez)
}

var (
	_ model.Estimator            = (*LogisticRegression)(nil)
	_ model.ProbabilityPredictor = (*LogisticRegression)(nil)
	_ model.Estimator            = (*LinearRegression)(nil)
)
