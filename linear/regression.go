// Package linear は線形モデルの推定器を提供する。
// いずれも core/model.Estimator を満たし、models.EstimatorModel で包んで使う。
package linear

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/framefit/core/model"
	"github.com/YuminosukeSato/framefit/core/parallel"
	"github.com/YuminosukeSato/framefit/pkg/errors"
)

// LinearRegression は最小二乗法による線形回帰モデル
type LinearRegression struct {
	model.StateManager

	Weights   []float64 // 重み（係数）
	Intercept float64   // 切片
}

// NewLinearRegression は新しい線形回帰モデルを作成する
func NewLinearRegression() *LinearRegression {
	return &LinearRegression{}
}

// Fit はモデルを訓練データで学習させる。
// 切片列を加えた計画行列に対して最小二乗解をQR分解で求める。
func (lr *LinearRegression) Fit(X, y mat.Matrix) error {
	r, c := X.Dims()
	ry, cy := y.Dims()

	if r == 0 || c == 0 {
		return errors.NewModelError("LinearRegression.Fit", "empty data", errors.ErrEmptyData)
	}
	if ry != r {
		return errors.NewDimensionError("LinearRegression.Fit", r, ry, 0)
	}
	if cy != 1 {
		return errors.NewValueError("LinearRegression.Fit", "y must be a column vector")
	}
	if r < c+1 {
		return errors.NewInsufficientDataError("LinearRegression.Fit", c+1, r)
	}

	// X_with_intercept = [1, X]
	design := mat.NewDense(r, c+1, nil)
	parallel.ParallelizeWithThreshold(r, parallel.DefaultThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			design.Set(i, 0, 1.0)
			for j := 0; j < c; j++ {
				design.Set(i, j+1, X.At(i, j))
			}
		}
	})

	var qr mat.QR
	qr.Factorize(design)
	var beta mat.Dense
	if err := qr.SolveTo(&beta, false, y); err != nil {
		return errors.NewModelError("LinearRegression.Fit", "singular matrix", errors.ErrSingularMatrix)
	}

	lr.Intercept = beta.At(0, 0)
	lr.Weights = make([]float64, c)
	for j := 0; j < c; j++ {
		lr.Weights[j] = beta.At(j+1, 0)
	}

	lr.SetFitted(c, r)
	return nil
}

// Predict は入力データに対する予測を行う
func (lr *LinearRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := lr.RequireFitted("LinearRegression", "Predict"); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	if err := lr.RequireFeatures("LinearRegression.Predict", c); err != nil {
		return nil, err
	}

	// y = X * weights + intercept
	var out mat.VecDense
	out.MulVec(X, mat.NewVecDense(c, lr.Weights))
	predictions := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		predictions.Set(i, 0, out.AtVec(i)+lr.Intercept)
	}
	return predictions, nil
}

// GetParams implements model.ParamsGetter.
func (lr *LinearRegression) GetParams() map[string]interface{} {
	return map[string]interface{}{}
}

func (lr *LinearRegression) String() string {
	if !lr.IsFitted() {
		return "LinearRegression()"
	}
	return fmt.Sprintf("LinearRegression(weights=%v, intercept=%g)", lr.Weights, lr.Intercept)
}
