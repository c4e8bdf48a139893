// Package metrics はモデルが検証データ上で報告する損失関数を提供する。
package metrics

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/framefit/pkg/errors"
)

// LogLossEpsilon は確率をクリップする幅
const LogLossEpsilon = 1e-15

// LossFunc は正解と予測から損失を計算する関数
type LossFunc func(yTrue, yPred mat.Matrix) (float64, error)

// checkShapes は2つの行列が同じ形状で空でないことを確認する
func checkShapes(op string, yTrue, yPred mat.Matrix) (int, int, error) {
	r, c := yTrue.Dims()
	if r == 0 || c == 0 {
		return 0, 0, errors.NewValueError(op, "empty matrix")
	}
	pr, pc := yPred.Dims()
	if pr != r {
		return 0, 0, errors.NewDimensionError(op, r, pr, 0)
	}
	if pc != c {
		return 0, 0, errors.NewDimensionError(op, c, pc, 1)
	}
	return r, c, nil
}

// MSE は平均二乗誤差（Mean Squared Error）を全要素について計算する
func MSE(yTrue, yPred mat.Matrix) (float64, error) {
	r, c, err := checkShapes("MSE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	// MSE = (1/n) * Σ(yTrue - yPred)²
	var sum float64
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			diff := yTrue.At(i, j) - yPred.At(i, j)
			sum += diff * diff
		}
	}
	return sum / float64(r*c), nil
}

// RMSE は平方根平均二乗誤差を計算する
func RMSE(yTrue, yPred mat.Matrix) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAE は平均絶対誤差（Mean Absolute Error）を計算する
func MAE(yTrue, yPred mat.Matrix) (float64, error) {
	r, c, err := checkShapes("MAE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	var sum float64
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			sum += math.Abs(yTrue.At(i, j) - yPred.At(i, j))
		}
	}
	return sum / float64(r*c), nil
}

// LogLoss は二値交差エントロピーの平均を計算する。
// yProba は陽性クラスの確率で、[ε, 1-ε] にクリップされる。
// ラベルが複数列ある場合は列ごとの独立な二値分類として扱う。
func LogLoss(yTrue, yProba mat.Matrix) (float64, error) {
	r, c, err := checkShapes("LogLoss", yTrue, yProba)
	if err != nil {
		return 0, err
	}

	var sum float64
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			y := yTrue.At(i, j)
			if y != 0 && y != 1 {
				return 0, errors.NewValueError("LogLoss", "labels must be 0 or 1")
			}
			p := math.Min(math.Max(yProba.At(i, j), LogLossEpsilon), 1-LogLossEpsilon)
			sum -= y*math.Log(p) + (1-y)*math.Log(1-p)
		}
	}
	return sum / float64(r*c), nil
}

// Loss names accepted by ByName.
const (
	LossLog = "log_loss"
	LossMSE = "mse"
	LossMAE = "mae"
)

// ByName returns the loss function registered under name.
func ByName(name string) (LossFunc, error) {
	switch name {
	case LossLog:
		return LogLoss, nil
	case LossMSE:
		return MSE, nil
	case LossMAE:
		return MAE, nil
	default:
		return nil, errors.NewValidationError("loss", "unknown loss function", name)
	}
}
