package model

import "gonum.org/v1/gonum/mat"

// Fitter は学習可能な推定器のインターフェース
type Fitter interface {
	// Fit は推定器を訓練データで学習させる
	Fit(X, y mat.Matrix) error
}

// Predictor は予測可能な推定器のインターフェース
type Predictor interface {
	// Predict は入力データに対する予測を行う
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Estimator は教師あり学習の推定器です。models.EstimatorModelが包む対象になります。
type Estimator interface {
	Fitter
	Predictor
}

// ProbabilityPredictor は確率を出力できる分類器のインターフェース
type ProbabilityPredictor interface {
	// PredictProba は各クラスの確率を返す（列1が陽性クラス）
	PredictProba(X mat.Matrix) (mat.Matrix, error)
}

// Transformer はデータ変換のインターフェース
type Transformer interface {
	// Fit は変換に必要なパラメータを学習する
	Fit(X mat.Matrix) error

	// Transform はデータを変換する
	Transform(X mat.Matrix) (mat.Matrix, error)

	// FitTransform はFitとTransformを同時に実行する
	FitTransform(X mat.Matrix) (mat.Matrix, error)
}

// ParamsGetter はハイパーパラメータを公開するモデルのインターフェース
type ParamsGetter interface {
	GetParams() map[string]interface{}
}
