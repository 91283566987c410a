// Package model defines the estimator contracts shared by the regressors,
// the trainer and the predictor.
package model

import "gonum.org/v1/gonum/mat"

// Fitter は学習可能なモデルのインターフェース
type Fitter interface {
	// Fit は特徴量 X (n×f) と目的変数 Y (n×k) でモデルを学習させる
	Fit(X, Y mat.Matrix) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict は X の各行について k 個の出力を返す
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Transformer はデータ変換のインターフェース
type Transformer interface {
	Fit(X mat.Matrix) error
	Transform(X mat.Matrix) (mat.Matrix, error)
	FitTransform(X mat.Matrix) (mat.Matrix, error)
}

// Regressor は多出力回帰モデルの共通インターフェース
type Regressor interface {
	Fitter
	Predictor

	// IsFitted は学習済みかどうかを返す
	IsFitted() bool

	// Name はログや成果物に記録されるモデル名を返す
	Name() string
}

// Factory は未学習の Regressor を生成する。
// 交差検証では fold ごとに新しいインスタンスが必要になる。
type Factory func() Regressor
