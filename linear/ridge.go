// Package linear provides multi-output ridge regression.
package linear

import (
	"encoding/gob"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/ceramigo/core/model"
	"github.com/YuminosukeSato/ceramigo/core/parallel"
	"github.com/YuminosukeSato/ceramigo/metrics"
	"github.com/YuminosukeSato/ceramigo/pkg/errors"
	"github.com/YuminosukeSato/ceramigo/preprocessing"
)

// DefaultAlpha は正則化強度の既定値
const DefaultAlpha = 1.0

// 並列処理の閾値（この値以下の行数では逐次処理を使用）
const parallelThreshold = 1000

func init() {
	gob.Register(&Ridge{})
}

// Ridge は多出力のリッジ回帰モデル。
// 各出力列は独立したリッジ回帰と等価で、同じ特徴量行列を共有する。
type Ridge struct {
	State *model.StateManager

	Alpha        float64
	FitIntercept bool
	Standardize  bool

	// Scaler は Standardize が true のときのみ設定される
	Scaler *preprocessing.StandardScaler

	// Coef は f×k の係数行列（行優先）
	Coef []float64

	// Intercept は出力ごとの切片（長さ k）
	Intercept []float64
}

// NewRidge は新しいリッジ回帰モデルを作成する
//
//	r := linear.NewRidge(linear.WithAlpha(1.0), linear.WithStandardize(true))
//	err := r.Fit(X, Y)
func NewRidge(opts ...Option) *Ridge {
	r := &Ridge{
		State:        model.NewStateManager(),
		Alpha:        DefaultAlpha,
		FitIntercept: true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Name implements model.Regressor.
func (r *Ridge) Name() string { return "Ridge" }

// IsFitted implements model.Regressor.
func (r *Ridge) IsFitted() bool { return r.State != nil && r.State.IsFitted() }

// Fit はモデルを学習させる。
// 中心化したデータで (XᵀX + αI) W = XᵀY を Cholesky 分解で解き、
// 切片は b = ȳ - x̄ᵀW として復元する（切片は正則化しない）。
func (r *Ridge) Fit(X, Y mat.Matrix) error {
	n, f := X.Dims()
	ny, k := Y.Dims()

	if n == 0 || f == 0 || k == 0 {
		return errors.NewModelError("Ridge.Fit", "empty data", errors.ErrEmptyData)
	}
	if ny != n {
		return errors.NewDimensionError("Ridge.Fit", n, ny, 0)
	}
	if r.Alpha < 0 {
		return errors.NewValidationError("alpha", "must be non-negative", r.Alpha)
	}
	if r.State == nil {
		r.State = model.NewStateManager()
	}
	r.State.Reset()

	Xw := X
	if r.Standardize {
		r.Scaler = preprocessing.NewStandardScalerDefault()
		scaled, err := r.Scaler.FitTransform(X)
		if err != nil {
			return errors.Wrap(err, "Ridge.Fit: standardize")
		}
		Xw = scaled
	} else {
		r.Scaler = nil
	}

	Xc := mat.DenseCopyOf(Xw)
	Yc := mat.DenseCopyOf(Y)
	xMean := make([]float64, f)
	yMean := make([]float64, k)
	if r.FitIntercept {
		xMean = columnMeans(Xc)
		yMean = columnMeans(Yc)
		center(Xc, xMean)
		center(Yc, yMean)
	}

	// A = XcᵀXc + αI
	var A mat.SymDense
	A.SymOuterK(1, Xc.T())
	for j := 0; j < f; j++ {
		A.SetSym(j, j, A.At(j, j)+r.Alpha)
	}

	var B mat.Dense
	B.Mul(Xc.T(), Yc)

	var chol mat.Cholesky
	if ok := chol.Factorize(&A); !ok {
		return errors.NewModelError("Ridge.Fit", "singular matrix", errors.ErrSingularMatrix)
	}
	var W mat.Dense
	if err := chol.SolveTo(&W, &B); err != nil {
		return errors.NewModelError("Ridge.Fit", "solve failed", err)
	}
	if err := errors.CheckMatrix("Ridge.Fit", &W, f, k); err != nil {
		return err
	}

	// b = ȳ - x̄ᵀW
	intercept := make([]float64, k)
	for o := 0; o < k; o++ {
		b := yMean[o]
		for j := 0; j < f; j++ {
			b -= xMean[j] * W.At(j, o)
		}
		intercept[o] = b
	}

	r.Coef = make([]float64, f*k)
	for j := 0; j < f; j++ {
		for o := 0; o < k; o++ {
			r.Coef[j*k+o] = W.At(j, o)
		}
	}
	r.Intercept = intercept
	r.State.SetFitted(f, k, n)
	return nil
}

// Predict は X (n×f) に対する n×k の予測を返す
func (r *Ridge) Predict(X mat.Matrix) (mat.Matrix, error) {
	if r.State == nil {
		return nil, errors.NewNotFittedError("Ridge", "Predict")
	}
	if err := r.State.RequireFitted("Ridge", "Predict"); err != nil {
		return nil, err
	}
	if err := r.State.CheckInput("Ridge.Predict", X); err != nil {
		return nil, err
	}

	Xw := X
	if r.Scaler != nil {
		scaled, err := r.Scaler.Transform(X)
		if err != nil {
			return nil, err
		}
		Xw = scaled
	}

	n, _ := X.Dims()
	var P mat.Dense
	P.Mul(Xw, r.Coefficients())
	parallel.ParallelizeWithThreshold(n, parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			row := P.RawRowView(i)
			for o := range row {
				row[o] += r.Intercept[o]
			}
		}
	})
	return &P, nil
}

// Coefficients は f×k の係数行列を返す（標準化済み特徴量の空間）
func (r *Ridge) Coefficients() *mat.Dense {
	f, k := r.State.Dimensions()
	return mat.NewDense(f, k, r.Coef)
}

// Score は出力列の一様平均 R² を返す（定数列は除外）
func (r *Ridge) Score(X, Y mat.Matrix) (float64, error) {
	P, err := r.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.UniformAverageR2(Y, P)
}

// String returns a short description of the model.
func (r *Ridge) String() string {
	return fmt.Sprintf("Ridge(alpha=%g, fit_intercept=%t, standardize=%t)", r.Alpha, r.FitIntercept, r.Standardize)
}

func columnMeans(m *mat.Dense) []float64 {
	n, c := m.Dims()
	means := make([]float64, c)
	for i := 0; i < n; i++ {
		for j, v := range m.RawRowView(i) {
			means[j] += v
		}
	}
	for j := range means {
		means[j] /= float64(n)
	}
	return means
}

func center(m *mat.Dense, means []float64) {
	n, _ := m.Dims()
	parallel.ParallelizeWithThreshold(n, parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			row := m.RawRowView(i)
			for j := range row {
				row[j] -= means[j]
			}
		}
	})
}

var _ model.Regressor = (*Ridge)(nil)
