// Package metrics implements the regression metrics used for cross-validation
// and per-element evaluation.
package metrics

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/ceramigo/pkg/errors"
)

// MSE は平均二乗誤差（Mean Squared Error）を計算する
func MSE(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkVectors("MSE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	var sum float64
	for i := 0; i < n; i++ {
		diff := yTrue.AtVec(i) - yPred.AtVec(i)
		sum += diff * diff
	}
	return sum / float64(n), nil
}

// RMSE は平方根平均二乗誤差を計算する
func RMSE(yTrue, yPred *mat.VecDense) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAE は平均絶対誤差（Mean Absolute Error）を計算する
func MAE(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkVectors("MAE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	var sum float64
	for i := 0; i < n; i++ {
		sum += math.Abs(yTrue.AtVec(i) - yPred.AtVec(i))
	}
	return sum / float64(n), nil
}

// R2Score は決定係数（R²）を計算する。
//
// yTrue がすべて同じ値（全変動 = 0）の場合、R² は定義されない。
// このとき NaN と *errors.DegenerateMetricWarning を返す。
// 呼び出し側は errors.As で警告を判別し、致命的なエラーと区別すること。
func R2Score(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkVectors("R2Score", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	yMean := mat.Sum(yTrue) / float64(n)

	var tss, rss float64
	for i := 0; i < n; i++ {
		t := yTrue.AtVec(i)
		d := t - yPred.AtVec(i)
		tss += (t - yMean) * (t - yMean)
		rss += d * d
	}

	if tss == 0 {
		w := errors.NewDegenerateMetricWarning("r2", "", "constant ground truth")
		return w.Result(), w
	}

	// R² = 1 - RSS/TSS
	return 1 - rss/tss, nil
}

// R2ScoreMatrix は列ごとの R² を返す。定数列の値は NaN になる（エラーではない）。
func R2ScoreMatrix(yTrue, yPred mat.Matrix) ([]float64, error) {
	_, c, err := checkMatrices("R2ScoreMatrix", yTrue, yPred)
	if err != nil {
		return nil, err
	}

	scores := make([]float64, c)
	for j := 0; j < c; j++ {
		t, p := columnPair(yTrue, yPred, j)
		score, err := R2Score(t, p)
		if err != nil && !isDegenerate(err) {
			return nil, err
		}
		scores[j] = score
	}
	return scores, nil
}

// MAEMatrix は列ごとの MAE を返す
func MAEMatrix(yTrue, yPred mat.Matrix) ([]float64, error) {
	_, c, err := checkMatrices("MAEMatrix", yTrue, yPred)
	if err != nil {
		return nil, err
	}

	maes := make([]float64, c)
	for j := 0; j < c; j++ {
		t, p := columnPair(yTrue, yPred, j)
		if maes[j], err = MAE(t, p); err != nil {
			return nil, err
		}
	}
	return maes, nil
}

// UniformAverageR2 は多出力の R² を列の一様平均で集約する。
// NaN（定数列）は除外し、すべて NaN の場合は NaN を返す。
func UniformAverageR2(yTrue, yPred mat.Matrix) (float64, error) {
	scores, err := R2ScoreMatrix(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return MeanIgnoringNaN(scores), nil
}

// MeanAbsoluteErrorAll は全セルにわたる MAE を返す
func MeanAbsoluteErrorAll(yTrue, yPred mat.Matrix) (float64, error) {
	r, c, err := checkMatrices("MeanAbsoluteErrorAll", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	var diff mat.Dense
	diff.Sub(yTrue, yPred)
	diff.Apply(func(_, _ int, v float64) float64 { return math.Abs(v) }, &diff)
	return mat.Sum(&diff) / float64(r*c), nil
}

// MeanIgnoringNaN は NaN を除いた平均を返す。有効な値がなければ NaN。
func MeanIgnoringNaN(xs []float64) float64 {
	valid := make([]float64, 0, len(xs))
	for _, x := range xs {
		if !math.IsNaN(x) {
			valid = append(valid, x)
		}
	}
	if len(valid) == 0 {
		return math.NaN()
	}
	return stat.Mean(valid, nil)
}

func isDegenerate(err error) bool {
	var w *errors.DegenerateMetricWarning
	return errors.As(err, &w)
}

func checkVectors(op string, yTrue, yPred *mat.VecDense) (int, error) {
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError(op, "empty vector")
	}
	if yPred.Len() != n {
		return 0, errors.NewDimensionError(op, n, yPred.Len(), 0)
	}
	return n, nil
}

func checkMatrices(op string, yTrue, yPred mat.Matrix) (int, int, error) {
	rTrue, cTrue := yTrue.Dims()
	rPred, cPred := yPred.Dims()

	if rTrue == 0 || cTrue == 0 {
		return 0, 0, errors.NewValueError(op, "empty matrix")
	}
	if rTrue != rPred {
		return 0, 0, errors.NewDimensionError(op, rTrue, rPred, 0)
	}
	if cTrue != cPred {
		return 0, 0, errors.NewDimensionError(op, cTrue, cPred, 1)
	}
	return rTrue, cTrue, nil
}

func columnPair(yTrue, yPred mat.Matrix, j int) (*mat.VecDense, *mat.VecDense) {
	r, _ := yTrue.Dims()
	t := mat.NewVecDense(r, nil)
	p := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		t.SetVec(i, yTrue.At(i, j))
		p.SetVec(i, yPred.At(i, j))
	}
	return t, p
}
