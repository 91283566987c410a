package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/ceramigo/pkg/errors"
)

func TestMSE(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   *mat.VecDense
		yPred   *mat.VecDense
		want    float64
		wantErr bool
	}{
		{
			name:  "perfect prediction",
			yTrue: mat.NewVecDense(5, []float64{1, 2, 3, 4, 5}),
			yPred: mat.NewVecDense(5, []float64{1, 2, 3, 4, 5}),
			want:  0,
		},
		{
			name:  "simple case",
			yTrue: mat.NewVecDense(4, []float64{1, 2, 3, 4}),
			yPred: mat.NewVecDense(4, []float64{1.5, 2.5, 2.5, 3.5}),
			want:  0.25,
		},
		{
			name:    "dimension mismatch",
			yTrue:   mat.NewVecDense(3, []float64{1, 2, 3}),
			yPred:   mat.NewVecDense(2, []float64{1, 2}),
			wantErr: true,
		},
		{
			name:    "empty vectors",
			yTrue:   &mat.VecDense{},
			yPred:   &mat.VecDense{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MSE(tt.yTrue, tt.yPred)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-10)
		})
	}
}

func TestMAE(t *testing.T) {
	got, err := MAE(
		mat.NewVecDense(3, []float64{10, 20, 30}),
		mat.NewVecDense(3, []float64{12, 18, 33}),
	)
	require.NoError(t, err)
	assert.InDelta(t, 7.0/3.0, got, 1e-12)

	rmse, err := RMSE(
		mat.NewVecDense(2, []float64{0, 0}),
		mat.NewVecDense(2, []float64{3, 4}),
	)
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt(12.5), rmse, 1e-12)
}

func TestR2Score(t *testing.T) {
	tests := []struct {
		name  string
		yTrue []float64
		yPred []float64
		want  float64
	}{
		{"perfect", []float64{1, 2, 3, 4}, []float64{1, 2, 3, 4}, 1},
		{"mean predictor", []float64{1, 2, 3, 4}, []float64{2.5, 2.5, 2.5, 2.5}, 0},
		{"worse than mean", []float64{1, 2, 3}, []float64{3, 2, 1}, -3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := len(tt.yTrue)
			got, err := R2Score(mat.NewVecDense(n, tt.yTrue), mat.NewVecDense(n, tt.yPred))
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestR2ScoreConstantTruth(t *testing.T) {
	got, err := R2Score(
		mat.NewVecDense(3, []float64{2, 2, 2}),
		mat.NewVecDense(3, []float64{2, 1, 3}),
	)
	assert.True(t, math.IsNaN(got))

	var w *errors.DegenerateMetricWarning
	require.True(t, errors.As(err, &w))
	assert.Equal(t, "r2", w.Metric)
}

func TestMatrixMetrics(t *testing.T) {
	yTrue := mat.NewDense(4, 3, []float64{
		1, 0, 2,
		2, 0, 4,
		3, 0, 6,
		4, 0, 8,
	})
	yPred := mat.NewDense(4, 3, []float64{
		1, 0.5, 2,
		2, 0, 4,
		3, 0, 6,
		4, 0.5, 9,
	})

	r2, err := R2ScoreMatrix(yTrue, yPred)
	require.NoError(t, err)
	require.Len(t, r2, 3)
	assert.InDelta(t, 1.0, r2[0], 1e-12)
	assert.True(t, math.IsNaN(r2[1]))
	assert.InDelta(t, 1-1.0/20.0, r2[2], 1e-12)

	maes, err := MAEMatrix(yTrue, yPred)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0.25, 0.25}, maes)

	avg, err := UniformAverageR2(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, (1+0.95)/2, avg, 1e-12)

	all, err := MeanAbsoluteErrorAll(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, 2.0/12.0, all, 1e-12)
}

func TestMatrixMetricsShapeMismatch(t *testing.T) {
	_, err := R2ScoreMatrix(mat.NewDense(2, 2, nil), mat.NewDense(2, 3, nil))
	var dimErr *errors.DimensionError
	require.True(t, errors.As(err, &dimErr))
	assert.Equal(t, 1, dimErr.Axis)

	_, err = MAEMatrix(mat.NewDense(3, 2, nil), mat.NewDense(2, 2, nil))
	assert.Error(t, err)
}

func TestMeanIgnoringNaN(t *testing.T) {
	assert.InDelta(t, 2.0, MeanIgnoringNaN([]float64{1, math.NaN(), 3}), 1e-12)
	assert.True(t, math.IsNaN(MeanIgnoringNaN([]float64{math.NaN()})))
	assert.True(t, math.IsNaN(MeanIgnoringNaN(nil)))
}
