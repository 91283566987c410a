package training

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/ceramigo/core/model"
	"github.com/YuminosukeSato/ceramigo/linear"
	"github.com/YuminosukeSato/ceramigo/pkg/errors"
	"github.com/YuminosukeSato/ceramigo/pkg/log"
)

// linearData returns rows whose two outputs are exact linear functions of
// the three features.
func linearData(n int) (*mat.Dense, *mat.Dense) {
	r := rand.New(rand.NewPCG(1, 2))
	X := mat.NewDense(n, 3, nil)
	Y := mat.NewDense(n, 2, nil)
	for i := 0; i < n; i++ {
		a, b, c := r.Float64()*100, r.Float64()*50, r.Float64()*1000
		X.SetRow(i, []float64{a, b, c})
		Y.SetRow(i, []float64{0.02*a + 0.001*c, 0.5 - 0.004*b})
	}
	return X, Y
}

func ridgeFactory() model.Regressor {
	return linear.NewRidge(linear.WithAlpha(1e-8))
}

func newTestTrainer(opts ...Option) (*Trainer, *log.TestLogger) {
	logger, _ := log.NewTestLogger(log.LevelDebug)
	return NewTrainer(ridgeFactory, append(opts, WithLogger(logger))...), logger
}

func TestTrainLinearSignal(t *testing.T) {
	X, Y := linearData(40)
	trainer, logger := newTestTrainer()

	res, err := trainer.Train(X, Y, 5)
	require.NoError(t, err)

	require.Len(t, res.Folds, 5)
	total := 0
	for i, f := range res.Folds {
		assert.Equal(t, i, f.Fold)
		assert.Equal(t, 8, f.TestSize)
		assert.Equal(t, 32, f.TrainSize)
		assert.InDelta(t, 1.0, f.R2, 1e-6)
		total += f.TestSize
	}
	assert.Equal(t, 40, total)

	assert.InDelta(t, 1.0, res.MeanR2, 1e-6)
	assert.Less(t, res.MeanMAE, 1e-4)
	assert.InDelta(t, 1.0, res.FullR2, 1e-6)
	require.NotNil(t, res.Final)
	assert.True(t, res.Final.IsFitted())

	s := res.Summary()
	assert.Equal(t, "Ridge", s.ModelName)
	assert.Equal(t, 5, s.Folds)
	assert.Equal(t, uint64(DefaultSeed), s.Seed)

	assert.True(t, logger.ContainsMessage("fold completed"))
	assert.True(t, logger.ContainsMessage("training completed"))
}

func TestTrainIndependentOfWorkerCount(t *testing.T) {
	X, Y := linearData(30)

	seq, _ := newTestTrainer(WithParallelFolds(1), WithSeed(3))
	par, _ := newTestTrainer(WithParallelFolds(4), WithSeed(3))

	a, err := seq.Train(X, Y, 3)
	require.NoError(t, err)
	b, err := par.Train(X, Y, 3)
	require.NoError(t, err)

	for i := range a.Folds {
		assert.Equal(t, a.Folds[i].R2, b.Folds[i].R2)
		assert.Equal(t, a.Folds[i].MAE, b.Folds[i].MAE)
	}
}

func TestTrainDegenerateFold(t *testing.T) {
	// Every output column is constant, so no fold has a defined R².
	X, _ := linearData(12)
	Y := mat.NewDense(12, 2, nil)
	for i := 0; i < 12; i++ {
		Y.SetRow(i, []float64{1, 0.5})
	}

	trainer, _ := newTestTrainer()
	res, err := trainer.Train(X, Y, 3)
	require.NoError(t, err)
	for _, f := range res.Folds {
		assert.True(t, math.IsNaN(f.R2))
	}
	assert.True(t, math.IsNaN(res.MeanR2))
	assert.InDelta(t, 0, res.MeanMAE, 1e-6)
}

func TestTrainErrors(t *testing.T) {
	X, Y := linearData(10)
	trainer, _ := newTestTrainer()

	t.Run("row mismatch", func(t *testing.T) {
		_, err := trainer.Train(X, Y.Slice(0, 9, 0, 2), 3)
		var serr *errors.DataSizeError
		assert.True(t, errors.As(err, &serr))
	})

	t.Run("too many folds", func(t *testing.T) {
		_, err := trainer.Train(X, Y, 11)
		var serr *errors.DataSizeError
		assert.True(t, errors.As(err, &serr))
	})

	t.Run("too few folds", func(t *testing.T) {
		_, err := trainer.Train(X, Y, 1)
		var verr *errors.ValidationError
		assert.True(t, errors.As(err, &verr))
	})

	t.Run("empty", func(t *testing.T) {
		_, err := trainer.Train(&mat.Dense{}, &mat.Dense{}, 3)
		assert.True(t, errors.Is(err, errors.ErrEmptyData))
	})
}

type panicRegressor struct{ linear.Ridge }

func (p *panicRegressor) Fit(X, Y mat.Matrix) error { panic("boom") }

func TestTrainRecoversFoldPanic(t *testing.T) {
	X, Y := linearData(10)
	logger, _ := log.NewTestLogger(log.LevelDebug)
	trainer := NewTrainer(func() model.Regressor { return &panicRegressor{} }, WithLogger(logger))

	_, err := trainer.Train(X, Y, 2)
	var perr *errors.PanicError
	require.True(t, errors.As(err, &perr))
	assert.True(t, logger.ContainsMessage("cross-validation failed"))
}
