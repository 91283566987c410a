package training

import (
	"math"
	"runtime"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/ceramigo/core/model"
	"github.com/YuminosukeSato/ceramigo/core/parallel"
	"github.com/YuminosukeSato/ceramigo/metrics"
	"github.com/YuminosukeSato/ceramigo/pkg/errors"
	"github.com/YuminosukeSato/ceramigo/pkg/log"
)

// FoldMetrics are the held-out scores of one fold model.
type FoldMetrics struct {
	Fold      int
	TrainSize int
	TestSize  int

	// R2 is the uniform average over output columns, skipping columns that
	// are constant in the test partition. NaN if every column is constant.
	R2 float64

	// MAE is the mean absolute error over all cells of the test partition.
	MAE float64

	Duration time.Duration
}

// Summary is the persisted part of a Result.
type Summary struct {
	ModelName string
	Folds     int
	Seed      uint64
	MeanR2    float64
	StdR2     float64
	MeanMAE   float64
	StdMAE    float64
	FullR2    float64
	FullMAE   float64
}

// Result is the outcome of Train.
//
// The cross-validation figures estimate the generalization of models fitted
// on k-1 folds; they are not a measurement of Final. FullR2 and FullMAE are
// scores of Final on its own training rows and are optimistic.
type Result struct {
	Folds []FoldMetrics

	MeanR2  float64
	StdR2   float64
	MeanMAE float64
	StdMAE  float64

	FullR2  float64
	FullMAE float64

	Final model.Regressor
	Seed  uint64
}

// Summary extracts the scalar figures of r.
func (r *Result) Summary() Summary {
	s := Summary{
		Folds:   len(r.Folds),
		Seed:    r.Seed,
		MeanR2:  r.MeanR2,
		StdR2:   r.StdR2,
		MeanMAE: r.MeanMAE,
		StdMAE:  r.StdMAE,
		FullR2:  r.FullR2,
		FullMAE: r.FullMAE,
	}
	if r.Final != nil {
		s.ModelName = r.Final.Name()
	}
	return s
}

// Trainer cross-validates a regressor family and fits the final model.
type Trainer struct {
	factory       model.Factory
	shuffle       bool
	seed          uint64
	parallelFolds int
	logger        log.Logger
}

// Option configures a Trainer.
type Option func(*Trainer)

// WithShuffle toggles shuffling before splitting. On by default.
func WithShuffle(shuffle bool) Option {
	return func(t *Trainer) { t.shuffle = shuffle }
}

// WithSeed sets the shuffle seed.
func WithSeed(seed uint64) Option {
	return func(t *Trainer) { t.seed = seed }
}

// WithParallelFolds sets how many folds run at once. 1 runs them
// sequentially, 0 uses one worker per CPU.
func WithParallelFolds(n int) Option {
	return func(t *Trainer) { t.parallelFolds = n }
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(t *Trainer) { t.logger = l }
}

// NewTrainer creates a Trainer that builds fresh regressors with factory.
//
//	trainer := training.NewTrainer(func() model.Regressor {
//	    return ensemble.NewRandomForestRegressor()
//	})
//	res, err := trainer.Train(ds.X(), ds.Y(), 5)
func NewTrainer(factory model.Factory, opts ...Option) *Trainer {
	t := &Trainer{
		factory:       factory,
		shuffle:       true,
		seed:          DefaultSeed,
		parallelFolds: runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = log.GetLoggerWithName("training")
	}
	return t
}

// Train runs k-fold cross-validation and then fits Final on all rows.
func (t *Trainer) Train(X, Y mat.Matrix, k int) (*Result, error) {
	folds, err := t.CrossValidate(X, Y, k)
	if err != nil {
		return nil, err
	}

	res := &Result{Folds: folds, Seed: t.seed}
	r2s := make([]float64, 0, len(folds))
	maes := make([]float64, len(folds))
	for i, f := range folds {
		if !math.IsNaN(f.R2) {
			r2s = append(r2s, f.R2)
		}
		maes[i] = f.MAE
	}
	res.MeanR2, res.StdR2 = meanStd(r2s)
	res.MeanMAE, res.StdMAE = meanStd(maes)

	start := time.Now()
	final := t.factory()
	if err := final.Fit(X, Y); err != nil {
		return nil, errors.Wrap(err, "final fit")
	}
	pred, err := final.Predict(X)
	if err != nil {
		return nil, errors.Wrap(err, "final predict")
	}
	if res.FullR2, err = metrics.UniformAverageR2(Y, pred); err != nil {
		return nil, err
	}
	if res.FullMAE, err = metrics.MeanAbsoluteErrorAll(Y, pred); err != nil {
		return nil, err
	}
	res.Final = final

	t.logger.Info("training completed",
		log.OperationKey, log.OperationFit,
		log.ModelNameKey, final.Name(),
		log.FoldsKey, k,
		log.RandomSeedKey, t.seed,
		log.R2ScoreKey, res.MeanR2,
		log.MAEKey, res.MeanMAE,
		"metrics.full_r2", res.FullR2,
		"metrics.full_mae", res.FullMAE,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return res, nil
}

// CrossValidate fits one fresh regressor per fold and scores it on the
// held-out rows. Results are ordered by fold index regardless of
// scheduling.
func (t *Trainer) CrossValidate(X, Y mat.Matrix, k int) ([]FoldMetrics, error) {
	const op = "Trainer.Train"

	n, f := X.Dims()
	ny, nOut := Y.Dims()
	switch {
	case n == 0 || f == 0 || ny == 0 || nOut == 0:
		return nil, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	case n != ny:
		return nil, errors.NewDataSizeError(op, "target rows", n, ny)
	case k < 2:
		return nil, errors.NewValidationError("k", "must be at least 2", k)
	case k > n:
		return nil, errors.NewDataSizeError(op, "samples (at least one per fold)", k, n)
	}

	folds, err := NewKFold(k, t.shuffle, t.seed).Split(n)
	if err != nil {
		return nil, err
	}

	t.logger.Info("cross-validation started",
		log.OperationKey, log.OperationFit,
		log.PhaseKey, log.PhaseValidation,
		log.SamplesKey, n,
		log.FeaturesKey, f,
		log.TargetsKey, nOut,
		log.FoldsKey, k,
		log.RandomSeedKey, t.seed,
	)

	results := make([]FoldMetrics, k)
	err = parallel.ForEach(k, t.parallelFolds, func(i int) error {
		fm, err := t.runFold(X, Y, folds[i])
		if err != nil {
			return errors.Wrapf(err, "fold %d", i)
		}
		results[i] = fm
		return nil
	})
	if err != nil {
		t.logger.Error("cross-validation failed", err)
		return nil, err
	}
	return results, nil
}

func (t *Trainer) runFold(X, Y mat.Matrix, fold Fold) (FoldMetrics, error) {
	start := time.Now()

	trainX, trainY := extractRows(X, fold.TrainIndices), extractRows(Y, fold.TrainIndices)
	testX, testY := extractRows(X, fold.TestIndices), extractRows(Y, fold.TestIndices)

	reg := t.factory()
	if err := reg.Fit(trainX, trainY); err != nil {
		return FoldMetrics{}, err
	}
	pred, err := reg.Predict(testX)
	if err != nil {
		return FoldMetrics{}, err
	}

	r2, err := metrics.UniformAverageR2(testY, pred)
	if err != nil {
		return FoldMetrics{}, err
	}
	mae, err := metrics.MeanAbsoluteErrorAll(testY, pred)
	if err != nil {
		return FoldMetrics{}, err
	}

	fm := FoldMetrics{
		Fold:      fold.Index,
		TrainSize: len(fold.TrainIndices),
		TestSize:  len(fold.TestIndices),
		R2:        r2,
		MAE:       mae,
		Duration:  time.Since(start),
	}
	t.logger.Info("fold completed",
		log.ModelNameKey, reg.Name(),
		log.FoldKey, fold.Index,
		log.R2ScoreKey, r2,
		log.MAEKey, mae,
		log.DurationMsKey, fm.Duration.Milliseconds(),
	)
	return fm, nil
}

// meanStd returns the mean and the sample standard deviation.
func meanStd(xs []float64) (float64, float64) {
	switch len(xs) {
	case 0:
		return math.NaN(), math.NaN()
	case 1:
		return xs[0], 0
	}
	return stat.MeanStdDev(xs, nil)
}

func extractRows(m mat.Matrix, indices []int) *mat.Dense {
	_, c := m.Dims()
	out := mat.NewDense(len(indices), c, nil)
	for i, idx := range indices {
		for j := 0; j < c; j++ {
			out.Set(i, j, m.At(idx, j))
		}
	}
	return out
}
