package ensemble

import (
	"math/rand/v2"
	"runtime"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/ceramigo/core/model"
	"github.com/YuminosukeSato/ceramigo/core/parallel"
	"github.com/YuminosukeSato/ceramigo/pkg/errors"
	"github.com/YuminosukeSato/ceramigo/pkg/log"
)

// Forest defaults.
const (
	DefaultNEstimators = 200
	DefaultRandomState = 42
)

// 予測を並列化する行数の閾値
const predictParallelThreshold = 256

// RandomForestRegressor averages bootstrap-trained multi-output trees.
//
// Per-tree seeds are drawn from RandomState before any tree is built, so the
// fitted forest does not depend on NJobs or goroutine scheduling.
type RandomForestRegressor struct {
	State *model.StateManager

	NEstimators int
	RandomState uint64
	Bootstrap   bool
	NJobs       int
	Params      TreeParams

	Trees []Tree

	// FeatureImportances は各木の正規化済み重要度の平均
	FeatureImportances []float64
}

// NewRandomForestRegressor creates a forest with 200 fully grown trees and
// random state 42.
//
//	rf := ensemble.NewRandomForestRegressor(ensemble.WithNEstimators(100))
//	err := rf.Fit(X, Y)
func NewRandomForestRegressor(opts ...ForestOption) *RandomForestRegressor {
	f := &RandomForestRegressor{
		State:       model.NewStateManager(),
		NEstimators: DefaultNEstimators,
		RandomState: DefaultRandomState,
		Bootstrap:   true,
		Params:      DefaultTreeParams(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Name implements model.Regressor.
func (f *RandomForestRegressor) Name() string { return "RandomForestRegressor" }

// IsFitted implements model.Regressor.
func (f *RandomForestRegressor) IsFitted() bool { return f.State != nil && f.State.IsFitted() }

// Fit builds NEstimators trees concurrently.
func (f *RandomForestRegressor) Fit(X, Y mat.Matrix) error {
	const op = "RandomForestRegressor.Fit"
	if f.NEstimators < 1 {
		return errors.NewValidationError("n_estimators", "must be >= 1", f.NEstimators)
	}
	if err := f.Params.validate(); err != nil {
		return err
	}
	Xd, Yd, err := checkFitInput(op, X, Y)
	if err != nil {
		return err
	}
	if f.State == nil {
		f.State = model.NewStateManager()
	}
	f.State.Reset()

	n, nf := Xd.Dims()
	_, k := Yd.Dims()

	seeder := rand.New(rand.NewPCG(f.RandomState, f.RandomState))
	seeds := make([]uint64, f.NEstimators)
	for t := range seeds {
		seeds[t] = seeder.Uint64()
	}

	trees := make([]Tree, f.NEstimators)
	importances := make([][]float64, f.NEstimators)
	err = parallel.ForEach(f.NEstimators, f.workers(), func(t int) error {
		rng := rand.New(rand.NewPCG(seeds[t], seeds[t]))
		indices := make([]int, n)
		for i := range indices {
			if f.Bootstrap {
				indices[i] = rng.IntN(n)
			} else {
				indices[i] = i
			}
		}
		tree, imp := growTree(Xd, Yd, indices, f.Params, rng)
		trees[t] = tree
		importances[t] = normalize(imp)
		return nil
	})
	if err != nil {
		return errors.NewModelError(op, "tree construction failed", err)
	}

	f.Trees = trees
	f.FeatureImportances = make([]float64, nf)
	for _, imp := range importances {
		for j, v := range imp {
			f.FeatureImportances[j] += v / float64(f.NEstimators)
		}
	}
	f.State.SetFitted(nf, k, n)

	log.GetLoggerWithName("ensemble").Debug("forest fitted",
		log.ModelNameKey, f.Name(),
		log.SamplesKey, n,
		log.FeaturesKey, nf,
		log.TargetsKey, k,
		"trees", f.NEstimators,
	)
	return nil
}

// Predict averages the leaf values of all trees.
func (f *RandomForestRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if f.State == nil {
		return nil, errors.NewNotFittedError("RandomForestRegressor", "Predict")
	}
	if err := f.State.RequireFitted("RandomForestRegressor", "Predict"); err != nil {
		return nil, err
	}
	if err := f.State.CheckInput("RandomForestRegressor.Predict", X); err != nil {
		return nil, err
	}

	n, nf := X.Dims()
	_, k := f.State.Dimensions()
	Xd := mat.DenseCopyOf(X)
	out := mat.NewDense(n, k, nil)
	scale := 1.0 / float64(len(f.Trees))

	parallel.ParallelizeWithThreshold(n, predictParallelThreshold, func(start, end int) {
		row := make([]float64, nf)
		for i := start; i < end; i++ {
			copy(row, Xd.RawRowView(i))
			dst := out.RawRowView(i)
			for t := range f.Trees {
				for o, v := range f.Trees[t].predictRow(row) {
					dst[o] += v
				}
			}
			for o := range dst {
				dst[o] *= scale
			}
		}
	})
	return out, nil
}

func (f *RandomForestRegressor) workers() int {
	if f.NJobs > 0 {
		return f.NJobs
	}
	return runtime.NumCPU()
}

var _ model.Regressor = (*RandomForestRegressor)(nil)
