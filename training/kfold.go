// Package training runs k-fold cross-validation of multi-output regressors
// and fits the final model on all rows.
package training

import (
	"math/rand/v2"
	"sort"

	"github.com/YuminosukeSato/ceramigo/pkg/errors"
)

// DefaultSeed is the shuffle seed used unless WithSeed is given.
const DefaultSeed = 42

// Fold is one train/test partition. Both index lists are sorted.
type Fold struct {
	Index        int
	TrainIndices []int
	TestIndices  []int
}

// KFold splits n rows into NSplits folds. Fold sizes differ by at most one,
// with the first n % NSplits folds one larger.
type KFold struct {
	NSplits int
	Shuffle bool
	Seed    uint64
}

// NewKFold creates a k-fold splitter.
func NewKFold(nSplits int, shuffle bool, seed uint64) *KFold {
	return &KFold{NSplits: nSplits, Shuffle: shuffle, Seed: seed}
}

// Split returns the folds for n rows. Every row appears in exactly one test
// partition.
func (kf *KFold) Split(n int) ([]Fold, error) {
	if kf.NSplits < 2 {
		return nil, errors.NewValidationError("n_splits", "must be at least 2", kf.NSplits)
	}
	if n < kf.NSplits {
		return nil, errors.NewDataSizeError("KFold.Split", "samples (at least one per fold)", kf.NSplits, n)
	}

	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	if kf.Shuffle {
		r := rand.New(rand.NewPCG(kf.Seed, kf.Seed))
		r.Shuffle(n, func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
	}

	folds := make([]Fold, kf.NSplits)
	foldSize := n / kf.NSplits
	remainder := n % kf.NSplits

	current := 0
	for i := range folds {
		testSize := foldSize
		if i < remainder {
			testSize++
		}

		test := make([]int, testSize)
		copy(test, indices[current:current+testSize])
		sort.Ints(test)

		inTest := make(map[int]bool, testSize)
		for _, idx := range test {
			inTest[idx] = true
		}
		train := make([]int, 0, n-testSize)
		for j := 0; j < n; j++ {
			if !inTest[j] {
				train = append(train, j)
			}
		}

		folds[i] = Fold{Index: i, TrainIndices: train, TestIndices: test}
		current += testSize
	}
	return folds, nil
}
