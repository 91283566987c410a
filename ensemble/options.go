package ensemble

// TreeParams holds the growth limits shared by single trees and forests.
type TreeParams struct {
	// MaxDepth limits tree depth. 0 means unlimited.
	MaxDepth int
	// MinSamplesSplit is the minimum number of samples required to split a node.
	MinSamplesSplit int
	// MinSamplesLeaf is the minimum number of samples required in each child.
	MinSamplesLeaf int
	// MaxFeatures is the number of features tried per split. 0 means all.
	MaxFeatures int
}

// DefaultTreeParams grows trees fully, trying every feature at each split.
func DefaultTreeParams() TreeParams {
	return TreeParams{
		MaxDepth:        0,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		MaxFeatures:     0,
	}
}

// TreeOption configures TreeParams.
type TreeOption func(*TreeParams)

// WithMaxDepth sets the maximum depth.
func WithMaxDepth(depth int) TreeOption {
	return func(p *TreeParams) { p.MaxDepth = depth }
}

// WithMinSamplesSplit sets the minimum samples needed to split.
func WithMinSamplesSplit(n int) TreeOption {
	return func(p *TreeParams) { p.MinSamplesSplit = n }
}

// WithMinSamplesLeaf sets the minimum samples per leaf.
func WithMinSamplesLeaf(n int) TreeOption {
	return func(p *TreeParams) { p.MinSamplesLeaf = n }
}

// WithMaxFeatures sets the number of candidate features per split.
func WithMaxFeatures(n int) TreeOption {
	return func(p *TreeParams) { p.MaxFeatures = n }
}

// ForestOption configures a RandomForestRegressor.
type ForestOption func(*RandomForestRegressor)

// WithNEstimators sets the number of trees.
func WithNEstimators(n int) ForestOption {
	return func(f *RandomForestRegressor) { f.NEstimators = n }
}

// WithRandomState sets the seed from which per-tree seeds are derived.
func WithRandomState(seed uint64) ForestOption {
	return func(f *RandomForestRegressor) { f.RandomState = seed }
}

// WithBootstrap toggles bootstrap sampling of rows per tree.
func WithBootstrap(bootstrap bool) ForestOption {
	return func(f *RandomForestRegressor) { f.Bootstrap = bootstrap }
}

// WithNJobs sets the number of goroutines building trees. 0 uses NumCPU.
func WithNJobs(n int) ForestOption {
	return func(f *RandomForestRegressor) { f.NJobs = n }
}

// WithTreeOptions applies tree growth options to every tree of the forest.
func WithTreeOptions(opts ...TreeOption) ForestOption {
	return func(f *RandomForestRegressor) {
		for _, opt := range opts {
			opt(&f.Params)
		}
	}
}

func (p TreeParams) validate() error {
	switch {
	case p.MaxDepth < 0:
		return validationError("max_depth", "must be >= 0", p.MaxDepth)
	case p.MinSamplesSplit < 2:
		return validationError("min_samples_split", "must be >= 2", p.MinSamplesSplit)
	case p.MinSamplesLeaf < 1:
		return validationError("min_samples_leaf", "must be >= 1", p.MinSamplesLeaf)
	case p.MaxFeatures < 0:
		return validationError("max_features", "must be >= 0", p.MaxFeatures)
	}
	return nil
}
