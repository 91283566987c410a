// Package ensemble provides multi-output regression trees and random forests.
package ensemble

import (
	"encoding/gob"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/ceramigo/core/model"
	"github.com/YuminosukeSato/ceramigo/pkg/errors"
)

func init() {
	gob.Register(&DecisionTreeRegressor{})
	gob.Register(&RandomForestRegressor{})
}

// minGain は分割を採用する最小の二乗誤差減少量
const minGain = 1e-12

// Node is a single node of a regression tree. Leaves have LeftChild and
// RightChild set to -1 and carry one mean value per output.
type Node struct {
	LeftChild  int
	RightChild int

	SplitFeature int
	Threshold    float64
	Gain         float64

	Value []float64
	Count int
}

// IsLeaf returns true if the node is a leaf node.
func (n *Node) IsLeaf() bool {
	return n.LeftChild == -1 && n.RightChild == -1
}

// Tree stores nodes in a flat slice with the root at index 0.
type Tree struct {
	Nodes    []Node
	NOutputs int
	Depth    int
}

// predictRow walks the tree for one sample and returns the leaf values.
// Samples go left when x[feature] <= threshold.
func (t *Tree) predictRow(x []float64) []float64 {
	id := 0
	for {
		node := &t.Nodes[id]
		if node.IsLeaf() {
			return node.Value
		}
		if x[node.SplitFeature] <= node.Threshold {
			id = node.LeftChild
		} else {
			id = node.RightChild
		}
	}
}

// NumLeaves counts the leaves of the tree.
func (t *Tree) NumLeaves() int {
	n := 0
	for i := range t.Nodes {
		if t.Nodes[i].IsLeaf() {
			n++
		}
	}
	return n
}

// DecisionTreeRegressor is a CART regression tree over several outputs.
// Splits minimize the squared error summed over all outputs.
type DecisionTreeRegressor struct {
	State *model.StateManager

	Params      TreeParams
	RandomState uint64

	Tree Tree

	// FeatureImportances は正規化された不純度減少量（合計 1）
	FeatureImportances []float64
}

// NewDecisionTreeRegressor creates an unfitted tree.
func NewDecisionTreeRegressor(opts ...TreeOption) *DecisionTreeRegressor {
	params := DefaultTreeParams()
	for _, opt := range opts {
		opt(&params)
	}
	return &DecisionTreeRegressor{
		State:  model.NewStateManager(),
		Params: params,
	}
}

// Name implements model.Regressor.
func (d *DecisionTreeRegressor) Name() string { return "DecisionTreeRegressor" }

// IsFitted implements model.Regressor.
func (d *DecisionTreeRegressor) IsFitted() bool { return d.State != nil && d.State.IsFitted() }

// Fit grows the tree on all rows of X and Y.
func (d *DecisionTreeRegressor) Fit(X, Y mat.Matrix) error {
	Xd, Yd, err := checkFitInput("DecisionTreeRegressor.Fit", X, Y)
	if err != nil {
		return err
	}
	if err := d.Params.validate(); err != nil {
		return err
	}
	if d.State == nil {
		d.State = model.NewStateManager()
	}

	n, f := Xd.Dims()
	_, k := Yd.Dims()
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}

	rng := rand.New(rand.NewPCG(d.RandomState, d.RandomState))
	tree, importances := growTree(Xd, Yd, indices, d.Params, rng)
	d.Tree = tree
	d.FeatureImportances = normalize(importances)
	d.State.SetFitted(f, k, n)
	return nil
}

// Predict returns the n×k leaf means for X.
func (d *DecisionTreeRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if d.State == nil {
		return nil, errors.NewNotFittedError("DecisionTreeRegressor", "Predict")
	}
	if err := d.State.RequireFitted("DecisionTreeRegressor", "Predict"); err != nil {
		return nil, err
	}
	if err := d.State.CheckInput("DecisionTreeRegressor.Predict", X); err != nil {
		return nil, err
	}

	n, f := X.Dims()
	out := mat.NewDense(n, d.Tree.NOutputs, nil)
	row := make([]float64, f)
	for i := 0; i < n; i++ {
		mat.Row(row, i, X)
		out.SetRow(i, d.Tree.predictRow(row))
	}
	return out, nil
}

// builder grows one tree. It only reads X and Y, so several builders may
// share them across goroutines.
type builder struct {
	X, Y        *mat.Dense
	params      TreeParams
	rng         *rand.Rand
	nFeatures   int
	nOutputs    int
	importances []float64
	tree        *Tree
}

type split struct {
	feature   int
	threshold float64
	gain      float64
	ok        bool
}

func growTree(X, Y *mat.Dense, indices []int, params TreeParams, rng *rand.Rand) (Tree, []float64) {
	_, f := X.Dims()
	_, k := Y.Dims()
	b := &builder{
		X:           X,
		Y:           Y,
		params:      params,
		rng:         rng,
		nFeatures:   f,
		nOutputs:    k,
		importances: make([]float64, f),
		tree:        &Tree{NOutputs: k},
	}
	b.buildNode(indices, 0)
	return *b.tree, b.importances
}

// buildNode appends the subtree for indices and returns its node index.
func (b *builder) buildNode(indices []int, depth int) int {
	nodeIdx := len(b.tree.Nodes)
	if depth > b.tree.Depth {
		b.tree.Depth = depth
	}

	b.tree.Nodes = append(b.tree.Nodes, Node{
		LeftChild:  -1,
		RightChild: -1,
		Value:      b.mean(indices),
		Count:      len(indices),
	})

	n := len(indices)
	if (b.params.MaxDepth > 0 && depth >= b.params.MaxDepth) ||
		n < b.params.MinSamplesSplit ||
		n < 2*b.params.MinSamplesLeaf {
		return nodeIdx
	}

	best := b.findBestSplit(indices)
	if !best.ok || best.gain < minGain {
		return nodeIdx
	}

	left, right := b.partition(indices, best)
	if len(left) == 0 || len(right) == 0 {
		return nodeIdx
	}
	b.importances[best.feature] += best.gain

	node := &b.tree.Nodes[nodeIdx]
	node.SplitFeature = best.feature
	node.Threshold = best.threshold
	node.Gain = best.gain
	node.Value = nil

	leftChild := b.buildNode(left, depth+1)
	rightChild := b.buildNode(right, depth+1)

	// the slice may have grown, so index again
	b.tree.Nodes[nodeIdx].LeftChild = leftChild
	b.tree.Nodes[nodeIdx].RightChild = rightChild
	return nodeIdx
}

func (b *builder) candidateFeatures() []int {
	m := b.params.MaxFeatures
	if m == 0 || m >= b.nFeatures {
		all := make([]int, b.nFeatures)
		for j := range all {
			all[j] = j
		}
		return all
	}
	return b.rng.Perm(b.nFeatures)[:m]
}

func (b *builder) findBestSplit(indices []int) split {
	best := split{}
	for _, j := range b.candidateFeatures() {
		s := b.findBestSplitForFeature(indices, j)
		if s.ok && (!best.ok || s.gain > best.gain) {
			best = s
		}
	}
	return best
}

// findBestSplitForFeature scans the sorted feature values once. With prefix
// sums S_L, S_R per output, the squared error reduction of a split equals
// Σ_o (S_L²/n_L + S_R²/n_R) - Σ_o S²/n.
func (b *builder) findBestSplitForFeature(indices []int, feature int) split {
	n := len(indices)
	sorted := make([]int, n)
	copy(sorted, indices)
	sort.SliceStable(sorted, func(a, c int) bool {
		return b.X.At(sorted[a], feature) < b.X.At(sorted[c], feature)
	})

	total := make([]float64, b.nOutputs)
	for _, idx := range sorted {
		for o, v := range b.Y.RawRowView(idx) {
			total[o] += v
		}
	}
	parentScore := 0.0
	for _, s := range total {
		parentScore += s * s / float64(n)
	}

	best := split{feature: feature}
	left := make([]float64, b.nOutputs)
	minLeaf := b.params.MinSamplesLeaf

	for i := 0; i < n-1; i++ {
		for o, v := range b.Y.RawRowView(sorted[i]) {
			left[o] += v
		}
		nL := i + 1
		nR := n - nL

		lo := b.X.At(sorted[i], feature)
		hi := b.X.At(sorted[i+1], feature)
		if lo == hi || nL < minLeaf || nR < minLeaf {
			continue
		}

		score := 0.0
		for o := range left {
			r := total[o] - left[o]
			score += left[o]*left[o]/float64(nL) + r*r/float64(nR)
		}
		gain := score - parentScore
		if !best.ok || gain > best.gain {
			best.ok = true
			best.gain = gain
			best.threshold = lo + (hi-lo)/2
			if best.threshold >= hi {
				best.threshold = lo
			}
		}
	}
	return best
}

func (b *builder) partition(indices []int, s split) ([]int, []int) {
	var left, right []int
	for _, idx := range indices {
		if b.X.At(idx, s.feature) <= s.threshold {
			left = append(left, idx)
		} else {
			right = append(right, idx)
		}
	}
	return left, right
}

func (b *builder) mean(indices []int) []float64 {
	m := make([]float64, b.nOutputs)
	if len(indices) == 0 {
		return m
	}
	for _, idx := range indices {
		for o, v := range b.Y.RawRowView(idx) {
			m[o] += v
		}
	}
	for o := range m {
		m[o] /= float64(len(indices))
	}
	return m
}

func normalize(xs []float64) []float64 {
	out := make([]float64, len(xs))
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	if sum == 0 {
		return out
	}
	for i, x := range xs {
		out[i] = x / sum
	}
	return out
}

func checkFitInput(op string, X, Y mat.Matrix) (*mat.Dense, *mat.Dense, error) {
	n, f := X.Dims()
	ny, k := Y.Dims()
	if n == 0 || f == 0 || k == 0 {
		return nil, nil, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	if ny != n {
		return nil, nil, errors.NewDimensionError(op, n, ny, 0)
	}
	Xd := mat.DenseCopyOf(X)
	Yd := mat.DenseCopyOf(Y)
	if err := errors.CheckMatrix(op, Xd, n, f); err != nil {
		return nil, nil, err
	}
	if err := errors.CheckMatrix(op, Yd, n, k); err != nil {
		return nil, nil, err
	}
	return Xd, Yd, nil
}

func validationError(param, reason string, value interface{}) error {
	return errors.NewValidationError(param, reason, value)
}

var _ model.Regressor = (*DecisionTreeRegressor)(nil)
