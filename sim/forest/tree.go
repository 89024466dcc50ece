// Package forest implements CART decision trees and a bagged random forest
// classifier for integer class labels.
package forest

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// Split criteria.
const (
	CriterionGini    = "gini"
	CriterionEntropy = "entropy"
)

var (
	// ErrNotFitted is returned when predicting with an untrained model.
	ErrNotFitted = errors.New("model not fitted")

	// ErrShapeMismatch is returned for inconsistent inputs.
	ErrShapeMismatch = errors.New("input shape mismatch")
)

// DecisionTree is a CART classifier. Labels are class indices in
// [0, NumClasses) so trees inside a forest share one label space.
type DecisionTree struct {
	MaxDepth        int    // 0 => unlimited
	MinSamplesSplit int    // minimum samples to attempt a split
	MinSamplesLeaf  int    // minimum samples in each child
	MaxFeatures     int    // 0 => all features, >0 => features sampled per split
	Criterion       string // "gini" (default) or "entropy"
	Seed            int64  // feature subsampling seed

	// set by Fit
	NumClasses  int
	NumFeatures int

	importances []float64
	nodes       []node
}

// node is an element of the flattened tree. Leaves have left == -1.
type node struct {
	feature   int
	threshold float64 // x <= threshold goes left
	left      int
	right     int
	proba     []float64
}

// TreeOption configures a DecisionTree.
type TreeOption func(*DecisionTree)

// WithMaxDepth limits tree depth (root depth = 0); 0 disables the limit.
func WithMaxDepth(d int) TreeOption { return func(t *DecisionTree) { t.MaxDepth = d } }

// WithMinSamplesSplit sets the minimum node size eligible for splitting.
func WithMinSamplesSplit(n int) TreeOption {
	return func(t *DecisionTree) { t.MinSamplesSplit = n }
}

// WithMinSamplesLeaf sets the minimum child size.
func WithMinSamplesLeaf(n int) TreeOption {
	return func(t *DecisionTree) { t.MinSamplesLeaf = n }
}

// WithMaxFeatures sets how many features are sampled per split.
func WithMaxFeatures(k int) TreeOption { return func(t *DecisionTree) { t.MaxFeatures = k } }

// WithCriterion selects "gini" or "entropy".
func WithCriterion(c string) TreeOption { return func(t *DecisionTree) { t.Criterion = c } }

// WithSeed sets the feature subsampling seed.
func WithSeed(seed int64) TreeOption { return func(t *DecisionTree) { t.Seed = seed } }

// NewDecisionTree returns a tree with gini impurity and no depth limit.
func NewDecisionTree(opts ...TreeOption) *DecisionTree {
	t := &DecisionTree{
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Criterion:       CriterionGini,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Fit trains on all rows of X.
func (t *DecisionTree) Fit(X [][]float64, y []int, numClasses int) error {
	idx := make([]int, len(X))
	for i := range idx {
		idx[i] = i
	}
	return t.FitSample(X, y, numClasses, idx)
}

// FitSample trains on the rows listed in sample; repeated indices act as
// sample weights (bootstrap).
func (t *DecisionTree) FitSample(X [][]float64, y []int, numClasses int, sample []int) error {
	p, err := checkInputs(X, y)
	if err != nil {
		return err
	}
	if numClasses < 1 {
		return fmt.Errorf("tree: need at least one class, got %d", numClasses)
	}
	if len(sample) == 0 {
		return errors.New("tree: empty sample")
	}
	for i, label := range y {
		if label < 0 || label >= numClasses {
			return fmt.Errorf("tree: label %d outside [0, %d)", label, numClasses)
		}
		for _, v := range X[i] {
			if math.IsNaN(v) {
				return fmt.Errorf("tree: NaN feature in row %d; impute missing values first", i)
			}
		}
	}
	switch t.Criterion {
	case CriterionGini, CriterionEntropy:
	default:
		return fmt.Errorf("tree: unknown criterion %q", t.Criterion)
	}

	t.NumClasses = numClasses
	t.NumFeatures = p
	t.nodes = t.nodes[:0]
	t.importances = make([]float64, p)

	b := &builder{
		tree:   t,
		X:      X,
		y:      y,
		rnd:    rand.New(rand.NewSource(t.Seed)),
		total:  float64(len(sample)),
		feats:  make([]int, p),
		sorted: make([]int, len(sample)),
	}
	for j := range b.feats {
		b.feats[j] = j
	}
	b.build(append([]int(nil), sample...), 0)

	sum := 0.0
	for _, v := range t.importances {
		sum += v
	}
	if sum > 0 {
		for j := range t.importances {
			t.importances[j] /= sum
		}
	}
	return nil
}

// PredictProba returns the class distribution of the leaf each row reaches.
func (t *DecisionTree) PredictProba(X [][]float64) ([][]float64, error) {
	if len(t.nodes) == 0 {
		return nil, ErrNotFitted
	}
	out := make([][]float64, len(X))
	for i, x := range X {
		if len(x) != t.NumFeatures {
			return nil, fmt.Errorf("%w: row %d has %d features, want %d", ErrShapeMismatch, i, len(x), t.NumFeatures)
		}
		out[i] = t.leaf(x).proba
	}
	return out, nil
}

// Predict returns the most probable class index per row.
func (t *DecisionTree) Predict(X [][]float64) ([]int, error) {
	proba, err := t.PredictProba(X)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(proba))
	for i, p := range proba {
		out[i] = argmax(p)
	}
	return out, nil
}

// FeatureImportances returns normalized total impurity decrease per feature.
func (t *DecisionTree) FeatureImportances() []float64 {
	return append([]float64(nil), t.importances...)
}

// Depth returns the depth of the deepest leaf.
func (t *DecisionTree) Depth() int {
	if len(t.nodes) == 0 {
		return 0
	}
	var walk func(i int) int
	walk = func(i int) int {
		n := t.nodes[i]
		if n.left < 0 {
			return 0
		}
		return 1 + max(walk(n.left), walk(n.right))
	}
	return walk(0)
}

// Leaves returns the number of leaf nodes.
func (t *DecisionTree) Leaves() int {
	n := 0
	for _, nd := range t.nodes {
		if nd.left < 0 {
			n++
		}
	}
	return n
}

func (t *DecisionTree) leaf(x []float64) *node {
	n := &t.nodes[0]
	for n.left >= 0 {
		// NaN compares false and falls right
		if x[n.feature] <= n.threshold {
			n = &t.nodes[n.left]
		} else {
			n = &t.nodes[n.right]
		}
	}
	return n
}

type builder struct {
	tree   *DecisionTree
	X      [][]float64
	y      []int
	rnd    *rand.Rand
	total  float64
	feats  []int
	sorted []int
}

type split struct {
	feature   int
	threshold float64
	pos       int // rows [0,pos) of the sorted order go left
	impurity  float64
}

// build appends the subtree for idx and returns its node index.
func (b *builder) build(idx []int, depth int) int {
	t := b.tree
	counts := make([]float64, t.NumClasses)
	for _, i := range idx {
		counts[b.y[i]]++
	}
	self := len(t.nodes)
	t.nodes = append(t.nodes, node{left: -1, right: -1, proba: normalize(counts)})

	n := len(idx)
	parent := t.impurity(counts, float64(n))
	if parent == 0 || n < t.MinSamplesSplit || n < 2*t.MinSamplesLeaf ||
		(t.MaxDepth > 0 && depth >= t.MaxDepth) {
		return self
	}

	best, ok := b.bestSplit(idx, counts, parent)
	if !ok {
		return self
	}

	sort.Slice(idx, func(a, c int) bool {
		return b.X[idx[a]][best.feature] < b.X[idx[c]][best.feature]
	})
	left := append([]int(nil), idx[:best.pos]...)
	right := append([]int(nil), idx[best.pos:]...)

	t.importances[best.feature] += float64(n) / b.total * (parent - best.impurity)

	l := b.build(left, depth+1)
	r := b.build(right, depth+1)
	t.nodes[self].feature = best.feature
	t.nodes[self].threshold = best.threshold
	t.nodes[self].left = l
	t.nodes[self].right = r
	return self
}

// bestSplit scans sampled features; each feature is sorted once and the
// class counts are moved left one row at a time.
func (b *builder) bestSplit(idx []int, counts []float64, parent float64) (split, bool) {
	t := b.tree
	p := len(b.feats)
	k := p
	if t.MaxFeatures > 0 && t.MaxFeatures < p {
		k = t.MaxFeatures
		for i := 0; i < k; i++ {
			j := i + b.rnd.Intn(p-i)
			b.feats[i], b.feats[j] = b.feats[j], b.feats[i]
		}
	}

	n := len(idx)
	best := split{impurity: parent}
	found := false
	sorted := b.sorted[:n]
	left := make([]float64, t.NumClasses)
	right := make([]float64, t.NumClasses)

	for _, f := range b.feats[:k] {
		copy(sorted, idx)
		sort.Slice(sorted, func(a, c int) bool { return b.X[sorted[a]][f] < b.X[sorted[c]][f] })
		for c := range left {
			left[c] = 0
			right[c] = counts[c]
		}
		for s := 1; s < n; s++ {
			moved := b.y[sorted[s-1]]
			left[moved]++
			right[moved]--
			lo, hi := b.X[sorted[s-1]][f], b.X[sorted[s]][f]
			if lo == hi || s < t.MinSamplesLeaf || n-s < t.MinSamplesLeaf {
				continue
			}
			nl, nr := float64(s), float64(n-s)
			imp := (nl*t.impurity(left, nl) + nr*t.impurity(right, nr)) / float64(n)
			if imp < best.impurity-1e-12 {
				best = split{feature: f, threshold: lo + (hi-lo)/2, pos: s, impurity: imp}
				found = true
			}
		}
	}
	return best, found
}

func (t *DecisionTree) impurity(counts []float64, n float64) float64 {
	if n == 0 {
		return 0
	}
	if t.Criterion == CriterionEntropy {
		return entropy(counts, n)
	}
	return gini(counts, n)
}

func gini(counts []float64, n float64) float64 {
	res := 1.0
	for _, c := range counts {
		p := c / n
		res -= p * p
	}
	if res < 0 {
		return 0
	}
	return res
}

func entropy(counts []float64, n float64) float64 {
	res := 0.0
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := c / n
		res -= p * math.Log2(p)
	}
	return res
}

func normalize(counts []float64) []float64 {
	sum := 0.0
	for _, c := range counts {
		sum += c
	}
	out := make([]float64, len(counts))
	if sum == 0 {
		return out
	}
	for i, c := range counts {
		out[i] = c / sum
	}
	return out
}

func argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}

func checkInputs(X [][]float64, y []int) (int, error) {
	if len(X) == 0 {
		return 0, errors.New("empty X")
	}
	if len(X) != len(y) {
		return 0, fmt.Errorf("%w: %d rows but %d labels", ErrShapeMismatch, len(X), len(y))
	}
	p := len(X[0])
	for i := range X {
		if len(X[i]) != p {
			return 0, fmt.Errorf("%w: row %d has %d features, want %d", ErrShapeMismatch, i, len(X[i]), p)
		}
	}
	return p, nil
}
