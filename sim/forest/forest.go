package forest

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sort"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// RandomForest is a bagged ensemble of decision trees. Predictions average
// the trees' class probabilities and pick the most probable class.
type RandomForest struct {
	NEstimators     int
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int // 0 => floor(sqrt(features))
	Criterion       string
	Bootstrap       bool
	Seed            int64
	Workers         int // 0 => GOMAXPROCS

	Trees   []*DecisionTree
	classes []int // original labels, sorted; trees see indices into this
}

// Option configures a RandomForest.
type Option func(*RandomForest)

// WithNEstimators sets the number of trees.
func WithNEstimators(n int) Option { return func(rf *RandomForest) { rf.NEstimators = n } }

// WithForestMaxDepth limits every tree's depth; 0 disables the limit.
func WithForestMaxDepth(d int) Option { return func(rf *RandomForest) { rf.MaxDepth = d } }

// WithForestMinSplit sets each tree's minimum node size for splitting.
func WithForestMinSplit(n int) Option { return func(rf *RandomForest) { rf.MinSamplesSplit = n } }

// WithForestMinLeaf sets each tree's minimum child size.
func WithForestMinLeaf(n int) Option { return func(rf *RandomForest) { rf.MinSamplesLeaf = n } }

// WithForestMaxFeatures sets the features sampled per split; 0 means sqrt.
func WithForestMaxFeatures(k int) Option { return func(rf *RandomForest) { rf.MaxFeatures = k } }

// WithForestCriterion selects "gini" or "entropy".
func WithForestCriterion(c string) Option { return func(rf *RandomForest) { rf.Criterion = c } }

// WithBootstrap toggles sampling rows with replacement per tree.
func WithBootstrap(b bool) Option { return func(rf *RandomForest) { rf.Bootstrap = b } }

// WithForestSeed sets the seed all per-tree seeds derive from.
func WithForestSeed(seed int64) Option { return func(rf *RandomForest) { rf.Seed = seed } }

// WithWorkers bounds the number of trees fitted concurrently.
func WithWorkers(n int) Option { return func(rf *RandomForest) { rf.Workers = n } }

// NewRandomForest initializes the forest with 100 bootstrapped gini trees.
func NewRandomForest(opts ...Option) *RandomForest {
	rf := &RandomForest{
		NEstimators:     100,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Criterion:       CriterionGini,
		Bootstrap:       true,
	}
	for _, o := range opts {
		o(rf)
	}
	return rf
}

// Classes returns the labels seen during Fit, sorted ascending.
func (rf *RandomForest) Classes() []int { return append([]int(nil), rf.classes...) }

// Fit trains every tree concurrently. Per-tree seeds are drawn up front from
// Seed, so results do not depend on goroutine scheduling.
func (rf *RandomForest) Fit(X [][]float64, y []int) error {
	p, err := checkInputs(X, y)
	if err != nil {
		return fmt.Errorf("randomforest: %w", err)
	}
	if rf.NEstimators <= 0 {
		return errors.New("randomforest: NEstimators must be positive")
	}

	rf.classes = uniqueSorted(y)
	index := make(map[int]int, len(rf.classes))
	for i, c := range rf.classes {
		index[c] = i
	}
	encoded := make([]int, len(y))
	for i, label := range y {
		encoded[i] = index[label]
	}

	maxFeatures := rf.MaxFeatures
	if maxFeatures == 0 {
		maxFeatures = max(1, int(math.Sqrt(float64(p))))
	}
	workers := rf.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	master := rand.New(rand.NewSource(rf.Seed))
	seeds := make([]int64, rf.NEstimators)
	for i := range seeds {
		seeds[i] = master.Int63()
	}

	logrus.Debugf("randomforest: fitting %d trees on %dx%d, max_features=%d, workers=%d",
		rf.NEstimators, len(X), p, maxFeatures, workers)

	trees := make([]*DecisionTree, rf.NEstimators)
	var g errgroup.Group
	g.SetLimit(workers)
	for i := range trees {
		i := i // per-iteration copy; module targets go 1.21 (pre-1.22 loop semantics)
		g.Go(func() error {
			treeRand := rand.New(rand.NewSource(seeds[i]))
			n := len(X)
			sample := make([]int, n)
			for j := range sample {
				if rf.Bootstrap {
					sample[j] = treeRand.Intn(n)
				} else {
					sample[j] = j
				}
			}
			tree := NewDecisionTree(
				WithMaxDepth(rf.MaxDepth),
				WithMinSamplesSplit(rf.MinSamplesSplit),
				WithMinSamplesLeaf(rf.MinSamplesLeaf),
				WithMaxFeatures(maxFeatures),
				WithCriterion(rf.Criterion),
				WithSeed(treeRand.Int63()),
			)
			if err := tree.FitSample(X, encoded, len(rf.classes), sample); err != nil {
				return fmt.Errorf("randomforest: tree %d: %w", i, err)
			}
			trees[i] = tree
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	rf.Trees = trees
	return nil
}

// PredictProba returns per-row class probabilities aligned with Classes().
func (rf *RandomForest) PredictProba(X [][]float64) ([][]float64, error) {
	if len(rf.Trees) == 0 {
		return nil, ErrNotFitted
	}
	out := make([][]float64, len(X))
	for i := range out {
		out[i] = make([]float64, len(rf.classes))
	}
	for _, tree := range rf.Trees {
		proba, err := tree.PredictProba(X)
		if err != nil {
			return nil, err
		}
		for i, p := range proba {
			for c, v := range p {
				out[i][c] += v
			}
		}
	}
	scale := 1 / float64(len(rf.Trees))
	for i := range out {
		for c := range out[i] {
			out[i][c] *= scale
		}
	}
	return out, nil
}

// Predict returns the most probable original label per row.
func (rf *RandomForest) Predict(X [][]float64) ([]int, error) {
	proba, err := rf.PredictProba(X)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(proba))
	for i, p := range proba {
		out[i] = rf.classes[argmax(p)]
	}
	return out, nil
}

// FeatureImportances averages the trees' normalized importances.
func (rf *RandomForest) FeatureImportances() []float64 {
	if len(rf.Trees) == 0 {
		return nil
	}
	out := make([]float64, rf.Trees[0].NumFeatures)
	for _, tree := range rf.Trees {
		for j, v := range tree.FeatureImportances() {
			out[j] += v / float64(len(rf.Trees))
		}
	}
	return out
}

func uniqueSorted(y []int) []int {
	seen := make(map[int]struct{})
	var out []int
	for _, v := range y {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Ints(out)
	return out
}
