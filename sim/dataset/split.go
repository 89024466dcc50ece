package dataset

import (
	"fmt"
	"math"
	"math/rand"
)

// TrainTestSplit shuffles row indices and puts ceil(n*testSize) rows in the
// test set and the rest in the train set. Both sets are non-empty.
func TrainTestSplit(rng *rand.Rand, d *Dataset, testSize float64) (train, test *Dataset, err error) {
	if err := d.Validate(); err != nil {
		return nil, nil, err
	}
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, fmt.Errorf("test size must be in (0, 1), got %f", testSize)
	}
	n := d.Len()
	nTest := int(math.Ceil(float64(n) * testSize))
	if nTest < 1 || nTest >= n {
		return nil, nil, fmt.Errorf("test size %f leaves an empty set for %d rows", testSize, n)
	}
	perm := rng.Perm(n)
	return d.Subset(perm[nTest:]), d.Subset(perm[:nTest]), nil
}

// HoldoutSplit keeps row order and returns the last n - floor(n*(1-fraction))
// rows as the holdout, the rounding Keras applies to validation_split. A
// zero-sized holdout is returned as nil.
func HoldoutSplit(d *Dataset, fraction float64) (train, holdout *Dataset, err error) {
	if err := d.Validate(); err != nil {
		return nil, nil, err
	}
	if fraction < 0 || fraction >= 1 {
		return nil, nil, fmt.Errorf("holdout fraction must be in [0, 1), got %f", fraction)
	}
	n := d.Len()
	nHold := n - int(float64(n)*(1-fraction))
	if nHold == 0 {
		return d, nil, nil
	}
	return SplitAt(d, n-nHold)
}

// SplitAt returns rows [0, i) and [i, n) without shuffling.
func SplitAt(d *Dataset, i int) (head, tail *Dataset, err error) {
	if i <= 0 || i >= d.Len() {
		return nil, nil, fmt.Errorf("split index %d out of range for %d rows", i, d.Len())
	}
	head = &Dataset{X: d.X[:i], Y: d.Y[:i]}
	tail = &Dataset{X: d.X[i:], Y: d.Y[i:]}
	return head, tail, nil
}
