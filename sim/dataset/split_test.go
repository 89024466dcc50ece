package dataset

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func indexed(n int) *Dataset {
	d := &Dataset{X: make([][]float64, n), Y: make([]int, n)}
	for i := range d.X {
		d.X[i] = []float64{float64(i)}
		d.Y[i] = i % 2
	}
	return d
}

func TestTrainTestSplit_SizesAndPartition(t *testing.T) {
	// GIVEN 1000 rows and a 20% test size
	d := indexed(1000)

	// WHEN split
	train, test, err := TrainTestSplit(rand.New(rand.NewSource(42)), d, 0.2)
	require.NoError(t, err)

	// THEN sizes match and every row appears exactly once
	assert.Equal(t, 800, train.Len())
	assert.Equal(t, 200, test.Len())
	var seen []int
	for _, row := range append(append([][]float64{}, train.X...), test.X...) {
		seen = append(seen, int(row[0]))
	}
	sort.Ints(seen)
	for i, v := range seen {
		require.Equal(t, i, v)
	}
	// labels stay attached to their rows
	for i, row := range test.X {
		assert.Equal(t, int(row[0])%2, test.Y[i])
	}
}

func TestTrainTestSplit_RoundsTestUp(t *testing.T) {
	train, test, err := TrainTestSplit(rand.New(rand.NewSource(1)), indexed(11), 0.2)
	require.NoError(t, err)
	assert.Equal(t, 3, test.Len())
	assert.Equal(t, 8, train.Len())
}

func TestTrainTestSplit_Deterministic(t *testing.T) {
	_, a, err := TrainTestSplit(rand.New(rand.NewSource(5)), indexed(50), 0.3)
	require.NoError(t, err)
	_, b, err := TrainTestSplit(rand.New(rand.NewSource(5)), indexed(50), 0.3)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestTrainTestSplit_InvalidArguments(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	_, _, err := TrainTestSplit(rng, indexed(10), 0)
	assert.Error(t, err)
	_, _, err = TrainTestSplit(rng, indexed(10), 1)
	assert.Error(t, err)
	_, _, err = TrainTestSplit(rng, indexed(1), 0.5)
	assert.Error(t, err)
	_, _, err = TrainTestSplit(rng, &Dataset{}, 0.5)
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestHoldoutSplit_TakesTailInOrder(t *testing.T) {
	train, hold, err := HoldoutSplit(indexed(10), 0.2)
	require.NoError(t, err)
	assert.Equal(t, 8, train.Len())
	require.Equal(t, 2, hold.Len())
	assert.Equal(t, 8.0, hold.X[0][0])
	assert.Equal(t, 9.0, hold.X[1][0])
}

func TestHoldoutSplit_RoundsTrainDown(t *testing.T) {
	// GIVEN a fraction that does not divide the row count
	// WHEN 30% of 12 rows are held out
	train, hold, err := HoldoutSplit(indexed(12), 0.3)

	// THEN the train part is floor(12*0.7) = 8 rows and the holdout keeps the other 4
	require.NoError(t, err)
	assert.Equal(t, 8, train.Len())
	require.Equal(t, 4, hold.Len())
	assert.Equal(t, 8.0, hold.X[0][0])
}

func TestHoldoutSplit_ZeroFraction_NoHoldout(t *testing.T) {
	d := indexed(4)
	train, hold, err := HoldoutSplit(d, 0)
	require.NoError(t, err)
	assert.Nil(t, hold)
	assert.Same(t, d, train)
}

func TestSplitAt_Bounds(t *testing.T) {
	head, tail, err := SplitAt(indexed(5), 4)
	require.NoError(t, err)
	assert.Equal(t, 4, head.Len())
	assert.Equal(t, 1, tail.Len())

	_, _, err = SplitAt(indexed(5), 0)
	assert.Error(t, err)
	_, _, err = SplitAt(indexed(5), 5)
	assert.Error(t, err)
}
