// Package dataset generates the seeded synthetic feature matrices and label
// vectors the fault models train on, and splits them into train/test sets.
package dataset

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

var (
	// ErrShapeMismatch is returned when features and labels disagree on row
	// count or rows disagree on column count.
	ErrShapeMismatch = errors.New("dataset shape mismatch")

	// ErrEmpty is returned for datasets without rows.
	ErrEmpty = errors.New("dataset is empty")
)

// Dataset is an in-memory feature matrix with one binary label per row.
type Dataset struct {
	X [][]float64
	Y []int
}

// Len returns the number of rows.
func (d *Dataset) Len() int { return len(d.X) }

// Features returns the column count, or 0 for an empty dataset.
func (d *Dataset) Features() int {
	if len(d.X) == 0 {
		return 0
	}
	return len(d.X[0])
}

// Validate checks that row counts match and every row has the same width.
func (d *Dataset) Validate() error {
	if len(d.X) == 0 {
		return ErrEmpty
	}
	if len(d.X) != len(d.Y) {
		return fmt.Errorf("%w: %d feature rows but %d labels", ErrShapeMismatch, len(d.X), len(d.Y))
	}
	p := len(d.X[0])
	for i, row := range d.X {
		if len(row) != p {
			return fmt.Errorf("%w: row %d has %d features, want %d", ErrShapeMismatch, i, len(row), p)
		}
	}
	return nil
}

// Subset returns the rows at idx. Rows are shared, not copied.
func (d *Dataset) Subset(idx []int) *Dataset {
	out := &Dataset{X: make([][]float64, len(idx)), Y: make([]int, len(idx))}
	for i, j := range idx {
		out.X[i] = d.X[j]
		out.Y[i] = d.Y[j]
	}
	return out
}

// LabelsAsFloat returns labels as a float column for loss computations.
func (d *Dataset) LabelsAsFloat() []float64 {
	out := make([]float64, len(d.Y))
	for i, y := range d.Y {
		out[i] = float64(y)
	}
	return out
}

// Uniform draws n rows of features uniformly from [0, 1) and a uniformly
// random 0/1 label per row. Features are drawn row by row before labels.
func Uniform(rng *rand.Rand, n, features int) (*Dataset, error) {
	if n <= 0 || features <= 0 {
		return nil, fmt.Errorf("uniform dataset needs positive size, got %dx%d", n, features)
	}
	d := &Dataset{X: make([][]float64, n), Y: make([]int, n)}
	for i := range d.X {
		row := make([]float64, features)
		for j := range row {
			row[j] = rng.Float64()
		}
		d.X[i] = row
	}
	for i := range d.Y {
		d.Y[i] = rng.Intn(2)
	}
	return d, nil
}

// InjectMissing replaces each feature with NaN with probability rate, in
// place, and returns the number of replaced entries.
func InjectMissing(rng *rand.Rand, d *Dataset, rate float64) int {
	if rate <= 0 {
		return 0
	}
	n := 0
	for _, row := range d.X {
		for j := range row {
			if rng.Float64() < rate {
				row[j] = math.NaN()
				n++
			}
		}
	}
	return n
}

// CountMissing returns the number of NaN entries.
func CountMissing(X [][]float64) int {
	n := 0
	for _, row := range X {
		for _, v := range row {
			if math.IsNaN(v) {
				n++
			}
		}
	}
	return n
}
