// Package preprocess holds column-wise transformers fitted on training data
// and applied to any matrix with the same column count.
package preprocess

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrNotFitted is returned by Transform before Fit.
	ErrNotFitted = errors.New("transformer not fitted")

	// ErrColumnMismatch is returned when Transform sees a different column count than Fit.
	ErrColumnMismatch = errors.New("column count mismatch")
)

// Transformer is fitted on one matrix and then applied to others.
type Transformer interface {
	Fit(X [][]float64) error
	Transform(X [][]float64) ([][]float64, error)
}

// FitTransform fits t on X and returns the transformed X.
func FitTransform(t Transformer, X [][]float64) ([][]float64, error) {
	if err := t.Fit(X); err != nil {
		return nil, err
	}
	return t.Transform(X)
}

// Pipeline applies transformers in order; Fit fits each stage on the output
// of the previous one.
type Pipeline []Transformer

// Fit implements Transformer.
func (p Pipeline) Fit(X [][]float64) error {
	cur := X
	for i, t := range p {
		next, err := FitTransform(t, cur)
		if err != nil {
			return fmt.Errorf("pipeline stage %d: %w", i, err)
		}
		cur = next
	}
	return nil
}

// Transform implements Transformer.
func (p Pipeline) Transform(X [][]float64) ([][]float64, error) {
	cur := X
	for i, t := range p {
		next, err := t.Transform(cur)
		if err != nil {
			return nil, fmt.Errorf("pipeline stage %d: %w", i, err)
		}
		cur = next
	}
	return cur, nil
}

func columns(X [][]float64) (int, error) {
	if len(X) == 0 {
		return 0, errors.New("empty matrix")
	}
	p := len(X[0])
	for i, row := range X {
		if len(row) != p {
			return 0, fmt.Errorf("%w: row %d has %d columns, want %d", ErrColumnMismatch, i, len(row), p)
		}
	}
	return p, nil
}

// observed returns the non-NaN values of column j.
func observed(X [][]float64, j int) []float64 {
	out := make([]float64, 0, len(X))
	for _, row := range X {
		if !math.IsNaN(row[j]) {
			out = append(out, row[j])
		}
	}
	return out
}

func checkWidth(X [][]float64, want int) error {
	got, err := columns(X)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("%w: fitted on %d columns, got %d", ErrColumnMismatch, want, got)
	}
	return nil
}
