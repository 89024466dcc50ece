package preprocess

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// StandardScaler centers each column to zero mean and scales it to unit
// population variance. Constant columns are only centered.
type StandardScaler struct {
	Mean  []float64
	Scale []float64
}

// NewStandardScaler returns an unfitted scaler.
func NewStandardScaler() *StandardScaler { return &StandardScaler{} }

// Fit implements Transformer.
func (s *StandardScaler) Fit(X [][]float64) error {
	p, err := columns(X)
	if err != nil {
		return fmt.Errorf("scaler fit: %w", err)
	}
	s.Mean = make([]float64, p)
	s.Scale = make([]float64, p)
	for j := 0; j < p; j++ {
		vals := observed(X, j)
		s.Scale[j] = 1
		if len(vals) == 0 {
			continue
		}
		mean, variance := stat.PopMeanVariance(vals, nil)
		s.Mean[j] = mean
		if std := math.Sqrt(variance); std > 0 {
			s.Scale[j] = std
		}
	}
	return nil
}

// Transform implements Transformer. NaN entries stay NaN.
func (s *StandardScaler) Transform(X [][]float64) ([][]float64, error) {
	if s.Mean == nil {
		return nil, ErrNotFitted
	}
	if err := checkWidth(X, len(s.Mean)); err != nil {
		return nil, err
	}
	out := make([][]float64, len(X))
	for i, row := range X {
		r := make([]float64, len(row))
		for j, v := range row {
			r[j] = (v - s.Mean[j]) / s.Scale[j]
		}
		out[i] = r
	}
	return out, nil
}
