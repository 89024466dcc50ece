package preprocess

import (
	"fmt"
	"math"
	"sort"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"
)

// Imputation strategies.
const (
	StrategyMean   = "mean"
	StrategyMedian = "median"
)

// SimpleImputer replaces NaN entries with a per-column statistic learned
// from the observed values. Columns with no observed values impute 0.
type SimpleImputer struct {
	Strategy   string
	Statistics []float64
}

// NewSimpleImputer returns an imputer for the given strategy.
func NewSimpleImputer(strategy string) (*SimpleImputer, error) {
	switch strategy {
	case StrategyMean, StrategyMedian:
		return &SimpleImputer{Strategy: strategy}, nil
	default:
		return nil, fmt.Errorf("unknown impute strategy %q; valid: mean, median", strategy)
	}
}

// Fit implements Transformer.
func (s *SimpleImputer) Fit(X [][]float64) error {
	p, err := columns(X)
	if err != nil {
		return fmt.Errorf("imputer fit: %w", err)
	}
	s.Statistics = make([]float64, p)
	for j := 0; j < p; j++ {
		vals := observed(X, j)
		if len(vals) == 0 {
			logrus.Warnf("imputer: column %d has no observed values, imputing 0", j)
			continue
		}
		switch s.Strategy {
		case StrategyMedian:
			sort.Float64s(vals)
			s.Statistics[j] = median(vals)
		default:
			s.Statistics[j] = stat.Mean(vals, nil)
		}
	}
	return nil
}

// Transform implements Transformer. X is not modified.
func (s *SimpleImputer) Transform(X [][]float64) ([][]float64, error) {
	if s.Statistics == nil {
		return nil, ErrNotFitted
	}
	if err := checkWidth(X, len(s.Statistics)); err != nil {
		return nil, err
	}
	out := make([][]float64, len(X))
	for i, row := range X {
		r := make([]float64, len(row))
		for j, v := range row {
			if math.IsNaN(v) {
				v = s.Statistics[j]
			}
			r[j] = v
		}
		out[i] = r
	}
	return out, nil
}

// median of sorted values; averages the middle pair for even lengths.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
