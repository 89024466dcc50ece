// Package testutil provides shared assertion helpers for floating-point
// results and finite-difference gradient checks used across sim/ test
// packages.
package testutil

import (
	"math"
	"testing"
)

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}

// NumericalGradient estimates d loss / d params[i] for every i by central
// differences. params is perturbed in place and restored before returning.
func NumericalGradient(params []float64, loss func() float64, h float64) []float64 {
	grad := make([]float64, len(params))
	for i := range params {
		orig := params[i]
		params[i] = orig + h
		plus := loss()
		params[i] = orig - h
		minus := loss()
		params[i] = orig
		grad[i] = (plus - minus) / (2 * h)
	}
	return grad
}

// AssertGradientsClose checks analytic against numeric gradients. Entries
// whose magnitudes are both below absTol pass regardless of relative error.
func AssertGradientsClose(t *testing.T, name string, analytic, numeric []float64, relTol, absTol float64) {
	t.Helper()
	if len(analytic) != len(numeric) {
		t.Fatalf("%s: got %d analytic entries, want %d", name, len(analytic), len(numeric))
	}
	for i := range analytic {
		a, n := analytic[i], numeric[i]
		if math.Abs(a-n) <= absTol {
			continue
		}
		rel := math.Abs(a-n) / math.Max(math.Abs(a), math.Abs(n))
		if rel > relTol {
			t.Errorf("%s[%d]: analytic %v, numeric %v (relDiff=%v)", name, i, a, n, rel)
		}
	}
}
