package nn

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Loss scores predictions against targets and returns d loss / d pred.
type Loss interface {
	Name() string
	Loss(yTrue, yPred *mat.Dense) float64
	Gradient(yTrue, yPred *mat.Dense) *mat.Dense
}

// lossEpsilon matches the Keras backend epsilon used to clip probabilities.
const lossEpsilon = 1e-7

// BinaryCrossentropy is the mean binary cross-entropy of probabilities.
type BinaryCrossentropy struct{}

// Name implements Loss.
func (BinaryCrossentropy) Name() string { return "binary_crossentropy" }

// Loss implements Loss.
func (BinaryCrossentropy) Loss(yTrue, yPred *mat.Dense) float64 {
	r, c := yPred.Dims()
	sum := 0.0
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			p := clip(yPred.At(i, j))
			y := yTrue.At(i, j)
			sum -= y*math.Log(p) + (1-y)*math.Log(1-p)
		}
	}
	return sum / float64(r*c)
}

// Gradient implements Loss. Entries whose prediction was clipped get zero
// gradient.
func (BinaryCrossentropy) Gradient(yTrue, yPred *mat.Dense) *mat.Dense {
	r, c := yPred.Dims()
	n := float64(r * c)
	grad := mat.NewDense(r, c, nil)
	grad.Apply(func(i, j int, p float64) float64 {
		if p < lossEpsilon || p > 1-lossEpsilon {
			return 0
		}
		y := yTrue.At(i, j)
		return (p - y) / (p * (1 - p)) / n
	}, yPred)
	return grad
}

func clip(p float64) float64 {
	return math.Min(math.Max(p, lossEpsilon), 1-lossEpsilon)
}

// BinaryAccuracy is the fraction of predictions on the same side of 0.5 as
// their target.
func BinaryAccuracy(yTrue, yPred *mat.Dense) float64 {
	r, c := yPred.Dims()
	hits := 0
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			pred := 0.0
			if yPred.At(i, j) > 0.5 {
				pred = 1
			}
			if pred == yTrue.At(i, j) {
				hits++
			}
		}
	}
	return float64(hits) / float64(r*c)
}
