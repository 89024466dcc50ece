package nn

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/ftasim/ftasim/sim/internal/testutil"
)

func randomSequence(rng *rand.Rand, steps, batch, features int) Sequence {
	seq := make(Sequence, steps)
	for t := range seq {
		seq[t] = mat.NewDense(batch, features, nil)
		for i := 0; i < batch; i++ {
			for j := 0; j < features; j++ {
				seq[t].Set(i, j, rng.NormFloat64())
			}
		}
	}
	return seq
}

// weightedSum is a scalar objective sum_t sum_ij w_tij * out_tij with fixed
// random weights, so its gradient w.r.t. the output is simply w.
func weightedSum(out Sequence, w Sequence) float64 {
	s := 0.0
	for t := range out {
		var prod mat.Dense
		prod.MulElem(out[t], w[t])
		s += mat.Sum(&prod)
	}
	return s
}

func checkLayerGradients(t *testing.T, layer Layer, x Sequence) {
	t.Helper()
	rng := rand.New(rand.NewSource(11))
	_, _, features := x.Dims()
	_, err := layer.Build(features, rng)
	require.NoError(t, err)

	out := layer.forward(x)
	r, c := out[0].Dims()
	w := randomSequence(rng, len(out), r, c)
	objective := func() float64 { return weightedSum(layer.forward(x), w) }

	// WHEN backward runs on d objective / d output = w
	layer.forward(x)
	dx := layer.backward(w)

	// THEN every parameter gradient matches central differences
	for _, p := range layer.Params() {
		raw := p.Value.RawMatrix().Data
		numeric := testutil.NumericalGradient(raw, objective, 1e-5)
		testutil.AssertGradientsClose(t, layer.Name()+"/"+p.Name, p.Grad.RawMatrix().Data, numeric, 1e-4, 1e-8)
	}
	// AND so does the input gradient
	for step := range x {
		raw := x[step].RawMatrix().Data
		numeric := testutil.NumericalGradient(raw, objective, 1e-5)
		testutil.AssertGradientsClose(t, layer.Name()+"/input", dx[step].RawMatrix().Data, numeric, 1e-4, 1e-8)
	}
}

func TestDense_GradientsMatchNumeric(t *testing.T) {
	for _, act := range []string{ActivationLinear, ActivationSigmoid, ActivationTanh} {
		t.Run(act, func(t *testing.T) {
			x := randomSequence(rand.New(rand.NewSource(1)), 2, 4, 3)
			checkLayerGradients(t, NewDense(5, act), x)
		})
	}
}

func TestLSTM_GradientsMatchNumeric(t *testing.T) {
	for _, returnSequences := range []bool{false, true} {
		x := randomSequence(rand.New(rand.NewSource(2)), 3, 2, 4)
		checkLayerGradients(t, NewLSTM(3, returnSequences), x)
	}
}

func TestDense_ReLUMasksNegativePreActivations(t *testing.T) {
	d := NewDense(1, ActivationReLU)
	_, err := d.Build(1, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	d.kernel.Value.Set(0, 0, 1)

	out := d.forward(Sequence{mat.NewDense(2, 1, []float64{-2, 3})})
	assert.Equal(t, []float64{0, 3}, out[0].RawMatrix().Data)

	dx := d.backward(Sequence{mat.NewDense(2, 1, []float64{1, 1})})
	assert.Equal(t, []float64{0, 1}, dx[0].RawMatrix().Data)
	assert.Equal(t, 3.0, d.kernel.Grad.At(0, 0))
}

func TestLSTM_BuildInitialization(t *testing.T) {
	// GIVEN an LSTM built for 10 inputs
	l := NewLSTM(8, false)
	out, err := l.Build(10, rand.New(rand.NewSource(5)))
	require.NoError(t, err)
	assert.Equal(t, 8, out)

	// THEN the forget-gate bias is one and the rest zero
	for j := 0; j < 32; j++ {
		want := 0.0
		if j >= 8 && j < 16 {
			want = 1
		}
		assert.Equal(t, want, l.bias.Value.At(0, j), "bias[%d]", j)
	}

	// AND the recurrent kernel has orthonormal rows
	var gram mat.Dense
	gram.Mul(l.recurrent.Value, l.recurrent.Value.T())
	for i := 0; i < 8; i++ {
		for j := 0; j < 8; j++ {
			want := 0.0
			if i == j {
				want = 1
			}
			assert.InDelta(t, want, gram.At(i, j), 1e-9)
		}
	}

	// AND the kernel stays inside the Glorot limit
	limit := math.Sqrt(6.0 / float64(10+32))
	for _, v := range l.kernel.Value.RawMatrix().Data {
		assert.LessOrEqual(t, math.Abs(v), limit)
	}
}

func TestLSTM_OutputShapes(t *testing.T) {
	x := randomSequence(rand.New(rand.NewSource(3)), 4, 5, 2)
	seq := NewLSTM(3, true)
	_, err := seq.Build(2, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Len(t, seq.forward(x), 4)

	last := NewLSTM(3, false)
	_, err = last.Build(2, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	out := last.forward(x)
	require.Len(t, out, 1)
	r, c := out[0].Dims()
	assert.Equal(t, 5, r)
	assert.Equal(t, 3, c)
}

func TestLayers_BuildErrors(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	_, err := NewDense(0, ActivationReLU).Build(3, rng)
	assert.Error(t, err)
	_, err = NewDense(2, "softsign").Build(3, rng)
	assert.Error(t, err)
	_, err = NewLSTM(0, false).Build(3, rng)
	assert.Error(t, err)
	_, err = NewLSTM(2, false).Build(0, rng)
	assert.Error(t, err)
}
