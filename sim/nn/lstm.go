package nn

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// LSTM is a long short-term memory layer. Gates are packed in the order
// input, forget, cell, output along the last kernel axis. With
// ReturnSequences the hidden state of every step is emitted, otherwise only
// the last one as a single-step Sequence.
type LSTM struct {
	Units           int
	ReturnSequences bool

	kernel    *Param // inputDim x 4u
	recurrent *Param // u x 4u
	bias      *Param // 1 x 4u

	steps []lstmStep
}

// lstmStep caches one timestep of the forward pass.
type lstmStep struct {
	x, hPrev, cPrev *mat.Dense
	i, f, g, o      *mat.Dense
	c, tanhC        *mat.Dense
}

// NewLSTM returns an LSTM layer with the given width.
func NewLSTM(units int, returnSequences bool) *LSTM {
	return &LSTM{Units: units, ReturnSequences: returnSequences}
}

// Name implements Layer.
func (l *LSTM) Name() string {
	return fmt.Sprintf("lstm(%d, return_sequences=%t)", l.Units, l.ReturnSequences)
}

// Build uses a Glorot-uniform kernel, an orthogonal recurrent kernel and a
// bias of one on the forget gate.
func (l *LSTM) Build(inputDim int, rng *rand.Rand) (int, error) {
	if l.Units <= 0 {
		return 0, fmt.Errorf("lstm: units must be positive, got %d", l.Units)
	}
	if inputDim <= 0 {
		return 0, fmt.Errorf("lstm: input dim must be positive, got %d", inputDim)
	}
	u := l.Units
	l.kernel = newParam("kernel", inputDim, 4*u)
	l.recurrent = newParam("recurrent_kernel", u, 4*u)
	l.bias = newParam("bias", 1, 4*u)
	glorotUniform(l.kernel.Value, inputDim, 4*u, rng)
	orthogonal(l.recurrent.Value, rng)
	for j := u; j < 2*u; j++ {
		l.bias.Value.Set(0, j, 1)
	}
	return u, nil
}

// Params implements Layer.
func (l *LSTM) Params() []*Param { return []*Param{l.kernel, l.recurrent, l.bias} }

func (l *LSTM) forward(x Sequence) Sequence {
	n, _, _ := x.Dims()
	u := l.Units
	h := mat.NewDense(n, u, nil)
	c := mat.NewDense(n, u, nil)
	l.steps = make([]lstmStep, len(x))
	out := make(Sequence, 0, len(x))
	for t, xt := range x {
		var z, rec mat.Dense
		z.Mul(xt, l.kernel.Value)
		rec.Mul(h, l.recurrent.Value)
		z.Add(&z, &rec)
		addRowVector(&z, l.bias.Value)

		st := lstmStep{
			x:     xt,
			hPrev: h,
			cPrev: c,
			i:     gate(&z, 0, u, sigmoid),
			f:     gate(&z, 1, u, sigmoid),
			g:     gate(&z, 2, u, math.Tanh),
			o:     gate(&z, 3, u, sigmoid),
		}
		var fc, ig mat.Dense
		fc.MulElem(st.f, c)
		ig.MulElem(st.i, st.g)
		c = mat.NewDense(n, u, nil)
		c.Add(&fc, &ig)
		tanhC := mat.NewDense(n, u, nil)
		tanhC.Apply(func(_, _ int, v float64) float64 { return math.Tanh(v) }, c)
		h = mat.NewDense(n, u, nil)
		h.MulElem(st.o, tanhC)

		st.c, st.tanhC = c, tanhC
		l.steps[t] = st
		if l.ReturnSequences {
			out = append(out, h)
		}
	}
	if !l.ReturnSequences {
		out = append(out, h)
	}
	return out
}

// gate extracts block k of the packed pre-activations and applies fn.
func gate(z *mat.Dense, k, u int, fn func(float64) float64) *mat.Dense {
	n, _ := z.Dims()
	out := mat.DenseCopyOf(z.Slice(0, n, k*u, (k+1)*u))
	out.Apply(func(_, _ int, v float64) float64 { return fn(v) }, out)
	return out
}

func (l *LSTM) backward(grad Sequence) Sequence {
	l.kernel.Grad.Zero()
	l.recurrent.Grad.Zero()
	l.bias.Grad.Zero()

	steps := len(l.steps)
	n, _ := l.steps[0].x.Dims()
	u := l.Units
	dhNext := mat.NewDense(n, u, nil)
	dcNext := mat.NewDense(n, u, nil)
	dx := make(Sequence, steps)

	for t := steps - 1; t >= 0; t-- {
		st := l.steps[t]
		dh := mat.DenseCopyOf(dhNext)
		switch {
		case l.ReturnSequences:
			dh.Add(dh, grad[t])
		case t == steps-1:
			dh.Add(dh, grad[0])
		}

		dz := mat.NewDense(n, 4*u, nil)
		dc := mat.NewDense(n, u, nil)
		for r := 0; r < n; r++ {
			for j := 0; j < u; j++ {
				i, f, g, o := st.i.At(r, j), st.f.At(r, j), st.g.At(r, j), st.o.At(r, j)
				tc := st.tanhC.At(r, j)
				dhv := dh.At(r, j)
				dcv := dhv*o*(1-tc*tc) + dcNext.At(r, j)
				dc.Set(r, j, dcv*f)
				dz.Set(r, j, dcv*g*i*(1-i))
				dz.Set(r, u+j, dcv*st.cPrev.At(r, j)*f*(1-f))
				dz.Set(r, 2*u+j, dcv*i*(1-g*g))
				dz.Set(r, 3*u+j, dhv*tc*o*(1-o))
			}
		}

		addProduct(l.kernel.Grad, st.x, dz)
		addProduct(l.recurrent.Grad, st.hPrev, dz)
		addColumnSums(l.bias.Grad, dz)

		var in mat.Dense
		in.Mul(dz, l.kernel.Value.T())
		dx[t] = &in
		dhNext = mat.NewDense(n, u, nil)
		dhNext.Mul(dz, l.recurrent.Value.T())
		dcNext = dc
	}
	return dx
}
