// Package nn implements the small slice of a Keras-style sequential API the
// fault-analysis experiments need: Dense and LSTM layers trained with full
// backpropagation (through time) on binary cross-entropy using Adam.
//
// All tensors are gonum matrices. A Sequence holds one (batch x features)
// matrix per timestep, so feed-forward inputs are sequences of length one.
package nn

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrNotBuilt is returned when a model is used before Build.
	ErrNotBuilt = errors.New("model not built")

	// ErrNotCompiled is returned when Fit runs before Compile.
	ErrNotCompiled = errors.New("model not compiled")

	// ErrShapeMismatch is returned for inconsistent input shapes.
	ErrShapeMismatch = errors.New("input shape mismatch")

	// ErrNonFinite is returned for NaN or infinite inputs, which would
	// poison every gradient they touch.
	ErrNonFinite = errors.New("non-finite input")
)

// Sequence is a time-major batch: s[t] is the (batch x features) input at
// timestep t. Every step has the same shape.
type Sequence []*mat.Dense

// NewSequence reshapes flat rows of timesteps*features values into a
// Sequence, row i contributing sample i at every step.
func NewSequence(rows [][]float64, timesteps int) (Sequence, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no rows", ErrShapeMismatch)
	}
	if timesteps <= 0 {
		return nil, fmt.Errorf("timesteps must be positive, got %d", timesteps)
	}
	width := len(rows[0])
	if width%timesteps != 0 {
		return nil, fmt.Errorf("%w: %d columns do not divide into %d timesteps", ErrShapeMismatch, width, timesteps)
	}
	features := width / timesteps
	seq := make(Sequence, timesteps)
	for t := range seq {
		seq[t] = mat.NewDense(len(rows), features, nil)
	}
	for i, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", ErrShapeMismatch, i, len(row), width)
		}
		for t := range seq {
			seq[t].SetRow(i, row[t*features:(t+1)*features])
		}
	}
	return seq, nil
}

// FromRows wraps rows as a single-timestep Sequence.
func FromRows(rows [][]float64) (Sequence, error) {
	return NewSequence(rows, 1)
}

// Labels converts 0/1 labels into an (n x 1) target matrix.
func Labels(y []int) *mat.Dense {
	data := make([]float64, len(y))
	for i, v := range y {
		data[i] = float64(v)
	}
	return mat.NewDense(len(y), 1, data)
}

// Dims returns (batch, timesteps, features).
func (s Sequence) Dims() (int, int, int) {
	if len(s) == 0 {
		return 0, 0, 0
	}
	r, c := s[0].Dims()
	return r, len(s), c
}

// Rows returns the samples in [lo, hi) at every timestep. The result shares
// storage with s.
func (s Sequence) Rows(lo, hi int) Sequence {
	out := make(Sequence, len(s))
	for t, m := range s {
		_, c := m.Dims()
		out[t] = m.Slice(lo, hi, 0, c).(*mat.Dense)
	}
	return out
}

// Gather copies the samples listed in idx at every timestep.
func (s Sequence) Gather(idx []int) Sequence {
	out := make(Sequence, len(s))
	for t, m := range s {
		out[t] = gatherRows(m, idx)
	}
	return out
}

func (s Sequence) validate() error {
	if len(s) == 0 {
		return fmt.Errorf("%w: empty sequence", ErrShapeMismatch)
	}
	r, c := s[0].Dims()
	for t, m := range s {
		if rr, cc := m.Dims(); rr != r || cc != c {
			return fmt.Errorf("%w: step %d is %dx%d, want %dx%d", ErrShapeMismatch, t, rr, cc, r, c)
		}
		for i := 0; i < r; i++ {
			for j, v := range m.RawRowView(i) {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					return fmt.Errorf("%w: step %d sample %d feature %d is %v", ErrNonFinite, t, i, j, v)
				}
			}
		}
	}
	return nil
}

// Param is a trainable tensor and the gradient accumulated for it by the
// most recent backward pass.
type Param struct {
	Name  string
	Value *mat.Dense
	Grad  *mat.Dense
}

func newParam(name string, r, c int) *Param {
	return &Param{
		Name:  name,
		Value: mat.NewDense(r, c, nil),
		Grad:  mat.NewDense(r, c, nil),
	}
}

// Layer is one stage of a Sequential model. forward caches what backward
// needs, so calls must alternate forward then backward on the same batch.
type Layer interface {
	Name() string
	// Build allocates and initializes parameters for inputDim features and
	// returns the output feature count.
	Build(inputDim int, rng *rand.Rand) (int, error)
	Params() []*Param
	forward(x Sequence) Sequence
	// backward takes d loss / d output and returns d loss / d input,
	// overwriting each Param's Grad.
	backward(grad Sequence) Sequence
}

// glorotUniform fills m from U(-limit, limit), limit = sqrt(6/(fanIn+fanOut)).
func glorotUniform(m *mat.Dense, fanIn, fanOut int, rng *rand.Rand) {
	limit := math.Sqrt(6 / float64(fanIn+fanOut))
	raw := m.RawMatrix()
	for i := 0; i < raw.Rows; i++ {
		row := raw.Data[i*raw.Stride : i*raw.Stride+raw.Cols]
		for j := range row {
			row[j] = (rng.Float64()*2 - 1) * limit
		}
	}
}

// orthogonal fills m (r x c) with a matrix whose rows or columns, whichever
// are fewer, are orthonormal.
func orthogonal(m *mat.Dense, rng *rand.Rand) {
	r, c := m.Dims()
	rows, cols := r, c
	if r < c {
		rows, cols = c, r
	}
	a := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			a.Set(i, j, rng.NormFloat64())
		}
	}
	var qr mat.QR
	qr.Factorize(a)
	var q, rr mat.Dense
	qr.QTo(&q)
	qr.RTo(&rr)
	thin := mat.DenseCopyOf(q.Slice(0, rows, 0, cols))
	for j := 0; j < cols; j++ {
		if rr.At(j, j) < 0 {
			for i := 0; i < rows; i++ {
				thin.Set(i, j, -thin.At(i, j))
			}
		}
	}
	if r < c {
		m.Copy(thin.T())
	} else {
		m.Copy(thin)
	}
}

func gatherRows(m *mat.Dense, idx []int) *mat.Dense {
	_, c := m.Dims()
	out := mat.NewDense(len(idx), c, nil)
	for i, k := range idx {
		out.SetRow(i, m.RawRowView(k))
	}
	return out
}

// addRowVector adds the (1 x c) row vector b to every row of m in place.
func addRowVector(m, b *mat.Dense) {
	bias := b.RawRowView(0)
	r, _ := m.Dims()
	for i := 0; i < r; i++ {
		row := m.RawRowView(i)
		for j := range row {
			row[j] += bias[j]
		}
	}
}

// addColumnSums accumulates the column sums of m into the (1 x c) dst.
func addColumnSums(dst, m *mat.Dense) {
	out := dst.RawRowView(0)
	r, _ := m.Dims()
	for i := 0; i < r; i++ {
		for j, v := range m.RawRowView(i) {
			out[j] += v
		}
	}
}

// addProduct accumulates a^T b into dst.
func addProduct(dst, a, b *mat.Dense) {
	var prod mat.Dense
	prod.Mul(a.T(), b)
	dst.Add(dst, &prod)
}
