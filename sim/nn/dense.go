package nn

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Dense is a fully connected layer, output = act(x W + b), applied
// independently at every timestep.
type Dense struct {
	Units      int
	Activation string

	act    activation
	kernel *Param
	bias   *Param

	inputs  []*mat.Dense
	outputs []*mat.Dense
}

// NewDense returns a Dense layer with the given width and activation name.
func NewDense(units int, activation string) *Dense {
	return &Dense{Units: units, Activation: activation}
}

// Name implements Layer.
func (d *Dense) Name() string { return fmt.Sprintf("dense(%d, %s)", d.Units, d.Activation) }

// Build uses a Glorot-uniform kernel and zero bias.
func (d *Dense) Build(inputDim int, rng *rand.Rand) (int, error) {
	if d.Units <= 0 {
		return 0, fmt.Errorf("dense: units must be positive, got %d", d.Units)
	}
	if inputDim <= 0 {
		return 0, fmt.Errorf("dense: input dim must be positive, got %d", inputDim)
	}
	act, err := lookupActivation(d.Activation)
	if err != nil {
		return 0, fmt.Errorf("dense: %w", err)
	}
	d.act = act
	d.kernel = newParam("kernel", inputDim, d.Units)
	d.bias = newParam("bias", 1, d.Units)
	glorotUniform(d.kernel.Value, inputDim, d.Units, rng)
	return d.Units, nil
}

// Params implements Layer.
func (d *Dense) Params() []*Param { return []*Param{d.kernel, d.bias} }

func (d *Dense) forward(x Sequence) Sequence {
	d.inputs = x
	d.outputs = make([]*mat.Dense, len(x))
	for t, xt := range x {
		var z mat.Dense
		z.Mul(xt, d.kernel.Value)
		addRowVector(&z, d.bias.Value)
		z.Apply(func(_, _ int, v float64) float64 { return d.act.apply(v) }, &z)
		d.outputs[t] = &z
	}
	return d.outputs
}

func (d *Dense) backward(grad Sequence) Sequence {
	d.kernel.Grad.Zero()
	d.bias.Grad.Zero()
	dx := make(Sequence, len(grad))
	for t, g := range grad {
		var dz mat.Dense
		dz.Apply(func(i, j int, v float64) float64 {
			return v * d.act.derivFromOutput(d.outputs[t].At(i, j))
		}, g)
		addProduct(d.kernel.Grad, d.inputs[t], &dz)
		addColumnSums(d.bias.Grad, &dz)
		var in mat.Dense
		in.Mul(&dz, d.kernel.Value.T())
		dx[t] = &in
	}
	return dx
}
