package nn

import (
	"fmt"
	"math"
)

// Activation names accepted by Dense.
const (
	ActivationLinear  = "linear"
	ActivationReLU    = "relu"
	ActivationSigmoid = "sigmoid"
	ActivationTanh    = "tanh"
)

// activation maps pre-activations to outputs. derivFromOutput returns the
// derivative expressed in terms of the output, which all supported
// functions allow.
type activation struct {
	name            string
	apply           func(float64) float64
	derivFromOutput func(float64) float64
}

func lookupActivation(name string) (activation, error) {
	switch name {
	case ActivationLinear, "":
		return activation{ActivationLinear, func(x float64) float64 { return x }, func(float64) float64 { return 1 }}, nil
	case ActivationReLU:
		return activation{ActivationReLU, relu, func(y float64) float64 {
			if y > 0 {
				return 1
			}
			return 0
		}}, nil
	case ActivationSigmoid:
		return activation{ActivationSigmoid, sigmoid, func(y float64) float64 { return y * (1 - y) }}, nil
	case ActivationTanh:
		return activation{ActivationTanh, math.Tanh, func(y float64) float64 { return 1 - y*y }}, nil
	}
	return activation{}, fmt.Errorf("unknown activation %q", name)
}

func sigmoid(x float64) float64 { return 1.0 / (1.0 + math.Exp(-x)) }

func relu(x float64) float64 {
	if x > 0 {
		return x
	}
	return 0
}
