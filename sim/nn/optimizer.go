package nn

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Optimizer applies accumulated gradients to parameters.
type Optimizer interface {
	Name() string
	Step(params []*Param)
}

// Adam is the Adam optimizer with Keras defaults.
type Adam struct {
	LearningRate float64
	Beta1        float64
	Beta2        float64
	Epsilon      float64

	t     int
	state map[*Param]*adamMoments
}

type adamMoments struct {
	m, v *mat.Dense
}

// NewAdam returns Adam with beta1 0.9, beta2 0.999 and epsilon 1e-7.
func NewAdam(learningRate float64) *Adam {
	return &Adam{
		LearningRate: learningRate,
		Beta1:        0.9,
		Beta2:        0.999,
		Epsilon:      1e-7,
		state:        make(map[*Param]*adamMoments),
	}
}

// Name implements Optimizer.
func (a *Adam) Name() string { return "adam" }

// Iterations returns the number of steps taken.
func (a *Adam) Iterations() int { return a.t }

// Step performs one bias-corrected update of every parameter.
func (a *Adam) Step(params []*Param) {
	if a.state == nil {
		a.state = make(map[*Param]*adamMoments)
	}
	a.t++
	t := float64(a.t)
	alpha := a.LearningRate * math.Sqrt(1-math.Pow(a.Beta2, t)) / (1 - math.Pow(a.Beta1, t))
	for _, p := range params {
		st, ok := a.state[p]
		if !ok {
			r, c := p.Value.Dims()
			st = &adamMoments{m: mat.NewDense(r, c, nil), v: mat.NewDense(r, c, nil)}
			a.state[p] = st
		}
		r, c := p.Value.Dims()
		for i := 0; i < r; i++ {
			g := p.Grad.RawRowView(i)
			m := st.m.RawRowView(i)
			v := st.v.RawRowView(i)
			w := p.Value.RawRowView(i)
			for j := 0; j < c; j++ {
				m[j] = a.Beta1*m[j] + (1-a.Beta1)*g[j]
				v[j] = a.Beta2*v[j] + (1-a.Beta2)*g[j]*g[j]
				w[j] -= alpha * m[j] / (math.Sqrt(v[j]) + a.Epsilon)
			}
		}
	}
}
