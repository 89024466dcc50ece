// Package tmr simulates N-modular redundancy: several unreliable modules
// compute the same word and a voter combines their outputs.
package tmr

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ftasim/ftasim/sim"
	"github.com/ftasim/ftasim/sim/trace"
)

// reliabilityStep is how far a module's reliability moves after each trial.
const reliabilityStep = 0.01

// System is a set of redundant modules sharing one voter. Reliabilities
// adapt between trials: a module whose output matched the input gains
// reliabilityStep, any other loses it, clamped to [0, 1].
type System struct {
	Reliabilities    []float64
	FaultProbability float64

	voter Voter
	rng   *rand.Rand
}

// NewSystem validates the parameters and copies reliabilities.
func NewSystem(reliabilities []float64, faultProbability float64, voter Voter, rng *rand.Rand) (*System, error) {
	if len(reliabilities) == 0 {
		return nil, errors.New("tmr: need at least one module")
	}
	for i, r := range reliabilities {
		if r < 0 || r > 1 {
			return nil, fmt.Errorf("tmr: module %d reliability must be in [0, 1], got %v", i, r)
		}
	}
	if faultProbability < 0 || faultProbability > 1 {
		return nil, fmt.Errorf("tmr: fault probability must be in [0, 1], got %v", faultProbability)
	}
	return &System{
		Reliabilities:    append([]float64(nil), reliabilities...),
		FaultProbability: faultProbability,
		voter:            voter,
		rng:              rng,
	}, nil
}

// moduleOutput keeps each bit with probability 1 - p*(1-r) and otherwise
// replaces it with a random bit.
func (s *System) moduleOutput(input sim.Word, reliability float64) sim.Word {
	keep := 1 - s.FaultProbability*(1-reliability)
	out := input.Clone()
	for i := range out {
		if s.rng.Float64() >= keep {
			if s.rng.Float64() < 0.5 {
				out[i] = 0
			} else {
				out[i] = 1
			}
		}
	}
	return out
}

// Step runs one trial: every module computes input, the voter combines
// the outputs using the reliabilities before this trial, and then the
// reliabilities are updated.
func (s *System) Step(input sim.Word) (outputs []sim.Word, voted sim.Word) {
	outputs = make([]sim.Word, len(s.Reliabilities))
	for i, r := range s.Reliabilities {
		outputs[i] = s.moduleOutput(input, r)
	}
	voted = s.voter.Vote(outputs, s.Reliabilities)
	for i, out := range outputs {
		if out.Equal(input) {
			s.Reliabilities[i] = min(s.Reliabilities[i]+reliabilityStep, 1)
		} else {
			s.Reliabilities[i] = max(s.Reliabilities[i]-reliabilityStep, 0)
		}
	}
	return outputs, voted
}

// Run executes trials on input and records each into st.
func (s *System) Run(input sim.Word, trials int, st *trace.SimulationTrace) error {
	if len(input) == 0 {
		return fmt.Errorf("tmr: %w: empty input", sim.ErrInvalidWord)
	}
	if trials <= 0 {
		return fmt.Errorf("tmr: trials must be positive, got %d", trials)
	}
	for trial := 1; trial <= trials; trial++ {
		outputs, voted := s.Step(input)
		received := make([]string, len(outputs))
		corrupted := 0
		for i, out := range outputs {
			received[i] = out.String()
			corrupted += out.Distance(input)
			st.RecordModule(trace.ModuleRecord{
				Trial:       trial,
				Module:      i,
				Output:      out.String(),
				Matched:     out.Equal(input),
				Reliability: s.Reliabilities[i],
			})
		}
		st.RecordTrial(trace.TrialRecord{
			Trial:       trial,
			Input:       input.String(),
			Transmitted: input.String(),
			Received:    strings.Join(received, " "),
			Output:      voted.String(),
			Corrupted:   corrupted,
			Success:     voted.Equal(input),
		})
	}
	logrus.Debugf("tmr: %d trials, final reliabilities %v", trials, s.Reliabilities)
	return nil
}
