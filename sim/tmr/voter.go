package tmr

import (
	"fmt"
	"sort"

	"github.com/ftasim/ftasim/sim"
)

// Voting strategy names.
const (
	StrategyMajority  = "majority"
	StrategyWeighted  = "weighted"
	StrategyAdaptive  = "adaptive"
	StrategyThreshold = "threshold"
)

// validStrategies maps accepted strategy names.
var validStrategies = map[string]bool{
	StrategyMajority:  true,
	StrategyWeighted:  true,
	StrategyAdaptive:  true,
	StrategyThreshold: true,
}

// IsValidStrategy returns true if name is a recognized voting strategy.
func IsValidStrategy(name string) bool {
	return validStrategies[name]
}

// ValidStrategyNames returns the recognized strategies, sorted.
func ValidStrategyNames() []string {
	names := make([]string, 0, len(validStrategies))
	for n := range validStrategies {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Voter combines redundant module outputs into one word. All outputs have
// the same length and reliabilities[i] belongs to outputs[i].
type Voter interface {
	Vote(outputs []sim.Word, reliabilities []float64) sim.Word
}

// Majority sets a bit when more than half of the modules output 1.
type Majority struct{}

func (Majority) Vote(outputs []sim.Word, _ []float64) sim.Word {
	return voteBits(outputs, func(ones []int) bool { return 2*len(ones) > len(outputs) })
}

// Weighted sets a bit when the reliabilities of modules voting 1 exceed
// half the total reliability.
type Weighted struct{}

func (Weighted) Vote(outputs []sim.Word, reliabilities []float64) sim.Word {
	total := 0.0
	for _, r := range reliabilities {
		total += r
	}
	return voteBits(outputs, func(ones []int) bool {
		sum := 0.0
		for _, i := range ones {
			sum += reliabilities[i]
		}
		return sum > total/2
	})
}

// Adaptive trusts the currently most reliable module, the first on ties.
type Adaptive struct{}

func (Adaptive) Vote(outputs []sim.Word, reliabilities []float64) sim.Word {
	best := 0
	for i, r := range reliabilities {
		if r > reliabilities[best] {
			best = i
		}
	}
	return outputs[best].Clone()
}

// Threshold sets a bit when at least Min modules output 1.
type Threshold struct {
	Min int
}

func (t Threshold) Vote(outputs []sim.Word, _ []float64) sim.Word {
	return voteBits(outputs, func(ones []int) bool { return len(ones) >= t.Min })
}

// voteBits applies decide to the indices of modules reporting 1 at each bit.
func voteBits(outputs []sim.Word, decide func(ones []int) bool) sim.Word {
	out := make(sim.Word, len(outputs[0]))
	ones := make([]int, 0, len(outputs))
	for bit := range out {
		ones = ones[:0]
		for i, w := range outputs {
			if w[bit] != 0 {
				ones = append(ones, i)
			}
		}
		if decide(ones) {
			out[bit] = 1
		}
	}
	return out
}

// NewVoter creates a voter by strategy name. threshold only applies to
// StrategyThreshold. Panics on unrecognized names; callers validate with
// IsValidStrategy first.
func NewVoter(strategy string, threshold int) Voter {
	if !IsValidStrategy(strategy) {
		panic(fmt.Sprintf("unknown voting strategy %q", strategy))
	}
	switch strategy {
	case StrategyMajority:
		return Majority{}
	case StrategyWeighted:
		return Weighted{}
	case StrategyAdaptive:
		return Adaptive{}
	case StrategyThreshold:
		return Threshold{Min: threshold}
	default:
		panic(fmt.Sprintf("unhandled voting strategy %q", strategy))
	}
}
