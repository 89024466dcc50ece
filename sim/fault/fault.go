// Package fault injects hardware-style faults into bit words.
package fault

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/ftasim/ftasim/sim"
)

// Type names a fault model.
type Type string

// Supported fault models.
const (
	BitFlip      Type = "bit-flip"
	StuckAt0     Type = "stuck-at-0"
	StuckAt1     Type = "stuck-at-1"
	Random       Type = "random"
	Burst        Type = "burst"
	Intermittent Type = "intermittent"
)

var validTypes = map[Type]bool{
	BitFlip:      true,
	StuckAt0:     true,
	StuckAt1:     true,
	Random:       true,
	Burst:        true,
	Intermittent: true,
}

// IsValidType reports whether name is a recognized fault model.
func IsValidType(name string) bool {
	return validTypes[Type(name)]
}

// ValidTypeNames returns the recognized fault models, sorted.
func ValidTypeNames() []string {
	names := make([]string, 0, len(validTypes))
	for t := range validTypes {
		names = append(names, string(t))
	}
	sort.Strings(names)
	return names
}

// Injector applies one fault model. Probability is the per-bit (or per
// window bit, for Burst) chance that a fault strikes.
type Injector struct {
	Type        Type
	Probability float64
	BurstLength int // Burst only
	Period      int // Intermittent only: bits 0, Period, 2*Period... are exposed

	rng *rand.Rand
}

// NewInjector validates the parameters and returns an Injector drawing from rng.
func NewInjector(t Type, probability float64, burstLength, period int, rng *rand.Rand) (*Injector, error) {
	if !validTypes[t] {
		return nil, fmt.Errorf("unknown fault type %q; valid types: %v", t, ValidTypeNames())
	}
	if probability < 0 || probability > 1 {
		return nil, fmt.Errorf("fault probability must be in [0, 1], got %v", probability)
	}
	if t == Burst && burstLength <= 0 {
		return nil, fmt.Errorf("burst length must be positive, got %d", burstLength)
	}
	if t == Intermittent && period <= 0 {
		return nil, fmt.Errorf("intermittent period must be positive, got %d", period)
	}
	return &Injector{Type: t, Probability: probability, BurstLength: burstLength, Period: period, rng: rng}, nil
}

// Inject returns a faulty copy of w and the positions a fault struck, in
// ascending order. A struck bit may keep its value (stuck-at and random
// faults), so positions can exceed the Hamming distance to w.
func (in *Injector) Inject(w sim.Word) (sim.Word, []int) {
	out := w.Clone()
	var positions []int
	switch in.Type {
	case Burst:
		length := min(in.BurstLength, len(w))
		start := in.rng.Intn(len(w) - length + 1)
		for i := start; i < start+length; i++ {
			if in.rng.Float64() < in.Probability {
				positions = append(positions, i)
				out[i] = randomBit(in.rng)
			}
		}
	case Intermittent:
		for i := 0; i < len(w); i += in.Period {
			if in.rng.Float64() < in.Probability {
				positions = append(positions, i)
				out[i] ^= 1
			}
		}
	default:
		for i := range out {
			if in.rng.Float64() >= in.Probability {
				continue
			}
			positions = append(positions, i)
			switch in.Type {
			case BitFlip:
				out[i] ^= 1
			case StuckAt0:
				out[i] = 0
			case StuckAt1:
				out[i] = 1
			case Random:
				out[i] = randomBit(in.rng)
			}
		}
	}
	return out, positions
}

// FlipBurst flips every bit of a window of length bits placed uniformly in
// w, modelling a channel burst error. It returns the window start.
func FlipBurst(rng *rand.Rand, w sim.Word, length int) (sim.Word, int) {
	out := w.Clone()
	if len(w) == 0 || length <= 0 {
		return out, 0
	}
	length = min(length, len(w))
	start := rng.Intn(len(w) - length + 1)
	for i := start; i < start+length; i++ {
		out[i] ^= 1
	}
	return out, start
}

func randomBit(rng *rand.Rand) uint8 {
	if rng.Float64() < 0.5 {
		return 0
	}
	return 1
}
