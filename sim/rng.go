package sim

import (
	"hash/fnv"
	"math/rand"
)

// === SimulationKey ===

// SimulationKey uniquely identifies a reproducible run.
// Two runs with the same SimulationKey and identical configuration
// MUST produce identical reports.
type SimulationKey int64

// NewSimulationKey creates a SimulationKey from a seed value.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// === Subsystem Constants ===

const (
	// SubsystemDataset is the RNG subsystem for synthetic feature/label generation.
	// Uses the master seed directly so a given --seed always yields the same data.
	SubsystemDataset = "dataset"

	// SubsystemMissing drives missing-value injection.
	SubsystemMissing = "missing"

	// SubsystemSplit drives shuffled train/test splits.
	SubsystemSplit = "split"

	// SubsystemInit drives layer weight initialization.
	SubsystemInit = "init"

	// SubsystemShuffle drives per-epoch minibatch shuffling.
	SubsystemShuffle = "shuffle"

	// SubsystemForest seeds the random forest (bootstrap and feature sampling).
	SubsystemForest = "forest"

	// SubsystemFault drives fault injection.
	SubsystemFault = "fault"

	// SubsystemChannel drives burst errors applied to encoded ECC words.
	SubsystemChannel = "channel"

	// SubsystemTMR drives redundant module outputs.
	SubsystemTMR = "tmr"
)

// === PartitionedRNG ===

// PartitionedRNG provides deterministic, isolated RNG instances per subsystem.
//
// Derivation formula:
//   - For SubsystemDataset: uses masterSeed directly
//   - For all other subsystems: masterSeed XOR fnv1a64(subsystemName)
//
// Thread-safety: NOT thread-safe. Must be called from single goroutine.
// Hand derived seeds (Seed) to goroutines instead of sharing a *rand.Rand.
type PartitionedRNG struct {
	key        SimulationKey
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a SimulationKey.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{
		key:        key,
		subsystems: make(map[string]*rand.Rand),
	}
}

// ForSubsystem returns a deterministically-seeded RNG for the named subsystem.
// The same subsystem name always returns the same *rand.Rand instance (cached).
// Never returns nil.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}
	rng := rand.New(rand.NewSource(p.Seed(name)))
	p.subsystems[name] = rng
	return rng
}

// Seed returns the derived seed for a subsystem without creating an RNG.
func (p *PartitionedRNG) Seed(name string) int64 {
	if name == SubsystemDataset {
		return int64(p.key)
	}
	return int64(p.key) ^ fnv1a64(name)
}

// Key returns the SimulationKey used to create this PartitionedRNG.
func (p *PartitionedRNG) Key() SimulationKey {
	return p.key
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
