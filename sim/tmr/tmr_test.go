package tmr

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ftasim/ftasim/sim"
	"github.com/ftasim/ftasim/sim/trace"
)

func words(t *testing.T, ss ...string) []sim.Word {
	t.Helper()
	out := make([]sim.Word, len(ss))
	for i, s := range ss {
		w, err := sim.ParseWord(s)
		require.NoError(t, err)
		out[i] = w
	}
	return out
}

func TestVoters(t *testing.T) {
	outputs := []string{"1100", "1010", "0110"}
	tests := []struct {
		name          string
		voter         Voter
		reliabilities []float64
		want          string
	}{
		{"majority needs two of three", Majority{}, []float64{0.9, 0.9, 0.9}, "1110"},
		{"threshold 1 is OR", Threshold{Min: 1}, nil, "1110"},
		{"threshold 3 is AND", Threshold{Min: 3}, nil, "0000"},
		{"weighted follows the dominant module", Weighted{}, []float64{0.9, 0.05, 0.05}, "1100"},
		{"weighted with equal weights is majority", Weighted{}, []float64{0.5, 0.5, 0.5}, "1110"},
		{"adaptive copies the most reliable", Adaptive{}, []float64{0.8, 0.95, 0.95}, "1010"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.voter.Vote(words(t, outputs...), tc.reliabilities)
			assert.Equal(t, tc.want, got.String())
		})
	}
}

func TestNewVoter(t *testing.T) {
	assert.Equal(t, Majority{}, NewVoter(StrategyMajority, 0))
	assert.Equal(t, Threshold{Min: 2}, NewVoter(StrategyThreshold, 2))
	assert.Panics(t, func() { NewVoter("plurality", 0) })
	assert.Equal(t, []string{"adaptive", "majority", "threshold", "weighted"}, ValidStrategyNames())
}

func TestSystem_PerfectModulesAlwaysSucceed(t *testing.T) {
	// GIVEN a fault probability of zero
	sys, err := NewSystem([]float64{0.95, 0.9, 0.85}, 0, Majority{}, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	st := trace.NewSimulationTrace(trace.TraceLevelTrials)

	// WHEN run for several trials
	require.NoError(t, sys.Run(words(t, "10110011")[0], 10, st))

	// THEN every vote is correct and every module gains reliability up to 1
	summary := trace.Summarize(st)
	assert.Equal(t, 1.0, summary.SuccessRate)
	assert.Equal(t, 0, summary.MaxCorrupted)
	assert.Equal(t, []float64{1, 1, 0.95}, roundAll(sys.Reliabilities))
	assert.Len(t, st.Modules, 30)
}

func TestSystem_FullyFaultyModulesLoseReliability(t *testing.T) {
	// GIVEN modules that always randomize their bits
	sys, err := NewSystem([]float64{0, 0, 0.02}, 1, Majority{}, rand.New(rand.NewSource(2)))
	require.NoError(t, err)
	st := trace.NewSimulationTrace(trace.TraceLevelNone)

	require.NoError(t, sys.Run(words(t, "1011001110001111")[0], 5, st))

	// THEN reliabilities never drop below zero
	for _, r := range sys.Reliabilities {
		assert.GreaterOrEqual(t, r, 0.0)
		assert.LessOrEqual(t, r, 0.02)
	}
	assert.Equal(t, 5, trace.Summarize(st).TotalTrials)
}

func TestSystem_RedundancyBeatsSingleModule(t *testing.T) {
	input := words(t, "1011001110001111")[0]
	run := func(reliabilities []float64) float64 {
		sys, err := NewSystem(reliabilities, 0.3, Majority{}, rand.New(rand.NewSource(3)))
		require.NoError(t, err)
		st := trace.NewSimulationTrace(trace.TraceLevelNone)
		require.NoError(t, sys.Run(input, 100, st))
		return trace.Summarize(st).SuccessRate
	}
	assert.Greater(t, run([]float64{0.8, 0.8, 0.8}), run([]float64{0.8}))
}

func TestSystem_SameSeedSameOutcome(t *testing.T) {
	input := words(t, "10110011")[0]
	run := func() []float64 {
		sys, _ := NewSystem([]float64{0.95, 0.9, 0.85}, 0.5, Weighted{}, rand.New(rand.NewSource(4)))
		require.NoError(t, sys.Run(input, 20, trace.NewSimulationTrace(trace.TraceLevelNone)))
		return sys.Reliabilities
	}
	assert.Equal(t, run(), run())
}

func TestNewSystem_Validation(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	_, err := NewSystem(nil, 0.1, Majority{}, rng)
	assert.Error(t, err)
	_, err = NewSystem([]float64{1.2}, 0.1, Majority{}, rng)
	assert.Error(t, err)
	_, err = NewSystem([]float64{0.9}, -0.1, Majority{}, rng)
	assert.Error(t, err)

	sys, err := NewSystem([]float64{0.9}, 0.1, Majority{}, rng)
	require.NoError(t, err)
	assert.Error(t, sys.Run(sim.Word{}, 1, trace.NewSimulationTrace(trace.TraceLevelNone)))
	assert.Error(t, sys.Run(words(t, "1")[0], 0, trace.NewSimulationTrace(trace.TraceLevelNone)))
}

func roundAll(v []float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(int(x*100+0.5)) / 100
	}
	return out
}
