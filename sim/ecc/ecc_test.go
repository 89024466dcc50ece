package ecc

import (
	"math/rand"
	"os"
	"testing"

	"github.com/klauspost/cpuid/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ftasim/ftasim/sim"
	"github.com/ftasim/ftasim/sim/trace"
)

func TestMain(m *testing.M) {
	if os.Getenv("DEBUG_TESTS") == "" {
		logrus.SetLevel(logrus.ErrorLevel)
	}
	os.Exit(m.Run())
}

func mustWord(t *testing.T, s string) sim.Word {
	t.Helper()
	w, err := sim.ParseWord(s)
	require.NoError(t, err)
	return w
}

func allCodecs(t *testing.T) []Codec {
	t.Helper()
	var out []Codec
	for _, name := range ValidCodecNames() {
		c, err := New(name, Options{})
		require.NoError(t, err)
		out = append(out, c)
	}
	return out
}

func TestCodecs_RoundTripWithoutErrors(t *testing.T) {
	inputs := []string{"1", "10110011", "1011001110001111", "0000000", "111111111111111111111"}
	for _, c := range allCodecs(t) {
		for _, in := range inputs {
			t.Run(c.Name()+"/"+in, func(t *testing.T) {
				w := mustWord(t, in)
				code, err := c.Encode(w)
				require.NoError(t, err)
				got, err := c.Decode(code)
				require.NoError(t, err)
				assert.Equal(t, in, got.String())
			})
		}
	}
}

func TestCodecs_RejectEmptyInput(t *testing.T) {
	for _, c := range allCodecs(t) {
		_, err := c.Encode(sim.Word{})
		assert.ErrorIs(t, err, sim.ErrInvalidWord, c.Name())
	}
}

func TestNew_UnknownCodec(t *testing.T) {
	_, err := New("turbo", Options{})
	assert.Error(t, err)
	assert.Equal(t, []string{"convolutional", "hamming", "reed-solomon"}, ValidCodecNames())
}

func TestHamming_Layout(t *testing.T) {
	// GIVEN 4 data bits, which need 3 parity bits
	code, err := Hamming{}.Encode(mustWord(t, "1011"))
	require.NoError(t, err)

	// THEN the classic (7,4) codeword is produced: p1 p2 d1 p4 d2 d3 d4
	assert.Equal(t, "0110011", code.String())
	assert.Equal(t, 4, parityBits(8))
	assert.Equal(t, 5, parityBits(16))
	assert.Equal(t, 2, parityBits(1))
}

func TestHamming_CorrectsEverySingleBitError(t *testing.T) {
	w := mustWord(t, "10110011")
	code, err := Hamming{}.Encode(w)
	require.NoError(t, err)
	for i := range code {
		corrupted := code.Clone()
		corrupted[i] ^= 1
		got, err := Hamming{}.Decode(corrupted)
		require.NoError(t, err, "flip at %d", i)
		assert.True(t, got.Equal(w), "flip at %d", i)
	}
}

func TestHamming_DoubleErrorIsNotSilentlyCorrect(t *testing.T) {
	w := mustWord(t, "10110011")
	code, _ := Hamming{}.Encode(w)
	for i := 0; i < len(code); i++ {
		for j := i + 1; j < len(code); j++ {
			corrupted := code.Clone()
			corrupted[i] ^= 1
			corrupted[j] ^= 1
			got, err := Hamming{}.Decode(corrupted)
			if err == nil {
				assert.False(t, got.Equal(w), "flips at %d,%d decoded to the original", i, j)
			} else {
				assert.ErrorIs(t, err, ErrUncorrectable)
			}
		}
	}
}

func TestHamming_RejectsInvalidLength(t *testing.T) {
	_, err := Hamming{}.Decode(mustWord(t, "1010"))
	assert.ErrorIs(t, err, sim.ErrInvalidWord)
}

func TestReedSolomon_CorrectsOneCorruptShard(t *testing.T) {
	// GIVEN 4 data and 2 parity shards
	rs, err := NewReedSolomon(4, 2, false)
	require.NoError(t, err)
	w := mustWord(t, "1011001110001111")
	code, err := rs.Encode(w)
	require.NoError(t, err)
	shardBits := len(code) / 6

	for shard := 0; shard < 6; shard++ {
		// WHEN every bit of one shard is flipped
		corrupted := code.Clone()
		for i := shard * shardBits; i < (shard+1)*shardBits; i++ {
			corrupted[i] ^= 1
		}

		// THEN the data is recovered
		got, err := rs.Decode(corrupted)
		require.NoError(t, err, "shard %d", shard)
		assert.True(t, got.Equal(w), "shard %d", shard)
	}
}

func TestReedSolomon_TwoCorruptShardsExceedCapacity(t *testing.T) {
	rs, err := NewReedSolomon(4, 2, false)
	require.NoError(t, err)
	code, err := rs.Encode(mustWord(t, "1011001110001111"))
	require.NoError(t, err)
	shardBits := len(code) / 6

	w := mustWord(t, "1011001110001111")
	corrupted := code.Clone()
	corrupted[0] ^= 1
	corrupted[shardBits] ^= 1
	got, err := rs.Decode(corrupted)
	if err != nil {
		assert.ErrorIs(t, err, ErrUncorrectable)
	} else {
		assert.False(t, got.Equal(w), "two corrupt shards cannot decode to the original")
	}
}

func TestReedSolomon_MoreParityCorrectsMoreShards(t *testing.T) {
	rs, err := NewReedSolomon(3, 4, false)
	require.NoError(t, err)
	assert.Equal(t, 2, rs.CorrectableShards())
	w := mustWord(t, "110010101111000011")
	code, err := rs.Encode(w)
	require.NoError(t, err)
	shardBits := len(code) / 7

	corrupted := code.Clone()
	corrupted[1] ^= 1
	corrupted[5*shardBits+3] ^= 1
	got, err := rs.Decode(corrupted)
	require.NoError(t, err)
	assert.True(t, got.Equal(w))
}

func TestSIMDOptions_FollowCPUFeatures(t *testing.T) {
	// GIVEN a CPU that reports only AVX2 and SSSE3
	supports := func(ids ...cpuid.FeatureID) bool {
		for _, id := range ids {
			if id != cpuid.AVX2 && id != cpuid.SSSE3 {
				return false
			}
		}
		return true
	}

	// WHEN options are chosen with and without the pure Go override
	opts, enabled := simdOptions(supports, false)
	disabledOpts, disabled := simdOptions(supports, true)

	// THEN only the supported sets are enabled, and none when disabled
	assert.Equal(t, []string{"avx2", "ssse3"}, enabled)
	assert.Empty(t, disabled)
	assert.Len(t, opts, len(simdFeatures))
	assert.Len(t, disabledOpts, len(simdFeatures))
}

func TestReedSolomon_PureGoMatchesSIMD(t *testing.T) {
	// GIVEN one codec on the CPU's SIMD paths and one forced to pure Go
	fast, err := New(NameReedSolomon, Options{})
	require.NoError(t, err)
	slow, err := New(NameReedSolomon, Options{DisableSIMD: true})
	require.NoError(t, err)
	assert.Empty(t, slow.(*ReedSolomon).SIMD)

	// WHEN both encode the same word
	w := mustWord(t, "1011001110001111010")
	a, err := fast.Encode(w)
	require.NoError(t, err)
	b, err := slow.Encode(w)
	require.NoError(t, err)

	// THEN the codewords are identical and each decodes the other's output
	assert.Equal(t, a, b)
	got, err := slow.Decode(a)
	require.NoError(t, err)
	assert.True(t, got.Equal(w))
}

func TestReedSolomon_Validation(t *testing.T) {
	_, err := NewReedSolomon(0, 2, false)
	assert.Error(t, err)
	rs, err := NewReedSolomon(4, 2, false)
	require.NoError(t, err)
	_, err = rs.Decode(mustWord(t, "101"))
	assert.ErrorIs(t, err, sim.ErrInvalidWord)
}

func TestCombinations_EnumeratesLexicographically(t *testing.T) {
	var got [][]int
	combinations(4, 2, func(set []int) bool {
		got = append(got, append([]int(nil), set...))
		return true
	})
	assert.Equal(t, [][]int{{0, 1}, {0, 2}, {0, 3}, {1, 2}, {1, 3}, {2, 3}}, got)
}

func TestConvolutional_KnownCodeword(t *testing.T) {
	// 1011 plus two tail zeros through generators 111 and 101
	code, err := Convolutional{}.Encode(mustWord(t, "1011"))
	require.NoError(t, err)
	assert.Equal(t, "111000010111", code.String())
}

func TestConvolutional_CorrectsAnyTwoBitErrors(t *testing.T) {
	w := mustWord(t, "10110011")
	code, err := Convolutional{}.Encode(w)
	require.NoError(t, err)
	for i := 0; i < len(code); i++ {
		for j := i + 1; j < len(code); j++ {
			corrupted := code.Clone()
			corrupted[i] ^= 1
			corrupted[j] ^= 1
			got, err := Convolutional{}.Decode(corrupted)
			require.NoError(t, err)
			assert.True(t, got.Equal(w), "flips at %d,%d", i, j)
		}
	}
}

func TestConvolutional_RejectsInvalidLength(t *testing.T) {
	_, err := Convolutional{}.Decode(mustWord(t, "10101"))
	assert.ErrorIs(t, err, sim.ErrInvalidWord)
	_, err = Convolutional{}.Decode(mustWord(t, "1010"))
	assert.ErrorIs(t, err, sim.ErrInvalidWord)
}

func TestSimulate_CleanChannelAlwaysSucceeds(t *testing.T) {
	for _, c := range allCodecs(t) {
		st := trace.NewSimulationTrace(trace.TraceLevelTrials)
		err := Simulate(c, mustWord(t, "10110011"), Channel{ErrorProbability: 0, BurstLength: 2}, 5, rand.New(rand.NewSource(1)), st)
		require.NoError(t, err)
		summary := trace.Summarize(st)
		assert.Equal(t, 5, summary.TotalTrials, c.Name())
		assert.Equal(t, 1.0, summary.SuccessRate, c.Name())
		assert.Equal(t, 0, summary.MaxCorrupted, c.Name())
	}
}

func TestSimulate_BurstChannelRecordsCorruption(t *testing.T) {
	// GIVEN a channel that always bursts two bits
	c, err := New(NameConvolutional, Options{})
	require.NoError(t, err)
	st := trace.NewSimulationTrace(trace.TraceLevelTrials)

	// WHEN simulated
	err = Simulate(c, mustWord(t, "10110011"), Channel{ErrorProbability: 1, BurstLength: 2}, 20, rand.New(rand.NewSource(2)), st)
	require.NoError(t, err)

	// THEN every trial saw two flipped bits and the decoder recovered them
	for _, r := range st.Trials {
		assert.Equal(t, 2, r.Corrupted)
		assert.True(t, r.Success)
	}
	assert.Equal(t, 1.0, trace.Summarize(st).SuccessRate)
}

func TestSimulate_HammingBurstFailuresAreRecorded(t *testing.T) {
	st := trace.NewSimulationTrace(trace.TraceLevelTrials)
	err := Simulate(Hamming{}, mustWord(t, "10110011"), Channel{ErrorProbability: 1, BurstLength: 2}, 10, rand.New(rand.NewSource(3)), st)
	require.NoError(t, err)
	for _, r := range st.Trials {
		assert.False(t, r.Success, "a two-bit burst defeats single-error correction")
	}
	assert.Error(t, Simulate(Hamming{}, mustWord(t, "1"), Channel{}, 0, rand.New(rand.NewSource(1)), st))
}
