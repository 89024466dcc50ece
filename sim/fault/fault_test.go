package fault

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ftasim/ftasim/sim"
)

func mustWord(t *testing.T, s string) sim.Word {
	t.Helper()
	w, err := sim.ParseWord(s)
	require.NoError(t, err)
	return w
}

func TestInjector_CertainFaults(t *testing.T) {
	input := "1011001110001111"
	tests := []struct {
		name string
		typ  Type
		want string
	}{
		{"bit-flip inverts every bit", BitFlip, "0100110001110000"},
		{"stuck-at-0 clears every bit", StuckAt0, "0000000000000000"},
		{"stuck-at-1 sets every bit", StuckAt1, "1111111111111111"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// GIVEN probability 1
			in, err := NewInjector(tc.typ, 1, 0, 0, rand.New(rand.NewSource(1)))
			require.NoError(t, err)

			// WHEN injected
			got, positions := in.Inject(mustWord(t, input))

			// THEN every bit is struck
			assert.Equal(t, tc.want, got.String())
			assert.Len(t, positions, len(input))
		})
	}
}

func TestInjector_ZeroProbabilityLeavesWordIntact(t *testing.T) {
	w := mustWord(t, "10110011")
	for _, typ := range ValidTypeNames() {
		in, err := NewInjector(Type(typ), 0, 3, 2, rand.New(rand.NewSource(1)))
		require.NoError(t, err)
		got, positions := in.Inject(w)
		assert.True(t, got.Equal(w), typ)
		assert.Empty(t, positions, typ)
	}
}

func TestInjector_IntermittentOnlyStrikesPeriodMultiples(t *testing.T) {
	in, err := NewInjector(Intermittent, 1, 0, 5, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	w := mustWord(t, "0000000000000000")
	got, positions := in.Inject(w)
	assert.Equal(t, []int{0, 5, 10, 15}, positions)
	assert.Equal(t, "1000010000100001", got.String())
}

func TestInjector_BurstStaysInsideContiguousWindow(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	in, err := NewInjector(Burst, 1, 3, 0, rng)
	require.NoError(t, err)
	w := mustWord(t, "1011001110001111")
	for i := 0; i < 50; i++ {
		got, positions := in.Inject(w)
		require.Len(t, positions, 3)
		assert.Equal(t, positions[0]+1, positions[1])
		assert.Equal(t, positions[1]+1, positions[2])
		for j := range w {
			if j < positions[0] || j > positions[2] {
				assert.Equal(t, w[j], got[j])
			}
		}
	}
}

func TestInjector_BurstLongerThanWordIsClamped(t *testing.T) {
	in, err := NewInjector(Burst, 1, 10, 0, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	_, positions := in.Inject(mustWord(t, "101"))
	assert.Equal(t, []int{0, 1, 2}, positions)
}

func TestInjector_DoesNotMutateInput(t *testing.T) {
	w := mustWord(t, "1111")
	in, err := NewInjector(StuckAt0, 1, 0, 0, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	in.Inject(w)
	assert.Equal(t, "1111", w.String())
}

func TestInjector_SameSeedSameFaults(t *testing.T) {
	w := mustWord(t, "1011001110001111")
	a, _ := NewInjector(Random, 0.3, 0, 0, rand.New(rand.NewSource(9)))
	b, _ := NewInjector(Random, 0.3, 0, 0, rand.New(rand.NewSource(9)))
	ga, pa := a.Inject(w)
	gb, pb := b.Inject(w)
	assert.Equal(t, ga, gb)
	assert.Equal(t, pa, pb)
}

func TestNewInjector_Validation(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	_, err := NewInjector("cosmic-ray", 0.1, 0, 0, rng)
	assert.Error(t, err)
	_, err = NewInjector(BitFlip, 1.5, 0, 0, rng)
	assert.Error(t, err)
	_, err = NewInjector(Burst, 0.1, 0, 0, rng)
	assert.Error(t, err)
	_, err = NewInjector(Intermittent, 0.1, 0, 0, rng)
	assert.Error(t, err)
	assert.True(t, IsValidType("stuck-at-1"))
	assert.False(t, IsValidType("flip"))
}

func TestFlipBurst(t *testing.T) {
	w := mustWord(t, "00000000")
	got, start := FlipBurst(rand.New(rand.NewSource(3)), w, 3)
	assert.Equal(t, 3, got.Distance(w))
	for i := start; i < start+3; i++ {
		assert.Equal(t, uint8(1), got[i])
	}

	all, _ := FlipBurst(rand.New(rand.NewSource(3)), w, 20)
	assert.Equal(t, "11111111", all.String())
}
