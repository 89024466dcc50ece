package ecc

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/klauspost/cpuid/v2"
	"github.com/klauspost/reedsolomon"
	"github.com/sirupsen/logrus"

	"github.com/ftasim/ftasim/sim"
)

// headerBytes prefixes the payload with the data length in bits so Decode
// can strip shard padding.
const headerBytes = 2

// ReedSolomon is a systematic Reed-Solomon code over GF(2^8) shards. The
// data word is packed into bytes, split into DataShards shards and extended
// with ParityShards parity shards; the codeword is every shard's bits in
// order.
type ReedSolomon struct {
	DataShards   int
	ParityShards int
	SIMD         []string // instruction sets the encoder was allowed to use

	enc reedsolomon.Encoder
}

// simdFeatures are the instruction sets reedsolomon can accelerate with,
// each gated on the CPU features it needs.
var simdFeatures = []struct {
	name     string
	features []cpuid.FeatureID
	option   func(bool) reedsolomon.Option
}{
	{"gfni", []cpuid.FeatureID{cpuid.GFNI, cpuid.AVX512F, cpuid.AVX512BW}, reedsolomon.WithGFNI},
	{"avx512", []cpuid.FeatureID{cpuid.AVX512F, cpuid.AVX512BW, cpuid.AVX512VL}, reedsolomon.WithAVX512},
	{"avx2", []cpuid.FeatureID{cpuid.AVX2}, reedsolomon.WithAVX2},
	{"ssse3", []cpuid.FeatureID{cpuid.SSSE3}, reedsolomon.WithSSSE3},
}

// simdOptions enables every instruction set supports reports and disables
// the rest. disable turns all of them off, leaving the pure Go encoder.
func simdOptions(supports func(...cpuid.FeatureID) bool, disable bool) ([]reedsolomon.Option, []string) {
	opts := make([]reedsolomon.Option, 0, len(simdFeatures))
	var enabled []string
	for _, f := range simdFeatures {
		on := !disable && supports(f.features...)
		opts = append(opts, f.option(on))
		if on {
			enabled = append(enabled, f.name)
		}
	}
	return opts, enabled
}

// NewReedSolomon creates a codec with the given shard counts, using the
// SIMD instruction sets this CPU supports unless disableSIMD is set.
func NewReedSolomon(dataShards, parityShards int, disableSIMD bool) (*ReedSolomon, error) {
	if dataShards <= 0 || parityShards <= 0 {
		return nil, fmt.Errorf("reed-solomon: shard counts must be positive, got %d+%d", dataShards, parityShards)
	}
	opts, simd := simdOptions(cpuid.CPU.Supports, disableSIMD)
	enc, err := reedsolomon.New(dataShards, parityShards, opts...)
	if err != nil {
		return nil, fmt.Errorf("reed-solomon: %w", err)
	}
	logrus.Debugf("reed-solomon: %d+%d shards on %s, simd %v", dataShards, parityShards, cpuid.CPU.BrandName, simd)
	return &ReedSolomon{DataShards: dataShards, ParityShards: parityShards, SIMD: simd, enc: enc}, nil
}

// Name implements Codec.
func (rs *ReedSolomon) Name() string { return NameReedSolomon }

// CorrectableShards is the number of corrupt shards Decode can repair when
// their positions are unknown.
func (rs *ReedSolomon) CorrectableShards() int { return rs.ParityShards / 2 }

// Encode implements Codec.
func (rs *ReedSolomon) Encode(data sim.Word) (sim.Word, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("reed-solomon: %w: empty data", sim.ErrInvalidWord)
	}
	if len(data) > 0xFFFF {
		return nil, fmt.Errorf("reed-solomon: %d bits exceeds the %d-bit limit", len(data), 0xFFFF)
	}
	payload := make([]byte, headerBytes, headerBytes+(len(data)+7)/8)
	binary.BigEndian.PutUint16(payload, uint16(len(data)))
	payload = append(payload, packBits(data)...)

	shards, err := rs.enc.Split(payload)
	if err != nil {
		return nil, fmt.Errorf("reed-solomon: split: %w", err)
	}
	if err := rs.enc.Encode(shards); err != nil {
		return nil, fmt.Errorf("reed-solomon: encode: %w", err)
	}
	code := make(sim.Word, 0, len(shards)*len(shards[0])*8)
	for _, shard := range shards {
		code = append(code, unpackBits(shard, len(shard)*8)...)
	}
	return code, nil
}

// Decode implements Codec. When the received shards are inconsistent it
// tries erasing every set of up to CorrectableShards shards, smallest sets
// first, and accepts the first reconstruction that verifies. That is the
// transmitted codeword only while at most CorrectableShards shards are
// corrupt; beyond that a verifying reconstruction may be a different
// codeword, so more damage can decode to wrong data instead of an error.
func (rs *ReedSolomon) Decode(received sim.Word) (sim.Word, error) {
	total := rs.DataShards + rs.ParityShards
	if len(received) == 0 || len(received)%(8*total) != 0 {
		return nil, fmt.Errorf("reed-solomon: %w: %d bits is not a multiple of %d shards of bytes", sim.ErrInvalidWord, len(received), total)
	}
	shardSize := len(received) / 8 / total
	shards := make([][]byte, total)
	for i := range shards {
		shards[i] = packBits(received[i*shardSize*8 : (i+1)*shardSize*8])
	}

	ok, err := rs.enc.Verify(shards)
	if err != nil {
		return nil, fmt.Errorf("reed-solomon: verify: %w", err)
	}
	if !ok {
		fixed, erased := rs.correct(shards)
		if fixed == nil {
			return nil, fmt.Errorf("reed-solomon: %w: more than %d corrupt shards", ErrUncorrectable, rs.CorrectableShards())
		}
		logrus.Debugf("reed-solomon: repaired shards %v", erased)
		shards = fixed
	}

	var buf bytes.Buffer
	if err := rs.enc.Join(&buf, shards, rs.DataShards*shardSize); err != nil {
		return nil, fmt.Errorf("reed-solomon: join: %w", err)
	}
	payload := buf.Bytes()
	bits := int(binary.BigEndian.Uint16(payload))
	if bits == 0 || headerBytes+(bits+7)/8 > len(payload) {
		return nil, fmt.Errorf("reed-solomon: %w: header claims %d bits", ErrUncorrectable, bits)
	}
	return unpackBits(payload[headerBytes:], bits), nil
}

// correct returns repaired shards and the erased indices, or nil when no
// erasure set of allowed size yields a valid codeword.
func (rs *ReedSolomon) correct(shards [][]byte) ([][]byte, []int) {
	total := len(shards)
	for k := 1; k <= rs.CorrectableShards(); k++ {
		var found [][]byte
		var erased []int
		combinations(total, k, func(set []int) bool {
			trial := make([][]byte, total)
			for i, s := range shards {
				trial[i] = append([]byte(nil), s...)
			}
			for _, i := range set {
				trial[i] = nil
			}
			if err := rs.enc.Reconstruct(trial); err != nil {
				return true
			}
			if ok, err := rs.enc.Verify(trial); err != nil || !ok {
				return true
			}
			found, erased = trial, append([]int(nil), set...)
			return false
		})
		if found != nil {
			return found, erased
		}
	}
	return nil, nil
}

// combinations calls fn with every k-subset of [0, n) in lexicographic
// order until fn returns false.
func combinations(n, k int, fn func([]int) bool) {
	set := make([]int, k)
	for i := range set {
		set[i] = i
	}
	for {
		if !fn(set) {
			return
		}
		i := k - 1
		for i >= 0 && set[i] == n-k+i {
			i--
		}
		if i < 0 {
			return
		}
		set[i]++
		for j := i + 1; j < k; j++ {
			set[j] = set[j-1] + 1
		}
	}
}

// packBits packs bits MSB first; a trailing partial byte is zero padded.
func packBits(w sim.Word) []byte {
	out := make([]byte, (len(w)+7)/8)
	for i, bit := range w {
		if bit != 0 {
			out[i/8] |= 0x80 >> (i % 8)
		}
	}
	return out
}

func unpackBits(b []byte, n int) sim.Word {
	out := make(sim.Word, n)
	for i := range out {
		out[i] = (b[i/8] >> (7 - i%8)) & 1
	}
	return out
}
