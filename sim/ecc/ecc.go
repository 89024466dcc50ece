// Package ecc implements error-correcting codes over bit words and a
// trial loop that pushes encoded words through a burst-error channel.
package ecc

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/ftasim/ftasim/sim"
	"github.com/ftasim/ftasim/sim/fault"
	"github.com/ftasim/ftasim/sim/trace"
)

// ErrUncorrectable is returned when a decoder detects more errors than it
// can correct.
var ErrUncorrectable = errors.New("uncorrectable error")

// Codec encodes data words into codewords and corrects channel errors.
type Codec interface {
	Name() string
	Encode(data sim.Word) (sim.Word, error)
	Decode(received sim.Word) (sim.Word, error)
}

// Codec names accepted by New.
const (
	NameHamming       = "hamming"
	NameReedSolomon   = "reed-solomon"
	NameConvolutional = "convolutional"
)

// Options carries codec-specific parameters. Zero values select defaults.
type Options struct {
	DataShards   int  // reed-solomon, default 4
	ParityShards int  // reed-solomon, default 2
	DisableSIMD  bool // reed-solomon, force the pure Go encoder
}

// validCodecs maps accepted codec names.
var validCodecs = map[string]bool{
	NameHamming:       true,
	NameReedSolomon:   true,
	NameConvolutional: true,
}

// ValidCodecNames returns the accepted codec names, sorted.
func ValidCodecNames() []string {
	names := make([]string, 0, len(validCodecs))
	for n := range validCodecs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// New creates a codec by name.
func New(name string, opts Options) (Codec, error) {
	switch name {
	case NameHamming:
		return Hamming{}, nil
	case NameReedSolomon:
		data, parity := opts.DataShards, opts.ParityShards
		if data == 0 {
			data = 4
		}
		if parity == 0 {
			parity = 2
		}
		return NewReedSolomon(data, parity, opts.DisableSIMD)
	case NameConvolutional:
		return Convolutional{}, nil
	}
	return nil, fmt.Errorf("unknown codec %q; valid codecs: %v", name, ValidCodecNames())
}

// Channel describes the burst-error channel used by Simulate.
type Channel struct {
	ErrorProbability float64 // chance a trial suffers a burst
	BurstLength      int     // bits flipped per burst
}

// Simulate runs trials of encode, channel, decode on input and records each
// into st. A trial succeeds when the decoder returns input exactly.
func Simulate(codec Codec, input sim.Word, ch Channel, trials int, rng *rand.Rand, st *trace.SimulationTrace) error {
	if trials <= 0 {
		return fmt.Errorf("trials must be positive, got %d", trials)
	}
	encoded, err := codec.Encode(input)
	if err != nil {
		return fmt.Errorf("%s: encode: %w", codec.Name(), err)
	}
	logrus.Debugf("ecc: %s encodes %d bits into %d", codec.Name(), len(input), len(encoded))

	for i := 1; i <= trials; i++ {
		received := encoded.Clone()
		if rng.Float64() < ch.ErrorProbability {
			received, _ = fault.FlipBurst(rng, encoded, ch.BurstLength)
		}
		rec := trace.TrialRecord{
			Trial:       i,
			Input:       input.String(),
			Transmitted: encoded.String(),
			Received:    received.String(),
			Corrupted:   received.Distance(encoded),
		}
		decoded, err := codec.Decode(received)
		if err != nil {
			rec.Reason = err.Error()
		} else {
			rec.Output = decoded.String()
			rec.Success = decoded.Equal(input)
		}
		st.RecordTrial(rec)
	}
	return nil
}
