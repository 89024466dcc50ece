package ecc

import (
	"fmt"

	"github.com/ftasim/ftasim/sim"
)

// Hamming is the single-error-correcting Hamming code. Parity bits sit at
// the power-of-two positions (1-indexed) of the codeword and data bits fill
// the rest in order.
type Hamming struct{}

// Name implements Codec.
func (Hamming) Name() string { return NameHamming }

// parityBits returns the smallest r with 2^r >= m + r + 1.
func parityBits(m int) int {
	r := 0
	for 1<<r < m+r+1 {
		r++
	}
	return r
}

// Encode implements Codec.
func (Hamming) Encode(data sim.Word) (sim.Word, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("hamming: %w: empty data", sim.ErrInvalidWord)
	}
	n := len(data) + parityBits(len(data))
	code := make(sim.Word, n)
	j := 0
	for pos := 1; pos <= n; pos++ {
		if pos&(pos-1) != 0 {
			code[pos-1] = data[j]
			j++
		}
	}
	for p := 1; p <= n; p <<= 1 {
		var parity uint8
		for pos := 1; pos <= n; pos++ {
			if pos&p != 0 && pos != p {
				parity ^= code[pos-1]
			}
		}
		code[p-1] = parity
	}
	return code, nil
}

// Decode corrects at most one flipped bit. A syndrome pointing past the end
// of the codeword means at least two errors and yields ErrUncorrectable.
func (Hamming) Decode(received sim.Word) (sim.Word, error) {
	n := len(received)
	r := 0
	for 1<<r < n+1 {
		r++
	}
	m := n - r
	if m <= 0 || parityBits(m) != r {
		return nil, fmt.Errorf("hamming: %w: %d bits is not a codeword length", sim.ErrInvalidWord, n)
	}

	syndrome := 0
	for pos := 1; pos <= n; pos++ {
		if received[pos-1] != 0 {
			syndrome ^= pos
		}
	}
	code := received.Clone()
	if syndrome > n {
		return nil, fmt.Errorf("hamming: %w: syndrome %d outside %d-bit codeword", ErrUncorrectable, syndrome, n)
	}
	if syndrome != 0 {
		code[syndrome-1] ^= 1
	}

	data := make(sim.Word, 0, m)
	for pos := 1; pos <= n; pos++ {
		if pos&(pos-1) != 0 {
			data = append(data, code[pos-1])
		}
	}
	return data, nil
}
