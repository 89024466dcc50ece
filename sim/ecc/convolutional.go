package ecc

import (
	"fmt"
	"math"

	"github.com/ftasim/ftasim/sim"
)

// constraintLength of the convolutional encoder; the encoder keeps
// constraintLength-1 bits of state.
const constraintLength = 3

// Convolutional is the rate 1/2, constraint length 3 code with generator
// polynomials 111 and 101. Encode appends two zero tail bits so the trellis
// ends in state 0, and Decode runs a hard-decision Viterbi search.
type Convolutional struct{}

// Name implements Codec.
func (Convolutional) Name() string { return NameConvolutional }

// convOutput returns the two code bits for input b from state s, where bit 1
// of s is the previous input and bit 0 the one before it.
func convOutput(b uint8, s int) (uint8, uint8) {
	s1, s2 := uint8(s>>1)&1, uint8(s)&1
	return b ^ s1 ^ s2, b ^ s2
}

func convNext(b uint8, s int) int {
	return int(b)<<1 | s>>1
}

// Encode implements Codec.
func (Convolutional) Encode(data sim.Word) (sim.Word, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("convolutional: %w: empty data", sim.ErrInvalidWord)
	}
	code := make(sim.Word, 0, 2*(len(data)+constraintLength-1))
	state := 0
	emit := func(b uint8) {
		o1, o2 := convOutput(b, state)
		code = append(code, o1, o2)
		state = convNext(b, state)
	}
	for _, b := range data {
		emit(b)
	}
	for i := 0; i < constraintLength-1; i++ {
		emit(0)
	}
	return code, nil
}

// Decode implements Codec. It returns the data word whose codeword is
// nearest in Hamming distance to received.
func (Convolutional) Decode(received sim.Word) (sim.Word, error) {
	tail := constraintLength - 1
	if len(received)%2 != 0 || len(received)/2 <= tail {
		return nil, fmt.Errorf("convolutional: %w: %d bits is not a codeword length", sim.ErrInvalidWord, len(received))
	}
	steps := len(received) / 2
	const states = 1 << (constraintLength - 1)

	metric := [states]int{}
	for s := 1; s < states; s++ {
		metric[s] = math.MaxInt32
	}
	prev := make([][states]int, steps)
	input := make([][states]uint8, steps)

	for t := 0; t < steps; t++ {
		r1, r2 := received[2*t], received[2*t+1]
		next := [states]int{}
		for s := range next {
			next[s] = math.MaxInt32
		}
		for s := 0; s < states; s++ {
			if metric[s] == math.MaxInt32 {
				continue
			}
			for b := uint8(0); b <= 1; b++ {
				if t >= steps-tail && b == 1 {
					continue
				}
				o1, o2 := convOutput(b, s)
				m := metric[s]
				if o1 != r1 {
					m++
				}
				if o2 != r2 {
					m++
				}
				ns := convNext(b, s)
				if m < next[ns] {
					next[ns] = m
					prev[t][ns] = s
					input[t][ns] = b
				}
			}
		}
		metric = next
	}

	data := make(sim.Word, steps)
	s := 0
	for t := steps - 1; t >= 0; t-- {
		data[t] = input[t][s]
		s = prev[t][s]
	}
	return data[:steps-tail], nil
}
