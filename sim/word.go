package sim

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidWord is returned when a bit string is empty or contains
// characters other than '0' and '1'.
var ErrInvalidWord = errors.New("invalid binary word")

// Word is a bit vector. Every element is 0 or 1.
type Word []uint8

// ParseWord converts a string such as "1011" into a Word.
func ParseWord(s string) (Word, error) {
	if s == "" {
		return nil, fmt.Errorf("%w: empty input", ErrInvalidWord)
	}
	w := make(Word, len(s))
	for i, c := range s {
		switch c {
		case '0':
			w[i] = 0
		case '1':
			w[i] = 1
		default:
			return nil, fmt.Errorf("%w: unexpected %q at position %d", ErrInvalidWord, c, i)
		}
	}
	return w, nil
}

// String renders the word as a string of '0' and '1'.
func (w Word) String() string {
	var b strings.Builder
	b.Grow(len(w))
	for _, bit := range w {
		if bit != 0 {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

// Clone returns a copy that does not share storage with w.
func (w Word) Clone() Word {
	if w == nil {
		return nil
	}
	out := make(Word, len(w))
	copy(out, w)
	return out
}

// Equal reports whether both words have the same length and bits.
func (w Word) Equal(o Word) bool {
	if len(w) != len(o) {
		return false
	}
	for i := range w {
		if w[i] != o[i] {
			return false
		}
	}
	return true
}

// Distance returns the Hamming distance between two words of equal length.
// Extra bits in the longer word count as differences.
func (w Word) Distance(o Word) int {
	n, m := len(w), len(o)
	if m < n {
		n, m = m, n
	}
	d := m - n
	for i := 0; i < n; i++ {
		if w[i] != o[i] {
			d++
		}
	}
	return d
}

// Ones returns the number of set bits.
func (w Word) Ones() int {
	n := 0
	for _, bit := range w {
		if bit != 0 {
			n++
		}
	}
	return n
}
