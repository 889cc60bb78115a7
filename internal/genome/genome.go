// Package genome holds the reference sequence representation: nucleotide
// alleles as small integer indices, codon arithmetic over them, and the
// coding-frame validation required before a codon-model run may start.
package genome

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/exp/rand"
)

// Alphabet lists the nucleotide alleles in index order.
const Alphabet = "ACGT"

// NumAlleles is the nucleotide alphabet size.
const NumAlleles = 4

var (
	ErrEmptySequence = errors.New("reference sequence is empty")
	ErrBadAllele     = errors.New("disallowed allele in reference sequence")
	ErrBadFrequency  = errors.New("nucleotide frequencies must be non-negative and sum to a positive value")
)

// Sequence is a genome as allele indices, one entry per nucleotide position.
type Sequence []byte

// AlleleIndex maps a nucleotide character (upper or lower case) to its index.
func AlleleIndex(c byte) (byte, error) {
	switch c {
	case 'A', 'a':
		return 0, nil
	case 'C', 'c':
		return 1, nil
	case 'G', 'g':
		return 2, nil
	case 'T', 't':
		return 3, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrBadAllele, string(c))
	}
}

// AlleleChar is the inverse of AlleleIndex.
func AlleleChar(a byte) byte {
	return Alphabet[a]
}

// FromString parses a nucleotide string into a Sequence.
func FromString(s string) (Sequence, error) {
	if len(s) == 0 {
		return nil, ErrEmptySequence
	}
	seq := make(Sequence, len(s))
	for i := 0; i < len(s); i++ {
		a, err := AlleleIndex(s[i])
		if err != nil {
			return nil, fmt.Errorf("position %d: %w", i, err)
		}
		seq[i] = a
	}
	return seq, nil
}

// Random draws a genome of the given length with independent sites
// distributed according to freqs. Frequencies are normalized internally.
func Random(rng *rand.Rand, length int, freqs []float64) (Sequence, error) {
	if length <= 0 {
		return nil, ErrEmptySequence
	}
	if freqs == nil {
		freqs = []float64{0.25, 0.25, 0.25, 0.25}
	}
	if len(freqs) != NumAlleles {
		return nil, fmt.Errorf("%w: got %d values", ErrBadFrequency, len(freqs))
	}
	sum := 0.0
	for _, f := range freqs {
		if f < 0 {
			return nil, ErrBadFrequency
		}
		sum += f
	}
	if sum <= 0 {
		return nil, ErrBadFrequency
	}
	seq := make(Sequence, length)
	for i := range seq {
		u := rng.Float64() * sum
		acc := 0.0
		a := byte(NumAlleles - 1)
		for j, f := range freqs {
			acc += f
			if u < acc {
				a = byte(j)
				break
			}
		}
		seq[i] = a
	}
	return seq, nil
}

// String renders the sequence as nucleotide characters.
func (s Sequence) String() string {
	var b strings.Builder
	b.Grow(len(s))
	for _, a := range s {
		b.WriteByte(AlleleChar(a))
	}
	return b.String()
}

// Clone returns an independent copy.
func (s Sequence) Clone() Sequence {
	c := make(Sequence, len(s))
	copy(c, s)
	return c
}
