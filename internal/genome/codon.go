package genome

import (
	"errors"
	"fmt"
)

// Codon indices pack three nucleotide indices as 16*n1 + 4*n2 + n3, so the
// 64 codons enumerate in AAA..TTT order over the ACGT alphabet.

// NumCodons is the codon alphabet size, stop codons included.
const NumCodons = 64

// StartCodon is ATG.
const StartCodon = 14

// geneticCode maps codon index to amino acid, '*' for stops (standard code).
const geneticCode = "KNKN" + "TTTT" + "RSRS" + "IIMI" +
	"QHQH" + "PPPP" + "RRRR" + "LLLL" +
	"EDED" + "AAAA" + "GGGG" + "VVVV" +
	"*Y*Y" + "SSSS" + "*CWC" + "LFLF"

var (
	ErrFrameLength  = errors.New("codon mode requires a genome length divisible by 3")
	ErrNoStartCodon = errors.New("reference genome does not begin with a start codon")
	ErrInternalStop = errors.New("reference genome contains an internal stop codon")
)

// CodonIndex packs three nucleotide indices into a codon index.
func CodonIndex(n1, n2, n3 byte) int {
	return int(n1)<<4 | int(n2)<<2 | int(n3)
}

// CodonNucs unpacks a codon index into its three nucleotide indices.
func CodonNucs(codon int) [3]byte {
	return [3]byte{byte(codon >> 4 & 3), byte(codon >> 2 & 3), byte(codon & 3)}
}

// CodonString renders a codon index as three nucleotide characters.
func CodonString(codon int) string {
	n := CodonNucs(codon)
	return string([]byte{AlleleChar(n[0]), AlleleChar(n[1]), AlleleChar(n[2])})
}

// AminoAcid returns the translated amino acid, '*' for a stop codon.
func AminoAcid(codon int) byte {
	return geneticCode[codon]
}

// IsStop reports whether the codon is a stop codon.
func IsStop(codon int) bool {
	return geneticCode[codon] == '*'
}

// Synonymous reports whether two codons translate to the same amino acid.
func Synonymous(a, b int) bool {
	return geneticCode[a] == geneticCode[b]
}

// Codons splits a frame-aligned sequence into codon indices.
func (s Sequence) Codons() ([]int, error) {
	if len(s)%3 != 0 {
		return nil, fmt.Errorf("%w: length %d", ErrFrameLength, len(s))
	}
	codons := make([]int, len(s)/3)
	for i := range codons {
		codons[i] = CodonIndex(s[3*i], s[3*i+1], s[3*i+2])
	}
	return codons, nil
}

// CheckCodingFrame validates the reference frame for a codon-model run: the
// length must be a multiple of 3, the first codon must be ATG, and no codon
// before the final one may be a stop. The final codon may or may not be a
// stop; either way it is frozen by the rate setup, not rejected here.
func (s Sequence) CheckCodingFrame() error {
	codons, err := s.Codons()
	if err != nil {
		return err
	}
	if len(codons) == 0 {
		return ErrEmptySequence
	}
	if codons[0] != StartCodon {
		return fmt.Errorf("%w: found %s", ErrNoStartCodon, CodonString(codons[0]))
	}
	for i := 1; i < len(codons)-1; i++ {
		if IsStop(codons[i]) {
			return fmt.Errorf("%w: %s at codon %d", ErrInternalStop, CodonString(codons[i]), i)
		}
	}
	return nil
}
