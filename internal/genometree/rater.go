package genometree

import (
	"phylosim/internal/genome"
	"phylosim/internal/rates"
)

// Rater computes the outgoing rate vector of one genome position given its
// current state, and decodes a sampled transition choice into a concrete
// substitution. The tree and frames are agnostic to why a rate has the
// value it has; all category, selection, and hypermutation weighting lives
// here.
type Rater interface {
	// Choices is the rate-vector length: the number of candidate
	// transitions per position.
	Choices() int
	// Vector fills dst (length Choices) with the outgoing rates of the
	// position in the given state.
	Vector(pos, state int, dst []float64)
	// Transition resolves a choice index into the new state, the affected
	// nucleotide site, and the from/to allele characters.
	Transition(pos, state, choice int) (newState, site int, from, to byte)
	// Cacheable reports whether (pos, state) vectors are worth memoizing.
	Cacheable() bool
}

// NucRater scores single-nucleotide positions: base matrix row scaled by the
// site's rate multiplier, with an optional hypermutation boost on one
// (from, to) allele pair.
type NucRater struct {
	Matrix    *rates.Matrix
	SiteRates []float64 // per-site multiplier, one per position
	Hyper     []rates.HyperAssignment
	HyperMult []float64 // multiplier per hypermutation category, 1-based -1
}

func (r *NucRater) Choices() int {
	return genome.NumAlleles
}

func (r *NucRater) Vector(pos, state int, dst []float64) {
	from := byte(state)
	for to := byte(0); to < genome.NumAlleles; to++ {
		if to == from {
			dst[to] = 0
			continue
		}
		v := r.Matrix.Rate(from, to) * r.SiteRates[pos]
		if r.Hyper != nil {
			if h := r.Hyper[pos]; h.Category > 0 && h.From == from && h.To == to {
				v *= r.HyperMult[h.Category-1]
			}
		}
		dst[to] = v
	}
}

func (r *NucRater) Transition(pos, state, choice int) (newState, site int, from, to byte) {
	return choice, pos, genome.AlleleChar(byte(state)), genome.AlleleChar(byte(choice))
}

func (r *NucRater) Cacheable() bool {
	return false
}

// CodonRater scores codon positions. Each codon has nine candidate
// single-nucleotide changes; nonsynonymous ones carry the codon's omega
// weight, and per-nucleotide gamma and hypermutation multipliers fold in
// unchanged from the nucleotide model. Vectors are memoized per lineage
// because only a few of the 64 states are ever reached at most positions.
type CodonRater struct {
	Matrix    *rates.Matrix
	SiteRates []float64 // per-nucleotide multiplier, length 3 * #codons
	Omega     []float64 // selection weight per codon
	Hyper     []rates.HyperAssignment
	HyperMult []float64
}

// codonShift is the codon-index delta of changing one nucleotide step at
// each codon position.
var codonShift = [3]int{16, 4, 1}

func (r *CodonRater) Choices() int {
	return 9
}

func (r *CodonRater) Vector(pos, state int, dst []float64) {
	nucs := genome.CodonNucs(state)
	for cpos := 0; cpos < 3; cpos++ {
		from := nucs[cpos]
		site := 3*pos + cpos
		k := 0
		for to := byte(0); to < genome.NumAlleles; to++ {
			if to == from {
				continue
			}
			v := r.Matrix.Rate(from, to) * r.SiteRates[site]
			alt := state + (int(to)-int(from))*codonShift[cpos]
			if !genome.Synonymous(state, alt) {
				v *= r.Omega[pos]
			}
			if r.Hyper != nil {
				if h := r.Hyper[site]; h.Category > 0 && h.From == from && h.To == to {
					v *= r.HyperMult[h.Category-1]
				}
			}
			dst[3*cpos+k] = v
			k++
		}
	}
}

func (r *CodonRater) Transition(pos, state, choice int) (newState, site int, from, to byte) {
	cpos := choice / 3
	k := choice % 3
	fromNuc := genome.CodonNucs(state)[cpos]
	toNuc := byte(k)
	if toNuc >= fromNuc {
		toNuc++
	}
	newState = state + (int(toNuc)-int(fromNuc))*codonShift[cpos]
	return newState, 3*pos + cpos, genome.AlleleChar(fromNuc), genome.AlleleChar(toNuc)
}

func (r *CodonRater) Cacheable() bool {
	return true
}
