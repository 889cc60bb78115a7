// Package flat is the non-hierarchical fallback rate model: sites are
// bucketed into equi-rate cells keyed by (rate category, current allele),
// with extra cells for hypermutable sites currently sitting on their
// boosted source allele. Sampling walks the cells instead of a tree, and a
// mutation moves one position between cells. Update cost is O(#cells)
// rather than O(log L), which is acceptable when per-site heterogeneity is
// limited to a handful of discrete categories.
package flat

import (
	"errors"
	"fmt"

	"phylosim/internal/genome"
	"phylosim/internal/rates"
)

var (
	ErrEmptyGenome  = errors.New("cannot build a flat model over an empty genome")
	ErrBadCategory  = errors.New("site category out of range")
	ErrBadHyper     = errors.New("hypermutation assignment out of range")
	ErrInconsistent = errors.New("flat model inconsistency: cached total diverges from cell sum")
)

// hyperPairs is the number of ordered (from, to) allele pairs.
const hyperPairs = genome.NumAlleles * (genome.NumAlleles - 1)

type cellRef struct {
	cell int // -1 for invariable sites, excluded from every cell
	slot int
}

// Model holds the mutable per-run state of the flat rate model. One Model
// exists per simulation; lineages coordinate through Frames, which undo
// their mutations when released.
type Model struct {
	matrix    *rates.Matrix
	catRates  []float64
	hyper     []rates.HyperAssignment
	hyperMult []float64

	alleles genome.Sequence // current allele per position
	cats    []int           // category per position, rates.InvariableCategory allowed
	cells   [][]int         // positions per cell
	where   []cellRef
	total   float64
}

// New builds the model from the reference sequence, a validated matrix, a
// per-site category assignment with category rate multipliers, and an
// optional per-site hypermutation assignment with per-class multipliers.
func New(seq genome.Sequence, m *rates.Matrix, cats []int, catRates []float64,
	hyper []rates.HyperAssignment, hyperMult []float64) (*Model, error) {

	if len(seq) == 0 {
		return nil, ErrEmptyGenome
	}
	if len(cats) != len(seq) {
		return nil, fmt.Errorf("%w: %d categories for %d sites", ErrBadCategory, len(cats), len(seq))
	}
	if hyper != nil && len(hyper) != len(seq) {
		return nil, fmt.Errorf("%w: %d assignments for %d sites", ErrBadHyper, len(hyper), len(seq))
	}
	f := &Model{
		matrix:    m,
		catRates:  append([]float64(nil), catRates...),
		hyper:     hyper,
		hyperMult: append([]float64(nil), hyperMult...),
		alleles:   seq.Clone(),
		cats:      append([]int(nil), cats...),
		where:     make([]cellRef, len(seq)),
	}
	f.cells = make([][]int, f.baseCells()+len(catRates)*len(f.hyperMult)*hyperPairs)
	for pos, cat := range f.cats {
		if cat == rates.InvariableCategory {
			f.where[pos] = cellRef{cell: -1}
			continue
		}
		if cat < 0 || cat >= len(catRates) {
			return nil, fmt.Errorf("%w: site %d has category %d", ErrBadCategory, pos, cat)
		}
		if hyper != nil && hyper[pos].Category > len(f.hyperMult) {
			return nil, fmt.Errorf("%w: site %d has class %d of %d", ErrBadHyper, pos, hyper[pos].Category, len(f.hyperMult))
		}
		cell := f.cellFor(pos, seq[pos])
		f.where[pos] = cellRef{cell: cell, slot: len(f.cells[cell])}
		f.cells[cell] = append(f.cells[cell], pos)
	}
	f.total = f.recompute()
	return f, nil
}

func (f *Model) baseCells() int {
	return len(f.catRates) * genome.NumAlleles
}

// cellFor places a site: a hypermutable site on its boosted source allele
// gets the dedicated (category, class, allele pair) cell, everything else
// the plain (category, allele) cell.
func (f *Model) cellFor(pos int, allele byte) int {
	cat := f.cats[pos]
	if f.hyper != nil {
		if h := f.hyper[pos]; h.Category > 0 && h.From == allele {
			return f.baseCells() + (cat*len(f.hyperMult)+h.Category-1)*hyperPairs + pairIndex(h.From, h.To)
		}
	}
	return cat*genome.NumAlleles + int(allele)
}

func pairIndex(from, to byte) int {
	k := int(to)
	if to > from {
		k--
	}
	return int(from)*(genome.NumAlleles-1) + k
}

func pairAlleles(pair int) (from, to byte) {
	from = byte(pair / (genome.NumAlleles - 1))
	to = byte(pair % (genome.NumAlleles - 1))
	if to >= from {
		to++
	}
	return from, to
}

// perSiteRate is the outgoing rate of any one site in a cell.
func (f *Model) perSiteRate(cell int) float64 {
	if cell < f.baseCells() {
		cat := cell / genome.NumAlleles
		allele := byte(cell % genome.NumAlleles)
		return f.catRates[cat] * f.matrix.RowTotal(allele)
	}
	e := cell - f.baseCells()
	pair := e % hyperPairs
	e /= hyperPairs
	class := e % len(f.hyperMult)
	cat := e / len(f.hyperMult)
	from, to := pairAlleles(pair)
	boost := (f.hyperMult[class] - 1) * f.matrix.Rate(from, to)
	return f.catRates[cat] * (f.matrix.RowTotal(from) + boost)
}

func (f *Model) recompute() float64 {
	sum := 0.0
	for cell, positions := range f.cells {
		if len(positions) == 0 {
			continue
		}
		sum += f.perSiteRate(cell) * float64(len(positions))
	}
	return sum
}

// TotalRate is the current total outgoing rate. O(1).
func (f *Model) TotalRate() float64 {
	return f.total
}

// Len is the genome length.
func (f *Model) Len() int {
	return len(f.alleles)
}

// Sample picks a position proportional to its rate by walking the cells
// with u1: the cell is chosen by cumulative cell mass, and since sites
// within a cell are equi-rate, the residual mass indexes the site directly.
// The destination allele is picked with u2 proportional to the site's
// current rate-vector row, hypermutation boost included.
func (f *Model) Sample(u1, u2 float64) (pos, choice int) {
	x := u1 * f.total
	cell := -1
	last := -1
	for i, positions := range f.cells {
		if len(positions) == 0 {
			continue
		}
		last = i
		w := f.perSiteRate(i) * float64(len(positions))
		if x < w {
			cell = i
			break
		}
		x -= w
	}
	if cell < 0 {
		// rounding pushed x past the final cell
		cell = last
	}
	positions := f.cells[cell]
	j := int(x / f.perSiteRate(cell))
	if j >= len(positions) {
		j = len(positions) - 1
	}
	pos = positions[j]

	from := f.alleles[pos]
	rowTotal := f.matrix.RowTotal(from)
	boostTo := byte(0)
	boost := 1.0
	if f.hyper != nil {
		if h := f.hyper[pos]; h.Category > 0 && h.From == from {
			boostTo = h.To
			boost = f.hyperMult[h.Category-1]
			rowTotal += (boost - 1) * f.matrix.Rate(from, boostTo)
		}
	}
	y := u2 * rowTotal
	acc := 0.0
	choice = -1
	for to := byte(0); to < genome.NumAlleles; to++ {
		if to == from {
			continue
		}
		w := f.matrix.Rate(from, to)
		if boost != 1 && to == boostTo {
			w *= boost
		}
		if w <= 0 {
			continue
		}
		choice = int(to)
		acc += w
		if y < acc {
			break
		}
	}
	return pos, choice
}

// setAllele moves pos into the cell of its new allele and adjusts the
// cached total incrementally. O(1).
func (f *Model) setAllele(pos int, allele byte) {
	ref := f.where[pos]
	old := f.alleles[pos]
	if old == allele {
		return
	}
	f.alleles[pos] = allele
	if ref.cell < 0 {
		return
	}
	// swap-remove from the old cell
	cell := f.cells[ref.cell]
	lastPos := cell[len(cell)-1]
	cell[ref.slot] = lastPos
	f.where[lastPos].slot = ref.slot
	f.cells[ref.cell] = cell[:len(cell)-1]
	f.total -= f.perSiteRate(ref.cell)

	newCell := f.cellFor(pos, allele)
	f.where[pos] = cellRef{cell: newCell, slot: len(f.cells[newCell])}
	f.cells[newCell] = append(f.cells[newCell], pos)
	f.total += f.perSiteRate(newCell)
}

// Allele is the current allele at pos.
func (f *Model) Allele(pos int) byte {
	return f.alleles[pos]
}

// CheckConsistency compares the cached total against a full recount.
func (f *Model) CheckConsistency() error {
	actual := f.recompute()
	diff := f.total - actual
	if diff < 0 {
		diff = -diff
	}
	if diff > 1e-9 && diff > 1e-9*actual {
		return fmt.Errorf("%w: cached %g, actual %g", ErrInconsistent, f.total, actual)
	}
	return nil
}
