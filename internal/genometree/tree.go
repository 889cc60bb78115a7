// Package genometree implements the hierarchical rate structure at the heart
// of the simulator: a balanced binary tree over genome positions whose
// internal nodes cache the total outgoing rate beneath them. Rate queries,
// proportional site sampling, and post-mutation updates all cost O(log L).
// Per-lineage state lives in Frames, which path-copy the shared tree on
// write so no lineage ever mutates another's view.
package genometree

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrEmptyGenome  = errors.New("cannot build a rate tree over zero positions")
	ErrInconsistent = errors.New("rate tree inconsistency: cached total diverges from leaf sum")
)

// node is either a leaf (one genome position) or an internal node covering
// the position range [lo, hi). Internal nodes cache the sum of their
// children's totals. Nodes are never mutated after construction except
// through Frame path-copies, which only touch nodes the frame owns.
type node struct {
	lo, hi      int
	left, right *node
	total       float64

	// leaf-only fields
	state int
	vec   []float64

	owner *Frame // nil for nodes of the shared base tree
}

func (n *node) isLeaf() bool {
	return n.hi-n.lo == 1
}

// Tree is the shared base rate tree, built once from the reference genome.
type Tree struct {
	size  int
	rater Rater
	root  *node
	base  *Frame
}

// Build constructs the tree over the reference states (one per position:
// nucleotide alleles, or codon indices in codon mode), computing every leaf
// rate vector through the rater and propagating totals bottom-up in O(L).
func Build(states []int, rater Rater) (*Tree, error) {
	if len(states) == 0 {
		return nil, ErrEmptyGenome
	}
	t := &Tree{size: len(states), rater: rater}
	t.root = t.build(states, 0, len(states))
	t.base = &Frame{tree: t, root: t.root}
	return t, nil
}

func (t *Tree) build(states []int, lo, hi int) *node {
	n := &node{lo: lo, hi: hi}
	if hi-lo == 1 {
		n.state = states[lo]
		n.vec = make([]float64, t.rater.Choices())
		t.rater.Vector(lo, n.state, n.vec)
		for _, r := range n.vec {
			n.total += r
		}
		return n
	}
	mid := (lo + hi) / 2
	n.left = t.build(states, lo, mid)
	n.right = t.build(states, mid, hi)
	n.total = n.left.total + n.right.total
	return n
}

// Len is the number of positions (leaves).
func (t *Tree) Len() int {
	return t.size
}

// TotalRate is the reference genome's total outgoing rate, before any
// lineage diverges. O(1).
func (t *Tree) TotalRate() float64 {
	return t.root.total
}

// Base is the frame representing the unmutated reference view. It owns no
// nodes; releasing it is a no-op. Lineage frames are layered on top of it
// with NewChild.
func (t *Tree) Base() *Frame {
	return t.base
}

// checkNode recursively verifies the cached-total invariant.
func checkNode(n *node) (float64, error) {
	if n.isLeaf() {
		sum := 0.0
		for _, r := range n.vec {
			sum += r
		}
		if !nearlyEqual(sum, n.total) {
			return 0, fmt.Errorf("%w: leaf %d cached %g, actual %g", ErrInconsistent, n.lo, n.total, sum)
		}
		return n.total, nil
	}
	ls, err := checkNode(n.left)
	if err != nil {
		return 0, err
	}
	rs, err := checkNode(n.right)
	if err != nil {
		return 0, err
	}
	if !nearlyEqual(ls+rs, n.total) {
		return 0, fmt.Errorf("%w: range [%d,%d) cached %g, actual %g", ErrInconsistent, n.lo, n.hi, n.total, ls+rs)
	}
	return n.total, nil
}

func nearlyEqual(a, b float64) bool {
	diff := math.Abs(a - b)
	if diff <= 1e-9 {
		return true
	}
	return diff <= 1e-9*math.Max(math.Abs(a), math.Abs(b))
}
