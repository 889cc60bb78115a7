// Package sim runs the Gillespie simulation: exact continuous-time
// substitution sampling along each branch, and a depth-first phylogeny
// traversal that pushes one lineage overlay per node and drops it on
// backtrack. The rate model behind a lineage is a strategy chosen once at
// startup, hierarchical or flat.
package sim

import (
	"phylosim/internal/flat"
	"phylosim/internal/genometree"
)

// Lineage is the capability set both rate models expose to the simulator:
// O(1) total rate, proportional sampling, in-lineage mutation, and the
// overlay push/pop lifecycle.
type Lineage interface {
	TotalRate() float64
	Sample(u1, u2 float64) (pos, choice int)
	Mutate(pos, choice int) (site int, from, to byte)
	Child() Lineage
	Release()
}

// Hierarchical adapts a genometree frame chain.
type Hierarchical struct {
	Frame *genometree.Frame
}

func (h Hierarchical) TotalRate() float64 {
	return h.Frame.TotalRate()
}

func (h Hierarchical) Sample(u1, u2 float64) (pos, choice int) {
	return h.Frame.Sample(u1, u2)
}

func (h Hierarchical) Mutate(pos, choice int) (site int, from, to byte) {
	return h.Frame.Mutate(pos, choice)
}

func (h Hierarchical) Child() Lineage {
	return Hierarchical{Frame: h.Frame.NewChild()}
}

func (h Hierarchical) Release() {
	h.Frame.Release()
}

// Flat adapts a flat-model frame chain.
type Flat struct {
	Frame *flat.Frame
}

func (f Flat) TotalRate() float64 {
	return f.Frame.TotalRate()
}

func (f Flat) Sample(u1, u2 float64) (pos, choice int) {
	return f.Frame.Sample(u1, u2)
}

func (f Flat) Mutate(pos, choice int) (site int, from, to byte) {
	return f.Frame.Mutate(pos, choice)
}

func (f Flat) Child() Lineage {
	return Flat{Frame: f.Frame.NewChild()}
}

func (f Flat) Release() {
	f.Frame.Release()
}
