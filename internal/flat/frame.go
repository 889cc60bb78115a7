package flat

import "phylosim/internal/genome"

// Frame gives the flat model the same lineage discipline the hierarchical
// tree has. The model's state is mutated in place as a lineage descends;
// each frame keeps an undo log and rewinds its own mutations on Release, so
// a sibling entered afterwards sees exactly the parent's state. Cheap,
// because the log holds only the positions actually touched.
type Frame struct {
	model    *Model
	undo     []undoRec
	released bool
}

type undoRec struct {
	pos    int
	allele byte
}

// Root wraps the model's pristine reference state. Releasing it is a no-op.
func (f *Model) Root() *Frame {
	return &Frame{model: f}
}

// NewChild starts a new lineage overlay.
func (f *Frame) NewChild() *Frame {
	return &Frame{model: f.model}
}

// TotalRate is the lineage's current total outgoing rate.
func (f *Frame) TotalRate() float64 {
	return f.model.TotalRate()
}

// Sample proxies to the model; see Model.Sample.
func (f *Frame) Sample(u1, u2 float64) (pos, choice int) {
	return f.model.Sample(u1, u2)
}

// Mutate applies a substitution for this lineage and records the previous
// allele so Release can rewind it.
func (f *Frame) Mutate(pos, choice int) (site int, from, to byte) {
	old := f.model.Allele(pos)
	f.undo = append(f.undo, undoRec{pos: pos, allele: old})
	f.model.setAllele(pos, byte(choice))
	return pos, genome.AlleleChar(old), genome.AlleleChar(byte(choice))
}

// PendingUndo reports the number of pending undo records; zero after Release.
func (f *Frame) PendingUndo() int {
	return len(f.undo)
}

// Released reports whether Release has run.
func (f *Frame) Released() bool {
	return f.released
}

// Release rewinds this frame's mutations in reverse order, restoring the
// parent lineage's view.
func (f *Frame) Release() {
	for i := len(f.undo) - 1; i >= 0; i-- {
		rec := f.undo[i]
		f.model.setAllele(rec.pos, rec.allele)
	}
	f.undo = nil
	f.released = true
}
