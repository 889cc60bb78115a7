package genometree

// Frame is one lineage's view of the rate tree: the shared ancestor tree
// plus every node this lineage has rewritten. A mutation path-copies from
// the frame's root down to the touched leaf, so a frame owns exactly the
// nodes its own mutations created and ancestor frames stay untouched.
// Frames form a stack mirroring the phylogeny traversal: push with NewChild
// on entering a phylogeny node, Release when backtracking past it.
type Frame struct {
	tree     *Tree
	parent   *Frame
	root     *node
	owned    []*node
	cache    map[uint64][]float64
	released bool
}

// NewChild layers a fresh, empty overlay on top of this frame's view.
func (f *Frame) NewChild() *Frame {
	return &Frame{tree: f.tree, parent: f, root: f.root}
}

// TotalRate is the lineage's current total outgoing rate. O(1).
func (f *Frame) TotalRate() float64 {
	return f.root.total
}

// OwnedNodes reports how many tree nodes this frame has materialized. It
// exists so overlay teardown is observable.
func (f *Frame) OwnedNodes() int {
	return len(f.owned)
}

// Released reports whether Release has run.
func (f *Frame) Released() bool {
	return f.released
}

// Release drops every node and cached rate vector this frame owns. The
// frame, and any view handed to its descendants, must not be used after.
func (f *Frame) Release() {
	for _, n := range f.owned {
		n.left, n.right, n.vec = nil, nil, nil
	}
	f.owned = nil
	f.cache = nil
	f.root = nil
	f.released = true
}

// Sample picks a genome position with probability proportional to its
// current total outgoing rate (driven by u1), then a transition choice at
// that position proportional to its rate vector (driven by u2). Both
// uniforms must lie in [0,1). O(log L).
func (f *Frame) Sample(u1, u2 float64) (pos, choice int) {
	n := f.root
	x := u1 * n.total
	for !n.isLeaf() {
		if x < n.left.total || n.right.total == 0 {
			n = n.left
		} else {
			x -= n.left.total
			n = n.right
		}
	}
	return n.lo, pickChoice(n.vec, u2*n.total)
}

// pickChoice selects an index proportional to the weights. The target is
// pre-scaled to [0, sum); rounding at the top end falls back to the last
// positive weight.
func pickChoice(vec []float64, target float64) int {
	acc := 0.0
	last := 0
	for i, w := range vec {
		if w <= 0 {
			continue
		}
		last = i
		acc += w
		if target < acc {
			return i
		}
	}
	return last
}

// Mutate applies the sampled transition at pos to this lineage: it
// path-copies root-to-leaf, installs the leaf's new state and rate vector,
// and restores every copied ancestor's cached total on the way back up, all
// in O(log L). The ancestor tree below other frames is never written. It
// returns the affected nucleotide site and the from/to allele characters.
func (f *Frame) Mutate(pos, choice int) (site int, from, to byte) {
	var newRoot *node
	newRoot, site, from, to = f.copyPath(f.root, pos, choice)
	f.root = newRoot
	return site, from, to
}

func (f *Frame) copyPath(n *node, pos, choice int) (c *node, site int, from, to byte) {
	c = f.adopt(n)
	if c.isLeaf() {
		var newState int
		newState, site, from, to = f.tree.rater.Transition(pos, c.state, choice)
		c.state = newState
		c.vec = f.vector(pos, newState)
		c.total = 0
		for _, r := range c.vec {
			c.total += r
		}
		return c, site, from, to
	}
	if pos < c.left.hi {
		c.left, site, from, to = f.copyPath(c.left, pos, choice)
	} else {
		c.right, site, from, to = f.copyPath(c.right, pos, choice)
	}
	c.total = c.left.total + c.right.total
	return c, site, from, to
}

// adopt returns a node this frame may write: n itself when the frame already
// owns it, otherwise a copy registered in the frame's arena.
func (f *Frame) adopt(n *node) *node {
	if n.owner == f {
		return n
	}
	c := &node{
		lo: n.lo, hi: n.hi,
		left: n.left, right: n.right,
		total: n.total,
		state: n.state,
		vec:   n.vec,
		owner: f,
	}
	f.owned = append(f.owned, c)
	return c
}

// vector computes the rate vector for a (position, state) pair. For raters
// that allow it, vectors are memoized per lineage: lookups fall through the
// frame chain, and new entries land in this frame so they vanish with it.
func (f *Frame) vector(pos, state int) []float64 {
	r := f.tree.rater
	if !r.Cacheable() {
		vec := make([]float64, r.Choices())
		r.Vector(pos, state, vec)
		return vec
	}
	key := cacheKey(pos, state)
	for g := f; g != nil; g = g.parent {
		if v, ok := g.cache[key]; ok {
			return v
		}
	}
	vec := make([]float64, r.Choices())
	r.Vector(pos, state, vec)
	if f.cache == nil {
		f.cache = make(map[uint64][]float64)
	}
	f.cache[key] = vec
	return vec
}

// cacheKey packs a (position, state) pair into one map key. Positions can
// exceed 2^24 for genome-length inputs, so the packing is 64-bit.
func cacheKey(pos, state int) uint64 {
	return uint64(pos)<<8 | uint64(state)
}

// CheckConsistency recomputes every cached total beneath this frame's view
// and compares against the stored values. A mismatch indicates a bug in the
// update path and is fatal for the run.
func (f *Frame) CheckConsistency() error {
	_, err := checkNode(f.root)
	return err
}

// LeafState returns the lineage's current state at a position. O(log L).
func (f *Frame) LeafState(pos int) int {
	n := f.root
	for !n.isLeaf() {
		if pos < n.left.hi {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.state
}
