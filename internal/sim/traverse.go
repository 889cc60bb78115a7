package sim

import (
	"fmt"
	"math/rand"

	"phylosim/internal/genome"
	"phylosim/internal/model"
	"phylosim/internal/phylo"
)

// Options controls what the traversal retains beyond per-node mutations.
type Options struct {
	// CollectSequences keeps a fully reconstructed sequence per leaf.
	CollectSequences bool
}

// NodeResult is the simulation outcome at one phylogeny node: the mutation
// events on the branch leading into it, and for leaves optionally the
// reconstructed sequence.
type NodeResult struct {
	Name     string
	IsLeaf   bool
	Events   []model.MutationEvent
	Sequence string
}

// Traverse walks the phylogeny depth-first with children in order, running
// the branch simulator at every node against that lineage's overlay view.
// One overlay is pushed per node and released once its whole subtree is
// done, so peak state is bounded by the root-to-leaf path, not the tree.
// Unnamed nodes are assigned preorder names so every result line and output
// row has a stable identity.
//
// ref is the reference nucleotide sequence; it is only copied (and mutated
// along the walk, reverted on backtrack) when sequences are collected.
func Traverse(rng *rand.Rand, root Lineage, tree *phylo.Node, ref genome.Sequence, opts Options) ([]NodeResult, error) {
	if tree == nil {
		return nil, phylo.ErrEmptyTree
	}
	if err := tree.Validate(); err != nil {
		return nil, err
	}
	w := &walker{rng: rng, opts: opts}
	if opts.CollectSequences {
		w.seq = ref.Clone()
	}
	w.walk(tree, root)
	return w.results, nil
}

type walker struct {
	rng     *rand.Rand
	opts    Options
	seq     genome.Sequence
	results []NodeResult
	anon    int
}

func (w *walker) walk(n *phylo.Node, parent Lineage) {
	lineage := parent.Child()
	defer lineage.Release()

	events := SimulateBranch(w.rng, lineage, n.Length)
	undo := w.apply(events)

	name := n.Name
	if name == "" {
		w.anon++
		name = fmt.Sprintf("node%d", w.anon)
		n.Name = name
	}
	res := NodeResult{Name: name, IsLeaf: n.IsLeaf(), Events: events}
	if res.IsLeaf && w.opts.CollectSequences {
		res.Sequence = w.seq.String()
	}
	w.results = append(w.results, res)

	for _, c := range n.Children {
		w.walk(c, lineage)
	}
	w.revert(undo)
}

type seqUndo struct {
	pos    int
	allele byte
}

func (w *walker) apply(events []model.MutationEvent) []seqUndo {
	if w.seq == nil || len(events) == 0 {
		return nil
	}
	undo := make([]seqUndo, 0, len(events))
	for _, e := range events {
		undo = append(undo, seqUndo{pos: e.Position, allele: w.seq[e.Position]})
		a, err := genome.AlleleIndex(e.To[0])
		if err == nil {
			w.seq[e.Position] = a
		}
	}
	return undo
}

func (w *walker) revert(undo []seqUndo) {
	if w.seq == nil {
		return
	}
	for i := len(undo) - 1; i >= 0; i-- {
		w.seq[undo[i].pos] = undo[i].allele
	}
}
