// Package phylo is the phylogeny structure the simulator walks: a rooted
// tree of branch lengths with ordered children, plus newick parsing and
// writing. Each node owns its children; the parent pointer is a non-owning
// back-reference for traversal bookkeeping only.
package phylo

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrNegativeBranch = errors.New("negative branch length")
	ErrEmptyTree      = errors.New("empty tree")
)

// Node is one phylogeny node. Length is the branch leading into the node
// (0 for an unrooted-style root).
type Node struct {
	Name     string
	Length   float64
	Parent   *Node
	Children []*Node
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0
}

// Walk visits the subtree in preorder, children in declaration order.
func (n *Node) Walk(fn func(*Node)) {
	fn(n)
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Count is the number of nodes in the subtree.
func (n *Node) Count() int {
	total := 0
	n.Walk(func(*Node) { total++ })
	return total
}

// Leaves collects the subtree's leaves in traversal order.
func (n *Node) Leaves() []*Node {
	var out []*Node
	n.Walk(func(m *Node) {
		if m.IsLeaf() {
			out = append(out, m)
		}
	})
	return out
}

// Validate rejects trees the simulator cannot run: negative branch lengths
// anywhere in the subtree.
func (n *Node) Validate() error {
	var err error
	n.Walk(func(m *Node) {
		if err == nil && m.Length < 0 {
			err = fmt.Errorf("%w: %g at %q", ErrNegativeBranch, m.Length, m.Name)
		}
	})
	return err
}

// Newick renders the subtree in newick syntax, terminated by a semicolon.
func (n *Node) Newick() string {
	var b strings.Builder
	n.writeNewick(&b)
	b.WriteByte(';')
	return b.String()
}

func (n *Node) writeNewick(b *strings.Builder) {
	if len(n.Children) > 0 {
		b.WriteByte('(')
		for i, c := range n.Children {
			if i > 0 {
				b.WriteByte(',')
			}
			c.writeNewick(b)
		}
		b.WriteByte(')')
	}
	b.WriteString(n.Name)
	b.WriteByte(':')
	b.WriteString(strconv.FormatFloat(n.Length, 'g', -1, 64))
}
