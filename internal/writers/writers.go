// Package writers serializes simulation results: the per-site info table,
// per-node mutation lists, leaf alignments in fasta and phylip, and an
// annotated newick carrying each branch's mutations.
package writers

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"phylosim/internal/model"
	"phylosim/internal/phylo"
)

// WriteInfo writes the per-site diagnostic table as TSV. In codon mode an
// omega column is appended; positions stay nucleotide-level either way.
func WriteInfo(w io.Writer, sites []model.SiteInfo, codon bool) error {
	bw := bufio.NewWriter(w)
	header := "pos\trate\tcat\thyperCat\thyperAlleleFrom\thyperAlleleTo"
	if codon {
		header += "\tomega"
	}
	if _, err := fmt.Fprintln(bw, header); err != nil {
		return err
	}
	for _, s := range sites {
		cat := ""
		if s.Category >= 0 {
			cat = fmt.Sprintf("%d", s.Category)
		}
		line := fmt.Sprintf("%d\t%g\t%s\t%d\t%s\t%s", s.Position+1, s.Rate, cat, s.HyperCategory, s.HyperFrom, s.HyperTo)
		if codon {
			line += fmt.Sprintf("\t%g", s.Omega)
		}
		if _, err := fmt.Fprintln(bw, line); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteMutations writes the compact per-node mutation history: one header
// line per node followed by one event per line (allele, 1-based position,
// allele, branch time).
func WriteMutations(w io.Writer, nodes []model.NodeMutations) error {
	bw := bufio.NewWriter(w)
	for _, n := range nodes {
		if _, err := fmt.Fprintf(bw, ">%s\n", n.Name); err != nil {
			return err
		}
		for _, e := range n.Events {
			if _, err := fmt.Fprintf(bw, "%s\t%d\t%s\t%g\n", e.From, e.Position+1, e.To, e.Time); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

// WriteFasta writes the leaf alignment in fasta format.
func WriteFasta(w io.Writer, leaves []model.LeafSequence) error {
	bw := bufio.NewWriter(w)
	for _, l := range leaves {
		if _, err := fmt.Fprintf(bw, ">%s\n%s\n", l.Name, l.Sequence); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WritePhylip writes the leaf alignment in sequential phylip format.
func WritePhylip(w io.Writer, leaves []model.LeafSequence, seqLen int) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "\t%d\t%d\n", len(leaves), seqLen); err != nil {
		return err
	}
	for _, l := range leaves {
		if _, err := fmt.Fprintf(bw, "%s\t%s\n", l.Name, l.Sequence); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// AnnotatedNewick renders the phylogeny with each node's branch mutations
// folded into its label, so the mutation history can travel with the tree.
func AnnotatedNewick(root *phylo.Node, byName map[string][]model.MutationEvent) string {
	var b strings.Builder
	writeAnnotated(&b, root, byName)
	b.WriteByte(';')
	return b.String()
}

func writeAnnotated(b *strings.Builder, n *phylo.Node, byName map[string][]model.MutationEvent) {
	if len(n.Children) > 0 {
		b.WriteByte('(')
		for i, c := range n.Children {
			if i > 0 {
				b.WriteByte(',')
			}
			writeAnnotated(b, c, byName)
		}
		b.WriteByte(')')
	}
	b.WriteString(n.Name)
	for _, e := range byName[n.Name] {
		b.WriteByte('_')
		b.WriteString(e.String())
	}
	fmt.Fprintf(b, ":%g", n.Length)
}
