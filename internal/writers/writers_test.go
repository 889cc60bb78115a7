package writers

import (
	"strings"
	"testing"

	"phylosim/internal/model"
	"phylosim/internal/phylo"
)

func TestWriteInfo(t *testing.T) {
	sites := []model.SiteInfo{
		{Position: 0, Rate: 1.5, Category: 0, HyperCategory: 0, HyperFrom: "", HyperTo: ""},
		{Position: 1, Rate: 0, Category: -1, HyperCategory: 0},
		{Position: 2, Rate: 2, Category: 1, HyperCategory: 1, HyperFrom: "G", HyperTo: "T"},
	}
	var b strings.Builder
	if err := WriteInfo(&b, sites, false); err != nil {
		t.Fatalf("write: %v", err)
	}
	want := "pos\trate\tcat\thyperCat\thyperAlleleFrom\thyperAlleleTo\n" +
		"1\t1.5\t0\t0\t\t\n" +
		"2\t0\t\t0\t\t\n" +
		"3\t2\t1\t1\tG\tT\n"
	if b.String() != want {
		t.Fatalf("info table:\n got %q\nwant %q", b.String(), want)
	}
}

func TestWriteInfoCodonColumn(t *testing.T) {
	sites := []model.SiteInfo{{Position: 0, Rate: 1, Category: 0, Omega: 0.75}}
	var b strings.Builder
	if err := WriteInfo(&b, sites, true); err != nil {
		t.Fatalf("write: %v", err)
	}
	lines := strings.Split(strings.TrimRight(b.String(), "\n"), "\n")
	if !strings.HasSuffix(lines[0], "\tomega") {
		t.Fatalf("header missing omega column: %q", lines[0])
	}
	if !strings.HasSuffix(lines[1], "\t0.75") {
		t.Fatalf("row missing omega value: %q", lines[1])
	}
}

func TestWriteMutations(t *testing.T) {
	nodes := []model.NodeMutations{
		{Name: "node1"},
		{Name: "A", Events: []model.MutationEvent{
			{Position: 2, Time: 0.125, From: "C", To: "T"},
			{Position: 9, Time: 0.5, From: "A", To: "G"},
		}},
	}
	var b strings.Builder
	if err := WriteMutations(&b, nodes); err != nil {
		t.Fatalf("write: %v", err)
	}
	want := ">node1\n>A\nC\t3\tT\t0.125\nA\t10\tG\t0.5\n"
	if b.String() != want {
		t.Fatalf("mutations:\n got %q\nwant %q", b.String(), want)
	}
}

func TestWriteAlignments(t *testing.T) {
	leaves := []model.LeafSequence{
		{Name: "A", Sequence: "ACGT"},
		{Name: "B", Sequence: "ACTT"},
	}
	var fasta strings.Builder
	if err := WriteFasta(&fasta, leaves); err != nil {
		t.Fatalf("fasta: %v", err)
	}
	if fasta.String() != ">A\nACGT\n>B\nACTT\n" {
		t.Fatalf("fasta: %q", fasta.String())
	}

	var phy strings.Builder
	if err := WritePhylip(&phy, leaves, 4); err != nil {
		t.Fatalf("phylip: %v", err)
	}
	if phy.String() != "\t2\t4\nA\tACGT\nB\tACTT\n" {
		t.Fatalf("phylip: %q", phy.String())
	}
}

func TestAnnotatedNewick(t *testing.T) {
	tree, err := phylo.Parse("(A:0.1,B:0.2)root:0;")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	byName := map[string][]model.MutationEvent{
		"A": {
			{Position: 2, Time: 0.05, From: "C", To: "T"},
			{Position: 0, Time: 0.08, From: "A", To: "G"},
		},
	}
	got := AnnotatedNewick(tree, byName)
	want := "(A_C3T_A1G:0.1,B:0.2)root:0;"
	if got != want {
		t.Fatalf("annotated newick: got %q, want %q", got, want)
	}
}
