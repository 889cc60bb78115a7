package sim

import (
	"math"
	"math/rand"
	"reflect"
	"strings"
	"testing"

	"phylosim/internal/flat"
	"phylosim/internal/genome"
	"phylosim/internal/genometree"
	"phylosim/internal/phylo"
	"phylosim/internal/rates"
)

// uniformMatrix has every off-diagonal rate 1/3, so each allele's total
// outgoing rate is exactly 1.
func uniformMatrix(t *testing.T) *rates.Matrix {
	t.Helper()
	vals := make([]float64, 16)
	for i := range vals {
		vals[i] = 1.0 / 3.0
	}
	m, err := rates.New(vals)
	if err != nil {
		t.Fatalf("matrix: %v", err)
	}
	return m
}

func hierarchicalLineage(t *testing.T, seq genome.Sequence, m *rates.Matrix) Lineage {
	t.Helper()
	states := make([]int, len(seq))
	for i, a := range seq {
		states[i] = int(a)
	}
	siteRates := make([]float64, len(seq))
	for i := range siteRates {
		siteRates[i] = 1
	}
	tree, err := genometree.Build(states, &genometree.NucRater{Matrix: m, SiteRates: siteRates})
	if err != nil {
		t.Fatalf("build tree: %v", err)
	}
	return Hierarchical{Frame: tree.Base()}
}

func flatLineage(t *testing.T, seq genome.Sequence, m *rates.Matrix) Lineage {
	t.Helper()
	fm, err := flat.New(seq, m, make([]int, len(seq)), []float64{1}, nil, nil)
	if err != nil {
		t.Fatalf("build flat: %v", err)
	}
	return Flat{Frame: fm.Root()}
}

func TestSimulateBranchZeroRate(t *testing.T) {
	seq, _ := genome.FromString("ACGT")
	states := make([]int, len(seq))
	for i, a := range seq {
		states[i] = int(a)
	}
	tree, err := genometree.Build(states, &genometree.NucRater{
		Matrix:    uniformMatrix(t),
		SiteRates: []float64{0, 0, 0, 0},
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	rng := rand.New(rand.NewSource(1))
	events := SimulateBranch(rng, Hierarchical{Frame: tree.Base().NewChild()}, 100)
	if len(events) != 0 {
		t.Fatalf("zero total rate must produce no events, got %d", len(events))
	}
}

func TestSimulateBranchMeanEventCount(t *testing.T) {
	// total rate 4 over the reference, so a branch of length b carries
	// about 4b events
	seq, _ := genome.FromString("ACGT")
	m := uniformMatrix(t)
	rng := rand.New(rand.NewSource(21))

	for _, tc := range []struct {
		branch float64
		want   float64
	}{
		{1.0, 4},
		{3.0, 12},
	} {
		const reps = 400
		total := 0
		for i := 0; i < reps; i++ {
			lineage := hierarchicalLineage(t, seq, m).Child()
			events := SimulateBranch(rng, lineage, tc.branch)
			total += len(events)
			lineage.Release()
		}
		mean := float64(total) / reps
		if math.Abs(mean-tc.want) > 0.6 {
			t.Fatalf("branch %g: mean %g events, want about %g", tc.branch, mean, tc.want)
		}
	}
}

func TestFlatAndHierarchicalAgreeOnEventCounts(t *testing.T) {
	seq, _ := genome.FromString(strings.Repeat("ACGT", 8))
	m := uniformMatrix(t)

	mean := func(build func(*testing.T, genome.Sequence, *rates.Matrix) Lineage, seed int64) float64 {
		rng := rand.New(rand.NewSource(seed))
		const reps = 300
		total := 0
		for i := 0; i < reps; i++ {
			lineage := build(t, seq, m).Child()
			total += len(SimulateBranch(rng, lineage, 0.5))
			lineage.Release()
		}
		return float64(total) / reps
	}

	h := mean(hierarchicalLineage, 31)
	f := mean(flatLineage, 32)
	// both should sit near 32 sites * rate 1 * branch 0.5 = 16
	if math.Abs(h-16) > 1.2 || math.Abs(f-16) > 1.2 {
		t.Fatalf("means off target: hierarchical %g, flat %g, want about 16", h, f)
	}
	if math.Abs(h-f) > 1.5 {
		t.Fatalf("models disagree: hierarchical %g vs flat %g", h, f)
	}
}

func TestTraverseDeterministic(t *testing.T) {
	seq, _ := genome.FromString(strings.Repeat("ACGT", 16))
	m := uniformMatrix(t)

	run := func() []NodeResult {
		tree, err := phylo.Parse("((A:0.4,B:0.7):0.2,(C:0.3,D:0.5):0.1);")
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		rng := rand.New(rand.NewSource(77))
		results, err := Traverse(rng, hierarchicalLineage(t, seq, m), tree, seq, Options{CollectSequences: true})
		if err != nil {
			t.Fatalf("traverse: %v", err)
		}
		return results
	}
	a := run()
	b := run()
	if !reflect.DeepEqual(a, b) {
		t.Fatal("identical seeds must reproduce the whole run")
	}
}

func TestTraverseNamesAndSequences(t *testing.T) {
	seq, _ := genome.FromString(strings.Repeat("ACGT", 4))
	m := uniformMatrix(t)
	tree, err := phylo.Parse("((A:0,B:0):0,C:0);")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	rng := rand.New(rand.NewSource(5))
	results, err := Traverse(rng, hierarchicalLineage(t, seq, m), tree, seq, Options{CollectSequences: true})
	if err != nil {
		t.Fatalf("traverse: %v", err)
	}
	if len(results) != 5 {
		t.Fatalf("results: got %d nodes, want 5", len(results))
	}
	if results[0].Name != "node1" || results[1].Name != "node2" {
		t.Fatalf("anonymous nodes not named: %q, %q", results[0].Name, results[1].Name)
	}
	for _, r := range results {
		if len(r.Events) != 0 {
			t.Fatalf("zero-length branches produced events at %s", r.Name)
		}
		if r.IsLeaf && r.Sequence != seq.String() {
			t.Fatalf("leaf %s drifted from the reference on a zero-length tree", r.Name)
		}
		if !r.IsLeaf && r.Sequence != "" {
			t.Fatalf("internal node %s should not carry a sequence", r.Name)
		}
	}
}

func TestTraverseSiblingIsolation(t *testing.T) {
	seq, _ := genome.FromString(strings.Repeat("ACGT", 16))
	m := uniformMatrix(t)
	// first child mutates heavily, second not at all; the second leaf must
	// still match the reference
	tree, err := phylo.Parse("(A:5,B:0);")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	rng := rand.New(rand.NewSource(13))
	results, err := Traverse(rng, hierarchicalLineage(t, seq, m), tree, seq, Options{CollectSequences: true})
	if err != nil {
		t.Fatalf("traverse: %v", err)
	}
	var a, b *NodeResult
	for i := range results {
		switch results[i].Name {
		case "A":
			a = &results[i]
		case "B":
			b = &results[i]
		}
	}
	if a == nil || b == nil {
		t.Fatal("missing leaf results")
	}
	if len(a.Events) == 0 {
		t.Fatal("expected events on the long branch")
	}
	if b.Sequence != seq.String() {
		t.Fatal("sibling mutations leaked into the untouched lineage")
	}
}

func TestTraverseRejectsBadTree(t *testing.T) {
	seq, _ := genome.FromString("ACGT")
	m := uniformMatrix(t)
	if _, err := Traverse(rand.New(rand.NewSource(1)), hierarchicalLineage(t, seq, m), nil, seq, Options{}); err == nil {
		t.Fatal("nil tree must fail")
	}
	tree, _ := phylo.Parse("(A:1,B:-1);")
	if _, err := Traverse(rand.New(rand.NewSource(1)), hierarchicalLineage(t, seq, m), tree, seq, Options{}); err == nil {
		t.Fatal("negative branch must fail")
	}
}
