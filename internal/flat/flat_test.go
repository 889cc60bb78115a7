package flat

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"phylosim/internal/genome"
	"phylosim/internal/rates"
)

func uniformMatrix(t *testing.T) *rates.Matrix {
	t.Helper()
	vals := make([]float64, 16)
	for i := range vals {
		vals[i] = 1
	}
	m, err := rates.New(vals)
	if err != nil {
		t.Fatalf("matrix: %v", err)
	}
	return m
}

func TestNewTotals(t *testing.T) {
	seq, err := genome.FromString("ACGTACGT")
	if err != nil {
		t.Fatalf("sequence: %v", err)
	}
	cats := []int{0, 0, 0, 0, 1, 1, 1, 1}
	fm, err := New(seq, uniformMatrix(t), cats, []float64{1, 2}, nil, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	// row totals are 3 everywhere, so 4 sites at rate 3 plus 4 at rate 6
	if fm.TotalRate() != 36 {
		t.Fatalf("total: got %g, want 36", fm.TotalRate())
	}
	if err := fm.CheckConsistency(); err != nil {
		t.Fatalf("fresh model: %v", err)
	}
}

func TestNewRejectsBadInput(t *testing.T) {
	if _, err := New(nil, uniformMatrix(t), nil, []float64{1}, nil, nil); err != ErrEmptyGenome {
		t.Fatalf("empty genome: got %v", err)
	}
	seq, _ := genome.FromString("ACGT")
	if _, err := New(seq, uniformMatrix(t), []int{0, 0}, []float64{1}, nil, nil); err == nil {
		t.Fatal("category length mismatch must fail")
	}
	if _, err := New(seq, uniformMatrix(t), []int{0, 0, 0, 5}, []float64{1}, nil, nil); err == nil {
		t.Fatal("out-of-range category must fail")
	}
}

func TestInvariableSitesCarryNoRate(t *testing.T) {
	seq, _ := genome.FromString("ACGT")
	cats := []int{0, rates.InvariableCategory, 0, rates.InvariableCategory}
	fm, err := New(seq, uniformMatrix(t), cats, []float64{1}, nil, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if fm.TotalRate() != 6 {
		t.Fatalf("total: got %g, want 6", fm.TotalRate())
	}
	rng := rand.New(rand.NewSource(5))
	for i := 0; i < 2000; i++ {
		pos, _ := fm.Sample(rng.Float64(), rng.Float64())
		if pos == 1 || pos == 3 {
			t.Fatalf("sampled invariable site %d", pos)
		}
	}
}

func TestSampleProportionalToCategoryRates(t *testing.T) {
	seq, _ := genome.FromString("AAAA")
	cats := []int{0, 0, 1, 1}
	fm, err := New(seq, uniformMatrix(t), cats, []float64{1, 4}, nil, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	rng := rand.New(rand.NewSource(11))
	const draws = 20000
	counts := make([]int, 4)
	for i := 0; i < draws; i++ {
		pos, choice := fm.Sample(rng.Float64(), rng.Float64())
		if choice == int(seq[pos]) {
			t.Fatal("destination allele equals current allele")
		}
		counts[pos]++
	}
	want := []float64{0.1, 0.1, 0.4, 0.4}
	for pos, c := range counts {
		got := float64(c) / draws
		if math.Abs(got-want[pos]) > 0.02 {
			t.Fatalf("position %d sampled with frequency %g, want about %g", pos, got, want[pos])
		}
	}
}

func TestHypermutationCells(t *testing.T) {
	seq, _ := genome.FromString("AC")
	hyper := []rates.HyperAssignment{
		{Category: 1, From: 0, To: 3},
		{},
	}
	fm, err := New(seq, uniformMatrix(t), []int{0, 0}, []float64{1}, hyper, []float64{10})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	// site 0 carries 3 + 9 extra on the A->T channel, site 1 carries 3
	if fm.TotalRate() != 15 {
		t.Fatalf("total: got %g, want 15", fm.TotalRate())
	}
	if err := fm.CheckConsistency(); err != nil {
		t.Fatalf("fresh model: %v", err)
	}

	rng := rand.New(rand.NewSource(21))
	const draws = 20000
	var site0, toT int
	for i := 0; i < draws; i++ {
		pos, choice := fm.Sample(rng.Float64(), rng.Float64())
		if pos == 0 {
			site0++
			if choice == 3 {
				toT++
			}
		}
	}
	if got := float64(site0) / draws; math.Abs(got-0.8) > 0.02 {
		t.Fatalf("site 0 sampled with frequency %g, want about 0.8", got)
	}
	if got := float64(toT) / float64(site0); math.Abs(got-10.0/12.0) > 0.02 {
		t.Fatalf("A->T picked with frequency %g, want about %g", got, 10.0/12.0)
	}

	// once the site leaves its boosted allele the extra channel goes quiet
	frame := fm.Root().NewChild()
	frame.Mutate(0, 1)
	if fm.TotalRate() != 6 {
		t.Fatalf("total after leaving A: got %g, want 6", fm.TotalRate())
	}
	if err := fm.CheckConsistency(); err != nil {
		t.Fatalf("after mutation: %v", err)
	}
	frame.Release()
	if fm.TotalRate() != 15 {
		t.Fatalf("total after rewind: got %g, want 15", fm.TotalRate())
	}
}

func TestHypermutationValidation(t *testing.T) {
	seq, _ := genome.FromString("ACGT")
	cats := []int{0, 0, 0, 0}
	tooHigh := []rates.HyperAssignment{{Category: 2, From: 0, To: 1}, {}, {}, {}}
	if _, err := New(seq, uniformMatrix(t), cats, []float64{1}, tooHigh, []float64{10}); !errors.Is(err, ErrBadHyper) {
		t.Fatalf("out-of-range class: got %v", err)
	}
	short := []rates.HyperAssignment{{Category: 1, From: 0, To: 1}}
	if _, err := New(seq, uniformMatrix(t), cats, []float64{1}, short, []float64{10}); !errors.Is(err, ErrBadHyper) {
		t.Fatalf("length mismatch: got %v", err)
	}
}

func TestMutationMovesCells(t *testing.T) {
	seq, _ := genome.FromString("ACGTACGTACGT")
	cats := make([]int, len(seq))
	fm, err := New(seq, uniformMatrix(t), cats, []float64{1}, nil, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	frame := fm.Root().NewChild()
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 300; i++ {
		pos, choice := frame.Sample(rng.Float64(), rng.Float64())
		frame.Mutate(pos, choice)
		if fm.Allele(pos) != byte(choice) {
			t.Fatalf("mutation at %d not applied", pos)
		}
	}
	if err := fm.CheckConsistency(); err != nil {
		t.Fatalf("after mutations: %v", err)
	}
}

func TestReleaseRewindsToParentView(t *testing.T) {
	seq, _ := genome.FromString("ACGTACGT")
	cats := make([]int, len(seq))
	fm, err := New(seq, uniformMatrix(t), cats, []float64{1}, nil, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	before := make(genome.Sequence, len(seq))
	for i := range seq {
		before[i] = fm.Allele(i)
	}
	total := fm.TotalRate()

	frame := fm.Root().NewChild()
	rng := rand.New(rand.NewSource(9))
	for i := 0; i < 50; i++ {
		pos, choice := frame.Sample(rng.Float64(), rng.Float64())
		frame.Mutate(pos, choice)
	}
	if frame.PendingUndo() != 50 {
		t.Fatalf("undo log: got %d records, want 50", frame.PendingUndo())
	}
	frame.Release()
	if !frame.Released() || frame.PendingUndo() != 0 {
		t.Fatal("release must drain the undo log")
	}
	for i := range before {
		if fm.Allele(i) != before[i] {
			t.Fatalf("position %d not rewound", i)
		}
	}
	if fm.TotalRate() != total {
		t.Fatalf("total after rewind: got %g, want %g", fm.TotalRate(), total)
	}
	if err := fm.CheckConsistency(); err != nil {
		t.Fatalf("after rewind: %v", err)
	}
}
