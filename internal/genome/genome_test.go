package genome

import (
	"errors"
	"testing"

	"golang.org/x/exp/rand"
)

func TestFromStringRoundTrip(t *testing.T) {
	seq, err := FromString("ACGTacgt")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := seq.String(); got != "ACGTACGT" {
		t.Fatalf("round trip: got %q", got)
	}
}

func TestFromStringRejectsBadAllele(t *testing.T) {
	if _, err := FromString("ACGN"); !errors.Is(err, ErrBadAllele) {
		t.Fatalf("expected ErrBadAllele, got %v", err)
	}
	if _, err := FromString(""); !errors.Is(err, ErrEmptySequence) {
		t.Fatalf("expected ErrEmptySequence, got %v", err)
	}
}

func TestRandomIsDeterministicAndRespectsFrequencies(t *testing.T) {
	a, err := Random(rand.New(rand.NewSource(7)), 500, nil)
	if err != nil {
		t.Fatalf("random: %v", err)
	}
	b, err := Random(rand.New(rand.NewSource(7)), 500, nil)
	if err != nil {
		t.Fatalf("random: %v", err)
	}
	if a.String() != b.String() {
		t.Fatal("same seed must give the same genome")
	}

	onlyG, err := Random(rand.New(rand.NewSource(7)), 100, []float64{0, 0, 1, 0})
	if err != nil {
		t.Fatalf("random: %v", err)
	}
	for i, allele := range onlyG {
		if allele != 2 {
			t.Fatalf("site %d: expected G, got %c", i, AlleleChar(allele))
		}
	}
}

func TestRandomRejectsBadFrequencies(t *testing.T) {
	if _, err := Random(rand.New(rand.NewSource(1)), 10, []float64{1, 2, 3}); !errors.Is(err, ErrBadFrequency) {
		t.Fatalf("expected ErrBadFrequency for short vector, got %v", err)
	}
	if _, err := Random(rand.New(rand.NewSource(1)), 10, []float64{0, 0, 0, 0}); !errors.Is(err, ErrBadFrequency) {
		t.Fatalf("expected ErrBadFrequency for zero mass, got %v", err)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	seq, _ := FromString("ACGT")
	c := seq.Clone()
	c[0] = 3
	if seq[0] != 0 {
		t.Fatal("clone aliased the original")
	}
}
