// Package rates builds the substitution-rate inputs of a run: the base
// nucleotide matrix, per-site rate multipliers (gamma or categorical),
// hypermutation assignments, and per-codon omega selection weights.
package rates

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"phylosim/internal/genome"
)

var (
	ErrMatrixShape  = errors.New("substitution matrix must be 4x4")
	ErrNegativeRate = errors.New("substitution rates must be non-negative")
	ErrDeadRow      = errors.New("substitution matrix row has no outgoing rate")
)

// Matrix is an unrestricted (UNREST) nucleotide substitution matrix. Only the
// off-diagonal instantaneous rates are stored; the diagonal is implied as the
// negative row sum and never materialized.
type Matrix struct {
	q         *mat.Dense
	rowTotals []float64
}

// DefaultRates are the SARS-CoV-2 UNREST rate estimates used when no custom
// matrix is supplied, row-major over ACGT with zero diagonal.
var DefaultRates = []float64{
	0, 0.039, 0.310, 0.123,
	0.140, 0, 0.022, 3.028,
	0.747, 0.113, 0, 2.953,
	0.056, 0.261, 0.036, 0,
}

// New validates vals (16 row-major entries over ACGT; diagonal entries are
// ignored) and builds a Matrix.
func New(vals []float64) (*Matrix, error) {
	if len(vals) != genome.NumAlleles*genome.NumAlleles {
		return nil, fmt.Errorf("%w: got %d entries", ErrMatrixShape, len(vals))
	}
	q := mat.NewDense(genome.NumAlleles, genome.NumAlleles, nil)
	for from := 0; from < genome.NumAlleles; from++ {
		for to := 0; to < genome.NumAlleles; to++ {
			if from == to {
				continue
			}
			v := vals[from*genome.NumAlleles+to]
			if v < 0 {
				return nil, fmt.Errorf("%w: rate %s->%s is %g", ErrNegativeRate,
					string(genome.AlleleChar(byte(from))), string(genome.AlleleChar(byte(to))), v)
			}
			q.Set(from, to, v)
		}
	}
	m := &Matrix{q: q}
	if err := m.recomputeRowTotals(); err != nil {
		return nil, err
	}
	return m, nil
}

// Default builds the SARS-CoV-2 default matrix.
func Default() *Matrix {
	m, err := New(DefaultRates)
	if err != nil {
		panic(err)
	}
	return m
}

func (m *Matrix) recomputeRowTotals() error {
	totals := make([]float64, genome.NumAlleles)
	for from := 0; from < genome.NumAlleles; from++ {
		sum := 0.0
		for to := 0; to < genome.NumAlleles; to++ {
			sum += m.q.At(from, to)
		}
		if sum <= 0 {
			return fmt.Errorf("%w: row %s", ErrDeadRow, string(genome.AlleleChar(byte(from))))
		}
		totals[from] = sum
	}
	m.rowTotals = totals
	return nil
}

// Rate is the instantaneous rate from one allele index to another.
func (m *Matrix) Rate(from, to byte) float64 {
	return m.q.At(int(from), int(to))
}

// RowTotal is the total outgoing rate of an allele.
func (m *Matrix) RowTotal(from byte) float64 {
	return m.rowTotals[from]
}

// Scale multiplies every rate by f. Used once, to normalize the matrix so
// the mean reference-site rate equals the configured scale.
func (m *Matrix) Scale(f float64) {
	m.q.Scale(f, m.q)
	for i := range m.rowTotals {
		m.rowTotals[i] *= f
	}
}

// Clone returns an independent copy.
func (m *Matrix) Clone() *Matrix {
	c := &Matrix{q: mat.DenseCopyOf(m.q)}
	c.rowTotals = append([]float64(nil), m.rowTotals...)
	return c
}
