package phylosim

import (
	"errors"
	"fmt"

	xrand "golang.org/x/exp/rand"

	"phylosim/internal/flat"
	"phylosim/internal/genome"
	"phylosim/internal/genometree"
	"phylosim/internal/model"
	"phylosim/internal/rates"
	"phylosim/internal/sim"
)

var (
	ErrFlatCodon         = errors.New("codon model requires hierarchical mode")
	ErrFlatGamma         = errors.New("continuous gamma rates require hierarchical mode; use discrete categories")
	ErrHyperMismatch     = errors.New("hypermutation probabilities and rates must have equal length")
	ErrOmegaWithoutCodon = errors.New("omega parameters are only meaningful in codon mode")
)

// simulationSetup is everything Run needs once validation and model
// construction succeeded: the reference sequence, the root lineage view,
// the per-site diagnostic rows, and a post-run consistency check.
type simulationSetup struct {
	seq     genome.Sequence
	lineage sim.Lineage
	sites   []model.SiteInfo
	check   func() error
}

// buildSimulation performs the whole setup phase: reference genome,
// substitution matrix, per-site multipliers, hypermutation and omega
// assignments, rate normalization, and model construction. Setup draws its
// randomness from a stream independent of the traversal's, both derived
// from the request seed, so runs stay reproducible end to end.
func buildSimulation(req RunRequest) (*simulationSetup, error) {
	rng := xrand.New(xrand.NewSource(uint64(req.Seed)))

	seq, err := buildReference(rng, req)
	if err != nil {
		return nil, err
	}
	matrix, err := buildMatrix(req)
	if err != nil {
		return nil, err
	}

	siteRates, cats, err := buildSiteRates(rng, req, len(seq))
	if err != nil {
		return nil, err
	}

	var hyper []rates.HyperAssignment
	if len(req.HyperProbs) > 0 || len(req.HyperRates) > 0 {
		if len(req.HyperProbs) != len(req.HyperRates) {
			return nil, fmt.Errorf("%w: %d probabilities, %d rates", ErrHyperMismatch, len(req.HyperProbs), len(req.HyperRates))
		}
		hyper, err = rates.SampleHyper(rng, req.HyperProbs, len(seq))
		if err != nil {
			return nil, err
		}
	}

	if !req.Codon && (req.OmegaAlpha > 0 || len(req.OmegaCategoryProbs) > 0) {
		return nil, ErrOmegaWithoutCodon
	}

	var omegas []float64
	if req.Codon {
		if err := seq.CheckCodingFrame(); err != nil {
			return nil, err
		}
		omegas, err = buildOmegas(rng, req, len(seq)/3)
		if err != nil {
			return nil, err
		}
		freezeBoundaryCodons(seq, siteRates, cats)
	}

	sites := buildSiteInfo(siteRates, cats, hyper, omegas)

	if req.NoHierarchy {
		return buildFlat(req, seq, matrix, cats, hyper, sites)
	}
	return buildHierarchical(req, seq, matrix, siteRates, hyper, omegas, sites)
}

func buildReference(rng *xrand.Rand, req RunRequest) (genome.Sequence, error) {
	if req.RootSequence != "" {
		return genome.FromString(req.RootSequence)
	}
	return genome.Random(rng, req.RootLength, req.RootFrequencies)
}

func buildMatrix(req RunRequest) (*rates.Matrix, error) {
	if req.MutationRates == nil {
		return rates.Default(), nil
	}
	return rates.New(req.MutationRates)
}

func buildSiteRates(rng *xrand.Rand, req RunRequest, n int) ([]float64, []int, error) {
	if req.Alpha > 0 {
		if len(req.CategoryProbs) > 0 {
			return nil, nil, errors.New("set either a gamma alpha or discrete categories, not both")
		}
		siteRates, err := rates.GammaSiteRates(rng, req.Alpha, req.Invariable, n)
		if err != nil {
			return nil, nil, err
		}
		cats := make([]int, n)
		for i := range cats {
			cats[i] = rates.InvariableCategory
		}
		return siteRates, cats, nil
	}
	probs := req.CategoryProbs
	catRates := req.CategoryRates
	if len(probs) == 0 {
		probs = []float64{1}
		catRates = []float64{1}
	}
	return rates.CategorySiteRates(rng, probs, catRates, req.Invariable, n)
}

func buildOmegas(rng *xrand.Rand, req RunRequest, nCodons int) ([]float64, error) {
	if len(req.OmegaCategoryProbs) > 0 {
		return rates.CategoryOmegas(rng, req.OmegaCategoryProbs, req.OmegaCategoryRates, nCodons)
	}
	alpha := req.OmegaAlpha
	if alpha <= 0 {
		alpha = 1
	}
	return rates.GammaOmegas(rng, alpha, nCodons)
}

// freezeBoundaryCodons zeroes the start codon and, when the frame ends on a
// stop, the terminal codon, so neither can substitute freely.
func freezeBoundaryCodons(seq genome.Sequence, siteRates []float64, cats []int) {
	freeze := func(codon int) {
		for k := 0; k < 3; k++ {
			siteRates[3*codon+k] = 0
			cats[3*codon+k] = rates.InvariableCategory
		}
	}
	freeze(0)
	last := len(seq)/3 - 1
	if last > 0 {
		codon := genome.CodonIndex(seq[3*last], seq[3*last+1], seq[3*last+2])
		if genome.IsStop(codon) {
			freeze(last)
		}
	}
}

func buildSiteInfo(siteRates []float64, cats []int, hyper []rates.HyperAssignment, omegas []float64) []model.SiteInfo {
	sites := make([]model.SiteInfo, len(siteRates))
	for i := range sites {
		s := model.SiteInfo{Position: i, Rate: siteRates[i], Category: cats[i]}
		if hyper != nil && hyper[i].Category > 0 {
			s.HyperCategory = hyper[i].Category
			s.HyperFrom = string(genome.AlleleChar(hyper[i].From))
			s.HyperTo = string(genome.AlleleChar(hyper[i].To))
		}
		if omegas != nil {
			s.Omega = omegas[i/3]
		}
		sites[i] = s
	}
	return sites
}

func buildHierarchical(req RunRequest, seq genome.Sequence, matrix *rates.Matrix,
	siteRates []float64, hyper []rates.HyperAssignment, omegas []float64,
	sites []model.SiteInfo) (*simulationSetup, error) {

	var rater genometree.Rater
	var states []int
	if req.Codon {
		codons, err := seq.Codons()
		if err != nil {
			return nil, err
		}
		states = codons
		rater = &genometree.CodonRater{
			Matrix:    matrix,
			SiteRates: siteRates,
			Omega:     omegas,
			Hyper:     hyper,
			HyperMult: req.HyperRates,
		}
	} else {
		states = make([]int, len(seq))
		for i, a := range seq {
			states[i] = int(a)
		}
		rater = &genometree.NucRater{
			Matrix:    matrix,
			SiteRates: siteRates,
			Hyper:     hyper,
			HyperMult: req.HyperRates,
		}
	}

	tree, err := genometree.Build(states, rater)
	if err != nil {
		return nil, err
	}
	if total := tree.TotalRate(); total > 0 {
		matrix.Scale(req.Scale * float64(len(seq)) / total)
		tree, err = genometree.Build(states, rater)
		if err != nil {
			return nil, err
		}
	}

	base := tree.Base()
	return &simulationSetup{
		seq:     seq,
		lineage: sim.Hierarchical{Frame: base},
		sites:   sites,
		check:   base.CheckConsistency,
	}, nil
}

func buildFlat(req RunRequest, seq genome.Sequence, matrix *rates.Matrix,
	cats []int, hyper []rates.HyperAssignment,
	sites []model.SiteInfo) (*simulationSetup, error) {

	if req.Codon {
		return nil, ErrFlatCodon
	}
	if req.Alpha > 0 {
		return nil, ErrFlatGamma
	}
	catRates := req.CategoryRates
	if len(catRates) == 0 {
		catRates = []float64{1}
	}

	fm, err := flat.New(seq, matrix, cats, catRates, hyper, req.HyperRates)
	if err != nil {
		return nil, err
	}
	if total := fm.TotalRate(); total > 0 {
		matrix.Scale(req.Scale * float64(len(seq)) / total)
		fm, err = flat.New(seq, matrix, cats, catRates, hyper, req.HyperRates)
		if err != nil {
			return nil, err
		}
	}

	return &simulationSetup{
		seq:     seq,
		lineage: sim.Flat{Frame: fm.Root()},
		sites:   sites,
		check:   fm.CheckConsistency,
	}, nil
}
