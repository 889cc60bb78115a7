package rates

import (
	"errors"
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"phylosim/internal/genome"
)

var (
	ErrBadProbabilities = errors.New("probabilities must be non-negative and sum to at most 1")
	ErrCategoryMismatch = errors.New("category probabilities and rates must have equal length")
	ErrBadAlpha         = errors.New("gamma shape parameter must be positive")
)

// InvariableCategory marks sites whose rate multiplier was not drawn from a
// discrete category: invariable sites and continuous-gamma sites.
const InvariableCategory = -1

// GammaSiteRates draws one rate multiplier per site from a mean-1 gamma
// distribution with shape alpha, with an invariable fraction of sites frozen
// at rate 0.
func GammaSiteRates(rng *rand.Rand, alpha, invariable float64, n int) ([]float64, error) {
	if alpha <= 0 {
		return nil, fmt.Errorf("%w: alpha=%g", ErrBadAlpha, alpha)
	}
	if invariable < 0 || invariable > 1 {
		return nil, fmt.Errorf("%w: invariable=%g", ErrBadProbabilities, invariable)
	}
	gamma := distuv.Gamma{Alpha: alpha, Beta: alpha, Src: rng}
	out := make([]float64, n)
	for i := range out {
		if invariable > 0 && rng.Float64() < invariable {
			out[i] = 0
			continue
		}
		out[i] = gamma.Rand()
	}
	return out, nil
}

// CategorySiteRates assigns each site a discrete rate category with the given
// probabilities, optionally reserving an invariable fraction at rate 0.
// It returns the per-site multiplier and the per-site category index
// (InvariableCategory for invariable sites).
func CategorySiteRates(rng *rand.Rand, probs, catRates []float64, invariable float64, n int) ([]float64, []int, error) {
	if len(probs) != len(catRates) {
		return nil, nil, fmt.Errorf("%w: %d probabilities, %d rates", ErrCategoryMismatch, len(probs), len(catRates))
	}
	if len(probs) == 0 {
		return nil, nil, fmt.Errorf("%w: no categories", ErrCategoryMismatch)
	}
	if invariable < 0 || invariable > 1 {
		return nil, nil, fmt.Errorf("%w: invariable=%g", ErrBadProbabilities, invariable)
	}
	sum := 0.0
	for _, p := range probs {
		if p < 0 {
			return nil, nil, ErrBadProbabilities
		}
		sum += p
	}
	if sum <= 0 {
		return nil, nil, ErrBadProbabilities
	}
	siteRates := make([]float64, n)
	cats := make([]int, n)
	for i := 0; i < n; i++ {
		if invariable > 0 && rng.Float64() < invariable {
			siteRates[i] = 0
			cats[i] = InvariableCategory
			continue
		}
		u := rng.Float64() * sum
		acc := 0.0
		k := len(probs) - 1
		for j, p := range probs {
			acc += p
			if u < acc {
				k = j
				break
			}
		}
		siteRates[i] = catRates[k]
		cats[i] = k
	}
	return siteRates, cats, nil
}

// HyperAssignment marks a site as hypermutable: while the site carries the
// From allele, its rate toward To is multiplied by the category's factor.
// Category 0 means the site is not hypermutable.
type HyperAssignment struct {
	Category int
	From, To byte
}

// SampleHyper assigns hypermutation categories. probs[k] is the probability
// of category k+1; the remaining mass is non-hypermutable. Each hypermutable
// site receives one uniformly chosen (From, To) allele pair with From != To.
func SampleHyper(rng *rand.Rand, probs []float64, n int) ([]HyperAssignment, error) {
	sum := 0.0
	for _, p := range probs {
		if p < 0 {
			return nil, ErrBadProbabilities
		}
		sum += p
	}
	if sum > 1 {
		return nil, fmt.Errorf("%w: total %g", ErrBadProbabilities, sum)
	}
	out := make([]HyperAssignment, n)
	if len(probs) == 0 {
		return out, nil
	}
	for i := range out {
		u := rng.Float64()
		acc := 0.0
		for k, p := range probs {
			acc += p
			if u < acc {
				from := byte(rng.Intn(genome.NumAlleles))
				to := byte(rng.Intn(genome.NumAlleles - 1))
				if to >= from {
					to++
				}
				out[i] = HyperAssignment{Category: k + 1, From: from, To: to}
				break
			}
		}
	}
	return out, nil
}

// GammaOmegas draws a mean-1 gamma selection weight per codon.
func GammaOmegas(rng *rand.Rand, alpha float64, nCodons int) ([]float64, error) {
	if alpha <= 0 {
		return nil, fmt.Errorf("%w: omega alpha=%g", ErrBadAlpha, alpha)
	}
	gamma := distuv.Gamma{Alpha: alpha, Beta: alpha, Src: rng}
	out := make([]float64, nCodons)
	for i := range out {
		out[i] = gamma.Rand()
	}
	return out, nil
}

// CategoryOmegas assigns each codon a discrete omega value.
func CategoryOmegas(rng *rand.Rand, probs, values []float64, nCodons int) ([]float64, error) {
	if len(probs) != len(values) || len(probs) == 0 {
		return nil, fmt.Errorf("%w: %d probabilities, %d omegas", ErrCategoryMismatch, len(probs), len(values))
	}
	sum := 0.0
	for _, p := range probs {
		if p < 0 {
			return nil, ErrBadProbabilities
		}
		sum += p
	}
	if sum <= 0 {
		return nil, ErrBadProbabilities
	}
	out := make([]float64, nCodons)
	for i := range out {
		u := rng.Float64() * sum
		acc := 0.0
		k := len(probs) - 1
		for j, p := range probs {
			acc += p
			if u < acc {
				k = j
				break
			}
		}
		out[i] = values[k]
	}
	return out, nil
}
