package sim

import (
	"math/rand"

	"phylosim/internal/model"
)

// SimulateBranch runs the Gillespie process along one branch: draw an
// exponential waiting time against the lineage's current total rate, stop
// if it overshoots the remaining branch, otherwise sample the site and
// destination proportionally, apply the mutation, and repeat against the
// updated total. The exponential's memorylessness makes redrawing after
// every event exact, not approximate. A zero total rate means the branch
// finishes with no further events; it is a valid outcome, not an error.
//
// Randomness is consumed in a fixed order per event (waiting time, site,
// destination), so runs are reproducible given a seed.
func SimulateBranch(rng *rand.Rand, lineage Lineage, branch float64) []model.MutationEvent {
	var events []model.MutationEvent
	elapsed := 0.0
	for {
		total := lineage.TotalRate()
		if total <= 0 {
			return events
		}
		elapsed += rng.ExpFloat64() / total
		if elapsed >= branch {
			return events
		}
		pos, choice := lineage.Sample(rng.Float64(), rng.Float64())
		site, from, to := lineage.Mutate(pos, choice)
		events = append(events, model.MutationEvent{
			Position: site,
			Time:     elapsed,
			From:     string(from),
			To:       string(to),
		})
	}
}
