package forwarding

import (
	"sort"

	"github.com/procsl/llm-gateway/pkg/health"
	"github.com/procsl/llm-gateway/pkg/model"
	"github.com/procsl/llm-gateway/pkg/store"
)

// candidate is one provider considered during a single request's failover
// loop, carrying its computed effective weight at selection time.
type candidate struct {
	provider model.Provider
	weight   float64
}

// selectCandidates computes each group member's base weight from its
// position, applies the health tracker's penalty, and returns the result
// sorted by effective weight descending. Ties keep the group's original
// order (sort.SliceStable). Group members absent from the provider store
// are silently skipped.
func selectCandidates(g model.Group, st *store.Store, tracker *health.Tracker) []candidate {
	out := make([]candidate, 0, len(g.Providers))
	for i, name := range g.Providers {
		p, ok := st.GetProvider(name)
		if !ok {
			continue
		}
		base := 1000.0 - 100.0*float64(i)
		out = append(out, candidate{provider: p, weight: tracker.Weight(name, base)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].weight > out[j].weight })
	return out
}
