package admin

import "net/http"

// nominalBase is the base weight reported to the health-status endpoint.
// The health tracker's penalty is independent of group position, but a
// provider can belong to multiple groups at different ranks, so there is no
// single "real" base weight to report here; 1000 (rank-0) is used as the
// nominal reference a human reading /admin/api/health compares "current"
// against.
const nominalBase = 1000.0

// providerHealth is the per-provider shape returned by GET /admin/api/health.
type providerHealth struct {
	Base             float64          `json:"base"`
	Current          float64          `json:"current"`
	Ratio            float64          `json:"ratio"`
	RecentErrorCount int              `json:"recentErrorCount"`
	LastError        *lastErrorPayload `json:"lastError,omitempty"`
	TotalFailures    int64            `json:"totalFailures"`
	WindowMillis     int64            `json:"windowMs"`
}

type lastErrorPayload struct {
	At     string `json:"at"`
	Status int    `json:"status"`
}

func (s *Surface) getHealth(w http.ResponseWriter, r *http.Request) {
	stats := s.store.Stats()
	providers := s.store.ListProviders()

	out := make(map[string]providerHealth, len(providers))
	for _, p := range providers {
		hs := s.health.Stats(p.Name)
		current := s.health.Weight(p.Name, nominalBase)

		entry := providerHealth{
			Base:             nominalBase,
			Current:          current,
			Ratio:            current / nominalBase,
			RecentErrorCount: hs.RecentErrorCount,
			TotalFailures:    stats[p.Name].Failures,
			WindowMillis:     hs.WindowMillis,
		}
		if hs.LastError != nil {
			entry.LastError = &lastErrorPayload{At: hs.LastError.At.Format("2006-01-02T15:04:05.000Z07:00"), Status: hs.LastError.Status}
		}
		out[p.Name] = entry
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Surface) resetAllHealth(w http.ResponseWriter, r *http.Request) {
	s.health.ResetAll()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Surface) resetOneHealth(w http.ResponseWriter, r *http.Request) {
	s.health.Reset(r.PathValue("name"))
	w.WriteHeader(http.StatusNoContent)
}
