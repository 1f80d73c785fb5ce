package store

import "github.com/procsl/llm-gateway/pkg/model"

// Stats returns a snapshot of the aggregate per-provider failure counters.
func (s *Store) Stats() map[string]model.ProviderStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneMap(s.stats)
}

// IncrementFailures performs a read-modify-write bump of provider name's
// lifetime failure counter. Races under concurrency are tolerated per
// SPEC_FULL.md §5 — this is an advisory counter, not a correctness gate.
func (s *Store) IncrementFailures(name string) {
	s.mu.Lock()
	next := cloneMap(s.stats)
	st := next[name]
	st.Failures++
	next[name] = st
	s.mu.Unlock()

	if err := writeMap(s.dir, statsFile, next); err != nil {
		s.log.Warn("failed to persist aggregate stats", "error", err, "provider", name)
		return
	}

	s.mu.Lock()
	s.stats = next
	s.mu.Unlock()
}
