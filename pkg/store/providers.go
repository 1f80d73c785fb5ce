package store

import (
	"fmt"

	"github.com/procsl/llm-gateway/pkg/model"
)

// ListProviders returns a snapshot of all configured providers.
func (s *Store) ListProviders() []model.Provider {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Provider, 0, len(s.providers))
	for _, p := range s.providers {
		out = append(out, p)
	}
	return out
}

// GetProvider returns the provider with the given name, if any.
func (s *Store) GetProvider(name string) (model.Provider, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.providers[name]
	return p, ok
}

// UpsertProvider creates or replaces the provider keyed by p.Name.
func (s *Store) UpsertProvider(p model.Provider) error {
	if p.Name == "" {
		return fmt.Errorf("provider name is required")
	}

	s.mu.Lock()
	next := cloneMap(s.providers)
	next[p.Name] = p
	s.mu.Unlock()

	if err := writeMap(s.dir, providersFile, next); err != nil {
		return err
	}

	s.mu.Lock()
	s.providers = next
	s.mu.Unlock()
	return nil
}

// DeleteProvider removes the provider with the given name.
func (s *Store) DeleteProvider(name string) error {
	s.mu.Lock()
	next := cloneMap(s.providers)
	delete(next, name)
	s.mu.Unlock()

	if err := writeMap(s.dir, providersFile, next); err != nil {
		return err
	}

	s.mu.Lock()
	s.providers = next
	s.mu.Unlock()
	return nil
}

func cloneMap[T any](m map[string]T) map[string]T {
	out := make(map[string]T, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
