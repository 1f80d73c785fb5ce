package store

import (
	"fmt"

	"github.com/procsl/llm-gateway/pkg/model"
)

// ListGroups returns a snapshot of all configured groups.
func (s *Store) ListGroups() []model.Group {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Group, 0, len(s.groups))
	for _, g := range s.groups {
		out = append(out, g)
	}
	return out
}

// GetGroup returns the group with the given name, if any.
func (s *Store) GetGroup(name string) (model.Group, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.groups[name]
	return g, ok
}

// UpsertGroup creates or replaces the group keyed by g.Name.
func (s *Store) UpsertGroup(g model.Group) error {
	if g.Name == "" {
		return fmt.Errorf("group name is required")
	}

	s.mu.Lock()
	next := cloneMap(s.groups)
	next[g.Name] = g
	s.mu.Unlock()

	if err := writeMap(s.dir, groupsFile, next); err != nil {
		return err
	}

	s.mu.Lock()
	s.groups = next
	s.mu.Unlock()
	return nil
}

// DeleteGroup removes the group with the given name.
func (s *Store) DeleteGroup(name string) error {
	s.mu.Lock()
	next := cloneMap(s.groups)
	delete(next, name)
	s.mu.Unlock()

	if err := writeMap(s.dir, groupsFile, next); err != nil {
		return err
	}

	s.mu.Lock()
	s.groups = next
	s.mu.Unlock()
	return nil
}
