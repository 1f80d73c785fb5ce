// Package store owns the four flat JSON documents that hold the gateway's
// persisted state (providers, groups, access keys, aggregate stats) and
// reloads its in-memory snapshot when those files change on disk, following
// the read-mostly, explicitly-passed-in config pattern this codebase favors
// over ambient global singletons (see SPEC_FULL.md §9).
package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/procsl/llm-gateway/pkg/model"
)

const (
	providersFile = "providers.json"
	groupsFile    = "groups.json"
	keysFile      = "keys.json"
	statsFile     = "stats.json"
)

// Store is a read-mostly, fsnotify-backed snapshot of the four config
// documents. All reads take a snapshot under a read lock; writes replace a
// single document, persist it via replace-and-rename, and update the
// in-memory snapshot under a write lock.
type Store struct {
	dir string
	log *slog.Logger

	mu        sync.RWMutex
	providers map[string]model.Provider
	groups    map[string]model.Group
	keys      map[string]model.AccessKey
	stats     map[string]model.ProviderStats

	watcher *fsnotify.Watcher
	closeCh chan struct{}
}

// Open loads the four documents from dir (creating empty ones if absent)
// and starts an fsnotify watch that reloads on external edits.
func Open(dir string, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}

	s := &Store{dir: dir, log: log, closeCh: make(chan struct{})}
	if err := s.reload(); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create config watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch config dir: %w", err)
	}
	s.watcher = watcher
	go s.watchLoop()

	return s, nil
}

func (s *Store) watchLoop() {
	for {
		select {
		case <-s.closeCh:
			return
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			base := filepath.Base(ev.Name)
			if base != providersFile && base != groupsFile && base != keysFile && base != statsFile {
				continue
			}
			if err := s.reload(); err != nil {
				s.log.Warn("config reload failed", "error", err, "file", base)
				continue
			}
			s.log.Info("config reloaded", "file", base)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.log.Warn("config watcher error", "error", err)
		}
	}
}

// Close stops the watch goroutine.
func (s *Store) Close() error {
	close(s.closeCh)
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}

func (s *Store) reload() error {
	providers, err := loadMap[model.Provider](s.dir, providersFile)
	if err != nil {
		return err
	}
	groups, err := loadMap[model.Group](s.dir, groupsFile)
	if err != nil {
		return err
	}
	keys, err := loadMap[model.AccessKey](s.dir, keysFile)
	if err != nil {
		return err
	}
	stats, err := loadMap[model.ProviderStats](s.dir, statsFile)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.providers, s.groups, s.keys, s.stats = providers, groups, keys, stats
	s.mu.Unlock()
	return nil
}

func loadMap[T any](dir, name string) (map[string]T, error) {
	path := filepath.Join(dir, name)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return make(map[string]T), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if len(data) == 0 {
		return make(map[string]T), nil
	}
	var m map[string]T
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	if m == nil {
		m = make(map[string]T)
	}
	return m, nil
}

// writeMap persists m to dir/name using replace-and-rename so readers never
// observe a partially-written file.
func writeMap[T any](dir, name string, m map[string]T) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	tmp, err := os.CreateTemp(dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp %s: %w", name, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmpName, filepath.Join(dir, name)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", name, err)
	}
	return nil
}
