package store

import (
	"crypto/rand"

	"github.com/google/uuid"

	"github.com/procsl/llm-gateway/pkg/model"
)

const tokenAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// ListKeys returns a snapshot of all configured access keys.
func (s *Store) ListKeys() []model.AccessKey {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.AccessKey, 0, len(s.keys))
	for _, k := range s.keys {
		out = append(out, k)
	}
	return out
}

// Authenticate returns the access key whose token equals token, if any.
func (s *Store) Authenticate(token string) (model.AccessKey, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, k := range s.keys {
		if k.Token == token {
			return k, true
		}
	}
	return model.AccessKey{}, false
}

// UpsertKey creates or replaces an access key. If k.ID is empty a uuid is
// generated; if k.Token is empty a "sk-<9 random chars>" token is synthesized.
func (s *Store) UpsertKey(k model.AccessKey) (model.AccessKey, error) {
	if k.ID == "" {
		k.ID = uuid.NewString()
	}
	if k.Token == "" {
		token, err := randomToken(9)
		if err != nil {
			return model.AccessKey{}, err
		}
		k.Token = "sk-" + token
	}

	s.mu.Lock()
	next := cloneMap(s.keys)
	next[k.ID] = k
	s.mu.Unlock()

	if err := writeMap(s.dir, keysFile, next); err != nil {
		return model.AccessKey{}, err
	}

	s.mu.Lock()
	s.keys = next
	s.mu.Unlock()
	return k, nil
}

// DeleteKey removes the access key with the given id.
func (s *Store) DeleteKey(id string) error {
	s.mu.Lock()
	next := cloneMap(s.keys)
	delete(next, id)
	s.mu.Unlock()

	if err := writeMap(s.dir, keysFile, next); err != nil {
		return err
	}

	s.mu.Lock()
	s.keys = next
	s.mu.Unlock()
	return nil
}

func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	out := make([]byte, n)
	for i, v := range b {
		out[i] = tokenAlphabet[int(v)%len(tokenAlphabet)]
	}
	return string(out), nil
}
