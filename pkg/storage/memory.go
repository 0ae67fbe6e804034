package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/praxisid/oath-engine/pkg/domain"
)

// MemoryStore is a mutex-guarded in-memory CredentialStore. It keeps
// metadata and secrets in separate maps and hands out clones, so callers
// cannot mutate stored state without going through Store.
type MemoryStore struct {
	mu          sync.RWMutex
	credentials map[string]*domain.OathCredential
	secrets     map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		credentials: make(map[string]*domain.OathCredential),
		secrets:     make(map[string]string),
	}
}

// Store persists the credential metadata and its secret.
func (s *MemoryStore) Store(_ context.Context, c *domain.OathCredential, secret string) error {
	if c.ID == "" {
		return fmt.Errorf("%w: credential id is empty", domain.ErrInvalidParameterValue)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.credentials[c.ID] = c.Clone()
	s.secrets[c.ID] = secret
	return nil
}

// Retrieve returns the credential with its secret re-attached.
func (s *MemoryStore) Retrieve(_ context.Context, id string) (*domain.OathCredential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.credentials[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrCredentialNotFound, id)
	}
	out := c.Clone()
	out.AttachSecret(s.secrets[id])
	return out, nil
}

// ListAll returns all credential metadata, ordered by creation time, without
// secrets attached.
func (s *MemoryStore) ListAll(_ context.Context) ([]*domain.OathCredential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.OathCredential, 0, len(s.credentials))
	for _, c := range s.credentials {
		out = append(out, c.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Remove deletes the credential and its secret.
func (s *MemoryStore) Remove(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.credentials[id]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrCredentialNotFound, id)
	}
	delete(s.credentials, id)
	delete(s.secrets, id)
	return nil
}
