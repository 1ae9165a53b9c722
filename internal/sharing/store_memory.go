package sharing

import (
	"context"
	"sync"

	id "credtrust/pkg/domain"
	"credtrust/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu     sync.RWMutex
	grants map[id.GrantID]Grant
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{grants: make(map[id.GrantID]Grant)}
}

func (s *InMemoryStore) Insert(_ context.Context, grant Grant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.grants[grant.ID]; exists {
		return sentinel.ErrConflict
	}
	s.grants[grant.ID] = grant
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, grantID id.GrantID) (Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if g, ok := s.grants[grantID]; ok {
		return g, nil
	}
	return Grant{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) FindByToken(_ context.Context, token string) (Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if token == "" {
		return Grant{}, sentinel.ErrNotFound
	}
	for _, g := range s.grants {
		if g.Token == token {
			return g, nil
		}
	}
	return Grant{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) ListByOwner(_ context.Context, ownerID id.UserID) ([]Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Grant
	for _, g := range s.grants {
		if g.OwnerID == ownerID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (s *InMemoryStore) Update(_ context.Context, grant Grant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.grants[grant.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.grants[grant.ID] = grant
	return nil
}

func (s *InMemoryStore) IncrementAccess(_ context.Context, grantID id.GrantID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.grants[grantID]
	if !ok {
		return sentinel.ErrNotFound
	}
	g.AccessCount++
	s.grants[grantID] = g
	return nil
}
