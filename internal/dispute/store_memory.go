package dispute

import (
	"context"
	"sync"

	id "credtrust/pkg/domain"
	"credtrust/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu       sync.RWMutex
	disputes map[id.DisputeID]Dispute
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{disputes: make(map[id.DisputeID]Dispute)}
}

func (s *InMemoryStore) Insert(_ context.Context, dispute Dispute) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.disputes[dispute.ID]; exists {
		return sentinel.ErrConflict
	}
	s.disputes[dispute.ID] = dispute
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, disputeID id.DisputeID) (Dispute, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if d, ok := s.disputes[disputeID]; ok {
		return d, nil
	}
	return Dispute{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) FindByCredential(_ context.Context, credentialID id.CredentialID) ([]Dispute, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Dispute
	for _, d := range s.disputes {
		if d.CredentialID == credentialID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *InMemoryStore) Update(_ context.Context, dispute Dispute) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.disputes[dispute.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.disputes[dispute.ID] = dispute
	return nil
}
