package credential

import (
	"context"
	"sync"

	id "credtrust/pkg/domain"
	"credtrust/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu          sync.RWMutex
	credentials map[id.CredentialID]Credential
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{credentials: make(map[id.CredentialID]Credential)}
}

func (s *InMemoryStore) Insert(_ context.Context, credential Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.credentials[credential.ID]; exists {
		return sentinel.ErrConflict
	}
	s.credentials[credential.ID] = credential
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, credentialID id.CredentialID) (Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.credentials[credentialID]; ok {
		return c, nil
	}
	return Credential{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) FindByRecipient(_ context.Context, recipientID id.UserID) ([]Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Credential
	for _, c := range s.credentials {
		if c.RecipientID == recipientID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *InMemoryStore) UpdateStatus(_ context.Context, credentialID id.CredentialID, update StatusUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.credentials[credentialID]
	if !ok {
		return sentinel.ErrNotFound
	}
	c.Status = update.Status
	c.RevocationReason = update.Reason
	revokedAt := update.RevokedAt
	c.RevokedAt = &revokedAt
	s.credentials[credentialID] = c
	return nil
}
