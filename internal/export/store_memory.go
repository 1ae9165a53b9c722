package export

import (
	"context"
	"sync"

	id "credtrust/pkg/domain"
	"credtrust/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu      sync.RWMutex
	records map[id.ExportID]Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[id.ExportID]Record)}
}

func (s *InMemoryStore) Insert(_ context.Context, record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[record.ID]; exists {
		return sentinel.ErrConflict
	}
	s.records[record.ID] = record
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, exportID id.ExportID) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.records[exportID]; ok {
		return r, nil
	}
	return Record{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) ListByUser(_ context.Context, userID id.UserID) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Record
	for _, r := range s.records {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *InMemoryStore) IncrementAccess(_ context.Context, exportID id.ExportID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[exportID]
	if !ok {
		return sentinel.ErrNotFound
	}
	r.AccessCount++
	s.records[exportID] = r
	return nil
}
