package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/agenthands/shelfcheck/internal/core/model"
)

// MemoryStore keeps records in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records []model.VerificationRecord
	ids     map[string]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{ids: make(map[string]struct{})}
}

func (s *MemoryStore) Insert(ctx context.Context, rec model.VerificationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ids[rec.ID]; ok {
		return fmt.Errorf("failed to insert record %s: %w", rec.ID, ErrDuplicateRecord)
	}
	s.ids[rec.ID] = struct{}{}
	s.records = append(s.records, rec)
	return nil
}

func (s *MemoryStore) List(ctx context.Context, f Filter) ([]model.VerificationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return f.apply(s.records), nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (model.VerificationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.records {
		if rec.ID == id {
			return rec, nil
		}
	}
	return model.VerificationRecord{}, fmt.Errorf("record %s: %w", id, ErrRecordNotFound)
}

func (s *MemoryStore) Close(ctx context.Context) error {
	return nil
}
