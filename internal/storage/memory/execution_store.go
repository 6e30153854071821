package memory

import (
	"context"
	"sort"
	"sync"

	"l2-tipbot/internal/domain"
	"l2-tipbot/internal/storage"
)

// ExecutionStore is an in-memory implementation of storage.ExecutionStore.
type ExecutionStore struct {
	mu      sync.RWMutex
	records map[string]*domain.ExecutionRecord // keyed by record_id
}

// NewExecutionStore creates a new in-memory execution store.
func NewExecutionStore() *ExecutionStore {
	return &ExecutionStore{
		records: make(map[string]*domain.ExecutionRecord),
	}
}

// Insert adds a new record. Returns ErrDuplicateKey if record_id exists.
func (s *ExecutionStore) Insert(_ context.Context, r *domain.ExecutionRecord) error {
	if r == nil || r.RecordID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[r.RecordID]; exists {
		return storage.ErrDuplicateKey
	}

	recCopy := *r
	s.records[r.RecordID] = &recCopy
	return nil
}

// GetByActor retrieves records of one actor, ordered by executed_at ASC.
func (s *ExecutionStore) GetByActor(_ context.Context, actorID string) ([]*domain.ExecutionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ExecutionRecord
	for _, r := range s.records {
		if r.ActorID == actorID {
			recCopy := *r
			result = append(result, &recCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].ExecutedAt != result[j].ExecutedAt {
			return result[i].ExecutedAt < result[j].ExecutedAt
		}
		return result[i].RecordID < result[j].RecordID
	})
	return result, nil
}

var _ storage.ExecutionStore = (*ExecutionStore)(nil)
