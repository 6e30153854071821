package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"l2-tipbot/internal/domain"
	"l2-tipbot/internal/storage"
)

// ExecutionStore implements storage.ExecutionStore on Badger.
// Records live under exec:<actor>:<executed_at>:<record_id> so a prefix scan
// returns one actor's history in time order. record:<record_id> guards uniqueness.
type ExecutionStore struct {
	db *DB
}

// NewExecutionStore creates a new ExecutionStore.
func NewExecutionStore(db *DB) *ExecutionStore {
	return &ExecutionStore{db: db}
}

var _ storage.ExecutionStore = (*ExecutionStore)(nil)

// Insert adds a new record. Returns ErrDuplicateKey if record_id exists.
func (s *ExecutionStore) Insert(_ context.Context, r *domain.ExecutionRecord) error {
	if r == nil || r.RecordID == "" || r.ActorID == "" {
		return storage.ErrInvalidInput
	}
	guard := recordPrefix + r.RecordID

	err := s.db.db.Update(func(txn *badger.Txn) error {
		found, err := exists(txn, guard)
		if err != nil {
			return err
		}
		if found {
			return storage.ErrDuplicateKey
		}
		if err := txn.Set([]byte(guard), []byte(r.ActorID)); err != nil {
			return err
		}
		return setJSON(txn, executionKey(r), r)
	})
	if errors.Is(err, badger.ErrConflict) {
		return storage.ErrDuplicateKey
	}
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return err
		}
		return fmt.Errorf("insert execution: %w", err)
	}
	return nil
}

// GetByActor retrieves records of one actor, ordered by executed_at ASC.
func (s *ExecutionStore) GetByActor(_ context.Context, actorID string) ([]*domain.ExecutionRecord, error) {
	var result []*domain.ExecutionRecord

	err := s.db.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(executionPrefix + actorID + ":")
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var r domain.ExecutionRecord
			if err := it.Item().Value(func(val []byte) error {
				return jsonUnmarshal(val, &r)
			}); err != nil {
				return err
			}
			result = append(result, &r)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get executions: %w", err)
	}
	return result, nil
}

// executionKey zero-pads the timestamp so lexical key order is time order.
func executionKey(r *domain.ExecutionRecord) string {
	return fmt.Sprintf("%s%s:%020d:%s", executionPrefix, r.ActorID, r.ExecutedAt, r.RecordID)
}
