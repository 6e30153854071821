package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"l2-tipbot/internal/domain"
	"l2-tipbot/internal/storage"
)

// UserKeyStore implements storage.UserKeyStore on Badger.
type UserKeyStore struct {
	db *DB
}

// NewUserKeyStore creates a new UserKeyStore.
func NewUserKeyStore(db *DB) *UserKeyStore {
	return &UserKeyStore{db: db}
}

var _ storage.UserKeyStore = (*UserKeyStore)(nil)

// Insert adds a new user key. Returns ErrDuplicateKey if user_id exists.
func (s *UserKeyStore) Insert(_ context.Context, k *domain.UserKey) error {
	if k == nil || k.UserID == "" {
		return storage.ErrInvalidInput
	}
	key := userPrefix + k.UserID

	err := s.db.db.Update(func(txn *badger.Txn) error {
		found, err := exists(txn, key)
		if err != nil {
			return err
		}
		if found {
			return storage.ErrDuplicateKey
		}
		return setJSON(txn, key, k)
	})
	// A concurrent writer of the same key surfaces as a transaction conflict.
	if errors.Is(err, badger.ErrConflict) {
		return storage.ErrDuplicateKey
	}
	if err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		return fmt.Errorf("insert user key: %w", err)
	}
	return err
}

// GetByUserID retrieves a user key. Returns ErrNotFound if not exists.
func (s *UserKeyStore) GetByUserID(_ context.Context, userID string) (*domain.UserKey, error) {
	var k domain.UserKey
	err := s.db.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, userPrefix+userID, &k)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user key: %w", err)
	}
	return &k, nil
}
