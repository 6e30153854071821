package memory

import (
	"context"
	"sync"

	"l2-tipbot/internal/domain"
	"l2-tipbot/internal/storage"
)

// UserKeyStore is an in-memory implementation of storage.UserKeyStore.
type UserKeyStore struct {
	mu   sync.RWMutex
	keys map[string]*domain.UserKey // keyed by user_id
}

// NewUserKeyStore creates a new in-memory user key store.
func NewUserKeyStore() *UserKeyStore {
	return &UserKeyStore{
		keys: make(map[string]*domain.UserKey),
	}
}

// Insert adds a new user key. Returns ErrDuplicateKey if user_id exists.
func (s *UserKeyStore) Insert(_ context.Context, k *domain.UserKey) error {
	if k == nil || k.UserID == "" || k.Address == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.keys[k.UserID]; exists {
		return storage.ErrDuplicateKey
	}

	keyCopy := *k
	keyCopy.EncryptedKey = append([]byte(nil), k.EncryptedKey...)
	s.keys[k.UserID] = &keyCopy
	return nil
}

// GetByUserID retrieves a user key. Returns ErrNotFound if not exists.
func (s *UserKeyStore) GetByUserID(_ context.Context, userID string) (*domain.UserKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	k, exists := s.keys[userID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	keyCopy := *k
	keyCopy.EncryptedKey = append([]byte(nil), k.EncryptedKey...)
	return &keyCopy, nil
}

var _ storage.UserKeyStore = (*UserKeyStore)(nil)
