package memory

import (
	"context"
	"sync"

	"l2-tipbot/internal/domain"
	"l2-tipbot/internal/storage"
)

// TokenStore is an in-memory implementation of storage.TokenStore.
type TokenStore struct {
	mu       sync.RWMutex
	tokens   []*domain.Token          // insertion order
	byTicker map[string]*domain.Token // keyed by ticker
}

// NewTokenStore creates a new in-memory token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{
		byTicker: make(map[string]*domain.Token),
	}
}

// Insert adds a new token and assigns its Position. Returns ErrDuplicateKey if ticker exists.
func (s *TokenStore) Insert(_ context.Context, t *domain.Token) error {
	if t == nil || t.Ticker == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byTicker[t.Ticker]; exists {
		return storage.ErrDuplicateKey
	}

	t.Position = len(s.tokens) + 1
	tokenCopy := *t
	s.tokens = append(s.tokens, &tokenCopy)
	s.byTicker[t.Ticker] = &tokenCopy
	return nil
}

// GetByTicker retrieves a token by ticker. Returns ErrNotFound if not exists.
func (s *TokenStore) GetByTicker(_ context.Context, ticker string) (*domain.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.byTicker[ticker]
	if !exists {
		return nil, storage.ErrNotFound
	}

	tokenCopy := *t
	return &tokenCopy, nil
}

// List retrieves all tokens ordered by Position ASC.
func (s *TokenStore) List(_ context.Context) ([]*domain.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Token, 0, len(s.tokens))
	for _, t := range s.tokens {
		tokenCopy := *t
		result = append(result, &tokenCopy)
	}
	return result, nil
}

var _ storage.TokenStore = (*TokenStore)(nil)
