package badger

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/dgraph-io/badger/v4"

	"l2-tipbot/internal/domain"
	"l2-tipbot/internal/storage"
)

// TokenStore implements storage.TokenStore on Badger.
type TokenStore struct {
	db *DB
}

// NewTokenStore creates a new TokenStore.
func NewTokenStore(db *DB) *TokenStore {
	return &TokenStore{db: db}
}

var _ storage.TokenStore = (*TokenStore)(nil)

// Insert adds a new token and assigns its Position. Returns ErrDuplicateKey if ticker exists.
func (s *TokenStore) Insert(_ context.Context, t *domain.Token) error {
	if t == nil || t.Ticker == "" {
		return storage.ErrInvalidInput
	}
	key := tokenPrefix + t.Ticker

	var position int
	err := s.db.db.Update(func(txn *badger.Txn) error {
		found, err := exists(txn, key)
		if err != nil {
			return err
		}
		if found {
			return storage.ErrDuplicateKey
		}

		tokens, err := listTokens(txn)
		if err != nil {
			return err
		}
		position = 1
		if n := len(tokens); n > 0 {
			position = tokens[n-1].Position + 1
		}

		tokCopy := *t
		tokCopy.Position = position
		return setJSON(txn, key, &tokCopy)
	})
	if errors.Is(err, badger.ErrConflict) {
		return storage.ErrDuplicateKey
	}
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return err
		}
		return fmt.Errorf("insert token: %w", err)
	}

	t.Position = position
	return nil
}

// GetByTicker retrieves a token by ticker. Returns ErrNotFound if not exists.
func (s *TokenStore) GetByTicker(_ context.Context, ticker string) (*domain.Token, error) {
	var t domain.Token
	err := s.db.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, tokenPrefix+ticker, &t)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get token: %w", err)
	}
	return &t, nil
}

// List retrieves all tokens ordered by Position ASC.
func (s *TokenStore) List(_ context.Context) ([]*domain.Token, error) {
	var result []*domain.Token
	err := s.db.db.View(func(txn *badger.Txn) error {
		var err error
		result, err = listTokens(txn)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	return result, nil
}

func listTokens(txn *badger.Txn) ([]*domain.Token, error) {
	var result []*domain.Token

	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(tokenPrefix)
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		var t domain.Token
		if err := it.Item().Value(func(val []byte) error {
			return jsonUnmarshal(val, &t)
		}); err != nil {
			return nil, err
		}
		result = append(result, &t)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Position < result[j].Position
	})
	return result, nil
}
