package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"l2-tipbot/internal/domain"
	"l2-tipbot/internal/storage"
)

// UserKeyStore implements storage.UserKeyStore using PostgreSQL.
type UserKeyStore struct {
	pool *Pool
}

// NewUserKeyStore creates a new UserKeyStore.
func NewUserKeyStore(pool *Pool) *UserKeyStore {
	return &UserKeyStore{pool: pool}
}

// Compile-time interface check.
var _ storage.UserKeyStore = (*UserKeyStore)(nil)

// Insert adds a new user key. Returns ErrDuplicateKey if user_id exists.
func (s *UserKeyStore) Insert(ctx context.Context, k *domain.UserKey) error {
	query := `
		INSERT INTO user_keys (user_id, address, encrypted_key, created_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := s.pool.Exec(ctx, query,
		k.UserID,
		k.Address,
		k.EncryptedKey,
		k.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert user key: %w", err)
	}
	return nil
}

// GetByUserID retrieves a user key. Returns ErrNotFound if not exists.
func (s *UserKeyStore) GetByUserID(ctx context.Context, userID string) (*domain.UserKey, error) {
	query := `
		SELECT user_id, address, encrypted_key, created_at
		FROM user_keys
		WHERE user_id = $1
	`

	k, err := scanUserKey(s.pool.QueryRow(ctx, query, userID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get user key: %w", err)
	}
	return k, nil
}

// scanUserKey scans a single row into UserKey.
func scanUserKey(row pgx.Row) (*domain.UserKey, error) {
	var k domain.UserKey

	err := row.Scan(
		&k.UserID,
		&k.Address,
		&k.EncryptedKey,
		&k.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &k, nil
}
