package storage

import (
	"context"

	"l2-tipbot/internal/domain"
)

// UserKeyStore provides access to user_keys storage.
type UserKeyStore interface {
	// Insert adds a new user key. Returns ErrDuplicateKey if user_id exists.
	Insert(ctx context.Context, k *domain.UserKey) error

	// GetByUserID retrieves a user key. Returns ErrNotFound if not exists.
	GetByUserID(ctx context.Context, userID string) (*domain.UserKey, error)
}

// TokenStore provides access to the supported-token registry.
type TokenStore interface {
	// Insert adds a new token and assigns its Position.
	// Returns ErrDuplicateKey if ticker exists.
	Insert(ctx context.Context, t *domain.Token) error

	// GetByTicker retrieves a token by its upper-case ticker. Returns ErrNotFound if not exists.
	GetByTicker(ctx context.Context, ticker string) (*domain.Token, error)

	// List retrieves all tokens ordered by Position ASC.
	List(ctx context.Context) ([]*domain.Token, error)
}

// ExecutionStore provides access to the append-only executions ledger.
type ExecutionStore interface {
	// Insert adds a new record. Returns ErrDuplicateKey if record_id exists.
	Insert(ctx context.Context, r *domain.ExecutionRecord) error

	// GetByActor retrieves records of one actor, ordered by executed_at ASC.
	GetByActor(ctx context.Context, actorID string) ([]*domain.ExecutionRecord, error)
}
