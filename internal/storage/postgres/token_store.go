package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"l2-tipbot/internal/domain"
	"l2-tipbot/internal/storage"
)

// TokenStore implements storage.TokenStore using PostgreSQL.
type TokenStore struct {
	pool *Pool
}

// NewTokenStore creates a new TokenStore.
func NewTokenStore(pool *Pool) *TokenStore {
	return &TokenStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TokenStore = (*TokenStore)(nil)

// Insert adds a new token and assigns its Position. Returns ErrDuplicateKey if ticker exists.
func (s *TokenStore) Insert(ctx context.Context, t *domain.Token) error {
	query := `
		INSERT INTO tokens (ticker, name, decimals, network_id)
		VALUES ($1, $2, $3, $4)
		RETURNING position
	`

	var position int64
	err := s.pool.QueryRow(ctx, query,
		t.Ticker,
		t.Name,
		t.Decimals,
		int64(t.NetworkID),
	).Scan(&position)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert token: %w", err)
	}

	t.Position = int(position)
	return nil
}

// GetByTicker retrieves a token by ticker. Returns ErrNotFound if not exists.
func (s *TokenStore) GetByTicker(ctx context.Context, ticker string) (*domain.Token, error) {
	query := `
		SELECT ticker, name, decimals, network_id, position
		FROM tokens
		WHERE ticker = $1
	`

	t, err := scanToken(s.pool.QueryRow(ctx, query, ticker))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token by ticker: %w", err)
	}
	return t, nil
}

// List retrieves all tokens ordered by Position ASC.
func (s *TokenStore) List(ctx context.Context) ([]*domain.Token, error) {
	query := `
		SELECT ticker, name, decimals, network_id, position
		FROM tokens
		ORDER BY position ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	defer rows.Close()

	var result []*domain.Token
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, fmt.Errorf("scan token: %w", err)
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tokens: %w", err)
	}
	return result, nil
}

// scanToken scans a single row into Token.
func scanToken(row pgx.Row) (*domain.Token, error) {
	var (
		t         domain.Token
		networkID int64
		position  int64
	)

	err := row.Scan(
		&t.Ticker,
		&t.Name,
		&t.Decimals,
		&networkID,
		&position,
	)
	if err != nil {
		return nil, err
	}

	t.NetworkID = uint32(networkID)
	t.Position = int(position)
	return &t, nil
}
