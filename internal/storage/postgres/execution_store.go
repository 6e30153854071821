package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"l2-tipbot/internal/domain"
	"l2-tipbot/internal/storage"
)

// ExecutionStore implements storage.ExecutionStore using PostgreSQL.
type ExecutionStore struct {
	pool *Pool
}

// NewExecutionStore creates a new ExecutionStore.
func NewExecutionStore(pool *Pool) *ExecutionStore {
	return &ExecutionStore{pool: pool}
}

var _ storage.ExecutionStore = (*ExecutionStore)(nil)

// Insert appends a record. Returns ErrDuplicateKey if record_id exists.
func (s *ExecutionStore) Insert(ctx context.Context, r *domain.ExecutionRecord) error {
	if r == nil || r.RecordID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO executions (
			record_id, intent_key, kind, status,
			actor_id, target_id, ticker, amount,
			fee_ticker, fee, tx_hash, fail_reason, executed_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8,
			$9, $10, $11, $12, $13
		)
	`

	_, err := s.pool.Exec(ctx, query,
		r.RecordID, r.IntentKey, string(r.Kind), string(r.Status),
		r.ActorID, r.TargetID, r.Ticker, r.Amount,
		r.FeeTicker, r.Fee, r.TxHash, r.FailReason, r.ExecutedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert execution: %w", err)
	}
	return nil
}

// GetByActor returns the actor's records, oldest first.
func (s *ExecutionStore) GetByActor(ctx context.Context, actorID string) ([]*domain.ExecutionRecord, error) {
	query := `
		SELECT
			record_id, intent_key, kind, status,
			actor_id, target_id, ticker, amount,
			fee_ticker, fee, tx_hash, fail_reason, executed_at
		FROM executions
		WHERE actor_id = $1
		ORDER BY executed_at ASC, record_id ASC
	`

	rows, err := s.pool.Query(ctx, query, actorID)
	if err != nil {
		return nil, fmt.Errorf("query executions: %w", err)
	}
	records, err := pgx.CollectRows(rows, scanExecution)
	if err != nil {
		return nil, fmt.Errorf("collect executions: %w", err)
	}
	return records, nil
}

func scanExecution(row pgx.CollectableRow) (*domain.ExecutionRecord, error) {
	var (
		r      domain.ExecutionRecord
		kind   string
		status string
	)
	err := row.Scan(
		&r.RecordID, &r.IntentKey, &kind, &status,
		&r.ActorID, &r.TargetID, &r.Ticker, &r.Amount,
		&r.FeeTicker, &r.Fee, &r.TxHash, &r.FailReason, &r.ExecutedAt,
	)
	if err != nil {
		return nil, err
	}
	r.Kind = domain.ExecutionKind(kind)
	r.Status = domain.ExecutionStatus(status)
	return &r, nil
}
