package clickhouse

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"l2-tipbot/internal/domain"
	"l2-tipbot/internal/storage"
)

// ExecutionStore implements storage.ExecutionStore using ClickHouse.
type ExecutionStore struct {
	conn *Conn
}

// NewExecutionStore creates a new ExecutionStore.
func NewExecutionStore(conn *Conn) *ExecutionStore {
	return &ExecutionStore{conn: conn}
}

var _ storage.ExecutionStore = (*ExecutionStore)(nil)

// Insert adds a new record. Returns ErrDuplicateKey if record_id exists.
func (s *ExecutionStore) Insert(ctx context.Context, r *domain.ExecutionRecord) error {
	if r == nil || r.RecordID == "" {
		return storage.ErrInvalidInput
	}

	// MergeTree does not enforce uniqueness, the ledger is append-only.
	exists, err := s.exists(ctx, r.RecordID)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	query := `
		INSERT INTO executions (
			record_id, intent_key, kind, status,
			actor_id, target_id, ticker, amount,
			fee_ticker, fee, tx_hash, fail_reason, executed_at
		) VALUES (
			?, ?, ?, ?,
			?, ?, ?, ?,
			?, ?, ?, ?, ?
		)
	`

	err = timed("insert", func() error {
		return s.conn.Exec(ctx, query,
			r.RecordID, r.IntentKey, string(r.Kind), string(r.Status),
			r.ActorID, r.TargetID, r.Ticker, r.Amount,
			r.FeeTicker, r.Fee, r.TxHash, r.FailReason, uint64(r.ExecutedAt),
		)
	})
	if err != nil {
		return fmt.Errorf("insert execution: %w", err)
	}
	return nil
}

// GetByActor retrieves records of one actor, ordered by executed_at ASC.
func (s *ExecutionStore) GetByActor(ctx context.Context, actorID string) ([]*domain.ExecutionRecord, error) {
	query := `
		SELECT
			record_id, intent_key, kind, status,
			actor_id, target_id, ticker, amount,
			fee_ticker, fee, tx_hash, fail_reason, executed_at
		FROM executions
		WHERE actor_id = ?
		ORDER BY executed_at ASC, record_id ASC
	`

	var rows driver.Rows
	err := timed("select", func() (err error) {
		rows, err = s.conn.Query(ctx, query, actorID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("query executions: %w", err)
	}
	defer rows.Close()

	var result []*domain.ExecutionRecord
	for rows.Next() {
		var (
			r          domain.ExecutionRecord
			kind       string
			status     string
			executedAt uint64
		)
		if err := rows.Scan(
			&r.RecordID, &r.IntentKey, &kind, &status,
			&r.ActorID, &r.TargetID, &r.Ticker, &r.Amount,
			&r.FeeTicker, &r.Fee, &r.TxHash, &r.FailReason, &executedAt,
		); err != nil {
			return nil, fmt.Errorf("scan execution: %w", err)
		}
		r.Kind = domain.ExecutionKind(kind)
		r.Status = domain.ExecutionStatus(status)
		r.ExecutedAt = int64(executedAt)
		result = append(result, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate executions: %w", err)
	}
	return result, nil
}

func (s *ExecutionStore) exists(ctx context.Context, recordID string) (bool, error) {
	var count uint64
	err := timed("select", func() error {
		return s.conn.QueryRow(ctx, "SELECT count() FROM executions WHERE record_id = ?", recordID).Scan(&count)
	})
	return count > 0, err
}
