package intent

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"l2-tipbot/internal/amount"
	"l2-tipbot/internal/domain"
	"l2-tipbot/internal/idhash"
	"l2-tipbot/internal/observability"
	"l2-tipbot/internal/wallet"
)

// attempt describes one confirmed execution for locking and the ledger.
type attempt struct {
	kind     domain.ExecutionKind
	actorID  string
	targetID string
	primary  *amount.Packed
	fee      amount.Packed
}

// execute runs fn under the actor's execution lock and records the attempt.
// Failures of fn are wrapped in ErrTransactionFailed, except ErrAlreadyUnlocked
// which the caller turns into an informational answer.
func (p *Protocol) execute(ctx context.Context, att attempt, fn func() (*wallet.Receipt, error)) (*wallet.Receipt, error) {
	start := p.now()

	var (
		receipt *wallet.Receipt
		execErr error
	)
	lockErr := p.locker.WithLock(ctx, idhash.ExecutionLockKey(att.actorID), func() error {
		receipt, execErr = fn()
		return nil
	})
	if lockErr != nil {
		return nil, fmt.Errorf("execution lock: %w", lockErr)
	}
	if errors.Is(execErr, wallet.ErrAlreadyUnlocked) {
		return nil, execErr
	}

	status := domain.ExecutionSucceeded
	if execErr != nil {
		status = domain.ExecutionFailed
	}
	observability.RecordExecution(string(att.kind), string(status), p.now().Sub(start).Seconds())
	p.record(ctx, att, receipt, execErr)

	if execErr != nil {
		p.logger.Warn("execution failed",
			zap.String("kind", string(att.kind)),
			zap.String("actor_id", att.actorID),
			zap.String("target_id", att.targetID),
			zap.Error(execErr),
		)
		return nil, fmt.Errorf("%w: %w", ErrTransactionFailed, execErr)
	}
	return receipt, nil
}

// record appends the attempt to the ledger. Ledger failures are logged only.
func (p *Protocol) record(ctx context.Context, att attempt, receipt *wallet.Receipt, execErr error) {
	if p.ledger == nil {
		return
	}

	rec := &domain.ExecutionRecord{
		Kind:       att.kind,
		Status:     domain.ExecutionSucceeded,
		ActorID:    att.actorID,
		TargetID:   att.targetID,
		Ticker:     att.fee.Ticker(),
		FeeTicker:  att.fee.Ticker(),
		Fee:        att.fee.GetStringValue(),
		ExecutedAt: p.now().UnixMilli(),
	}
	if att.primary != nil {
		rec.Ticker = att.primary.Ticker()
		rec.Amount = att.primary.GetStringValue()
	}
	if receipt != nil {
		rec.TxHash = receipt.TxHash
	}
	if execErr != nil {
		rec.Status = domain.ExecutionFailed
		rec.FailReason = execErr.Error()
		var txErr *wallet.TxError
		if errors.As(execErr, &txErr) {
			rec.TxHash = txErr.TxHash
		}
	}
	rec.IntentKey = idhash.ComputeIntentKey(rec.ActorID, rec.Kind, rec.Ticker, rec.Amount, rec.TargetID)
	rec.RecordID = idhash.ComputeRecordID(rec.IntentKey, uuid.NewString(), rec.TxHash, rec.ExecutedAt)

	if err := p.ledger.Insert(ctx, rec); err != nil {
		p.logger.Warn("ledger insert failed",
			zap.String("record_id", rec.RecordID),
			zap.String("tx_hash", rec.TxHash),
			zap.Error(err),
		)
	}
}
