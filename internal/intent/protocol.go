// Package intent implements the two-phase preview/confirm protocol for
// transfers and unlocks. Nothing is kept between a preview and its confirm:
// a confirm re-validates and re-quotes everything, then executes.
package intent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"l2-tipbot/internal/amount"
	"l2-tipbot/internal/domain"
	"l2-tipbot/internal/lock"
	"l2-tipbot/internal/logging"
	"l2-tipbot/internal/registry"
	"l2-tipbot/internal/storage"
	"l2-tipbot/internal/wallet"
)

// Titles shared by previews and outcomes.
const (
	TransferTitle = "Transfer tokens"
	unlockTitle   = "Unlock with %s"
)

var (
	// ErrInvalidAmount covers malformed, negative, zero and dust amounts.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrSelfTransfer is returned when the target is the actor.
	ErrSelfTransfer = errors.New("cannot send to yourself")

	// ErrTokenNotFound is returned for tickers outside the registry.
	ErrTokenNotFound = registry.ErrTokenNotFound

	// ErrTransactionFailed wraps every failure of a confirmed execution.
	ErrTransactionFailed = errors.New("transaction failed")
)

// Tokens resolves tickers. Satisfied by *registry.Registry.
type Tokens interface {
	FindToken(ctx context.Context, ticker string) (domain.Token, error)
}

// Wallets resolves users to wallets. Satisfied by *wallet.Provider.
type Wallets interface {
	GetOrCreate(ctx context.Context, userID string) (*wallet.Wallet, error)
}

// Protocol runs send and unlock intents.
type Protocol struct {
	tokens  Tokens
	wallets Wallets
	locker  lock.Locker
	ledger  storage.ExecutionStore
	logger  *zap.Logger
	now     func() time.Time
}

// Option configures a Protocol.
type Option func(*Protocol)

// WithLocker serialises confirm executions per actor.
func WithLocker(l lock.Locker) Option {
	return func(p *Protocol) { p.locker = l }
}

// WithLedger records every executed attempt.
func WithLedger(s storage.ExecutionStore) Option {
	return func(p *Protocol) { p.ledger = s }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Protocol) { p.logger = logging.OrNop(l) }
}

// WithClock overrides the execution timestamp source.
func WithClock(now func() time.Time) Option {
	return func(p *Protocol) { p.now = now }
}

// New creates a Protocol.
func New(tokens Tokens, wallets Wallets, opts ...Option) *Protocol {
	p := &Protocol{
		tokens:  tokens,
		wallets: wallets,
		locker:  lock.Noop{},
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Send previews or, when confirmed, executes a transfer.
func (p *Protocol) Send(ctx context.Context, req domain.CommandRequest) (*Result, error) {
	token, err := p.tokens.FindToken(ctx, req.Ticker)
	if err != nil {
		return nil, err
	}

	amt, err := amount.FromText(token, req.AmountText)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAmount, err)
	}
	if !amt.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidAmount)
	}

	// A self transfer would only burn the fee.
	if req.TargetID == req.ActorID {
		return nil, ErrSelfTransfer
	}

	actor, err := p.wallets.GetOrCreate(ctx, req.ActorID)
	if err != nil {
		return nil, fmt.Errorf("actor wallet: %w", err)
	}
	target, err := p.wallets.GetOrCreate(ctx, req.TargetID)
	if err != nil {
		return nil, fmt.Errorf("target wallet: %w", err)
	}

	primary := amt.GetClosestPackable()
	if primary.IsZero() {
		return nil, fmt.Errorf("%w: %s is below the smallest unit", ErrInvalidAmount, req.AmountText)
	}

	quote, err := actor.GetTransferFee(ctx, token, target.Address())
	if err != nil {
		return nil, err
	}
	fee := quote.GetClosestPackableFee()

	if !req.Confirmed {
		return &Result{Preview: &Preview{
			Title:       TransferTitle,
			Primary:     &primary,
			Fee:         fee,
			Instruction: fmt.Sprintf("/send %s %s @%s confirm", req.AmountText, token.Ticker, req.TargetID),
		}}, nil
	}

	att := attempt{
		kind:     domain.ExecutionTransfer,
		actorID:  req.ActorID,
		targetID: req.TargetID,
		primary:  &primary,
		fee:      fee,
	}
	receipt, err := p.execute(ctx, att, func() (*wallet.Receipt, error) {
		return actor.Transfer(ctx, target.Address(), primary, fee)
	})
	if err != nil {
		return nil, err
	}

	return &Result{Outcome: &Outcome{
		Title:     TransferTitle,
		Primary:   receipt.Primary,
		Fee:       receipt.Fee,
		TxHash:    receipt.TxHash,
		Committed: receipt.Committed,
	}}, nil
}

// Unlock explains, previews or, when confirmed, executes wallet activation.
// An activated wallet always gets the informational answer.
func (p *Protocol) Unlock(ctx context.Context, req domain.CommandRequest) (*Result, error) {
	actor, err := p.wallets.GetOrCreate(ctx, req.ActorID)
	if err != nil {
		return nil, fmt.Errorf("actor wallet: %w", err)
	}

	unlocked, err := actor.GetUnlocked(ctx)
	if err != nil {
		return nil, err
	}
	if unlocked {
		return &Result{Info: &Info{Kind: InfoAlreadyUnlocked}}, nil
	}
	if req.Ticker == "" {
		return &Result{Info: &Info{Kind: InfoUnlockInstructions}}, nil
	}

	token, err := p.tokens.FindToken(ctx, req.Ticker)
	if err != nil {
		return nil, err
	}

	quote, err := actor.GetUnlockFee(ctx, token)
	if err != nil {
		return nil, err
	}
	fee := quote.GetClosestPackableFee()
	title := fmt.Sprintf(unlockTitle, token.Ticker)

	if !req.Confirmed {
		return &Result{Preview: &Preview{
			Title:       title,
			Fee:         fee,
			Instruction: fmt.Sprintf("/unlock %s confirm", token.Ticker),
		}}, nil
	}

	att := attempt{kind: domain.ExecutionUnlock, actorID: req.ActorID, fee: fee}
	receipt, err := p.execute(ctx, att, func() (*wallet.Receipt, error) {
		return actor.Unlock(ctx, fee)
	})
	if errors.Is(err, wallet.ErrAlreadyUnlocked) {
		return &Result{Info: &Info{Kind: InfoAlreadyUnlocked}}, nil
	}
	if err != nil {
		return nil, err
	}

	return &Result{Outcome: &Outcome{
		Title:     title,
		Fee:       receipt.Fee,
		TxHash:    receipt.TxHash,
		Committed: receipt.Committed,
	}}, nil
}
