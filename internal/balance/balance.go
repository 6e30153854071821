// Package balance aggregates per-token balances with their USD values.
package balance

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"l2-tipbot/internal/amount"
	"l2-tipbot/internal/domain"
	"l2-tipbot/internal/logging"
	"l2-tipbot/internal/pricing"
)

// Source reads the balance of one token. Satisfied by *wallet.Wallet.
type Source interface {
	GetBalance(ctx context.Context, token domain.Token) (amount.Amount, error)
}

// Entry is one token balance. USD is nil when no price was available.
type Entry struct {
	Amount amount.Amount
	USD    *decimal.Decimal
}

// Aggregator queries balances and prices concurrently.
type Aggregator struct {
	prices pricing.Feed
	logger *zap.Logger
}

// NewAggregator creates an Aggregator. A nil feed omits every price.
func NewAggregator(prices pricing.Feed, logger *zap.Logger) *Aggregator {
	return &Aggregator{prices: prices, logger: logging.OrNop(logger)}
}

// GetAllBalances returns one entry per token, in the given order, zeros included.
// Any balance error fails the whole call.
func (a *Aggregator) GetAllBalances(ctx context.Context, src Source, tokens []domain.Token) ([]Entry, error) {
	entries := make([]Entry, len(tokens))

	g, gctx := errgroup.WithContext(ctx)
	for i, token := range tokens {
		g.Go(func() error {
			entry, err := a.GetBalance(gctx, src, token)
			if err != nil {
				return err
			}
			entries[i] = entry
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return entries, nil
}

// GetBalance returns the balance of one token with its USD value.
func (a *Aggregator) GetBalance(ctx context.Context, src Source, token domain.Token) (Entry, error) {
	bal, err := src.GetBalance(ctx, token)
	if err != nil {
		return Entry{}, fmt.Errorf("balance %s: %w", token.Ticker, err)
	}
	return Entry{Amount: bal, USD: a.USDValue(ctx, bal)}, nil
}

// USDValue prices an amount, or returns nil when the price is unavailable.
// Zero amounts are worth zero without a lookup.
func (a *Aggregator) USDValue(ctx context.Context, amt amount.Amount) *decimal.Decimal {
	if amt.IsZero() {
		zero := decimal.Zero
		return &zero
	}
	if a.prices == nil {
		return nil
	}
	price, err := a.prices.Price(ctx, amt.Ticker())
	if err != nil {
		a.logger.Warn("price unavailable",
			zap.String("ticker", amt.Ticker()),
			zap.Error(err),
		)
		return nil
	}
	usd := amt.Mul(price)
	return &usd
}

// AllZero reports whether every entry holds a zero balance.
func AllZero(entries []Entry) bool {
	for _, e := range entries {
		if !e.Amount.IsZero() {
			return false
		}
	}
	return true
}
