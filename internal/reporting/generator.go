package reporting

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"l2-tipbot/internal/domain"
	"l2-tipbot/internal/storage"
)

// Generator builds histories from the execution ledger.
type Generator struct {
	store storage.ExecutionStore
	now   func() time.Time
}

// NewGenerator creates a Generator.
func NewGenerator(store storage.ExecutionStore) *Generator {
	return &Generator{store: store, now: time.Now}
}

// History loads and summarises every record of actorID.
func (g *Generator) History(ctx context.Context, actorID string) (*History, error) {
	records, err := g.store.GetByActor(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("load executions: %w", err)
	}
	summary, err := summarize(records)
	if err != nil {
		return nil, err
	}
	return &History{
		ActorID:     actorID,
		GeneratedAt: g.now().UnixMilli(),
		Records:     records,
		Summary:     summary,
	}, nil
}

func summarize(records []*domain.ExecutionRecord) (Summary, error) {
	s := Summary{Total: len(records)}
	sent := make(map[string]decimal.Decimal)
	fees := make(map[string]decimal.Decimal)

	for _, r := range records {
		switch r.Kind {
		case domain.ExecutionTransfer:
			s.Transfers++
		case domain.ExecutionUnlock:
			s.Unlocks++
		}
		if r.Status != domain.ExecutionSucceeded {
			s.Failed++
			continue
		}
		s.Succeeded++

		if r.Amount != "" {
			if err := addTo(sent, r.Ticker, r.Amount); err != nil {
				return s, fmt.Errorf("record %s: %w", r.RecordID, err)
			}
		}
		if r.Fee != "" {
			if err := addTo(fees, r.FeeTicker, r.Fee); err != nil {
				return s, fmt.Errorf("record %s: %w", r.RecordID, err)
			}
		}
	}

	s.Sent = totals(sent)
	s.FeesPaid = totals(fees)
	return s, nil
}

func addTo(m map[string]decimal.Decimal, ticker, text string) error {
	v, err := decimal.NewFromString(text)
	if err != nil {
		return fmt.Errorf("amount %q: %w", text, err)
	}
	m[ticker] = m[ticker].Add(v)
	return nil
}

func totals(m map[string]decimal.Decimal) []TickerTotal {
	out := make([]TickerTotal, 0, len(m))
	for ticker, v := range m {
		out = append(out, TickerTotal{Ticker: ticker, Amount: v.String()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticker < out[j].Ticker })
	return out
}
