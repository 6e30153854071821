// Package reporting renders an actor's execution ledger as CSV or Markdown.
package reporting

import "l2-tipbot/internal/domain"

// History is the execution ledger of one actor.
type History struct {
	ActorID     string
	GeneratedAt int64 // ms
	Records     []*domain.ExecutionRecord
	Summary     Summary
}

// Summary aggregates a History.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
	Transfers int
	Unlocks   int
	// Sent and FeesPaid hold decimal text per ticker, succeeded records only.
	Sent     []TickerTotal
	FeesPaid []TickerTotal
}

// TickerTotal is a summed amount of one token.
type TickerTotal struct {
	Ticker string
	Amount string
}
