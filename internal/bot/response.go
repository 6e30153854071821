package bot

import (
	"github.com/shopspring/decimal"

	"l2-tipbot/internal/balance"
	"l2-tipbot/internal/domain"
	"l2-tipbot/internal/intent"
)

// ResponseKind selects how a Response is presented.
type ResponseKind string

const (
	KindHelp      ResponseKind = "help"
	KindBalance   ResponseKind = "balance"
	KindTokenList ResponseKind = "token_list"
	KindPreview   ResponseKind = "preview"
	KindOutcome   ResponseKind = "outcome"
	KindInfo      ResponseKind = "info"
	KindFailure   ResponseKind = "failure"
)

// FailureKind is the user-facing class of an error.
type FailureKind string

const (
	FailInvalidAmount     FailureKind = "invalid_amount"
	FailTokenNotFound     FailureKind = "token_not_found"
	FailInvalidTarget     FailureKind = "invalid_target"
	FailMissingOptions    FailureKind = "missing_options"
	FailUsage             FailureKind = "usage"
	FailUnknownCommand    FailureKind = "unknown_command"
	FailTransactionFailed FailureKind = "transaction_failed"
	FailServerError       FailureKind = "server_error"
)

// Response is the presentation-independent answer to one command.
type Response struct {
	Kind    ResponseKind
	Command domain.CommandKind

	// Balance
	Ticker   string // set for a single-token balance
	Balances []balance.Entry

	// TokenList
	Tokens []domain.Token

	// Preview and Outcome, with USD values when priced
	Preview    *intent.Preview
	Outcome    *intent.Outcome
	PrimaryUSD *decimal.Decimal
	FeeUSD     *decimal.Decimal

	// Info
	Info *intent.Info

	// Failure
	Failure        FailureKind
	MissingOptions []string
	UsageCommand   string
}

// Failed reports whether the response is a failure.
func (r Response) Failed() bool { return r.Kind == KindFailure }
