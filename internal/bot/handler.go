// Package bot dispatches parsed commands and renders their responses.
package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"l2-tipbot/internal/amount"
	"l2-tipbot/internal/balance"
	"l2-tipbot/internal/command"
	"l2-tipbot/internal/domain"
	"l2-tipbot/internal/intent"
	"l2-tipbot/internal/logging"
	"l2-tipbot/internal/observability"
	"l2-tipbot/internal/wallet"
)

const priceTimeout = 5 * time.Second

// Registry lists and resolves supported tokens.
type Registry interface {
	FindToken(ctx context.Context, ticker string) (domain.Token, error)
	List(ctx context.Context) ([]domain.Token, error)
}

// Handler answers commands. It never returns errors: every failure becomes
// a failure Response.
type Handler struct {
	registry Registry
	wallets  intent.Wallets
	protocol *intent.Protocol
	balances *balance.Aggregator
	logger   *zap.Logger
}

// NewHandler creates a Handler.
func NewHandler(registry Registry, wallets intent.Wallets, protocol *intent.Protocol, balances *balance.Aggregator, logger *zap.Logger) *Handler {
	return &Handler{
		registry: registry,
		wallets:  wallets,
		protocol: protocol,
		balances: balances,
		logger:   logging.OrNop(logger),
	}
}

// Handle parses raw and answers it.
func (h *Handler) Handle(ctx context.Context, raw command.Raw) Response {
	req, err := command.Parse(raw)
	if err != nil {
		resp := h.failure(err, req)
		observability.RecordCommand(string(req.Kind), string(resp.Failure), 0)
		return resp
	}
	return h.HandleRequest(ctx, req)
}

// HandleRequest answers a parsed request. Panics become server errors.
func (h *Handler) HandleRequest(ctx context.Context, req domain.CommandRequest) (resp Response) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			resp = h.failure(fmt.Errorf("panic: %v", r), req)
		}
		label := string(resp.Kind)
		if resp.Failed() {
			label = string(resp.Failure)
		}
		observability.RecordCommand(string(req.Kind), label, time.Since(start).Seconds())
	}()

	var err error
	switch req.Kind {
	case domain.CommandHelp:
		resp = Response{Kind: KindHelp}
	case domain.CommandTokens:
		resp, err = h.tokens(ctx)
	case domain.CommandBalance:
		resp, err = h.balance(ctx, req)
	case domain.CommandSend:
		resp, err = h.fromResult(ctx)(h.protocol.Send(ctx, req))
	case domain.CommandUnlock:
		resp, err = h.fromResult(ctx)(h.protocol.Unlock(ctx, req))
	default:
		err = fmt.Errorf("%w: %q", command.ErrUnknownCommand, req.Kind)
	}
	if err != nil {
		return h.failure(err, req)
	}
	resp.Command = req.Kind
	return resp
}

func (h *Handler) tokens(ctx context.Context) (Response, error) {
	tokens, err := h.registry.List(ctx)
	if err != nil {
		return Response{}, err
	}
	return Response{Kind: KindTokenList, Tokens: tokens}, nil
}

func (h *Handler) balance(ctx context.Context, req domain.CommandRequest) (Response, error) {
	w, err := h.wallets.GetOrCreate(ctx, req.ActorID)
	if err != nil {
		return Response{}, err
	}

	if req.Ticker != "" {
		token, err := h.registry.FindToken(ctx, req.Ticker)
		if err != nil {
			return Response{}, err
		}
		entry, err := h.balances.GetBalance(ctx, w, token)
		if err != nil {
			return Response{}, err
		}
		return Response{Kind: KindBalance, Ticker: token.Ticker, Balances: []balance.Entry{entry}}, nil
	}

	tokens, err := h.registry.List(ctx)
	if err != nil {
		return Response{}, err
	}
	entries, err := h.balances.GetAllBalances(ctx, w, tokens)
	if err != nil {
		return Response{}, err
	}
	return Response{Kind: KindBalance, Balances: entries}, nil
}

// fromResult returns a converter so intent calls can be passed through
// directly with their two return values.
func (h *Handler) fromResult(parent context.Context) func(*intent.Result, error) (Response, error) {
	return func(res *intent.Result, err error) (Response, error) {
		if err != nil {
			return Response{}, err
		}
		return h.present(parent, res)
	}
}

func (h *Handler) present(parent context.Context, res *intent.Result) (Response, error) {
	// Prices are display-only; a slow feed must not hold up the answer.
	ctx, cancel := context.WithTimeout(parent, priceTimeout)
	defer cancel()

	switch {
	case res.Preview != nil:
		resp := Response{Kind: KindPreview, Preview: res.Preview}
		resp.PrimaryUSD, resp.FeeUSD = h.prices(ctx, res.Preview.Primary, res.Preview.Fee)
		return resp, nil
	case res.Outcome != nil:
		resp := Response{Kind: KindOutcome, Outcome: res.Outcome}
		resp.PrimaryUSD, resp.FeeUSD = h.prices(ctx, res.Outcome.Primary, res.Outcome.Fee)
		return resp, nil
	case res.Info != nil:
		return Response{Kind: KindInfo, Info: res.Info}, nil
	}
	return Response{}, errors.New("empty intent result")
}

func (h *Handler) prices(ctx context.Context, primary *amount.Packed, fee amount.Packed) (primaryUSD, feeUSD *decimal.Decimal) {
	if primary != nil {
		primaryUSD = h.balances.USDValue(ctx, primary.Amount)
	}
	return primaryUSD, h.balances.USDValue(ctx, fee.Amount)
}

// failure maps an error to its user-facing class. Unexpected errors are
// logged here, since the user only ever sees "Server Error.".
func (h *Handler) failure(err error, req domain.CommandRequest) Response {
	resp := Response{Kind: KindFailure, Command: req.Kind}

	var (
		missing *command.MissingOptionsError
		usage   *command.UsageError
	)
	switch {
	case errors.Is(err, intent.ErrInvalidAmount),
		errors.Is(err, amount.ErrMalformed),
		errors.Is(err, amount.ErrNegativeAmount):
		resp.Failure = FailInvalidAmount

	case errors.Is(err, intent.ErrTokenNotFound):
		resp.Failure = FailTokenNotFound

	case errors.Is(err, intent.ErrSelfTransfer):
		resp.Failure = FailInvalidTarget

	case errors.As(err, &missing):
		resp.Failure = FailMissingOptions
		resp.MissingOptions = missing.Names

	case errors.As(err, &usage):
		resp.Failure = FailUsage
		resp.UsageCommand = usage.Command

	case errors.Is(err, command.ErrUnknownCommand):
		resp.Failure = FailUnknownCommand

	case errors.Is(err, amount.ErrTickerMismatch):
		h.logger.Error("ticker mismatch in amount arithmetic",
			zap.String("command", string(req.Kind)),
			zap.String("actor_id", req.ActorID),
			zap.Error(err),
		)
		resp.Failure = FailServerError

	case errors.Is(err, intent.ErrTransactionFailed),
		errors.Is(err, wallet.ErrInsufficientBalance),
		errors.Is(err, wallet.ErrNetwork):
		h.logger.Info("transaction failed",
			zap.String("command", string(req.Kind)),
			zap.String("actor_id", req.ActorID),
			zap.Error(err),
		)
		resp.Failure = FailTransactionFailed

	default:
		h.logger.Error("command failed",
			zap.String("command", string(req.Kind)),
			zap.String("actor_id", req.ActorID),
			zap.String("ticker", req.Ticker),
			zap.Error(err),
		)
		resp.Failure = FailServerError
	}
	return resp
}
