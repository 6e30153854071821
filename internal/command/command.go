// Package command turns raw chat commands into typed requests.
package command

import (
	"errors"
	"fmt"
	"strings"

	"l2-tipbot/internal/domain"
)

// Option names.
const (
	OptAmount  = "amount"
	OptTicker  = "ticker"
	OptUser    = "user"
	OptConfirm = "confirm"
)

var (
	// ErrUnknownCommand is returned for command names outside the command set.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrUsage is returned when a command needs options and none were given.
	ErrUsage = errors.New("command usage requested")

	// ErrMissingActor is returned when the invoking user is unknown.
	ErrMissingActor = errors.New("missing actor id")
)

// MissingOptionsError lists required options that were not supplied,
// in canonical order.
type MissingOptionsError struct {
	Names []string
}

func (e *MissingOptionsError) Error() string {
	return "missing options: " + strings.Join(e.Names, ", ")
}

// UsageError carries the command name the user typed, so help text can echo it.
type UsageError struct {
	Command string
}

func (e *UsageError) Error() string { return fmt.Sprintf("%s: %s", e.Command, ErrUsage) }

func (e *UsageError) Unwrap() error { return ErrUsage }

// Option is one named argument of a raw command.
type Option struct {
	Name  string
	Value string
}

// Raw is a command as received from a transport.
type Raw struct {
	Name    string
	ActorID string
	Options []Option
}

// GetOption returns the trimmed value of the named option. Names match
// case-insensitively; empty values count as absent.
func GetOption(raw Raw, name string) (string, bool) {
	for _, opt := range raw.Options {
		if strings.EqualFold(opt.Name, name) {
			v := strings.TrimSpace(opt.Value)
			return v, v != ""
		}
	}
	return "", false
}

var aliases = map[string]domain.CommandKind{
	"help":        domain.CommandHelp,
	"balance":     domain.CommandBalance,
	"send":        domain.CommandSend,
	"tip":         domain.CommandSend,
	"unlock":      domain.CommandUnlock,
	"tokens":      domain.CommandTokens,
	"list-tokens": domain.CommandTokens,
}

// Kind resolves a command name or alias.
func Kind(name string) (domain.CommandKind, error) {
	kind, ok := aliases[strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "/"))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}
	return kind, nil
}

// Parse validates the option set of raw. The returned request carries the
// resolved Kind even when err is a usage or missing-options error.
func Parse(raw Raw) (domain.CommandRequest, error) {
	kind, err := Kind(raw.Name)
	if err != nil {
		return domain.CommandRequest{}, err
	}

	req := domain.CommandRequest{Kind: kind, ActorID: strings.TrimSpace(raw.ActorID)}
	if req.ActorID == "" {
		return req, ErrMissingActor
	}

	switch kind {
	case domain.CommandBalance:
		req.Ticker = tickerOption(raw)

	case domain.CommandUnlock:
		req.Ticker = tickerOption(raw)
		_, req.Confirmed = GetOption(raw, OptConfirm)

	case domain.CommandSend:
		return parseSend(raw, req)
	}
	return req, nil
}

func parseSend(raw Raw, req domain.CommandRequest) (domain.CommandRequest, error) {
	amountText, hasAmount := GetOption(raw, OptAmount)
	ticker := tickerOption(raw)
	user, hasUser := GetOption(raw, OptUser)

	if !hasAmount && ticker == "" && !hasUser {
		return req, &UsageError{Command: strings.ToLower(strings.TrimPrefix(strings.TrimSpace(raw.Name), "/"))}
	}

	var missing []string
	if !hasAmount {
		missing = append(missing, OptAmount)
	}
	if ticker == "" {
		missing = append(missing, OptTicker)
	}
	target := NormalizeTarget(user)
	if target == "" {
		missing = append(missing, OptUser)
	}
	if len(missing) > 0 {
		return req, &MissingOptionsError{Names: missing}
	}

	req.AmountText = amountText
	req.Ticker = ticker
	req.TargetID = target
	_, req.Confirmed = GetOption(raw, OptConfirm)
	return req, nil
}

func tickerOption(raw Raw) string {
	v, _ := GetOption(raw, OptTicker)
	return domain.NormalizeTicker(v)
}

// NormalizeTarget strips mention decoration: "<@123>", "<@!123>" and "@123" all yield "123".
func NormalizeTarget(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "<@") && strings.HasSuffix(s, ">") {
		s = strings.TrimSuffix(strings.TrimPrefix(s, "<@"), ">")
		s = strings.TrimPrefix(s, "!")
	}
	return strings.TrimSpace(strings.TrimPrefix(s, "@"))
}

// Mention renders a user id the way NormalizeTarget accepts it back.
func Mention(userID string) string {
	return "@" + userID
}
