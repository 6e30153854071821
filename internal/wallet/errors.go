package wallet

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientBalance is returned when a per-ticker obligation exceeds
	// the balance, locally or as reported by the network.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrNetwork is returned when the network cannot be read or rejects a
	// transaction for another reason.
	ErrNetwork = errors.New("network error")

	// ErrAlreadyUnlocked is returned by Unlock for an activated account.
	ErrAlreadyUnlocked = errors.New("wallet already unlocked")
)

// TxError describes a transaction the network rejected after submission.
// It unwraps to ErrInsufficientBalance or ErrNetwork.
type TxError struct {
	TxHash string
	Reason string
	cause  error
}

func (e *TxError) Error() string {
	return fmt.Sprintf("transaction %s rejected: %s", e.TxHash, e.Reason)
}

func (e *TxError) Unwrap() error { return e.cause }

// ShortfallError reports the ticker whose obligation is not covered.
// It unwraps to ErrInsufficientBalance.
type ShortfallError struct {
	Ticker string
	Need   string
	Have   string
}

func (e *ShortfallError) Error() string {
	return fmt.Sprintf("insufficient %s balance: need %s, have %s", e.Ticker, e.Need, e.Have)
}

func (e *ShortfallError) Unwrap() error { return ErrInsufficientBalance }
