// Package l2 is the client side of the Layer-2 network: account state, fee
// quotes, transaction submission, token prices and commit notifications.
package l2

import (
	"context"
	"errors"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// EmptyPubKeyHash is the signing key hash of an account that was never unlocked.
const EmptyPubKeyHash = "sync:0000000000000000000000000000000000000000"

// ErrAccountNotFound is returned when an operation needs an account the
// network has not assigned an id yet.
var ErrAccountNotFound = errors.New("account not registered on the network")

// Client defines the network capabilities the wallet needs.
type Client interface {
	// GetAccountState returns committed state. Unknown addresses yield an
	// empty state with a nil ID.
	GetAccountState(ctx context.Context, address string) (*AccountState, error)

	// GetTxFee quotes the total fee, in base units of ticker, for a transaction
	// of txType sent by or to address.
	GetTxFee(ctx context.Context, txType TxType, address, ticker string) (*big.Int, error)

	// SubmitTx broadcasts a signed transaction and returns its hash.
	SubmitTx(ctx context.Context, tx interface{}, sig *EthSignature) (string, error)

	// GetTokenPrice returns the USD price of one whole token.
	GetTokenPrice(ctx context.Context, ticker string) (decimal.Decimal, error)

	// GetTokens lists the tokens the network supports.
	GetTokens(ctx context.Context) ([]TokenInfo, error)
}

// TxType names a fee-bearing transaction type.
type TxType string

const (
	TxTransfer     TxType = "Transfer"
	TxChangePubKey TxType = "ChangePubKey"
)

// AccountState is the committed state of one account.
type AccountState struct {
	Address    string
	ID         *uint32 // nil until the account is first funded
	Balances   map[string]*big.Int
	Nonce      uint32
	PubKeyHash string
}

// Unlocked reports whether the account has registered a signing key.
func (s *AccountState) Unlocked() bool {
	return s.PubKeyHash != "" && s.PubKeyHash != EmptyPubKeyHash
}

// Balance returns the base-unit balance for ticker, zero if never funded.
func (s *AccountState) Balance(ticker string) *big.Int {
	if b, ok := s.Balances[ticker]; ok && b != nil {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

// TokenInfo describes a network token.
type TokenInfo struct {
	ID       uint32 `json:"id"`
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Decimals int32  `json:"decimals"`
}

// EthSignature is the Ethereum signature attached to a submitted transaction.
type EthSignature struct {
	Type      string `json:"type"`
	Signature string `json:"signature"`
}

// TxStatus is a commit notification for a submitted transaction.
type TxStatus struct {
	Executed   bool    `json:"executed"`
	Success    *bool   `json:"success"`
	FailReason *string `json:"failReason"`
	Block      *uint64 `json:"block"`
}

// Failed reports whether the network executed and rejected the transaction.
func (s *TxStatus) Failed() bool {
	return s.Executed && s.Success != nil && !*s.Success
}

// Reason returns the failure reason, if any.
func (s *TxStatus) Reason() string {
	if s.FailReason == nil {
		return ""
	}
	return *s.FailReason
}

// IsInsufficientBalance reports whether a network rejection was caused by a
// balance shortfall.
func IsInsufficientBalance(reason string) bool {
	r := strings.ToLower(reason)
	return strings.Contains(r, "not enough balance") || strings.Contains(r, "insufficient")
}
