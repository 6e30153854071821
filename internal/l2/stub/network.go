// Package stub provides an in-memory L2 network for tests.
package stub

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"l2-tipbot/internal/keys"
	"l2-tipbot/internal/l2"
)

// ErrNotFound is returned when a price or fee is not configured.
var ErrNotFound = errors.New("not found")

// Error codes reported by the stub for rejected transactions.
const (
	CodeTxRejected = 101
)

type account struct {
	id       uint32
	balances map[string]*big.Int
	nonce    uint32
	pkHash   string
}

// Network implements l2.Client and l2.TxWatcher in memory. Transactions are
// verified and applied atomically at submission.
type Network struct {
	mu       sync.Mutex
	accounts map[string]*account
	nextID   uint32
	fees     map[l2.TxType]map[string]*big.Int
	prices   map[string]decimal.Decimal
	tokens   []l2.TokenInfo
	statuses map[string]l2.TxStatus

	// Submitted records every accepted transaction.
	Submitted []interface{}

	// SubmitErr, when set, fails every submission without applying it.
	SubmitErr error

	// StateErr, when set, fails every account state query.
	StateErr error
}

// NewNetwork creates an empty network.
func NewNetwork() *Network {
	return &Network{
		accounts: make(map[string]*account),
		nextID:   1,
		fees:     make(map[l2.TxType]map[string]*big.Int),
		prices:   make(map[string]decimal.Decimal),
		statuses: make(map[string]l2.TxStatus),
	}
}

// Fund credits base units to an address, registering the account if needed.
func (n *Network) Fund(address, ticker string, units *big.Int) {
	n.mu.Lock()
	defer n.mu.Unlock()

	acc := n.accountLocked(address)
	bal := acc.balances[ticker]
	if bal == nil {
		bal = new(big.Int)
	}
	acc.balances[ticker] = new(big.Int).Add(bal, units)
}

// SetUnlocked marks an address as having registered a signing key.
func (n *Network) SetUnlocked(address string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.accountLocked(address).pkHash = "sync:" + strings.Repeat("ab", 20)
}

// SetFee configures the quote for a transaction type in a ticker.
func (n *Network) SetFee(txType l2.TxType, ticker string, units *big.Int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fees[txType] == nil {
		n.fees[txType] = make(map[string]*big.Int)
	}
	n.fees[txType][ticker] = units
}

// SetPrice configures the USD price of a ticker.
func (n *Network) SetPrice(ticker string, price decimal.Decimal) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.prices[ticker] = price
}

// AddToken registers a network token.
func (n *Network) AddToken(t l2.TokenInfo) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.tokens = append(n.tokens, t)
}

// accountLocked returns the account for address, creating it. Caller holds mu.
func (n *Network) accountLocked(address string) *account {
	key := strings.ToLower(address)
	acc, ok := n.accounts[key]
	if !ok {
		acc = &account{id: n.nextID, balances: make(map[string]*big.Int)}
		n.nextID++
		n.accounts[key] = acc
	}
	return acc
}

// GetAccountState returns committed state for an address.
func (n *Network) GetAccountState(_ context.Context, address string) (*l2.AccountState, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.StateErr != nil {
		return nil, n.StateErr
	}

	state := &l2.AccountState{
		Address:    address,
		Balances:   make(map[string]*big.Int),
		PubKeyHash: l2.EmptyPubKeyHash,
	}
	acc, ok := n.accounts[strings.ToLower(address)]
	if !ok {
		return state, nil
	}

	id := acc.id
	state.ID = &id
	state.Nonce = acc.nonce
	if acc.pkHash != "" {
		state.PubKeyHash = acc.pkHash
	}
	for t, b := range acc.balances {
		state.Balances[t] = new(big.Int).Set(b)
	}
	return state, nil
}

// GetTxFee returns the configured quote.
func (n *Network) GetTxFee(_ context.Context, txType l2.TxType, _ string, ticker string) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	fee, ok := n.fees[txType][ticker]
	if !ok {
		return nil, fmt.Errorf("fee %s/%s: %w", txType, ticker, ErrNotFound)
	}
	return new(big.Int).Set(fee), nil
}

// GetTokenPrice returns the configured price.
func (n *Network) GetTokenPrice(_ context.Context, ticker string) (decimal.Decimal, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	p, ok := n.prices[ticker]
	if !ok {
		return decimal.Zero, fmt.Errorf("price %s: %w", ticker, ErrNotFound)
	}
	return p, nil
}

// GetTokens returns registered tokens.
func (n *Network) GetTokens(_ context.Context) ([]l2.TokenInfo, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]l2.TokenInfo(nil), n.tokens...), nil
}

// SubmitTx verifies and applies a transfer or unlock.
func (n *Network) SubmitTx(_ context.Context, tx interface{}, sig *l2.EthSignature) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.SubmitErr != nil {
		return "", n.SubmitErr
	}

	var (
		err  error
		hash string
	)
	switch t := tx.(type) {
	case *l2.Transfer:
		if err = verify(t.Message(), sig, t.From); err == nil {
			err = n.applyTransfer(t)
		}
	case *l2.ChangePubKey:
		if err = verify(t.Message(), sig, t.Account); err == nil {
			err = n.applyChangePubKey(t)
		}
	default:
		err = fmt.Errorf("unsupported transaction %T", tx)
	}
	if err != nil {
		return "", err
	}

	n.Submitted = append(n.Submitted, tx)
	hash = fmt.Sprintf("sync-tx:%064x", len(n.Submitted))
	success := true
	block := uint64(len(n.Submitted))
	n.statuses[hash] = l2.TxStatus{Executed: true, Success: &success, Block: &block}
	return hash, nil
}

func verify(msg []byte, sig *l2.EthSignature, signer string) error {
	if sig == nil {
		return &l2.RPCError{Code: CodeTxRejected, Message: "missing signature"}
	}
	raw, err := hex.DecodeString(strings.TrimPrefix(sig.Signature, "0x"))
	if err != nil {
		return &l2.RPCError{Code: CodeTxRejected, Message: "malformed signature"}
	}
	addr, err := keys.RecoverAddress(msg, raw)
	if err != nil || !strings.EqualFold(addr, signer) {
		return &l2.RPCError{Code: CodeTxRejected, Message: "Eth signature is incorrect"}
	}
	return nil
}

func parseUnits(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, &l2.RPCError{Code: CodeTxRejected, Message: "invalid amount " + s}
	}
	return v, nil
}

// debit checks every per-ticker obligation before touching any balance.
func debit(acc *account, obligations map[string]*big.Int) error {
	for ticker, need := range obligations {
		have := acc.balances[ticker]
		if have == nil || have.Cmp(need) < 0 {
			return &l2.RPCError{Code: CodeTxRejected, Message: "Not enough balance"}
		}
	}
	for ticker, need := range obligations {
		acc.balances[ticker] = new(big.Int).Sub(acc.balances[ticker], need)
	}
	return nil
}

func addObligation(m map[string]*big.Int, ticker string, v *big.Int) {
	if cur, ok := m[ticker]; ok {
		m[ticker] = new(big.Int).Add(cur, v)
		return
	}
	m[ticker] = new(big.Int).Set(v)
}

func (n *Network) checkAccount(address string, accountID, nonce uint32) (*account, error) {
	acc, ok := n.accounts[strings.ToLower(address)]
	if !ok {
		return nil, &l2.RPCError{Code: CodeTxRejected, Message: "Account does not exist"}
	}
	if acc.id != accountID {
		return nil, &l2.RPCError{Code: CodeTxRejected, Message: "Account id mismatch"}
	}
	if acc.nonce != nonce {
		return nil, &l2.RPCError{Code: CodeTxRejected, Message: "Nonce mismatch"}
	}
	return acc, nil
}

func (n *Network) applyTransfer(t *l2.Transfer) error {
	from, err := n.checkAccount(t.From, t.AccountID, t.Nonce)
	if err != nil {
		return err
	}
	amount, err := parseUnits(t.Amount)
	if err != nil {
		return err
	}
	fee, err := parseUnits(t.Fee)
	if err != nil {
		return err
	}

	obligations := make(map[string]*big.Int)
	addObligation(obligations, t.Token, amount)
	addObligation(obligations, t.FeeToken, fee)
	if err := debit(from, obligations); err != nil {
		return err
	}

	to := n.accountLocked(t.To)
	bal := to.balances[t.Token]
	if bal == nil {
		bal = new(big.Int)
	}
	to.balances[t.Token] = new(big.Int).Add(bal, amount)
	from.nonce++
	return nil
}

func (n *Network) applyChangePubKey(c *l2.ChangePubKey) error {
	acc, err := n.checkAccount(c.Account, c.AccountID, c.Nonce)
	if err != nil {
		return err
	}
	fee, err := parseUnits(c.Fee)
	if err != nil {
		return err
	}
	if err := debit(acc, map[string]*big.Int{c.FeeToken: fee}); err != nil {
		return err
	}
	acc.pkHash = c.NewPkHash
	acc.nonce++
	return nil
}

// WaitTx returns the recorded status of a submitted transaction.
func (n *Network) WaitTx(ctx context.Context, hash string) (*l2.TxStatus, error) {
	n.mu.Lock()
	status, ok := n.statuses[hash]
	n.mu.Unlock()
	if !ok {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return &status, nil
}

// Close implements l2.TxWatcher.
func (n *Network) Close() error { return nil }

var (
	_ l2.Client    = (*Network)(nil)
	_ l2.TxWatcher = (*Network)(nil)
)
