// Package wallet is the custodial wallet facade over the L2 network: balances,
// activation state, fee quotes, transfers and unlocks.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"

	"l2-tipbot/internal/amount"
	"l2-tipbot/internal/domain"
	"l2-tipbot/internal/keys"
	"l2-tipbot/internal/l2"
)

// Receipt is the result of a submitted transaction.
// Committed is false when no commit notification arrived in time.
type Receipt struct {
	TxHash    string
	Primary   *amount.Packed // nil for unlocks
	Fee       amount.Packed
	Committed bool
}

// Wallet is one user's custodial account.
type Wallet struct {
	ownerID       string
	signer        *keys.Signer
	client        l2.Client
	watcher       l2.TxWatcher
	commitTimeout time.Duration
	logger        *zap.Logger
}

// Address returns the hex address of the wallet.
func (w *Wallet) Address() string { return w.signer.Address() }

// OwnerID returns the chat user id that owns the wallet.
func (w *Wallet) OwnerID() string { return w.ownerID }

func (w *Wallet) state(ctx context.Context) (*l2.AccountState, error) {
	state, err := w.client.GetAccountState(ctx, w.Address())
	if err != nil {
		return nil, fmt.Errorf("%w: account state: %w", ErrNetwork, err)
	}
	return state, nil
}

// GetBalance returns the committed balance of token, zero if never funded.
func (w *Wallet) GetBalance(ctx context.Context, token domain.Token) (amount.Amount, error) {
	state, err := w.state(ctx)
	if err != nil {
		return amount.Amount{}, err
	}
	return amount.FromBaseUnits(token, state.Balance(token.Ticker)), nil
}

// GetUnlocked reports whether the wallet has registered its signing key.
func (w *Wallet) GetUnlocked(ctx context.Context) (bool, error) {
	state, err := w.state(ctx)
	if err != nil {
		return false, err
	}
	return state.Unlocked(), nil
}

// GetUnlockFee quotes the activation fee in token.
func (w *Wallet) GetUnlockFee(ctx context.Context, token domain.Token) (amount.Amount, error) {
	units, err := w.client.GetTxFee(ctx, l2.TxChangePubKey, w.Address(), token.Ticker)
	if err != nil {
		return amount.Amount{}, fmt.Errorf("%w: unlock fee: %w", ErrNetwork, err)
	}
	return amount.FromBaseUnits(token, units), nil
}

// GetTransferFee quotes the fee of a transfer of token to targetAddress.
func (w *Wallet) GetTransferFee(ctx context.Context, token domain.Token, targetAddress string) (amount.Amount, error) {
	units, err := w.client.GetTxFee(ctx, l2.TxTransfer, targetAddress, token.Ticker)
	if err != nil {
		return amount.Amount{}, fmt.Errorf("%w: transfer fee: %w", ErrNetwork, err)
	}
	return amount.FromBaseUnits(token, units), nil
}

// Transfer sends primary to targetAddress paying fee. Balances are checked per
// ticker before signing; the transaction is submitted once and never retried.
func (w *Wallet) Transfer(ctx context.Context, targetAddress string, primary, fee amount.Packed) (*Receipt, error) {
	state, err := w.state(ctx)
	if err != nil {
		return nil, err
	}
	if err := checkObligations(state, primary.Amount, fee.Amount); err != nil {
		return nil, err
	}
	if state.ID == nil {
		return nil, fmt.Errorf("%w: %w", ErrNetwork, l2.ErrAccountNotFound)
	}

	tx := l2.NewTransfer(*state.ID, w.Address(), targetAddress,
		primary.Ticker(), primary.BaseUnits().String(),
		fee.Ticker(), fee.BaseUnits().String(),
		state.Nonce,
	)
	hash, err := w.submit(ctx, tx, tx.Message())
	if err != nil {
		return nil, err
	}

	receipt := &Receipt{TxHash: hash, Primary: &primary, Fee: fee}
	w.logger.Info("transfer submitted",
		zap.String("tx_hash", hash),
		zap.String("to", targetAddress),
		zap.String("amount", primary.String()),
		zap.String("fee", fee.String()),
	)
	if err := w.awaitCommit(ctx, receipt); err != nil {
		return nil, err
	}
	return receipt, nil
}

// Unlock registers the wallet's signing key paying fee.
func (w *Wallet) Unlock(ctx context.Context, fee amount.Packed) (*Receipt, error) {
	state, err := w.state(ctx)
	if err != nil {
		return nil, err
	}
	if state.Unlocked() {
		return nil, ErrAlreadyUnlocked
	}
	if err := checkObligations(state, fee.Amount); err != nil {
		return nil, err
	}
	if state.ID == nil {
		return nil, fmt.Errorf("%w: %w", ErrNetwork, l2.ErrAccountNotFound)
	}

	tx := l2.NewChangePubKey(*state.ID, w.Address(), w.signer.PubKeyHash(),
		fee.Ticker(), fee.BaseUnits().String(), state.Nonce)
	hash, err := w.submit(ctx, tx, tx.Message())
	if err != nil {
		return nil, err
	}

	receipt := &Receipt{TxHash: hash, Fee: fee}
	w.logger.Info("unlock submitted",
		zap.String("tx_hash", hash),
		zap.String("fee", fee.String()),
	)
	if err := w.awaitCommit(ctx, receipt); err != nil {
		return nil, err
	}
	return receipt, nil
}

func (w *Wallet) submit(ctx context.Context, tx interface{}, msg []byte) (string, error) {
	sig, err := w.signer.SignMessage(msg)
	if err != nil {
		return "", err
	}

	hash, err := w.client.SubmitTx(ctx, tx, l2.EncodeSignature(sig))
	if err != nil {
		var rpcErr *l2.RPCError
		if errors.As(err, &rpcErr) && l2.IsInsufficientBalance(rpcErr.Message) {
			return "", fmt.Errorf("%w: %s", ErrInsufficientBalance, rpcErr.Message)
		}
		return "", fmt.Errorf("%w: submit: %w", ErrNetwork, err)
	}
	return hash, nil
}

// awaitCommit waits for the commit notification when a watcher is configured.
// A watcher failure leaves the receipt uncommitted; only a definitive
// rejection is an error.
func (w *Wallet) awaitCommit(ctx context.Context, receipt *Receipt) error {
	if w.watcher == nil {
		return nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, w.commitTimeout)
	defer cancel()

	status, err := w.watcher.WaitTx(waitCtx, receipt.TxHash)
	if err != nil {
		w.logger.Warn("commit notification unavailable",
			zap.String("tx_hash", receipt.TxHash),
			zap.Error(err),
		)
		return nil
	}

	if status.Failed() {
		cause := ErrNetwork
		if l2.IsInsufficientBalance(status.Reason()) {
			cause = ErrInsufficientBalance
		}
		return &TxError{TxHash: receipt.TxHash, Reason: status.Reason(), cause: cause}
	}
	receipt.Committed = true
	return nil
}

// checkObligations sums the amounts per ticker and checks each sum against
// the balance of that ticker.
func checkObligations(state *l2.AccountState, amounts ...amount.Amount) error {
	need := make(map[string]*big.Int)
	var order []string
	for _, a := range amounts {
		cur, ok := need[a.Ticker()]
		if !ok {
			cur = new(big.Int)
			order = append(order, a.Ticker())
		}
		need[a.Ticker()] = cur.Add(cur, a.BaseUnits())
	}

	for _, ticker := range order {
		have := state.Balance(ticker)
		if have.Cmp(need[ticker]) < 0 {
			return &ShortfallError{Ticker: ticker, Need: need[ticker].String(), Have: have.String()}
		}
	}
	return nil
}
