package intent

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"l2-tipbot/internal/amount"
	"l2-tipbot/internal/domain"
	"l2-tipbot/internal/l2"
	"l2-tipbot/internal/l2/stub"
	"l2-tipbot/internal/registry"
	"l2-tipbot/internal/storage/memory"
	"l2-tipbot/internal/wallet"
	"l2-tipbot/internal/wallet/wallettest"
)

type fixture struct {
	network  *stub.Network
	wallets  *wallet.Provider
	ledger   *memory.ExecutionStore
	protocol *Protocol
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	network := stub.NewNetwork()
	network.SetFee(l2.TxTransfer, "ETH", big.NewInt(1e14))
	network.SetFee(l2.TxTransfer, "DAI", big.NewInt(1e16))
	network.SetFee(l2.TxChangePubKey, "ETH", big.NewInt(1e15))
	network.SetFee(l2.TxChangePubKey, "DAI", big.NewInt(5e17))

	reg := registry.New(memory.NewTokenStore(), nil)
	_, err := reg.Seed(context.Background(), []domain.Token{wallettest.ETH, wallettest.DAI, wallettest.USDC})
	require.NoError(t, err)

	f := &fixture{
		network: network,
		wallets: wallettest.NewProvider(t, network),
		ledger:  memory.NewExecutionStore(),
	}
	opts = append([]Option{WithLedger(f.ledger)}, opts...)
	f.protocol = New(reg, f.wallets, opts...)
	return f
}

func (f *fixture) address(t *testing.T, userID string) string {
	t.Helper()
	w, err := f.wallets.GetOrCreate(context.Background(), userID)
	require.NoError(t, err)
	return w.Address()
}

func (f *fixture) balance(t *testing.T, userID string, token domain.Token) string {
	t.Helper()
	w, err := f.wallets.GetOrCreate(context.Background(), userID)
	require.NoError(t, err)
	bal, err := w.GetBalance(context.Background(), token)
	require.NoError(t, err)
	return bal.String()
}

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}

func sendReq(amountText, ticker, target string, confirmed bool) domain.CommandRequest {
	return domain.CommandRequest{
		Kind:       domain.CommandSend,
		ActorID:    "1234",
		Ticker:     ticker,
		AmountText: amountText,
		TargetID:   target,
		Confirmed:  confirmed,
	}
}

func unlockReq(ticker string, confirmed bool) domain.CommandRequest {
	return domain.CommandRequest{Kind: domain.CommandUnlock, ActorID: "1234", Ticker: ticker, Confirmed: confirmed}
}

func TestSend_TokenNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.protocol.Send(context.Background(), sendReq("0.2", "FAKE", "2345", false))
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestSend_SelfTransferRejected(t *testing.T) {
	f := newFixture(t)
	f.network.Fund(f.address(t, "1234"), "ETH", ether(1))

	for _, confirmed := range []bool{false, true} {
		_, err := f.protocol.Send(context.Background(), sendReq("0.5", "ETH", "1234", confirmed))
		assert.ErrorIs(t, err, ErrSelfTransfer)
	}
	assert.Empty(t, f.network.Submitted)
	assert.Equal(t, "1.0 ETH", f.balance(t, "1234", wallettest.ETH))
}

func TestSend_InvalidAmounts(t *testing.T) {
	f := newFixture(t)
	for _, text := range []string{"pizza", "-1", "0", "0.0", "+1", "1e5", "", "0.0000000000000000001"} {
		_, err := f.protocol.Send(context.Background(), sendReq(text, "ETH", "2345", true))
		assert.ErrorIs(t, err, ErrInvalidAmount, "amount %q", text)
	}

	_, err := f.protocol.Send(context.Background(), sendReq("-1", "ETH", "2345", false))
	assert.ErrorIs(t, err, amount.ErrNegativeAmount)
	assert.Empty(t, f.network.Submitted)
}

func TestSend_PreviewWithoutBalanceCheck(t *testing.T) {
	f := newFixture(t)

	res, err := f.protocol.Send(context.Background(), sendReq("0.2", "eth", "2345", false))
	require.NoError(t, err)
	require.NotNil(t, res.Preview)
	assert.Nil(t, res.Outcome)
	assert.Nil(t, res.Info)

	p := res.Preview
	assert.Equal(t, "Transfer tokens", p.Title)
	assert.Equal(t, "/send 0.2 ETH @2345 confirm", p.Instruction)
	require.NotNil(t, p.Primary)
	assert.Equal(t, "0.2 ETH", p.Primary.String())
	assert.Equal(t, "0.0001 ETH", p.Fee.String())
	assert.Empty(t, f.network.Submitted)
}

func TestSend_PreviewRoundsDown(t *testing.T) {
	f := newFixture(t)

	res, err := f.protocol.Send(context.Background(), sendReq("0.123456789012345678", "ETH", "2345", false))
	require.NoError(t, err)
	assert.Equal(t, "0.12345678901", res.Preview.Primary.GetStringValue())
	assert.Equal(t, "/send 0.123456789012345678 ETH @2345 confirm", res.Preview.Instruction)
}

func TestSend_ConfirmMatchesPreview(t *testing.T) {
	f := newFixture(t)
	f.network.Fund(f.address(t, "1234"), "ETH", ether(1))

	preview, err := f.protocol.Send(context.Background(), sendReq("0.2", "ETH", "2345", false))
	require.NoError(t, err)

	res, err := f.protocol.Send(context.Background(), sendReq("0.2", "ETH", "2345", true))
	require.NoError(t, err)
	require.NotNil(t, res.Outcome)

	out := res.Outcome
	assert.Equal(t, preview.Preview.Title, out.Title)
	assert.Equal(t, preview.Preview.Primary.String(), out.Primary.String())
	assert.Equal(t, preview.Preview.Fee.String(), out.Fee.String())
	assert.NotEmpty(t, out.TxHash)
	assert.True(t, out.Committed)

	assert.Equal(t, "0.2 ETH", f.balance(t, "2345", wallettest.ETH))
	assert.Equal(t, "0.7999 ETH", f.balance(t, "1234", wallettest.ETH))

	records, err := f.ledger.GetByActor(context.Background(), "1234")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, domain.ExecutionSucceeded, records[0].Status)
	assert.Equal(t, domain.ExecutionTransfer, records[0].Kind)
	assert.Equal(t, "0.2", records[0].Amount)
	assert.Equal(t, "2345", records[0].TargetID)
	assert.Equal(t, out.TxHash, records[0].TxHash)
}

func TestSend_ConfirmExceedingBalance(t *testing.T) {
	f := newFixture(t)
	f.network.Fund(f.address(t, "1234"), "ETH", big.NewInt(2e17))

	_, err := f.protocol.Send(context.Background(), sendReq("0.2", "ETH", "2345", true))
	require.ErrorIs(t, err, ErrTransactionFailed)
	assert.ErrorIs(t, err, wallet.ErrInsufficientBalance)
	assert.Empty(t, f.network.Submitted)

	records, err := f.ledger.GetByActor(context.Background(), "1234")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, domain.ExecutionFailed, records[0].Status)
	assert.NotEmpty(t, records[0].FailReason)
}

func TestSend_RepeatedFailuresAllRecorded(t *testing.T) {
	frozen := time.UnixMilli(1704067200000)
	f := newFixture(t, WithClock(func() time.Time { return frozen }))
	f.network.Fund(f.address(t, "1234"), "ETH", big.NewInt(2e17))

	for i := 0; i < 2; i++ {
		_, err := f.protocol.Send(context.Background(), sendReq("0.2", "ETH", "2345", true))
		require.ErrorIs(t, err, ErrTransactionFailed)
	}

	records, err := f.ledger.GetByActor(context.Background(), "1234")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.NotEqual(t, records[0].RecordID, records[1].RecordID)
	assert.Equal(t, records[0].IntentKey, records[1].IntentKey)
}

func TestSend_NetworkFailureIsTransactionFailed(t *testing.T) {
	f := newFixture(t)
	f.network.Fund(f.address(t, "1234"), "ETH", ether(1))
	f.network.SubmitErr = errors.New("connection reset")

	_, err := f.protocol.Send(context.Background(), sendReq("0.2", "ETH", "2345", true))
	assert.ErrorIs(t, err, ErrTransactionFailed)
	assert.ErrorIs(t, err, wallet.ErrNetwork)
}

type recordingLocker struct {
	keys []string
	err  error
}

func (l *recordingLocker) WithLock(_ context.Context, key string, fn func() error) error {
	l.keys = append(l.keys, key)
	if l.err != nil {
		return l.err
	}
	return fn()
}

func TestSend_LocksOnlyOnConfirm(t *testing.T) {
	locker := &recordingLocker{}
	f := newFixture(t, WithLocker(locker))
	f.network.Fund(f.address(t, "1234"), "ETH", ether(1))

	_, err := f.protocol.Send(context.Background(), sendReq("0.2", "ETH", "2345", false))
	require.NoError(t, err)
	assert.Empty(t, locker.keys)

	_, err = f.protocol.Send(context.Background(), sendReq("0.2", "ETH", "2345", true))
	require.NoError(t, err)
	assert.Equal(t, []string{"tipbot:exec:1234"}, locker.keys)
}

func TestSend_LockFailureIsNotTransactionFailure(t *testing.T) {
	locker := &recordingLocker{err: errors.New("redis unavailable")}
	f := newFixture(t, WithLocker(locker))

	_, err := f.protocol.Send(context.Background(), sendReq("0.2", "ETH", "2345", true))
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrTransactionFailed))
	assert.Empty(t, f.network.Submitted)
}

type failingLedger struct{ memory.ExecutionStore }

func (failingLedger) Insert(context.Context, *domain.ExecutionRecord) error {
	return errors.New("ledger down")
}

func TestSend_LedgerFailureDoesNotFailTransfer(t *testing.T) {
	f := newFixture(t, WithLedger(&failingLedger{}))
	f.network.Fund(f.address(t, "1234"), "ETH", ether(1))

	res, err := f.protocol.Send(context.Background(), sendReq("0.2", "ETH", "2345", true))
	require.NoError(t, err)
	assert.NotNil(t, res.Outcome)
}

func TestUnlock_NoTickerShowsInstructions(t *testing.T) {
	f := newFixture(t)
	res, err := f.protocol.Unlock(context.Background(), unlockReq("", false))
	require.NoError(t, err)
	require.NotNil(t, res.Info)
	assert.Equal(t, InfoUnlockInstructions, res.Info.Kind)
}

func TestUnlock_AlreadyUnlockedRegardlessOfConfirm(t *testing.T) {
	f := newFixture(t)
	f.network.SetUnlocked(f.address(t, "1234"))
	f.network.Fund(f.address(t, "1234"), "DAI", ether(1))

	for _, req := range []domain.CommandRequest{
		unlockReq("", false),
		unlockReq("DAI", false),
		unlockReq("DAI", true),
		unlockReq("FAKE", true),
	} {
		res, err := f.protocol.Unlock(context.Background(), req)
		require.NoError(t, err)
		require.NotNil(t, res.Info, "%+v", req)
		assert.Equal(t, InfoAlreadyUnlocked, res.Info.Kind)
	}
	assert.Empty(t, f.network.Submitted)
}

func TestUnlock_UnknownTicker(t *testing.T) {
	f := newFixture(t)
	_, err := f.protocol.Unlock(context.Background(), unlockReq("DOGE", false))
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestUnlock_Preview(t *testing.T) {
	f := newFixture(t)
	res, err := f.protocol.Unlock(context.Background(), unlockReq("dai", false))
	require.NoError(t, err)
	require.NotNil(t, res.Preview)

	assert.Equal(t, "Unlock with DAI", res.Preview.Title)
	assert.Nil(t, res.Preview.Primary)
	assert.Equal(t, "0.5 DAI", res.Preview.Fee.String())
	assert.Equal(t, "/unlock DAI confirm", res.Preview.Instruction)
}

func TestUnlock_Confirm(t *testing.T) {
	f := newFixture(t)

	_, err := f.protocol.Unlock(context.Background(), unlockReq("ETH", true))
	require.ErrorIs(t, err, ErrTransactionFailed)

	f.network.Fund(f.address(t, "1234"), "DAI", ether(1))
	res, err := f.protocol.Unlock(context.Background(), unlockReq("DAI", true))
	require.NoError(t, err)
	require.NotNil(t, res.Outcome)
	assert.Equal(t, "Unlock with DAI", res.Outcome.Title)
	assert.Equal(t, "0.5 DAI", res.Outcome.Fee.String())

	w, err := f.wallets.GetOrCreate(context.Background(), "1234")
	require.NoError(t, err)
	unlocked, err := w.GetUnlocked(context.Background())
	require.NoError(t, err)
	assert.True(t, unlocked)

	records, err := f.ledger.GetByActor(context.Background(), "1234")
	require.NoError(t, err)
	require.Len(t, records, 2)

	var succeeded *domain.ExecutionRecord
	for _, r := range records {
		assert.Equal(t, domain.ExecutionUnlock, r.Kind)
		if r.Status == domain.ExecutionSucceeded {
			succeeded = r
		}
	}
	require.NotNil(t, succeeded)
	assert.Equal(t, "DAI", succeeded.Ticker)
	assert.Empty(t, succeeded.Amount)
	assert.Equal(t, res.Outcome.TxHash, succeeded.TxHash)
}
