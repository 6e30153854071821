// Package wallettest wires a wallet.Provider over the in-memory network for tests.
package wallettest

import (
	"testing"

	"l2-tipbot/internal/domain"
	"l2-tipbot/internal/keys"
	"l2-tipbot/internal/l2/stub"
	"l2-tipbot/internal/storage/memory"
	"l2-tipbot/internal/wallet"
)

// Tokens used across tests, in registry order.
var (
	ETH  = domain.Token{Ticker: "ETH", Name: "Ethereum", Decimals: 18, NetworkID: 0, Position: 1}
	DAI  = domain.Token{Ticker: "DAI", Name: "Dai", Decimals: 18, NetworkID: 1, Position: 2}
	USDC = domain.Token{Ticker: "USDC", Name: "USD Coin", Decimals: 6, NetworkID: 2, Position: 3}
)

// Passphrase seals test keys.
const Passphrase = "correct horse battery staple"

// NewVault returns a vault with cheap scrypt parameters.
func NewVault(tb testing.TB) *keys.Vault {
	tb.Helper()
	v, err := keys.NewVault(Passphrase, keys.WithScryptParams(1<<10, 8, 1))
	if err != nil {
		tb.Fatalf("NewVault: %v", err)
	}
	return v
}

// NewProvider returns a provider with random keys, an in-memory key store and
// the stub network as client and watcher.
func NewProvider(tb testing.TB, network *stub.Network, opts ...wallet.Option) *wallet.Provider {
	tb.Helper()
	opts = append([]wallet.Option{wallet.WithWatcher(network, 0)}, opts...)
	return wallet.NewProvider(memory.NewUserKeyStore(), NewVault(tb), keys.RandomDeriver{}, network, opts...)
}
