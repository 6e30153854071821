// Package registry resolves user-supplied tickers against the supported-token list.
package registry

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"l2-tipbot/internal/domain"
	"l2-tipbot/internal/l2"
	"l2-tipbot/internal/logging"
	"l2-tipbot/internal/storage"
)

// ErrTokenNotFound is returned for tickers outside the registry.
var ErrTokenNotFound = errors.New("token not found")

// Registry is the supported-token list backed by a TokenStore.
type Registry struct {
	store  storage.TokenStore
	logger *zap.Logger
}

// New creates a Registry.
func New(store storage.TokenStore, logger *zap.Logger) *Registry {
	return &Registry{store: store, logger: logging.OrNop(logger)}
}

// FindToken looks up a ticker case-insensitively.
func (r *Registry) FindToken(ctx context.Context, ticker string) (domain.Token, error) {
	normalized := domain.NormalizeTicker(ticker)
	if normalized == "" {
		return domain.Token{}, ErrTokenNotFound
	}
	t, err := r.store.GetByTicker(ctx, normalized)
	if errors.Is(err, storage.ErrNotFound) {
		return domain.Token{}, ErrTokenNotFound
	}
	if err != nil {
		return domain.Token{}, fmt.Errorf("find token %s: %w", normalized, err)
	}
	return *t, nil
}

// List returns every supported token in registry order.
func (r *Registry) List(ctx context.Context) ([]domain.Token, error) {
	tokens, err := r.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	result := make([]domain.Token, 0, len(tokens))
	for _, t := range tokens {
		result = append(result, *t)
	}
	return result, nil
}

// Seed inserts tokens in order, skipping tickers already registered.
// Returns the number of tokens added.
func (r *Registry) Seed(ctx context.Context, tokens []domain.Token) (int, error) {
	added := 0
	for _, t := range tokens {
		t.Ticker = domain.NormalizeTicker(t.Ticker)
		err := r.store.Insert(ctx, &t)
		if errors.Is(err, storage.ErrDuplicateKey) {
			r.logger.Debug("token already registered", zap.String("ticker", t.Ticker))
			continue
		}
		if err != nil {
			return added, fmt.Errorf("seed token %s: %w", t.Ticker, err)
		}
		added++
		r.logger.Info("token registered",
			zap.String("ticker", t.Ticker),
			zap.Int("position", t.Position),
		)
	}
	return added, nil
}

// SyncFromNetwork registers every network token missing from the registry.
// Display names default to the symbol.
func (r *Registry) SyncFromNetwork(ctx context.Context, client l2.Client) (int, error) {
	infos, err := client.GetTokens(ctx)
	if err != nil {
		return 0, fmt.Errorf("get network tokens: %w", err)
	}
	tokens := make([]domain.Token, 0, len(infos))
	for _, info := range infos {
		tokens = append(tokens, domain.Token{
			Ticker:    info.Symbol,
			Name:      info.Symbol,
			Decimals:  info.Decimals,
			NetworkID: info.ID,
		})
	}
	return r.Seed(ctx, tokens)
}

type seedFile struct {
	Tokens []struct {
		Ticker    string `yaml:"ticker"`
		Name      string `yaml:"name"`
		Decimals  int32  `yaml:"decimals"`
		NetworkID uint32 `yaml:"network_id"`
	} `yaml:"tokens"`
}

// LoadSeedFile reads a YAML token list. File order becomes registry order.
func LoadSeedFile(path string) ([]domain.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}

	tokens := make([]domain.Token, 0, len(f.Tokens))
	seen := make(map[string]struct{}, len(f.Tokens))
	for i, t := range f.Tokens {
		ticker := domain.NormalizeTicker(t.Ticker)
		if ticker == "" {
			return nil, fmt.Errorf("seed file entry %d: missing ticker", i)
		}
		if t.Decimals < 0 {
			return nil, fmt.Errorf("seed file entry %s: negative decimals", ticker)
		}
		if _, dup := seen[ticker]; dup {
			return nil, fmt.Errorf("seed file entry %s: duplicate ticker", ticker)
		}
		seen[ticker] = struct{}{}

		name := t.Name
		if name == "" {
			name = ticker
		}
		tokens = append(tokens, domain.Token{
			Ticker:    ticker,
			Name:      name,
			Decimals:  t.Decimals,
			NetworkID: t.NetworkID,
		})
	}
	return tokens, nil
}
