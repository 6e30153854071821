// Package pricing supplies USD unit prices for display.
package pricing

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"l2-tipbot/internal/logging"
	"l2-tipbot/internal/observability"
)

// Feed returns the USD price of one whole token.
type Feed interface {
	Price(ctx context.Context, ticker string) (decimal.Decimal, error)
}

// Source is the upstream price provider, satisfied by l2.Client.
type Source interface {
	GetTokenPrice(ctx context.Context, ticker string) (decimal.Decimal, error)
}

// entryCache is the subset of bigcache the feed uses.
type entryCache interface {
	Get(key string) ([]byte, error)
	Set(key string, entry []byte) error
	Close() error
}

// CachedFeed memoises Source prices for a fixed TTL. Failures are not cached.
type CachedFeed struct {
	source Source
	cache  entryCache
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger
}

// Option configures a CachedFeed.
type Option func(*CachedFeed)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(f *CachedFeed) {
		f.logger = logging.OrNop(l)
	}
}

// NewCachedFeed creates a feed. A zero ttl disables caching.
func NewCachedFeed(ctx context.Context, source Source, ttl time.Duration, opts ...Option) (*CachedFeed, error) {
	f := &CachedFeed{source: source, ttl: ttl, now: time.Now, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(f)
	}
	if ttl <= 0 {
		return f, nil
	}

	cfg := bigcache.DefaultConfig(ttl)
	cfg.Shards = 16
	cfg.MaxEntriesInWindow = 1024
	cfg.CleanWindow = ttl
	cfg.Verbose = false

	cache, err := bigcache.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create price cache: %w", err)
	}
	f.cache = cache
	return f, nil
}

// Price returns the cached price or fetches a fresh one.
func (f *CachedFeed) Price(ctx context.Context, ticker string) (decimal.Decimal, error) {
	if f.cache != nil {
		if price, ok := f.lookup(ticker); ok {
			observability.RecordPriceLookup(true)
			return price, nil
		}
	}
	observability.RecordPriceLookup(false)

	price, err := f.source.GetTokenPrice(ctx, ticker)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("price %s: %w", ticker, err)
	}

	if f.cache != nil {
		entry := strconv.FormatInt(f.now().UnixNano(), 10) + "|" + price.String()
		if err := f.cache.Set(ticker, []byte(entry)); err != nil {
			f.logger.Debug("price cache write failed", zap.String("ticker", ticker), zap.Error(err))
		}
	}
	return price, nil
}

// lookup reads an entry and enforces the TTL itself, since bigcache only
// evicts on its clean window.
func (f *CachedFeed) lookup(ticker string) (decimal.Decimal, bool) {
	raw, err := f.cache.Get(ticker)
	if err != nil {
		return decimal.Decimal{}, false
	}

	stamp, value, ok := strings.Cut(string(raw), "|")
	if !ok {
		return decimal.Decimal{}, false
	}
	nanos, err := strconv.ParseInt(stamp, 10, 64)
	if err != nil || f.now().Sub(time.Unix(0, nanos)) >= f.ttl {
		return decimal.Decimal{}, false
	}
	price, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return price, true
}

// Close releases the cache.
func (f *CachedFeed) Close() error {
	if f.cache == nil {
		return nil
	}
	if err := f.cache.Close(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
