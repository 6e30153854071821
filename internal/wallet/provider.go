package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"l2-tipbot/internal/domain"
	"l2-tipbot/internal/keys"
	"l2-tipbot/internal/l2"
	"l2-tipbot/internal/logging"
	"l2-tipbot/internal/observability"
	"l2-tipbot/internal/storage"
)

const (
	// DefaultCommitTimeout bounds the wait for a commit notification.
	DefaultCommitTimeout = 30 * time.Second

	// DefaultSignerCacheSize caps how many opened keys stay in memory.
	DefaultSignerCacheSize = 1024
)

// Provider resolves chat users to custodial wallets, creating keys on first use.
type Provider struct {
	store   storage.UserKeyStore
	vault   *keys.Vault
	deriver keys.Deriver
	client  l2.Client

	watcher       l2.TxWatcher
	commitTimeout time.Duration
	logger        *zap.Logger
	now           func() time.Time

	cacheSize int
	signers   *lru.Cache[string, *keys.Signer] // opened keys by user id
}

// Option configures a Provider.
type Option func(*Provider)

// WithWatcher waits for commit notifications after each submission.
func WithWatcher(w l2.TxWatcher, timeout time.Duration) Option {
	return func(p *Provider) {
		p.watcher = w
		if timeout > 0 {
			p.commitTimeout = timeout
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Provider) {
		p.logger = logging.OrNop(l)
	}
}

// WithSignerCacheSize caps the opened-key cache. Evicted keys are reopened
// from the vault on next use.
func WithSignerCacheSize(n int) Option {
	return func(p *Provider) {
		if n > 0 {
			p.cacheSize = n
		}
	}
}

// NewProvider creates a Provider.
func NewProvider(store storage.UserKeyStore, vault *keys.Vault, deriver keys.Deriver, client l2.Client, opts ...Option) *Provider {
	p := &Provider{
		store:         store,
		vault:         vault,
		deriver:       deriver,
		client:        client,
		commitTimeout: DefaultCommitTimeout,
		logger:        zap.NewNop(),
		now:           time.Now,
		cacheSize:     DefaultSignerCacheSize,
	}
	for _, opt := range opts {
		opt(p)
	}
	// Only fails for a non-positive size, which the option rules out.
	p.signers, _ = lru.New[string, *keys.Signer](p.cacheSize)
	return p
}

// GetOrCreate returns the wallet of userID. The same user always gets the
// same address, including under concurrent first use.
func (p *Provider) GetOrCreate(ctx context.Context, userID string) (*Wallet, error) {
	if userID == "" {
		return nil, fmt.Errorf("get wallet: %w", storage.ErrInvalidInput)
	}

	if signer, ok := p.signers.Get(userID); ok {
		return p.wallet(userID, signer), nil
	}

	record, err := p.store.GetByUserID(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		record, err = p.create(ctx, userID)
	}
	if err != nil {
		return nil, err
	}

	key, err := p.vault.Open(record.EncryptedKey)
	if err != nil {
		return nil, fmt.Errorf("open key of user %s: %w", userID, err)
	}
	signer := keys.NewSigner(key)
	p.signers.Add(userID, signer)

	return p.wallet(userID, signer), nil
}

// create derives, seals and stores a new key. A concurrent creator wins;
// its record is reloaded.
func (p *Provider) create(ctx context.Context, userID string) (*domain.UserKey, error) {
	key, err := p.deriver.Derive(userID)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	blob, err := p.vault.Seal(key)
	if err != nil {
		return nil, fmt.Errorf("seal key: %w", err)
	}

	record := &domain.UserKey{
		UserID:       userID,
		Address:      keys.NewSigner(key).Address(),
		EncryptedKey: blob,
		CreatedAt:    p.now().UnixMilli(),
	}

	err = p.store.Insert(ctx, record)
	if errors.Is(err, storage.ErrDuplicateKey) {
		return p.store.GetByUserID(ctx, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("store key: %w", err)
	}

	observability.RecordWalletCreated()
	p.logger.Info("wallet created",
		zap.String("user_id", userID),
		zap.String("address", record.Address),
	)
	return record, nil
}

func (p *Provider) wallet(userID string, signer *keys.Signer) *Wallet {
	return &Wallet{
		ownerID:       userID,
		signer:        signer,
		client:        p.client,
		watcher:       p.watcher,
		commitTimeout: p.commitTimeout,
		logger:        p.logger.With(zap.String("user_id", userID)),
	}
}
