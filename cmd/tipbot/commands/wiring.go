package commands

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"l2-tipbot/internal/balance"
	"l2-tipbot/internal/bot"
	"l2-tipbot/internal/config"
	"l2-tipbot/internal/intent"
	"l2-tipbot/internal/keys"
	"l2-tipbot/internal/l2"
	"l2-tipbot/internal/lock"
	"l2-tipbot/internal/pricing"
	"l2-tipbot/internal/registry"
	"l2-tipbot/internal/storage"
	badgerstore "l2-tipbot/internal/storage/badger"
	chstore "l2-tipbot/internal/storage/clickhouse"
	"l2-tipbot/internal/storage/memory"
	pgstore "l2-tipbot/internal/storage/postgres"
	"l2-tipbot/internal/wallet"
)

// stores groups the persistence backends selected by configuration.
type stores struct {
	keys       storage.UserKeyStore
	tokens     storage.TokenStore
	executions storage.ExecutionStore
	pg         *pgstore.Pool
	closers    []func() error
}

func (s *stores) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		_ = s.closers[i]()
	}
}

// openStores picks memory, badger or postgres for keys and tokens, in that
// order of precedence. Executions go to ClickHouse when configured.
func openStores(ctx context.Context, cfg config.Config, logger *zap.Logger) (*stores, error) {
	s := &stores{}

	switch {
	case cfg.UseMemory:
		logger.Info("using in-memory storage")
		s.keys = memory.NewUserKeyStore()
		s.tokens = memory.NewTokenStore()
		s.executions = memory.NewExecutionStore()

	case cfg.DataDir != "":
		logger.Info("using embedded storage", zap.String("data_dir", cfg.DataDir))
		db, err := badgerstore.Open(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("open badger: %w", err)
		}
		s.closers = append(s.closers, db.Close)
		s.keys = badgerstore.NewUserKeyStore(db)
		s.tokens = badgerstore.NewTokenStore(db)
		s.executions = badgerstore.NewExecutionStore(db)

	default:
		logger.Info("using PostgreSQL storage")
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		s.pg = pool
		s.closers = append(s.closers, func() error { pool.Close(); return nil })
		s.keys = pgstore.NewUserKeyStore(pool)
		s.tokens = pgstore.NewTokenStore(pool)
		s.executions = pgstore.NewExecutionStore(pool)
	}

	if cfg.ClickhouseDSN != "" {
		conn, err := chstore.NewConn(ctx, cfg.ClickhouseDSN)
		if err != nil {
			s.close()
			return nil, fmt.Errorf("connect clickhouse: %w", err)
		}
		s.closers = append(s.closers, conn.Close)
		s.executions = chstore.NewExecutionStore(conn)
		logger.Info("recording executions in ClickHouse")
	}
	return s, nil
}

// app is the fully wired command stack.
type app struct {
	cfg      config.Config
	logger   *zap.Logger
	stores   *stores
	client   *l2.HTTPClient
	registry *registry.Registry
	handler  *bot.Handler
	closers  []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
	a.stores.close()
	_ = a.logger.Sync()
}

// newApp wires stores, network clients, wallets and the command handler.
func newApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger, stores: st}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	a.client = l2.NewHTTPClient(cfg.L2RPCEndpoint, l2.WithMaxRetries(2))
	a.registry = registry.New(st.tokens, logger)

	if cfg.TokensFile != "" {
		tokens, err := registry.LoadSeedFile(cfg.TokensFile)
		if err != nil {
			return nil, err
		}
		if _, err := a.registry.Seed(ctx, tokens); err != nil {
			return nil, err
		}
	}

	vault, err := keys.NewVault(cfg.KeyPassphrase)
	if err != nil {
		return nil, fmt.Errorf("key vault: %w", err)
	}

	var deriver keys.Deriver = keys.RandomDeriver{}
	if cfg.MasterMnemonic != "" {
		seeded, err := keys.NewSeedDeriver(cfg.MasterMnemonic, "")
		if err != nil {
			return nil, fmt.Errorf("seed deriver: %w", err)
		}
		deriver = seeded
		logger.Info("deriving wallet keys from master mnemonic")
	}

	walletOpts := []wallet.Option{wallet.WithLogger(logger)}
	if cfg.L2WSEndpoint != "" {
		ws, err := l2.NewWSClient(ctx, cfg.L2WSEndpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("connect websocket: %w", err)
		}
		a.closers = append(a.closers, ws.Close)
		walletOpts = append(walletOpts, wallet.WithWatcher(ws, wallet.DefaultCommitTimeout))
	}
	wallets := wallet.NewProvider(st.keys, vault, deriver, a.client, walletOpts...)

	protocolOpts := []intent.Option{
		intent.WithLedger(st.executions),
		intent.WithLogger(logger),
	}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		a.closers = append(a.closers, rdb.Close)
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		protocolOpts = append(protocolOpts, intent.WithLocker(lock.NewRedisLocker(rdb, lock.DefaultOptions(), logger)))
		logger.Info("serialising executions with redis lock", zap.String("redis_addr", cfg.RedisAddr))
	}
	protocol := intent.New(a.registry, wallets, protocolOpts...)

	feed, err := pricing.NewCachedFeed(ctx, a.client, cfg.PriceCacheTTL, pricing.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("price cache: %w", err)
	}
	a.closers = append(a.closers, feed.Close)

	a.handler = bot.NewHandler(a.registry, wallets, protocol, balance.NewAggregator(feed, logger), logger)
	ok = true
	return a, nil
}
