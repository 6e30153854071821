// Package lock serialises confirm executions of one actor.
package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"l2-tipbot/internal/logging"
)

// Locker runs fn while holding the named lock.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func() error) error
}

// Noop runs fn without locking. Used for single-process deployments.
type Noop struct{}

// WithLock calls fn.
func (Noop) WithLock(_ context.Context, _ string, fn func() error) error {
	return fn()
}

// Options configures lock acquisition.
type Options struct {
	// Expiry bounds how long a crashed holder blocks others. A live holder
	// extends the lock every Expiry/2 until it releases it.
	Expiry time.Duration
	// Tries is the number of acquisition attempts.
	Tries int
	// RetryDelay is the pause between attempts.
	RetryDelay time.Duration
}

// DefaultOptions covers a transfer plus its commit wait.
func DefaultOptions() Options {
	return Options{
		Expiry:     60 * time.Second,
		Tries:      40,
		RetryDelay: 250 * time.Millisecond,
	}
}

// RedisLocker is a Locker backed by the Redlock algorithm.
type RedisLocker struct {
	rs     *redsync.Redsync
	opts   Options
	logger *zap.Logger
}

// NewRedisLocker creates a RedisLocker over a go-redis client.
func NewRedisLocker(client redis.UniversalClient, opts Options, logger *zap.Logger) *RedisLocker {
	return &RedisLocker{
		rs:     redsync.New(goredis.NewPool(client)),
		opts:   opts,
		logger: logging.OrNop(logger),
	}
}

// WithLock acquires key, runs fn and releases key, even if fn panics.
func (l *RedisLocker) WithLock(ctx context.Context, key string, fn func() error) error {
	mutex := l.rs.NewMutex(key,
		redsync.WithExpiry(l.opts.Expiry),
		redsync.WithTries(l.opts.Tries),
		redsync.WithRetryDelay(l.opts.RetryDelay),
	)

	if err := mutex.LockContext(ctx); err != nil {
		return fmt.Errorf("acquire lock %s: %w", key, err)
	}
	l.logger.Debug("lock acquired", zap.String("key", key))

	stop := l.keepAlive(mutex, key)
	defer func() {
		stop()
		// Release with a fresh context so a cancelled request still unlocks.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if ok, err := mutex.UnlockContext(releaseCtx); !ok || err != nil {
			l.logger.Error("lock release failed",
				zap.String("key", key),
				zap.Bool("ok", ok),
				zap.Error(err),
			)
		}
	}()

	return fn()
}

// keepAlive extends mutex every half expiry until the returned func is called.
func (l *RedisLocker) keepAlive(mutex *redsync.Mutex, key string) (stop func()) {
	done := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		ticker := time.NewTicker(l.opts.Expiry / 2)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), l.opts.Expiry/2)
				ok, err := mutex.ExtendContext(ctx)
				cancel()
				if !ok || err != nil {
					l.logger.Warn("lock extend failed",
						zap.String("key", key),
						zap.Bool("ok", ok),
						zap.Error(err),
					)
				}
			}
		}
	}()
	return func() {
		close(done)
		<-exited
	}
}

var (
	_ Locker = Noop{}
	_ Locker = (*RedisLocker)(nil)
)
