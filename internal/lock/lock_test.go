package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisLocker(t *testing.T) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	opts := Options{Expiry: 5 * time.Second, Tries: 200, RetryDelay: 5 * time.Millisecond}
	return NewRedisLocker(client, opts, nil), mr
}

func TestNoop(t *testing.T) {
	called := false
	err := Noop{}.WithLock(context.Background(), "k", func() error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
}

func TestRedisLocker_SerializesSameKey(t *testing.T) {
	locker, _ := newRedisLocker(t)

	var (
		inside  atomic.Int32
		maxSeen atomic.Int32
		wg      sync.WaitGroup
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := locker.WithLock(context.Background(), "tipbot:exec:1", func() error {
				n := inside.Add(1)
				if n > maxSeen.Load() {
					maxSeen.Store(n)
				}
				time.Sleep(10 * time.Millisecond)
				inside.Add(-1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxSeen.Load())
}

func TestRedisLocker_ReleasesOnError(t *testing.T) {
	locker, mr := newRedisLocker(t)
	boom := errors.New("boom")

	err := locker.WithLock(context.Background(), "tipbot:exec:2", func() error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("tipbot:exec:2"))

	err = locker.WithLock(context.Background(), "tipbot:exec:2", func() error { return nil })
	assert.NoError(t, err)
}

func TestRedisLocker_AcquireFailure(t *testing.T) {
	locker, mr := newRedisLocker(t)
	locker.opts.Tries = 1
	require.NoError(t, mr.Set("tipbot:exec:3", "someone-else"))

	err := locker.WithLock(context.Background(), "tipbot:exec:3", func() error {
		t.Fatal("fn must not run without the lock")
		return nil
	})
	assert.Error(t, err)
}

func TestRedisLocker_ExtendsWhileHeld(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	const key = "tipbot:exec:slow"
	opts := Options{Expiry: 400 * time.Millisecond, Tries: 1, RetryDelay: time.Millisecond}
	locker := NewRedisLocker(client, opts, nil)
	competitor := NewRedisLocker(client, opts, nil)

	err := locker.WithLock(context.Background(), key, func() error {
		// Most of the initial expiry passes on the server clock.
		mr.FastForward(350 * time.Millisecond)
		// Let the holder extend once.
		time.Sleep(300 * time.Millisecond)
		// Without the extension the key would be gone by now.
		mr.FastForward(200 * time.Millisecond)
		require.True(t, mr.Exists(key), "lock expired while still held")

		err := competitor.WithLock(context.Background(), key, func() error { return nil })
		assert.Error(t, err, "competitor entered a held lock")
		return nil
	})
	require.NoError(t, err)
	assert.False(t, mr.Exists(key))
}
