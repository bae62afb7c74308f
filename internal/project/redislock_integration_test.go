//go:build integration

package project

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func newRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	opts, err := redis.ParseURL(uri)
	require.NoError(t, err)

	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisLocker_Integration(t *testing.T) {
	client := newRedisClient(t)
	ctx := context.Background()

	a := NewRedisLocker(client, 5*time.Second)
	b := NewRedisLocker(client, 5*time.Second)

	unlock, err := a.Lock(ctx, "p1")
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer cancel()
	_, err = b.Lock(waitCtx, "p1")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	acquired := make(chan struct{})
	go func() {
		unlockB, err := b.Lock(ctx, "p1")
		if assert.NoError(t, err) {
			close(acquired)
			unlockB()
		}
	}()

	unlock()
	select {
	case <-acquired:
	case <-time.After(5 * time.Second):
		t.Fatal("second locker never acquired the released lock")
	}
}

func TestRedisLocker_ExpiredHolderCannotRelease(t *testing.T) {
	client := newRedisClient(t)
	ctx := context.Background()

	short := NewRedisLocker(client, 100*time.Millisecond)
	unlockStale, err := short.Lock(ctx, "p2")
	require.NoError(t, err)

	time.Sleep(250 * time.Millisecond)

	other := NewRedisLocker(client, 5*time.Second)
	unlockOther, err := other.Lock(ctx, "p2")
	require.NoError(t, err)
	defer unlockOther()

	unlockStale()

	val, err := client.Exists(ctx, lockKeyPrefix+"p2").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), val, "stale release must not drop the current holder's lock")
}
