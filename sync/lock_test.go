// ABOUTME: Tests for per-account run locks
// ABOUTME: The Redis variant runs only when REDIS_ADDR points at a server
package sync

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLock(t *testing.T) {
	lock := NewLocalLock()
	ctx := context.Background()

	release, err := lock.Acquire(ctx, 1)
	require.NoError(t, err)

	_, err = lock.Acquire(ctx, 1)
	assert.ErrorIs(t, err, ErrLocked)

	other, err := lock.Acquire(ctx, 2)
	require.NoError(t, err, "accounts lock independently")
	other()

	release()
	release()

	again, err := lock.Acquire(ctx, 1)
	require.NoError(t, err)
	again()
}

func TestRedisLock(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	require.NoError(t, client.Ping(ctx).Err())

	lock := NewRedisLock(client, "networkgpt:test:"+uuid.NewString()+":", time.Minute)

	release, err := lock.Acquire(ctx, 1)
	require.NoError(t, err)

	_, err = lock.Acquire(ctx, 1)
	assert.ErrorIs(t, err, ErrLocked)

	release()

	again, err := lock.Acquire(ctx, 1)
	require.NoError(t, err)
	again()
}
