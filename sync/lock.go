// ABOUTME: Per-account run exclusion so two syncs of the same account never overlap
// ABOUTME: LocalLock guards a single process; RedisLock guards every replica sharing one Redis
package sync

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// ErrLocked is returned when another run already holds the account's lock.
var ErrLocked = errors.New("account is locked by another sync")

// RunLock hands out one non-blocking lock per account.
type RunLock interface {
	Acquire(ctx context.Context, accountID int64) (release func(), err error)
}

// LocalLock is an in-process RunLock.
type LocalLock struct {
	mu     gosync.Mutex
	locked map[int64]bool
}

func NewLocalLock() *LocalLock {
	return &LocalLock{locked: make(map[int64]bool)}
}

func (l *LocalLock) Acquire(_ context.Context, accountID int64) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.locked[accountID] {
		return nil, ErrLocked
	}
	l.locked[accountID] = true

	var once gosync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.locked, accountID)
			l.mu.Unlock()
		})
	}, nil
}

// Deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisLock is a RunLock shared across processes through Redis. The TTL bounds
// how long a crashed holder can keep an account locked.
type RedisLock struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

func NewRedisLock(client redis.Cmdable, prefix string, ttl time.Duration) *RedisLock {
	if prefix == "" {
		prefix = "networkgpt:sync:"
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisLock{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (l *RedisLock) key(accountID int64) string {
	return fmt.Sprintf("%s%d", l.prefix, accountID)
}

func (l *RedisLock) Acquire(ctx context.Context, accountID int64) (func(), error) {
	key := l.key(accountID)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire redis lock: %w", err)
	}
	if !ok {
		return nil, ErrLocked
	}

	var once gosync.Once
	return func() {
		once.Do(func() {
			// Release even if the run's context was canceled
			ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			_ = releaseScript.Run(ctx, l.client, []string{key}, token).Err()
		})
	}, nil
}
