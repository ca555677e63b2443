package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrLockNotAcquired = errors.New("queue lock not acquired")

// Locker serializes position recalculation per clinic. Two concurrent
// recalculations racing to re-read and rewrite the waiting list can produce
// a stale ordering, so the whole read-compute-write sequence runs under one
// mutual-exclusion scope.
type Locker interface {
	WithQueueLock(ctx context.Context, clinic string, fn func(ctx context.Context) error) error
}

type redisQueueLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisQueueLocker creates a locker backed by a per-clinic Redis key.
func NewRedisQueueLocker(client *redis.Client, ttl time.Duration) Locker {
	return &redisQueueLocker{
		client: client,
		ttl:    ttl,
	}
}

func (l *redisQueueLocker) WithQueueLock(ctx context.Context, clinic string, fn func(ctx context.Context) error) error {
	key := fmt.Sprintf("lock:queue:%s", clinic)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire queue lock: %w", err)
	}
	if !ok {
		return ErrLockNotAcquired
	}

	defer func() {
		_ = l.release(ctx, key, token)
	}()

	ctxWithTimeout, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(ctxWithTimeout)
}

// unlockScript releases the lock only if this caller still holds it, so an
// expired lock taken over by someone else is never deleted from under them.
var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *redisQueueLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release queue lock: %w", err)
	}
	return nil
}

// NewRedisClient dials Redis and verifies the connection.
func NewRedisClient(addr, username, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Username:     username,
		Password:     password,
		DB:           0,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     10,
		MinIdleConns: 1,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return rdb, nil
}
