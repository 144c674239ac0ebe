// internal/cache/redis.go
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	PassLockKey    = "coldmail:dispatch:lock"
	sentKeyPrefix  = "msgid:"
	defaultLockTTL = 10 * time.Minute
	defaultSentTTL = 30 * 24 * time.Hour
)

func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

// RedisPassLock keeps dispatch passes from overlapping across processes.
// The lock expires after TTL so a crashed holder cannot block forever.
type RedisPassLock struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

func NewRedisPassLock(client *redis.Client, ttl time.Duration) *RedisPassLock {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisPassLock{client: client, key: PassLockKey, ttl: ttl}
}

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// TryLock returns a release func when the lock was taken, nil when someone else holds it.
func (l *RedisPassLock) TryLock(ctx context.Context) (func(), error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return func() {
		// the pass context may already be done
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(releaseCtx, l.client, []string{l.key}, token).Err()
	}, nil
}

// RedisSentCache remembers the Message-IDs that were handed to the transport.
type RedisSentCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSentCache(client *redis.Client) *RedisSentCache {
	return &RedisSentCache{client: client, ttl: defaultSentTTL}
}

func (c *RedisSentCache) StoreSentMessage(ctx context.Context, messageID string, sentAt time.Time) error {
	return c.client.Set(ctx, sentKeyPrefix+messageID, sentAt.UTC().Format(time.RFC3339), c.ttl).Err()
}

// SentAt returns when messageID was sent, or ok=false if unknown or expired.
func (c *RedisSentCache) SentAt(ctx context.Context, messageID string) (time.Time, bool, error) {
	v, err := c.client.Get(ctx, sentKeyPrefix+messageID).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}
