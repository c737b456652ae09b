package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBackend stores cache entries in Redis with native key expiry.
type RedisBackend struct {
	rdb       *redis.Client
	namespace string
}

var _ Backend = (*RedisBackend)(nil)

// NewRedisBackend wraps a Redis client. A non-empty namespace is prepended to every key.
func NewRedisBackend(rdb *redis.Client, namespace string) *RedisBackend {
	return &RedisBackend{rdb: rdb, namespace: namespace}
}

func (b *RedisBackend) key(k string) string {
	if b.namespace == "" {
		return k
	}
	return b.namespace + ":" + k
}

// Get returns the stored bytes, or found=false when the key is absent or expired.
func (b *RedisBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := b.rdb.Get(ctx, b.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return v, true, nil
}

// Set stores value with the given expiration.
func (b *RedisBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return b.rdb.Set(ctx, b.key(key), value, ttl).Err()
}

// Delete removes key. Deleting an absent key is not an error.
func (b *RedisBackend) Delete(ctx context.Context, key string) error {
	return b.rdb.Del(ctx, b.key(key)).Err()
}

// Ping checks connectivity.
func (b *RedisBackend) Ping(ctx context.Context) error {
	return b.rdb.Ping(ctx).Err()
}
