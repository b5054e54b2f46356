package cache

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"nexus/internal/adapters/redis"
)

// RedisCache is the cross-process cache tier backed by Redis. It implements
// the same contract as MemoryCache so call sites choose the tier through
// configuration, not code.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache wraps a Redis client as a Cache. All keys are namespaced
// under prefix.
func NewRedisCache(client *redis.Client, prefix string) *RedisCache {
	if prefix == "" {
		prefix = "cache"
	}
	return &RedisCache{client: client, prefix: prefix}
}

// Get returns the value for key, found=false on a miss.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	raw, err := c.client.GetBytes(ctx, c.prefix+":"+key)
	if err == goredis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return raw, true, nil
}

// Set stores value under key. Redis interprets a zero TTL as no expiry,
// matching the in-memory tier.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.SetBytes(ctx, c.prefix+":"+key, value, ttl)
}
