package cache

import (
	"context"
	"time"
)

// LayeredCache fronts Redis with the in-process cache. Suppression
// checks for alerts that just fired hit memory and skip the network
// round-trip; Redis stays authoritative across replicas.
type LayeredCache struct {
	mem   *MemoryCache
	redis *RedisCache
}

// NewLayeredCache creates a layered cache over a Redis connection.
func NewLayeredCache(redisCache *RedisCache) *LayeredCache {
	return &LayeredCache{
		mem:   NewMemoryCache(),
		redis: redisCache,
	}
}

// Set writes through: Redis first, memory only on success.
func (lc *LayeredCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := lc.redis.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	_ = lc.mem.Set(ctx, key, value, ttl)
	return nil
}

// Exists consults memory first and falls back to Redis on a miss.
func (lc *LayeredCache) Exists(ctx context.Context, keys ...string) (bool, error) {
	if ok, err := lc.mem.Exists(ctx, keys...); err == nil && ok {
		return true, nil
	}
	return lc.redis.Exists(ctx, keys...)
}

// Close closes both layers.
func (lc *LayeredCache) Close() error {
	_ = lc.mem.Close()
	return lc.redis.Close()
}
