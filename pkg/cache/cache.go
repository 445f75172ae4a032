package cache

import (
	"context"
	"fmt"
	"time"
)

// Service is the cache surface alert cooldown bookkeeping needs:
// write a marker with a TTL and ask whether one is still live.
type Service interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Exists(ctx context.Context, keys ...string) (bool, error)
}

// GenerateKeyWithParams builds a colon-separated cache key from a
// prefix and its parameters.
func GenerateKeyWithParams(prefix string, params ...interface{}) string {
	key := prefix
	for _, param := range params {
		key = fmt.Sprintf("%s:%v", key, param)
	}
	return key
}
