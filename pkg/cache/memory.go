package cache

import (
	"context"
	"sync"
	"time"
)

const (
	defaultMaxMarkers    = 1000
	defaultSweepInterval = 5 * time.Minute
	defaultMarkerTTL     = time.Hour
)

type marker struct {
	value    string
	expireAt time.Time
}

func (m marker) expired(now time.Time) bool { return now.After(m.expireAt) }

// MemoryCache is an in-process Service. It bounds the number of live
// markers and sweeps expired ones periodically, so it is safe as the
// only cache when Redis is not configured and as the fast layer in
// front of it when it is.
type MemoryCache struct {
	mu      sync.Mutex
	markers map[string]marker
	maxSize int
	sweeper *time.Ticker
}

// NewMemoryCache creates an in-process cache.
func NewMemoryCache() *MemoryCache {
	mc := &MemoryCache{
		markers: make(map[string]marker),
		maxSize: defaultMaxMarkers,
		sweeper: time.NewTicker(defaultSweepInterval),
	}
	go mc.sweep()
	return mc
}

func (mc *MemoryCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = defaultMarkerTTL
	}

	mc.mu.Lock()
	defer mc.mu.Unlock()

	if _, ok := mc.markers[key]; !ok && len(mc.markers) >= mc.maxSize {
		mc.evictSoonest()
	}
	mc.markers[key] = marker{value: value, expireAt: time.Now().Add(ttl)}
	return nil
}

func (mc *MemoryCache) Exists(_ context.Context, keys ...string) (bool, error) {
	now := time.Now()

	mc.mu.Lock()
	defer mc.mu.Unlock()

	for _, key := range keys {
		m, ok := mc.markers[key]
		if !ok {
			continue
		}
		if m.expired(now) {
			delete(mc.markers, key)
			continue
		}
		return true, nil
	}
	return false, nil
}

// evictSoonest drops the marker closest to expiry. Markers are
// TTL-bound suppression flags, so the one expiring next is the
// cheapest to lose. Caller holds mc.mu.
func (mc *MemoryCache) evictSoonest() {
	var victim string
	var soonest time.Time
	for key, m := range mc.markers {
		if victim == "" || m.expireAt.Before(soonest) {
			victim = key
			soonest = m.expireAt
		}
	}
	if victim != "" {
		delete(mc.markers, victim)
	}
}

func (mc *MemoryCache) sweep() {
	for range mc.sweeper.C {
		now := time.Now()
		mc.mu.Lock()
		for key, m := range mc.markers {
			if m.expired(now) {
				delete(mc.markers, key)
			}
		}
		mc.mu.Unlock()
	}
}

// Close stops the sweep ticker.
func (mc *MemoryCache) Close() error {
	if mc.sweeper != nil {
		mc.sweeper.Stop()
	}
	return nil
}
