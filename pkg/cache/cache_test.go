package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryCacheExpiry(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	if err := mc.Set(ctx, "alert:cooldown:a", "1", 20*time.Millisecond); err != nil {
		t.Fatalf("set: %v", err)
	}
	if ok, _ := mc.Exists(ctx, "alert:cooldown:a"); !ok {
		t.Fatalf("marker missing before expiry")
	}

	time.Sleep(30 * time.Millisecond)
	if ok, _ := mc.Exists(ctx, "alert:cooldown:a"); ok {
		t.Fatalf("marker alive after expiry")
	}
}

func TestMemoryCacheBoundedSize(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	mc.maxSize = 3
	ctx := context.Background()

	// earliest expiry goes first when the bound is hit
	_ = mc.Set(ctx, "a", "1", time.Minute)
	_ = mc.Set(ctx, "b", "1", time.Hour)
	_ = mc.Set(ctx, "c", "1", time.Hour)
	_ = mc.Set(ctx, "d", "1", time.Hour)

	if len(mc.markers) != 3 {
		t.Fatalf("markers: %d", len(mc.markers))
	}
	if ok, _ := mc.Exists(ctx, "a"); ok {
		t.Fatalf("soonest-expiring marker survived eviction")
	}
	for _, key := range []string{"b", "c", "d"} {
		if ok, _ := mc.Exists(ctx, key); !ok {
			t.Fatalf("marker %s evicted", key)
		}
	}
}

func TestMemoryCacheSetRefreshesExisting(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	mc.maxSize = 1
	ctx := context.Background()

	_ = mc.Set(ctx, "a", "1", time.Minute)
	// rewriting the same key must not evict it
	_ = mc.Set(ctx, "a", "2", time.Minute)

	if ok, _ := mc.Exists(ctx, "a"); !ok {
		t.Fatalf("marker lost on rewrite")
	}
}

func TestGenerateKeyWithParams(t *testing.T) {
	key := GenerateKeyWithParams("alert:cooldown", "price_change", "high", "aapl")
	if key != "alert:cooldown:price_change:high:aapl" {
		t.Fatalf("key: %s", key)
	}
}
