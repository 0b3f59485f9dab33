package cache

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

type payload struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisCache) {
	t.Helper()
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	if err != nil {
		t.Fatal(err)
	}
	rc, err := NewRedisCache(WithRedisAddr(mr.Host(), port), WithRedisPrefix("test"))
	if err != nil {
		t.Fatalf("redis: %v", err)
	}
	t.Cleanup(func() { _ = rc.Close() })
	return mr, rc
}

func TestMemoryCacheRoundTripsStructs(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	if err := mc.Set(ctx, "k", payload{Name: "BTC", Price: 1.5}, time.Minute); err != nil {
		t.Fatal(err)
	}
	var got payload
	if err := mc.Get(ctx, "k", &got); err != nil {
		t.Fatal(err)
	}
	if got.Name != "BTC" || got.Price != 1.5 {
		t.Fatalf("got %+v", got)
	}

	var missing payload
	if err := mc.Get(ctx, "nope", &missing); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss, got %v", err)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mc.now = func() time.Time { return now }
	_ = mc.Set(ctx, "k", "v", time.Second)

	now = now.Add(2 * time.Second)
	var s string
	if err := mc.Get(ctx, "k", &s); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected expiry, got %v (%q)", err, s)
	}
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mc.now = func() time.Time { now = now.Add(time.Millisecond); return now }

	_ = mc.Set(ctx, "a", "1", time.Hour)
	_ = mc.Set(ctx, "b", "2", time.Hour)
	var s string
	_ = mc.Get(ctx, "a", &s)
	_ = mc.Set(ctx, "c", "3", time.Hour)

	if ok, _ := mc.Exists(ctx, "b"); ok {
		t.Fatalf("b should have been evicted")
	}
	if ok, _ := mc.Exists(ctx, "a", "c"); !ok {
		t.Fatalf("a and c should remain")
	}
}

func TestRedisCache(t *testing.T) {
	ctx := context.Background()
	mr, rc := newTestRedis(t)

	if err := rc.Set(ctx, "view", payload{Name: "ETH", Price: 2}, time.Minute); err != nil {
		t.Fatal(err)
	}
	if !mr.Exists("test:view") {
		t.Fatalf("prefix not applied, keys=%v", mr.Keys())
	}
	var got payload
	if err := rc.Get(ctx, "view", &got); err != nil || got.Name != "ETH" {
		t.Fatalf("got %+v err=%v", got, err)
	}

	mr.FastForward(2 * time.Minute)
	if err := rc.Get(ctx, "view", &got); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss after ttl, got %v", err)
	}
}

func TestLayeredCacheFillsMemoryFromRedis(t *testing.T) {
	ctx := context.Background()
	mr, rc := newTestRedis(t)
	lc := NewLayeredCache(rc, time.Minute)
	defer lc.memCache.Close()

	if err := rc.Set(ctx, "k", payload{Name: "SOL"}, time.Hour); err != nil {
		t.Fatal(err)
	}
	var got payload
	if err := lc.Get(ctx, "k", &got); err != nil || got.Name != "SOL" {
		t.Fatalf("got %+v err=%v", got, err)
	}

	mr.Del("test:k")
	got = payload{}
	if err := lc.Get(ctx, "k", &got); err != nil || got.Name != "SOL" {
		t.Fatalf("memory layer should serve, got %+v err=%v", got, err)
	}

	_ = lc.Delete(ctx, "k")
	if err := lc.Get(ctx, "k", &got); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss, got %v", err)
	}
}
