package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ftp-kitchen/api/internal/cache"
)

type dashboard struct {
	TotalOrders int    `json:"total_orders"`
	Revenue     string `json:"revenue"`
}

func newTestCache(t *testing.T, ttl time.Duration) (*cache.StatsCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := cache.New(context.Background(), "redis://"+mr.Addr(), ttl)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c, mr
}

func TestStatsCache_HitAndExpiry(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	var got dashboard
	gen, ok, err := c.Get(ctx, "dashboard", &got)
	if err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}
	if err := c.Set(ctx, gen, "dashboard", dashboard{TotalOrders: 2, Revenue: "900.00"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "dashboard", &got); !ok || got.TotalOrders != 2 {
		t.Fatalf("expected hit with 2 orders, got ok=%v %+v", ok, got)
	}

	mr.FastForward(2 * time.Minute)
	if _, ok, _ := c.Get(ctx, "dashboard", &got); ok {
		t.Error("expected entry to expire with the ttl")
	}
}

func TestStatsCache_SetAfterInvalidateIsNotServed(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	// A reader misses and starts computing; a write invalidates meanwhile.
	var got dashboard
	gen, ok, err := c.Get(ctx, "dashboard", &got)
	if err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}
	if err := c.Invalidate(ctx); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if err := c.Set(ctx, gen, "dashboard", dashboard{TotalOrders: 1}); err != nil {
		t.Fatalf("set: %v", err)
	}

	newGen, ok, err := c.Get(ctx, "dashboard", &got)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Errorf("stale value served after invalidate: %+v", got)
	}
	if newGen == gen {
		t.Errorf("expected generation to advance past %d", gen)
	}
}

func TestStatsCache_NoTTLOnlyInvalidates(t *testing.T) {
	c, _ := newTestCache(t, 0)
	ctx := context.Background()

	if err := c.Set(ctx, 0, "dashboard", dashboard{TotalOrders: 1}); err == nil {
		t.Error("expected set to fail without a ttl")
	}
	if err := c.Invalidate(ctx); err != nil {
		t.Errorf("invalidate: %v", err)
	}
}
