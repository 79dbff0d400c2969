//go:build integration

package cache_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ftp-kitchen/api/internal/cache"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestStatsCache(t *testing.T) {
	ctx := context.Background()
	redisURL, cleanup := setupRedisContainer(t, ctx)
	defer cleanup()

	c, err := cache.New(ctx, redisURL, time.Minute)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer c.Close()

	var got dashboard
	gen, ok, err := c.Get(ctx, "dashboard", &got)
	if err != nil || ok {
		t.Fatalf("expected empty cache, got ok=%v err=%v", ok, err)
	}

	if err := c.Set(ctx, gen, "dashboard", dashboard{TotalOrders: 3, Revenue: "600.00"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	_, ok, err = c.Get(ctx, "dashboard", &got)
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if got.TotalOrders != 3 || got.Revenue != "600.00" {
		t.Errorf("unexpected value: %+v", got)
	}

	if err := c.Invalidate(ctx); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	_, ok, err = c.Get(ctx, "dashboard", &got)
	if err != nil || ok {
		t.Errorf("expected miss after invalidate, got ok=%v err=%v", ok, err)
	}
}

func TestNew_BadURL(t *testing.T) {
	if _, err := cache.New(context.Background(), "not a url", time.Minute); err == nil {
		t.Fatal("expected error")
	}
}

func setupRedisContainer(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("start redis container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("get host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("get port: %v", err)
	}

	cleanup := func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	}
	return fmt.Sprintf("redis://%s:%s/0", host, port.Port()), cleanup
}
