package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	keyPrefix     = "ftp:stats:"
	generationKey = keyPrefix + "gen"
)

// StatsCache memoizes computed analytics in Redis. Entries are keyed by a
// generation counter; Invalidate bumps the counter so every older entry
// becomes unreachable and expires on its own.
type StatsCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// errNoTTL is returned by Set on a cache opened without a TTL. Such a cache
// can only invalidate.
var errNoTTL = errors.New("stats cache opened without a ttl")

// New connects to redisURL and verifies the connection. A cache with a
// non-positive ttl only supports Invalidate.
func New(ctx context.Context, redisURL string, ttl time.Duration) (*StatsCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &StatsCache{rdb: rdb, ttl: ttl}, nil
}

// Get decodes the cached value for key into dst. It also returns the
// generation it looked under; pass that to Set so a value computed before an
// Invalidate is never stored where later readers can find it.
func (c *StatsCache) Get(ctx context.Context, key string, dst any) (int64, bool, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return 0, false, err
	}
	k := c.key(gen, key)
	val, err := c.rdb.Get(ctx, k).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return gen, false, nil
		}
		return gen, false, fmt.Errorf("get %s: %w", k, err)
	}
	if err := json.Unmarshal(val, dst); err != nil {
		return gen, false, fmt.Errorf("decode %s: %w", k, err)
	}
	return gen, true, nil
}

// Set stores v under key for generation gen, as returned by Get.
func (c *StatsCache) Set(ctx context.Context, gen int64, key string, v any) error {
	if c.ttl <= 0 {
		return errNoTTL
	}
	k := c.key(gen, key)
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", k, err)
	}
	return c.rdb.Set(ctx, k, data, c.ttl).Err()
}

// Invalidate drops every cached value.
func (c *StatsCache) Invalidate(ctx context.Context) error {
	if err := c.rdb.Incr(ctx, generationKey).Err(); err != nil {
		return fmt.Errorf("bump stats generation: %w", err)
	}
	return nil
}

func (c *StatsCache) Close() error {
	return c.rdb.Close()
}

func (c *StatsCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.rdb.Get(ctx, generationKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("read stats generation: %w", err)
	}
	return gen, nil
}

func (c *StatsCache) key(gen int64, key string) string {
	return fmt.Sprintf("%s%d:%s", keyPrefix, gen, key)
}
