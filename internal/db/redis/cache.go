package redisdb

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"confluencekb/internal/domain/kb"
	applog "confluencekb/internal/platform/log"
)

// Cache is the Redis-backed kb.CacheStore. Every operation is non-fatal on
// backend unavailability: it degrades to a miss / false / 0 and bumps the
// errors counter instead of propagating transport errors.
type Cache struct {
	redis *redis.Client

	hits   atomic.Int64
	misses atomic.Int64
	sets   atomic.Int64
	errors atomic.Int64
}

// NewCache wraps an existing client. A nil client yields a disabled cache
// that still satisfies the contract.
func NewCache(rdb *redis.Client) *Cache {
	return &Cache{redis: rdb}
}

// Connect builds a client from a redis URL and pings it. A failed ping is
// logged but still returns a usable (degraded) cache.
func Connect(ctx context.Context, url string) *Cache {
	opts, err := redis.ParseURL(url)
	if err != nil {
		applog.Warn("[KB/Cache] Invalid redis URL, cache disabled", "error", err)
		return NewCache(nil)
	}

	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		applog.Warn("[KB/Cache] Redis ping failed, operations will degrade", "error", err)
	} else {
		applog.Info("[KB/Cache] Connected to Redis")
	}
	return NewCache(rdb)
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	if c.redis == nil {
		return nil, false
	}

	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			c.misses.Add(1)
		} else {
			applog.Warn("[KB/Cache] Get failed", "key", key, "error", err)
			c.errors.Add(1)
		}
		return nil, false
	}

	c.hits.Add(1)
	return data, true
}

func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) bool {
	if c.redis == nil {
		return false
	}

	if err := c.redis.Set(ctx, key, value, ttl).Err(); err != nil {
		applog.Warn("[KB/Cache] Set failed", "key", key, "error", err)
		c.errors.Add(1)
		return false
	}

	c.sets.Add(1)
	return true
}

func (c *Cache) Delete(ctx context.Context, key string) bool {
	if c.redis == nil {
		return false
	}

	n, err := c.redis.Del(ctx, key).Result()
	if err != nil {
		applog.Warn("[KB/Cache] Delete failed", "key", key, "error", err)
		c.errors.Add(1)
		return false
	}
	return n > 0
}

// DeleteByPrefix removes every key under prefix via SCAN and returns the
// count removed.
func (c *Cache) DeleteByPrefix(ctx context.Context, prefix string) int {
	if c.redis == nil {
		return 0
	}

	var keys []string
	iter := c.redis.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		applog.Warn("[KB/Cache] Scan failed", "prefix", prefix, "error", err)
		c.errors.Add(1)
		return 0
	}
	if len(keys) == 0 {
		return 0
	}

	deleted, err := c.redis.Del(ctx, keys...).Result()
	if err != nil {
		applog.Warn("[KB/Cache] Bulk delete failed", "prefix", prefix, "error", err)
		c.errors.Add(1)
		return 0
	}
	return int(deleted)
}

func (c *Cache) Available(ctx context.Context) bool {
	if c.redis == nil {
		return false
	}
	return c.redis.Ping(ctx).Err() == nil
}

// Stats returns the running counters. HitRate is 0 before any request.
func (c *Cache) Stats() kb.CacheStats {
	hits := c.hits.Load()
	misses := c.misses.Load()

	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return kb.CacheStats{
		Hits:    hits,
		Misses:  misses,
		Sets:    c.sets.Load(),
		Errors:  c.errors.Load(),
		HitRate: hitRate,
	}
}
