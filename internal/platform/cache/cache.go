// Package cache wraps a Redis client for best-effort caching. Every operation
// is nil-safe and swallows backend errors: a cache miss and a cache outage
// look the same to callers, so the store remains the source of truth.
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type Cache struct {
	client *redis.Client
	logger zerolog.Logger
}

// New connects to Redis at redisURL. An empty URL or a failed connection
// yields a disabled cache rather than an error.
func New(ctx context.Context, redisURL string, logger zerolog.Logger) *Cache {
	if redisURL == "" {
		return &Cache{logger: logger}
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.Warn().Err(err).Msg("invalid REDIS_URL, caching disabled")
		return &Cache{logger: logger}
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Msg("redis unreachable, caching disabled")
		return &Cache{logger: logger}
	}

	return &Cache{client: client, logger: logger}
}

// Enabled reports whether a Redis backend is connected.
func (c *Cache) Enabled() bool {
	return c != nil && c.client != nil
}

// Get returns the cached value and whether it was present.
func (c *Cache) Get(ctx context.Context, key string) (string, bool) {
	if !c.Enabled() {
		return "", false
	}
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn().Err(err).Str("key", key).Msg("cache get failed")
		}
		return "", false
	}
	return val, true
}

func (c *Cache) Set(ctx context.Context, key, value string, ttl time.Duration) {
	if !c.Enabled() {
		return
	}
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache set failed")
	}
}

func (c *Cache) Delete(ctx context.Context, keys ...string) {
	if !c.Enabled() || len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("cache delete failed")
	}
}

// Close releases the underlying connection, if any.
func (c *Cache) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Close()
}
