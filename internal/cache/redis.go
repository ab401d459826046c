// Package cache wraps Redis for response caching. The cache is an
// optimization layer only: every operation degrades to a miss or a
// no-op when Redis is down, so graph queries keep working without it.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Response cache TTLs per query family.
const (
	TTLNeighborhood = 10 * time.Minute
	TTLPath         = 7 * 24 * time.Hour
	TTLHiring       = 30 * time.Minute
	TTLStats        = time.Hour
)

// Client wraps a Redis connection with JSON helpers.
type Client struct {
	client *redis.Client
	logger *slog.Logger
}

// NewClient connects to Redis and verifies connectivity. A nil *Client
// is safe to use: every method treats it as an always-miss cache.
func NewClient(ctx context.Context, addr, password string) (*Client, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis addr missing")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}

	logger := slog.Default().With("component", "cache")
	logger.Info("redis connected", "addr", addr)
	return &Client{client: client, logger: logger}, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}

// Get unmarshals the cached value for key into target. Returns false on
// miss; Redis failures are logged and reported as misses.
func (c *Client) Get(ctx context.Context, key string, target any) bool {
	if c == nil {
		return false
	}
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false
	}
	if err != nil {
		c.logger.Warn("cache get failed", "key", key, "error", err)
		return false
	}
	if err := json.Unmarshal([]byte(val), target); err != nil {
		c.logger.Warn("cached value corrupt, dropping", "key", key, "error", err)
		c.client.Del(ctx, key)
		return false
	}
	return true
}

// Set stores value as JSON under key with the given TTL. Failures are
// logged, never surfaced.
func (c *Client) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	if c == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		c.logger.Warn("cache set failed", "key", key, "error", err)
	}
}

// Delete removes a key.
func (c *Client) Delete(ctx context.Context, key string) {
	if c == nil {
		return
	}
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.Warn("cache delete failed", "key", key, "error", err)
	}
}

// Key builds a colon-separated cache key from a prefix and parts.
func Key(prefix string, parts ...string) string {
	return prefix + ":" + strings.Join(parts, ":")
}
