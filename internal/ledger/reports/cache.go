package reports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Cache stores rendered reports in redis. Concurrent requests for the same
// key collapse into one computation via singleflight. Cache failures degrade
// to recomputation, never to an error for the caller.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
}

// NewCache constructs the report cache.
func NewCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{client: client, ttl: ttl, logger: logger}
}

func cacheKey(tenantID uuid.UUID, kind string, params string) string {
	return fmt.Sprintf("reports:%s:%s:%s", tenantID, kind, params)
}

// getOrCompute returns the cached value for key, or computes, stores, and
// returns it.
func getOrCompute[T any](ctx context.Context, c *Cache, key string, compute func() (T, error)) (T, error) {
	var zero T
	if c == nil || c.client == nil {
		return compute()
	}
	if raw, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var cached T
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
		c.logger.Warn("report cache entry corrupt, recomputing", "key", key)
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("report cache read failed", "key", key, "error", err)
	}
	value, err, _ := c.group.Do(key, func() (any, error) {
		computed, err := compute()
		if err != nil {
			return zero, err
		}
		if raw, err := json.Marshal(computed); err == nil {
			if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
				c.logger.Warn("report cache write failed", "key", key, "error", err)
			}
		}
		return computed, nil
	})
	if err != nil {
		return zero, err
	}
	return value.(T), nil
}

// Invalidate drops every cached report for a tenant. Called after any write
// that changes balances.
func (c *Cache) Invalidate(ctx context.Context, tenantID uuid.UUID) {
	if c == nil || c.client == nil {
		return
	}
	pattern := fmt.Sprintf("reports:%s:*", tenantID)
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			c.logger.Warn("report cache invalidation failed", "tenant", tenantID, "error", err)
			return
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				c.logger.Warn("report cache delete failed", "tenant", tenantID, "error", err)
				return
			}
		}
		cursor = next
		if cursor == 0 {
			return
		}
	}
}
