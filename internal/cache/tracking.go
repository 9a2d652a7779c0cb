package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Fonality-code/wayfinder-life-sub000/internal/types"
)

// Cache key prefixes and TTLs.
const (
	trackingKeyPrefix = "track:"
	negCacheKeySuffix = ":neg"

	// DefaultTrackingTTL is the TTL for cached tracking results.
	DefaultTrackingTTL = 5 * time.Minute

	// NegativeCacheTTL is the TTL for negative cache entries, protecting
	// the database from repeated lookups of unknown tracking numbers.
	NegativeCacheTTL = 1 * time.Minute
)

// Common cache errors.
var (
	ErrCacheMiss = errors.New("cache miss")
)

// GetTracking retrieves a cached tracking result by tracking number.
// Returns ErrCacheMiss if not found.
func (c *Cache) GetTracking(ctx context.Context, trackingNumber string) (*types.TrackingResult, error) {
	key := trackingKeyPrefix + trackingNumber

	payload, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var result types.TrackingResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("failed to decode cached tracking result: %w", err)
	}
	return &result, nil
}

// SetTracking stores a tracking result with the given TTL (DefaultTrackingTTL
// when ttl <= 0) and clears any negative cache entry.
func (c *Cache) SetTracking(ctx context.Context, trackingNumber string, result *types.TrackingResult, ttl time.Duration) error {
	key := trackingKeyPrefix + trackingNumber

	if ttl <= 0 {
		ttl = DefaultTrackingTTL
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode tracking result: %w", err)
	}

	pipe := c.client.Pipeline()
	pipe.Set(ctx, key, payload, ttl)
	pipe.Del(ctx, key+negCacheKeySuffix)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cache tracking result: %w", err)
	}
	return nil
}

// InvalidateTracking removes a tracking result from cache, e.g. after a
// status update.
func (c *Cache) InvalidateTracking(ctx context.Context, trackingNumber string) error {
	key := trackingKeyPrefix + trackingNumber

	pipe := c.client.Pipeline()
	pipe.Del(ctx, key)
	pipe.Del(ctx, key+negCacheKeySuffix)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to invalidate tracking cache: %w", err)
	}
	return nil
}

// IsNegativelyCached checks if a tracking number is known to not exist.
func (c *Cache) IsNegativelyCached(ctx context.Context, trackingNumber string) (bool, error) {
	key := trackingKeyPrefix + trackingNumber + negCacheKeySuffix

	exists, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check negative cache: %w", err)
	}
	return exists > 0, nil
}

// SetNegativeCache marks a tracking number as not found.
func (c *Cache) SetNegativeCache(ctx context.Context, trackingNumber string) error {
	key := trackingKeyPrefix + trackingNumber + negCacheKeySuffix

	if err := c.client.SetEx(ctx, key, "", NegativeCacheTTL).Err(); err != nil {
		return fmt.Errorf("failed to set negative cache: %w", err)
	}
	return nil
}
