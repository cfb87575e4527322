package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/quietroom/therapy-booking/backend/internal/domain/entities"
	"github.com/quietroom/therapy-booking/backend/internal/domain/providers"
	redisclient "github.com/quietroom/therapy-booking/backend/internal/infrastructure/clients/redis"
	"github.com/quietroom/therapy-booking/backend/internal/infrastructure/observability"
)

// RedisCache is the busy cache for multi-instance deployments. TTL and
// eviction are delegated to Redis; invalidation scans the calendar's key
// prefix.
type RedisCache struct {
	client *redisclient.Client
}

// NewRedisCache creates a Redis-backed busy cache
func NewRedisCache(client *redisclient.Client) providers.BusyCache {
	return &RedisCache{client: client}
}

// Get retrieves cached intervals; cache errors degrade to a miss
func (c *RedisCache) Get(ctx context.Context, key string) ([]entities.BusyInterval, bool) {
	data, err := c.client.Client().Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("key", key).Msg("busy cache read failed")
		return nil, false
	}

	var intervals []entities.BusyInterval
	if err := json.Unmarshal(data, &intervals); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("key", key).Msg("busy cache entry corrupt")
		return nil, false
	}
	return intervals, true
}

// Set stores intervals with a native Redis TTL
func (c *RedisCache) Set(ctx context.Context, key string, intervals []entities.BusyInterval, ttl time.Duration) {
	data, err := json.Marshal(intervals)
	if err != nil {
		return
	}
	if err := c.client.Client().Set(ctx, key, data, ttl).Err(); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("key", key).Msg("busy cache write failed")
	}
}

// Invalidate deletes every key under the calendar's prefix
func (c *RedisCache) Invalidate(ctx context.Context, calendarID string) {
	pattern := providers.BusyKeyPrefix(calendarID) + "*"

	iter := c.client.Client().Scan(ctx, 0, pattern, 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("calendar_id", calendarID).Msg("busy cache scan failed")
		return
	}

	if len(keys) > 0 {
		if err := c.client.Client().Del(ctx, keys...).Err(); err != nil {
			observability.LoggerFromContext(ctx).Warn().Err(err).Str("calendar_id", calendarID).Msg("busy cache invalidation failed")
		}
	}
}
