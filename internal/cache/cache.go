package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/mikaelw/subtrack/internal/config"
)

// Cache TTLs.
const (
	DashboardStatsTTL = 30 * time.Second
	EntitlementsTTL   = 5 * time.Minute
)

// NewClient connects to Redis and verifies the connection. Returns nil when
// no address is configured; a nil client disables caching everywhere.
func NewClient(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	if cfg.RedisAddr == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		PoolTimeout:  4 * time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return client, nil
}

// Cache is a read-through JSON cache over Redis. All methods degrade to
// no-ops on a nil client so callers do not branch on cache availability.
// Cache failures are logged and treated as misses.
type Cache struct {
	client *redis.Client
	logger zerolog.Logger
}

func New(client *redis.Client, logger zerolog.Logger) *Cache {
	return &Cache{client: client, logger: logger.With().Str("component", "cache").Logger()}
}

// GetJSON loads the value stored under key into v. Returns false on miss,
// disabled cache, or error.
func (c *Cache) GetJSON(ctx context.Context, key string, v any) bool {
	if c == nil || c.client == nil {
		return false
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn().Err(err).Str("key", key).Msg("cache get failed")
		}
		return false
	}
	if err := json.Unmarshal(raw, v); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache entry corrupt, dropping")
		c.client.Del(ctx, key)
		return false
	}
	return true
}

// SetJSON stores v under key with the given TTL.
func (c *Cache) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) {
	if c == nil || c.client == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache marshal failed")
		return
	}
	if err := c.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache set failed")
	}
}

// Delete removes keys. Used for invalidation after mutations.
func (c *Cache) Delete(ctx context.Context, keys ...string) {
	if c == nil || c.client == nil || len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn().Err(err).Strs("keys", keys).Msg("cache delete failed")
	}
}
