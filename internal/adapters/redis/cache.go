// Package redisad keeps JSON snapshots of read models in Redis.
package redisad

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"estate_api/internal/adapters/observability"
)

// KeyPrefix namespaces every key so the API can share a Redis database.
const KeyPrefix = "estate:"

const metricLabel = "redis"

type Cache struct {
	rdb    *redis.Client
	prefix string
}

func New(addr, pass string, db int) *Cache {
	return &Cache{
		rdb:    redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db}),
		prefix: KeyPrefix,
	}
}

func (c *Cache) Ping(ctx context.Context) error { return c.rdb.Ping(ctx).Err() }

func (c *Cache) Close() error { return c.rdb.Close() }

func (c *Cache) key(k string) string { return c.prefix + k }

// Get decodes the value stored under key into dst. An undecodable value is
// dropped and reported as a miss.
func (c *Cache) Get(ctx context.Context, key string, dst any) (bool, error) {
	raw, err := c.rdb.Get(ctx, c.key(key)).Bytes()
	switch {
	case err == redis.Nil:
		observability.ObserveCache(metricLabel, "miss")
		return false, nil
	case err != nil:
		observability.ObserveCache(metricLabel, "error")
		return false, fmt.Errorf("cache get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("dropping undecodable cache entry")
		_ = c.rdb.Del(ctx, c.key(key)).Err()
		observability.ObserveCache(metricLabel, "miss")
		return false, nil
	}
	observability.ObserveCache(metricLabel, "hit")
	return true, nil
}

// Set stores v as JSON for ttlSec seconds. A non-positive TTL disables caching.
func (c *Cache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	if ttlSec <= 0 {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	if err := c.rdb.Set(ctx, c.key(key), b, time.Duration(ttlSec)*time.Second).Err(); err != nil {
		observability.ObserveCache(metricLabel, "error")
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	observability.ObserveCache(metricLabel, "set")
	return nil
}

func (c *Cache) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.key(k)
	}
	if err := c.rdb.Del(ctx, full...).Err(); err != nil {
		observability.ObserveCache(metricLabel, "error")
		return fmt.Errorf("cache del: %w", err)
	}
	observability.ObserveCache(metricLabel, "del")
	return nil
}

// Nop satisfies domain.Cache when no Redis is configured.
type Nop struct{}

func (Nop) Get(context.Context, string, any) (bool, error) { return false, nil }
func (Nop) Set(context.Context, string, any, int) error    { return nil }
func (Nop) Del(context.Context, ...string) error           { return nil }
