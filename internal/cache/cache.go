package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/reai/reai-backend/internal/app"
	"github.com/reai/reai-backend/internal/platform/logger"
)

// Cache is a write-through JSON cache over Redis. It is never authoritative:
// a miss only signals recomputation from the record store, and every value is
// bounded by a TTL. Eviction under memory pressure is the server's concern
// (allkeys-lfu); the client never assumes a key is still present.
type Cache struct {
	rdb    *goredis.Client
	log    *logger.Logger
	ttl    time.Duration
	prefix string
}

func New(redisCfg app.RedisConfig, cacheCfg app.CacheConfig, baseLog *logger.Logger) (*Cache, error) {
	if redisCfg.Addr == "" {
		return nil, fmt.Errorf("missing redis addr")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        redisCfg.Addr,
		Password:    redisCfg.Password,
		DB:          redisCfg.DB,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return NewWithClient(rdb, cacheCfg, baseLog), nil
}

// NewWithClient wraps an existing Redis client; used by tests.
func NewWithClient(rdb *goredis.Client, cacheCfg app.CacheConfig, baseLog *logger.Logger) *Cache {
	prefix := cacheCfg.Prefix
	if prefix == "" {
		prefix = "reai"
	}
	ttl := cacheCfg.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{
		rdb:    rdb,
		log:    baseLog.With("service", "Cache"),
		ttl:    ttl,
		prefix: prefix,
	}
}

func (c *Cache) Close() error { return c.rdb.Close() }

func (c *Cache) Ping(ctx context.Context) error { return c.rdb.Ping(ctx).Err() }

// Get unmarshals the cached value into dest. The second return is false on a
// miss; a miss is never an error.
func (c *Cache) Get(ctx context.Context, key string, dest any) (bool, error) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		// A poisoned entry behaves like a miss; the next write repairs it.
		c.log.Warn("Dropping undecodable cache entry", "key", key, "error", err)
		_ = c.rdb.Del(ctx, key).Err()
		return false, nil
	}
	return true, nil
}

func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal %s: %w", key, err)
	}
	if ttl <= 0 {
		ttl = c.ttl
	}
	if err := c.rdb.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

func (c *Cache) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache invalidate: %w", err)
	}
	return nil
}

// InvalidatePrefix deletes every key under prefix via SCAN; used to drop
// derived list and stats payloads after a write.
func (c *Cache) InvalidatePrefix(ctx context.Context, prefix string) error {
	var cursor uint64
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, prefix+"*", 100).Result()
		if err != nil {
			return fmt.Errorf("cache scan %s: %w", prefix, err)
		}
		if len(keys) > 0 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("cache invalidate prefix %s: %w", prefix, err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}
