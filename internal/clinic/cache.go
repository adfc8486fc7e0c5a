package clinic

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/careconnect/pkg/logging"
)

const defaultCacheTTL = 5 * time.Minute

// ResultCache stores recommendation lists for a short time.
type ResultCache interface {
	Get(ctx context.Context, key string) (Result, bool)
	Set(ctx context.Context, key string, result Result)
}

// RedisResultCache keeps results as JSON strings with a TTL. Cache errors
// are logged and treated as misses.
type RedisResultCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logging.Logger
}

func NewRedisResultCache(client *redis.Client, ttl time.Duration, logger *logging.Logger) *RedisResultCache {
	if client == nil {
		panic("clinic: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &RedisResultCache{client: client, ttl: ttl, logger: logger}
}

func (c *RedisResultCache) Get(ctx context.Context, key string) (Result, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("clinic cache read failed", "key", key, "error", err)
		}
		return Result{}, false
	}
	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		c.logger.Warn("clinic cache entry corrupt", "key", key, "error", err)
		return Result{}, false
	}
	return result, true
}

func (c *RedisResultCache) Set(ctx context.Context, key string, result Result) {
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Warn("clinic cache encode failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("clinic cache write failed", "key", key, "error", err)
	}
}
