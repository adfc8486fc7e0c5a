package conversation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/careconnect/pkg/logging"
)

const defaultResponseCacheTTL = 10 * time.Minute

// CachingLLMClient memoises completions in Redis, keyed by a hash of the
// serialized request. Cache failures are logged and bypassed.
type CachingLLMClient struct {
	next   LLMClient
	redis  *redis.Client
	ttl    time.Duration
	logger *logging.Logger
}

func NewCachingLLMClient(next LLMClient, client *redis.Client, ttl time.Duration, logger *logging.Logger) *CachingLLMClient {
	if next == nil {
		panic("conversation: caching llm client requires a delegate")
	}
	if client == nil {
		panic("conversation: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = defaultResponseCacheTTL
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &CachingLLMClient{next: next, redis: client, ttl: ttl, logger: logger}
}

func (c *CachingLLMClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	key, err := responseCacheKey(req)
	if err != nil {
		return c.next.Complete(ctx, req)
	}

	data, err := c.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cached LLMResponse
		if jsonErr := json.Unmarshal(data, &cached); jsonErr == nil {
			return cached, nil
		}
		c.logger.Warn("response cache entry corrupt", "key", key)
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("response cache read failed", "error", err)
	}

	resp, err := c.next.Complete(ctx, req)
	if err != nil {
		return LLMResponse{}, err
	}
	if encoded, err := json.Marshal(resp); err == nil {
		if err := c.redis.Set(ctx, key, encoded, c.ttl).Err(); err != nil {
			c.logger.Warn("response cache write failed", "error", err)
		}
	}
	return resp, nil
}

func responseCacheKey(req LLMRequest) (string, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("conversation: encode cache key: %w", err)
	}
	sum := sha256.Sum256(payload)
	return "llmcache:" + hex.EncodeToString(sum[:]), nil
}
