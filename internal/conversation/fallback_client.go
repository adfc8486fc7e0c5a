package conversation

import (
	"context"
	"errors"
	"fmt"

	"github.com/wolfman30/careconnect/pkg/logging"
)

// FallbackLLMClient sends each request to the primary provider and retries
// once on the alternate when the primary fails.
type FallbackLLMClient struct {
	primary  LLMClient
	fallback LLMClient
	logger   *logging.Logger
}

// NewFallbackLLMClient accepts a nil fallback; the client then behaves like
// the primary alone.
func NewFallbackLLMClient(primary, fallback LLMClient, logger *logging.Logger) *FallbackLLMClient {
	if logger == nil {
		logger = logging.Default()
	}
	return &FallbackLLMClient{primary: primary, fallback: fallback, logger: logger}
}

func (c *FallbackLLMClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	resp, err := c.primary.Complete(ctx, req)
	if err == nil {
		return resp, nil
	}
	if c.fallback == nil || ctx.Err() != nil {
		return LLMResponse{}, err
	}
	// A safety block is a verdict on the content, not an outage.
	if errors.Is(err, ErrReplyBlocked) {
		c.logger.Info("primary provider blocked the reply; not retrying")
		return LLMResponse{}, err
	}

	c.logger.Warn("primary provider failed, trying alternate", "error", err)
	resp, fallbackErr := c.fallback.Complete(ctx, req)
	if fallbackErr != nil {
		c.logger.Error("alternate provider failed", "primary_error", err, "fallback_error", fallbackErr)
		return LLMResponse{}, fmt.Errorf("conversation: all providers failed: %w", errors.Join(err, fallbackErr))
	}
	c.logger.Info("alternate provider answered", "provider", resp.Provider)
	return resp, nil
}
