package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	appconfig "github.com/wolfman30/careconnect/internal/config"
	"github.com/wolfman30/careconnect/internal/conversation"
	"github.com/wolfman30/careconnect/internal/observability/metrics"
	"github.com/wolfman30/careconnect/pkg/logging"
)

// BuildLLMClient wires Gemini as the primary provider with Bedrock as the
// alternate, wrapped by the Redis response cache when Redis is available.
// It returns nil when no provider is configured; replies are then canned.
func BuildLLMClient(ctx context.Context, cfg *appconfig.Config, awsCfg *aws.Config, redisClient *redis.Client, logger *logging.Logger) (conversation.LLMClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var primary, alternate conversation.LLMClient
	if strings.TrimSpace(cfg.GeminiAPIKey) != "" {
		gemini, err := conversation.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			return nil, err
		}
		primary = gemini
	}
	if strings.TrimSpace(cfg.BedrockModelID) != "" && awsCfg != nil {
		alternate = conversation.NewBedrockLLMClient(bedrockruntime.NewFromConfig(*awsCfg), cfg.BedrockModelID)
	}

	var client conversation.LLMClient
	switch {
	case primary != nil && alternate != nil:
		client = conversation.NewFallbackLLMClient(primary, alternate, logger)
		logger.Info("using gemini with bedrock fallback", "gemini_model", cfg.GeminiModelID, "bedrock_model", cfg.BedrockModelID)
	case primary != nil:
		client = primary
		logger.Info("using gemini", "model", cfg.GeminiModelID)
	case alternate != nil:
		client = alternate
		logger.Info("using bedrock", "model", cfg.BedrockModelID)
	default:
		logger.Warn("no remote model configured; replies will use the canned question library")
		return nil, nil
	}

	if redisClient != nil {
		client = conversation.NewCachingLLMClient(client, redisClient, cfg.ResponseCacheTTL, logger)
	}
	return client, nil
}

// BuildStateStore returns the Redis state store, or the in-memory store when
// Redis is unavailable.
func BuildStateStore(cfg *appconfig.Config, redisClient *redis.Client, logger *logging.Logger) conversation.StateStore {
	if redisClient == nil {
		if logger != nil {
			logger.Warn("redis unavailable; chat sessions are kept in memory")
		}
		return conversation.NewMemoryStateStore()
	}
	return conversation.NewRedisStateStore(redisClient, cfg.SessionTTL, otel.Tracer("careconnect.conversation"))
}

// BuildEngine assembles the triage engine.
func BuildEngine(
	cfg *appconfig.Config,
	store conversation.StateStore,
	llm conversation.LLMClient,
	recommender conversation.Recommender,
	chatMetrics *metrics.ChatMetrics,
	onComplete conversation.CompletionHook,
	logger *logging.Logger,
) *conversation.Engine {
	var classifier conversation.Classifier = conversation.NewKeywordClassifier()
	if cfg.UseLLMClassifier && llm != nil {
		classifier = conversation.NewLLMClassifier(llm, nil, logger)
	}

	responderOpts := []conversation.ResponderOption{
		conversation.WithLLMTimeout(cfg.LLMTimeout),
		conversation.WithMaxTokens(cfg.LLMMaxTokens),
	}
	engineOpts := []conversation.EngineOption{}
	if chatMetrics != nil {
		responderOpts = append(responderOpts, conversation.WithReplyObserver(chatMetrics))
		engineOpts = append(engineOpts, conversation.WithTurnObserver(chatMetrics))
	}
	if onComplete != nil {
		engineOpts = append(engineOpts, conversation.WithCompletionHook(onComplete))
	}

	return conversation.NewEngine(
		store,
		conversation.NewSlotExtractor(classifier),
		conversation.NewResponseGenerator(llm, logger, responderOpts...),
		recommender,
		logger,
		engineOpts...,
	)
}
