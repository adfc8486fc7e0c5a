package conversation

import (
	"context"
	"errors"
)

const (
	ChatRoleSystem    = "system"
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// ChatMessage is the provider-neutral message passed to an LLMClient.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ErrReplyBlocked is returned when a provider withholds its reply on safety
// grounds.
var ErrReplyBlocked = errors.New("conversation: reply blocked by provider safety filter")

type TokenUsage struct {
	InputTokens  int32 `json:"input_tokens"`
	OutputTokens int32 `json:"output_tokens"`
	TotalTokens  int32 `json:"total_tokens"`
}

type LLMRequest struct {
	Model       string        `json:"model,omitempty"`
	System      []string      `json:"system,omitempty"`
	Messages    []ChatMessage `json:"messages"`
	MaxTokens   int32         `json:"max_tokens,omitempty"`
	Temperature float32       `json:"temperature"`
	TopP        float32       `json:"top_p,omitempty"`
	// JSON asks the provider for a single JSON object reply.
	JSON bool `json:"json,omitempty"`
}

type LLMResponse struct {
	Text       string     `json:"text"`
	Usage      TokenUsage `json:"usage"`
	StopReason string     `json:"stop_reason,omitempty"`
	Provider   string     `json:"provider,omitempty"`
}

// LLMClient is a remote text generation provider.
type LLMClient interface {
	Complete(ctx context.Context, req LLMRequest) (LLMResponse, error)
}
