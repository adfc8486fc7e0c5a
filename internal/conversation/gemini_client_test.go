package conversation

import (
	"context"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGeminiLLMClientRequiresKey(t *testing.T) {
	_, err := NewGeminiLLMClient(context.Background(), " ", "")
	assert.ErrorContains(t, err, "api key is required")
}

func TestGeminiTurns(t *testing.T) {
	history, last, err := geminiTurns([]ChatMessage{
		{Role: ChatRoleSystem, Content: "ignored here"},
		{Role: ChatRoleUser, Content: "my tooth hurts"},
		{Role: ChatRoleUser, Content: "since Monday"},
		{Role: ChatRoleAssistant, Content: "Sorry to hear that. Where are you?"},
		{Role: ChatRoleAssistant, Content: " "},
		{Role: ChatRoleUser, Content: "Pune"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Pune", last)
	require.Len(t, history, 2)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, []genai.Part{genai.Text("my tooth hurts\nsince Monday")}, history[0].Parts)
	assert.Equal(t, "model", history[1].Role)
}

func TestGeminiTurnsRejectsBadTranscripts(t *testing.T) {
	_, _, err := geminiTurns(nil)
	assert.ErrorContains(t, err, "at least one message")

	_, _, err = geminiTurns([]ChatMessage{{Role: ChatRoleUser, Content: "hi"}, {Role: ChatRoleAssistant, Content: "hello"}})
	assert.ErrorContains(t, err, "end with a user message")

	_, _, err = geminiTurns([]ChatMessage{{Role: "tool", Content: "x"}})
	assert.ErrorContains(t, err, "unsupported role")
}

func TestConfigureGeminiModel(t *testing.T) {
	model := &genai.GenerativeModel{}
	configureGeminiModel(model, LLMRequest{
		System:      []string{"persona", " "},
		Messages:    []ChatMessage{{Role: ChatRoleSystem, Content: "stage hint"}, {Role: ChatRoleUser, Content: "hi"}},
		MaxTokens:   64,
		Temperature: 0,
		JSON:        true,
	})
	require.NotNil(t, model.Temperature)
	assert.Equal(t, float32(0), *model.Temperature)
	assert.Equal(t, int32(64), *model.MaxOutputTokens)
	assert.Nil(t, model.TopP)
	assert.Equal(t, "application/json", model.ResponseMIMEType)
	assert.Equal(t, triageSafetySettings, model.SafetySettings)
	require.NotNil(t, model.SystemInstruction)
	assert.Equal(t, []genai.Part{genai.Text("persona\n\nstage hint")}, model.SystemInstruction.Parts)

	plain := &genai.GenerativeModel{}
	configureGeminiModel(plain, LLMRequest{Temperature: -1})
	assert.Nil(t, plain.Temperature)
	assert.Empty(t, plain.ResponseMIMEType)
	assert.Nil(t, plain.SystemInstruction)
}

func TestGeminiResponse(t *testing.T) {
	resp, err := geminiResponse(&genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content:      &genai.Content{Role: "model", Parts: []genai.Part{genai.Text(`{"reply": `), genai.Text(`"Which city?"} `)}},
			FinishReason: genai.FinishReasonStop,
		}},
		UsageMetadata: &genai.UsageMetadata{PromptTokenCount: 10, CandidatesTokenCount: 4, TotalTokenCount: 14},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"reply": "Which city?"}`, resp.Text)
	assert.Equal(t, genai.FinishReasonStop.String(), resp.StopReason)
	assert.Equal(t, ProviderGemini, resp.Provider)
	assert.Equal(t, int32(14), resp.Usage.TotalTokens)
}

func TestGeminiResponseFailures(t *testing.T) {
	_, err := geminiResponse(&genai.GenerateContentResponse{
		PromptFeedback: &genai.PromptFeedback{BlockReason: genai.BlockReasonSafety},
	})
	assert.ErrorIs(t, err, ErrReplyBlocked)

	_, err = geminiResponse(&genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonSafety}},
	})
	assert.ErrorIs(t, err, ErrReplyBlocked)

	_, err = geminiResponse(&genai.GenerateContentResponse{})
	assert.ErrorContains(t, err, "no candidates")

	_, err = geminiResponse(&genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []genai.Part{genai.Text("  ")}}}},
	})
	assert.ErrorContains(t, err, "empty content")
}
