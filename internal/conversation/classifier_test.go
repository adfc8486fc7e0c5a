package conversation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubLLM struct {
	text  string
	err   error
	calls int
	last  LLMRequest
}

func (s *stubLLM) Complete(_ context.Context, req LLMRequest) (LLMResponse, error) {
	s.calls++
	s.last = req
	if s.err != nil {
		return LLMResponse{}, s.err
	}
	return LLMResponse{Text: s.text}, nil
}

func TestDetermineTreatmentType(t *testing.T) {
	tests := []struct {
		name      string
		utterance string
		want      TreatmentType
		matched   bool
	}{
		{name: "cavity", utterance: "I have a cavity", want: TreatmentDental, matched: true},
		{name: "tooth pain", utterance: "I have persistent tooth pain", want: TreatmentDental, matched: true},
		{name: "losing hair", utterance: "I'm losing my hair", want: TreatmentHair, matched: true},
		{name: "bald spot", utterance: "there's a bald patch on my crown area", want: TreatmentHair, matched: true},
		{name: "botox", utterance: "thinking about Botox for wrinkles", want: TreatmentCosmetic, matched: true},
		{name: "acne", utterance: "my acne scars bother me", want: TreatmentCosmetic, matched: true},
		{name: "ivf", utterance: "we are trying for a baby and considering IVF", want: TreatmentIVF, matched: true},
		{name: "fertility", utterance: "fertility check", want: TreatmentIVF, matched: true},
		{name: "first family wins", utterance: "hair loss and a toothache", want: TreatmentHair, matched: true},
		{name: "no match", utterance: "I feel dizzy", matched: false},
		{name: "empty", utterance: "   ", matched: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DetermineTreatmentType(tt.utterance)
			assert.Equal(t, tt.matched, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestKeywordClassifierConfidence(t *testing.T) {
	c := NewKeywordClassifier()
	assert.Equal(t, Classification{Category: TreatmentDental, Confidence: 1}, c.Classify(context.Background(), "root canal"))
	assert.False(t, c.Classify(context.Background(), "hello").Matched())
}

func TestLLMClassifier(t *testing.T) {
	tests := []struct {
		name      string
		utterance string
		llm       *stubLLM
		want      TreatmentType
		wantCalls int
	}{
		{
			name:      "keywords short-circuit the model",
			utterance: "my gums bleed",
			llm:       &stubLLM{text: `{"category": "hair", "confidence": 0.99}`},
			want:      TreatmentDental,
			wantCalls: 0,
		},
		{
			name:      "model classifies unmatched text",
			utterance: "we want to start a family but nothing is working",
			llm:       &stubLLM{text: `{"category": "ivf", "confidence": 0.9}`},
			want:      TreatmentIVF,
			wantCalls: 1,
		},
		{
			name:      "low confidence is ignored",
			utterance: "I feel off",
			llm:       &stubLLM{text: `{"category": "general", "confidence": 0.3}`},
			wantCalls: 1,
		},
		{
			name:      "malformed json is ignored",
			utterance: "something odd",
			llm:       &stubLLM{text: `{"category": `},
			wantCalls: 1,
		},
		{
			name:      "unknown category is ignored",
			utterance: "something odd",
			llm:       &stubLLM{text: `{"category": "astrology", "confidence": 1}`},
			wantCalls: 1,
		},
		{
			name:      "errors are absorbed",
			utterance: "something odd",
			llm:       &stubLLM{err: errors.New("timeout")},
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewLLMClassifier(tt.llm, nil, nil)
			got := c.Classify(context.Background(), tt.utterance)
			assert.Equal(t, tt.want, got.Category)
			assert.Equal(t, tt.wantCalls, tt.llm.calls)
		})
	}
}
