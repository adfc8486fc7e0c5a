package conversation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReply(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr error
	}{
		{name: "json object", raw: `{"reply": "Which city are you in?"}`, want: "Which city are you in?"},
		{name: "fenced json", raw: "```json\n{\"reply\": \"When works for you?\"}\n```", want: "When works for you?"},
		{name: "json with preamble", raw: `Sure! {"reply": "Tell me more."}`, want: "Tell me more."},
		{name: "message key", raw: `{"message": "Hello"}`, want: "Hello"},
		{name: "plain text", raw: "Which city are you in?", want: "Which city are you in?"},
		{name: "unterminated json", raw: `{"reply": "oops`, wantErr: ErrMalformedReply},
		{name: "broken json", raw: `{"reply": oops}`, wantErr: ErrMalformedReply},
		{name: "empty reply field", raw: `{"reply": ""}`, wantErr: ErrEmptyReply},
		{name: "blank", raw: "   ", wantErr: ErrEmptyReply},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseReply(tt.raw)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func chattingState(stage Stage) *State {
	s := stateAt(stage, Slots{MedicalIssue: stringPtr("tooth pain"), TreatmentType: treatmentPtr(TreatmentDental)})
	s.appendMessage(newMessage(SenderAI, "Hello! What brings you in?", time.Now()))
	s.appendMessage(newMessage(SenderUser, "I have tooth pain", time.Now()))
	return s
}

func TestGenerateUsesRemoteReply(t *testing.T) {
	llm := &stubLLM{text: `{"reply": "Which part of town suits you best?"}`}
	g := NewResponseGenerator(llm, nil)

	reply := g.Generate(context.Background(), chattingState(StageLocation))
	assert.Equal(t, ReplyRemote, reply.Source)
	assert.Equal(t, "Which part of town suits you best?", reply.Text)

	require.Len(t, llm.last.System, 2)
	assert.Contains(t, llm.last.System[1], "Medical issue: tooth pain")
	assert.Contains(t, llm.last.System[1], "Current stage: location")
	require.NotEmpty(t, llm.last.Messages)
	assert.Equal(t, ChatRoleUser, llm.last.Messages[0].Role, "history must open with the patient")
}

func TestGenerateFallsBackToCanned(t *testing.T) {
	tests := []struct {
		name string
		llm  *stubLLM
	}{
		{name: "network error", llm: &stubLLM{err: errors.New("connection reset")}},
		{name: "malformed json", llm: &stubLLM{text: `{"reply": `}},
		{name: "empty", llm: &stubLLM{text: ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := chattingState(StageLocation)
			reply := NewResponseGenerator(tt.llm, nil).Generate(context.Background(), state)
			assert.Equal(t, ReplyCanned, reply.Source)
			assert.Equal(t, TargetQuestion(state), reply.Text)
		})
	}
}

func TestGenerateRejectsRepetitiveRemoteReply(t *testing.T) {
	state := chattingState(StageLocation)
	state.rememberResponse("Which city would you like to be treated in?")
	llm := &stubLLM{text: `{"reply": "Which city would you like to be treated in?"}`}

	reply := NewResponseGenerator(llm, nil).Generate(context.Background(), state)
	assert.Equal(t, ReplyCanned, reply.Source)
	assert.False(t, IsRepetitive(reply.Text, state.RecentResponses))
}

type blockingLLM struct{}

func (blockingLLM) Complete(ctx context.Context, _ LLMRequest) (LLMResponse, error) {
	<-ctx.Done()
	return LLMResponse{}, ctx.Err()
}

func TestGenerateTimesOut(t *testing.T) {
	g := NewResponseGenerator(blockingLLM{}, nil, WithLLMTimeout(20*time.Millisecond))
	start := time.Now()
	reply := g.Generate(context.Background(), chattingState(StageAppointmentDate))
	assert.Equal(t, ReplyCanned, reply.Source)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestGenerateWithoutHistorySkipsRemote(t *testing.T) {
	llm := &stubLLM{text: `{"reply": "hi"}`}
	reply := NewResponseGenerator(llm, nil).Generate(context.Background(), NewState("", time.Now()))
	assert.Equal(t, ReplyCanned, reply.Source)
	assert.Zero(t, llm.calls)
}

func TestCannedReplyCyclesAlternates(t *testing.T) {
	state := chattingState(StageLocation)
	variants := renderedVariants(state)
	require.Len(t, variants, 3)

	assert.Equal(t, variants[0], CannedReply(state))
	state.Asked[questionLocation] = 1
	assert.Equal(t, variants[1], CannedReply(state))
	state.Asked[questionLocation] = 4
	assert.Equal(t, variants[1], CannedReply(state))
}

func TestCannedReplySkipsRecentVariant(t *testing.T) {
	state := chattingState(StageLocation)
	variants := renderedVariants(state)
	state.rememberResponse(variants[0])

	assert.Equal(t, variants[1], CannedReply(state))
}

func TestCannedReplyWhenEveryVariantRepeats(t *testing.T) {
	state := chattingState(StageLocation)
	variants := renderedVariants(state)
	for _, v := range variants {
		state.rememberResponse(v)
	}
	assert.Contains(t, variants, CannedReply(state))
}

func TestCannedVariantsAreDistinct(t *testing.T) {
	for key, templates := range questionVariants {
		for i := range templates {
			for j := i + 1; j < len(templates); j++ {
				assert.Less(t, Similarity(templates[i], templates[j]), RepetitionThreshold, "%s variants %d and %d", key, i, j)
			}
		}
		assert.Len(t, templates, 3, key)
	}
}

func TestTargetQuestionConfirmsSuggestion(t *testing.T) {
	state := stateAt(StageTreatmentType, Slots{MedicalIssue: stringPtr("tooth pain")})
	state.SuggestedTreatment = treatmentPtr(TreatmentDental)
	q := TargetQuestion(state)
	assert.Contains(t, q, "tooth pain")
	assert.Contains(t, q, "dental")

	state.SuggestedTreatment = nil
	assert.Contains(t, TargetQuestion(state), "hair, dental, cosmetic")
}
