package archive

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/careconnect/internal/clinic"
	"github.com/wolfman30/careconnect/internal/conversation"
)

func completedState(t *testing.T) *conversation.State {
	t.Helper()
	start := time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)
	state := conversation.NewState("sess-42", start)

	issue, location, date := "tooth pain, call 98765 43210", "Mumbai", "next Monday"
	dental := conversation.TreatmentDental
	state.Slots = conversation.Slots{
		MedicalIssue:    &issue,
		TreatmentType:   &dental,
		Location:        &location,
		AppointmentDate: &date,
	}
	state.Stage = conversation.StageComplete
	state.Messages = []conversation.Message{
		{ID: "m1", Text: "Hi! What brings you in?", Sender: conversation.SenderAI, Timestamp: start},
		{ID: "m2", Text: "tooth pain, email me at ravi@example.com", Sender: conversation.SenderUser, Timestamp: start.Add(time.Minute)},
	}
	state.Recommendations = []clinic.Recommendation{
		{Clinic: clinic.Clinic{ID: "fallback-dental-1", Name: "Smile Dental Care"}},
	}
	return state
}

func TestBuildRecord(t *testing.T) {
	state := completedState(t)
	record := BuildRecord(state, time.Date(2026, 10, 16, 10, 5, 0, 0, time.UTC))

	assert.Equal(t, "sess-42", record.SessionID)
	assert.Equal(t, "triage_completed", record.Outcome)
	assert.Equal(t, 300, record.DurationSeconds)
	assert.Equal(t, 2, record.MessageCount)
	assert.Equal(t, "dental", record.Triage.TreatmentType)
	assert.Equal(t, "tooth pain, call [PHONE]", record.Triage.MedicalIssue)
	assert.Equal(t, []string{"fallback-dental-1"}, record.ClinicIDs)
	assert.Equal(t, "assistant", record.Messages[0].Role)
	assert.Equal(t, "user", record.Messages[1].Role)
	assert.Equal(t, "tooth pain, email me at [EMAIL]", record.Messages[1].Content)

	// The session itself is untouched.
	assert.Contains(t, state.Messages[1].Text, "ravi@example.com")
}

func TestTranscriptArchiver(t *testing.T) {
	assert.Nil(t, NewTranscriptArchiver(NewStore(nil, "", nil), nil))

	var disabled *TranscriptArchiver
	disabled.ArchiveSession(context.Background(), completedState(t)) // no-op

	mock := newMockS3()
	archiver := NewTranscriptArchiver(NewStore(mock, "bucket", nil), nil)
	require.NotNil(t, archiver)
	archiver.now = func() time.Time { return time.Date(2026, 10, 16, 10, 1, 0, 0, time.UTC) }

	archiver.ArchiveSession(context.Background(), completedState(t))
	require.Len(t, mock.putCalls, 2)
	assert.Equal(t, "transcripts/v1/by-date/2026/10/16/sess-42.json", mock.putCalls[0].key)

	var decoded TranscriptRecord
	require.NoError(t, json.Unmarshal(mock.putCalls[0].body, &decoded))
	assert.Equal(t, 60, decoded.DurationSeconds)
}
