package archive

import (
	"context"
	"time"

	"github.com/wolfman30/careconnect/internal/conversation"
	"github.com/wolfman30/careconnect/pkg/logging"
)

const (
	recordVersion          = "1.0"
	outcomeTriageCompleted = "triage_completed"
)

// TranscriptArchiver turns completed triage sessions into scrubbed transcript
// records. Errors are logged and never returned to the chat path.
type TranscriptArchiver struct {
	store  *Store
	logger *logging.Logger
	now    func() time.Time
}

// NewTranscriptArchiver returns nil when store is not enabled.
func NewTranscriptArchiver(store *Store, logger *logging.Logger) *TranscriptArchiver {
	if !store.Enabled() {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &TranscriptArchiver{store: store, logger: logger, now: time.Now}
}

// ArchiveSession stores the transcript of state. Safe to call on a nil archiver.
func (a *TranscriptArchiver) ArchiveSession(ctx context.Context, state *conversation.State) {
	if a == nil || state == nil {
		return
	}
	record := BuildRecord(state, a.now().UTC())
	if err := a.store.ArchiveTranscript(ctx, record); err != nil {
		a.logger.Warn("failed to archive transcript", "session_id", state.ID, "error", err)
	}
}

// BuildRecord projects a session onto a scrubbed TranscriptRecord.
func BuildRecord(state *conversation.State, archivedAt time.Time) *TranscriptRecord {
	msgs := make([]Message, 0, len(state.Messages))
	for _, m := range state.Messages {
		role := "user"
		if m.Sender == conversation.SenderAI {
			role = "assistant"
		}
		msgs = append(msgs, Message{Role: role, Content: m.Text, Timestamp: m.Timestamp})
	}
	ScrubMessages(msgs)

	clinicIDs := make([]string, 0, len(state.Recommendations))
	for _, rec := range state.Recommendations {
		clinicIDs = append(clinicIDs, rec.ID)
	}

	var duration int
	if !state.CreatedAt.IsZero() {
		duration = int(archivedAt.Sub(state.CreatedAt).Seconds())
	}

	return &TranscriptRecord{
		Version:         recordVersion,
		SessionID:       state.ID,
		ArchivedAt:      archivedAt,
		DurationSeconds: duration,
		MessageCount:    len(msgs),
		Outcome:         outcomeTriageCompleted,
		Triage: Triage{
			MedicalIssue:    ScrubPII(deref(state.Slots.MedicalIssue)),
			TreatmentType:   treatment(state.Slots.TreatmentType),
			Location:        deref(state.Slots.Location),
			AppointmentDate: deref(state.Slots.AppointmentDate),
		},
		ClinicIDs: clinicIDs,
		Messages:  msgs,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func treatment(t *conversation.TreatmentType) string {
	if t == nil {
		return ""
	}
	return string(*t)
}
