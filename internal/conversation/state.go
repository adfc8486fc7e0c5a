package conversation

import (
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/careconnect/internal/clinic"
)

// Stage is a step of the triage flow. Stages are visited in a fixed order.
type Stage string

const (
	StageSymptoms        Stage = "symptoms"
	StageTreatmentType   Stage = "treatmentType"
	StageLocation        Stage = "location"
	StageAppointmentDate Stage = "appointmentDate"
	StageComplete        Stage = "complete"
)

var stageOrder = []Stage{StageSymptoms, StageTreatmentType, StageLocation, StageAppointmentDate}

// NextStage returns the first stage whose slot is still empty, or
// StageComplete once every slot is filled.
func NextStage(s Slots) Stage {
	for _, stage := range stageOrder {
		if !s.Filled(stage) {
			return stage
		}
	}
	return StageComplete
}

// Sender identifies who wrote a chat message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

// Message is a single entry of the append-only chat log.
type Message struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Sender    Sender    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
}

func newMessage(sender Sender, text string, at time.Time) Message {
	return Message{
		ID:        uuid.NewString(),
		Text:      text,
		Sender:    sender,
		Timestamp: at.UTC(),
	}
}

const recentResponseLimit = 5

// State is everything the engine knows about one chat session.
type State struct {
	ID                 string                  `json:"id"`
	Slots              Slots                   `json:"slots"`
	Stage              Stage                   `json:"stage"`
	SuggestedTreatment *TreatmentType          `json:"suggested_treatment,omitempty"`
	Asked              map[string]int          `json:"asked"`
	RecentResponses    []string                `json:"recent_responses"`
	Messages           []Message               `json:"messages"`
	Recommendations    []clinic.Recommendation `json:"recommendations,omitempty"`
	CreatedAt          time.Time               `json:"created_at"`
	UpdatedAt          time.Time               `json:"updated_at"`
	// CompletedAt is set the first time the triage completes. It is not
	// part of the undo history, so re-completing after an undo does not
	// report the triage again.
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Undo []Snapshot `json:"undo,omitempty"`
	Redo []Snapshot `json:"redo,omitempty"`
}

// NewState creates an empty session positioned at the first stage.
func NewState(id string, now time.Time) *State {
	if id == "" {
		id = uuid.NewString()
	}
	return &State{
		ID:        id,
		Stage:     StageSymptoms,
		Asked:     make(map[string]int),
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
}

func (s *State) appendMessage(msg Message) {
	s.Messages = append(s.Messages, msg)
	s.UpdatedAt = msg.Timestamp
}

func (s *State) rememberResponse(text string) {
	s.RecentResponses = append(s.RecentResponses, text)
	if len(s.RecentResponses) > recentResponseLimit {
		s.RecentResponses = s.RecentResponses[len(s.RecentResponses)-recentResponseLimit:]
	}
}

// userTexts returns the user's messages oldest first.
func (s *State) userTexts() []string {
	var out []string
	for _, m := range s.Messages {
		if m.Sender == SenderUser {
			out = append(out, m.Text)
		}
	}
	return out
}
