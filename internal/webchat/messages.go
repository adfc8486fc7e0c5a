package webchat

import (
	"time"

	"github.com/wolfman30/careconnect/internal/clinic"
	"github.com/wolfman30/careconnect/internal/conversation"
)

const (
	TypeMessage = "message"
	TypeHistory = "history"
	TypeSession = "session"
	TypeError   = "error"
	TypeReset   = "reset"
	TypePing    = "ping"
	TypePong    = "pong"
)

// InboundMessage is what the browser sends.
type InboundMessage struct {
	Type string `json:"type"` // "message", "reset", "ping"
	Text string `json:"text"`
}

// OutboundMessage is what we send to the browser.
type OutboundMessage struct {
	Type            string                  `json:"type"` // "message", "history", "session", "error", "pong"
	Text            string                  `json:"text,omitempty"`
	Role            string                  `json:"role,omitempty"` // "assistant" or "user"
	SessionID       string                  `json:"session_id,omitempty"`
	Stage           conversation.Stage      `json:"stage,omitempty"`
	Timestamp       string                  `json:"timestamp,omitempty"`
	Messages        []HistoryMessage        `json:"messages,omitempty"`
	Recommendations []clinic.Recommendation `json:"recommendations,omitempty"`
}

// HistoryMessage is a simplified message for history responses.
type HistoryMessage struct {
	Role      string `json:"role"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

func role(sender conversation.Sender) string {
	if sender == conversation.SenderUser {
		return "user"
	}
	return "assistant"
}

func historyMessage(state *conversation.State) OutboundMessage {
	history := make([]HistoryMessage, 0, len(state.Messages))
	for _, m := range state.Messages {
		history = append(history, HistoryMessage{
			Role:      role(m.Sender),
			Text:      m.Text,
			Timestamp: m.Timestamp.UTC().Format(time.RFC3339),
		})
	}
	return OutboundMessage{
		Type:            TypeHistory,
		SessionID:       state.ID,
		Stage:           state.Stage,
		Messages:        history,
		Recommendations: state.Recommendations,
	}
}

func replyMessage(turn *conversation.Turn) OutboundMessage {
	return OutboundMessage{
		Type:            TypeMessage,
		Role:            role(turn.Reply.Sender),
		Text:            turn.Reply.Text,
		SessionID:       turn.SessionID,
		Stage:           turn.Stage,
		Timestamp:       turn.Reply.Timestamp.UTC().Format(time.RFC3339),
		Recommendations: turn.Recommendations,
	}
}

func errorMessage(text string) OutboundMessage {
	return OutboundMessage{Type: TypeError, Text: text}
}
