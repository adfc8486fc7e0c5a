package conversation

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/careconnect/internal/clinic"
	"github.com/wolfman30/careconnect/pkg/logging"
)

// SessionPublisher mirrors changes made over REST to live connections for
// the same session. Implemented by the webchat handler.
type SessionPublisher interface {
	PublishTurn(turn *Turn)
	PublishState(state *State)
}

// Handler wires HTTP requests to the conversation engine.
type Handler struct {
	engine    *Engine
	logger    *logging.Logger
	publisher SessionPublisher
}

// HandlerOption customises a Handler.
type HandlerOption func(*Handler)

func WithPublisher(p SessionPublisher) HandlerOption {
	return func(h *Handler) { h.publisher = p }
}

// NewHandler creates a conversation handler.
func NewHandler(engine *Engine, logger *logging.Logger, opts ...HandlerOption) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	h := &Handler{
		engine: engine,
		logger: logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// MessageRequest is the body of POST /api/chat/sessions/{sessionID}/messages.
type MessageRequest struct {
	Text string `json:"text"`
}

// SessionView is the client-facing projection of a State.
type SessionView struct {
	ID                 string                  `json:"id"`
	Stage              Stage                   `json:"stage"`
	Slots              Slots                   `json:"slots"`
	SuggestedTreatment *TreatmentType          `json:"suggested_treatment,omitempty"`
	Messages           []Message               `json:"messages"`
	Recommendations    []clinic.Recommendation `json:"recommendations,omitempty"`
	CanUndo            bool                    `json:"can_undo"`
	CanRedo            bool                    `json:"can_redo"`
	UpdatedAt          time.Time               `json:"updated_at"`
}

// NewSessionView projects state for API responses.
func NewSessionView(state *State) SessionView {
	return SessionView{
		ID:                 state.ID,
		Stage:              state.Stage,
		Slots:              state.Slots,
		SuggestedTreatment: state.SuggestedTreatment,
		Messages:           state.Messages,
		Recommendations:    state.Recommendations,
		CanUndo:            len(state.Undo) > 0,
		CanRedo:            len(state.Redo) > 0,
		UpdatedAt:          state.UpdatedAt,
	}
}

// Start handles POST /api/chat/sessions.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	turn, err := h.engine.StartSession(r.Context())
	if err != nil {
		h.logger.Error("failed to start conversation", "error", err)
		http.Error(w, "Failed to start conversation", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusCreated, turn)
}

// Get handles GET /api/chat/sessions/{sessionID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	state, err := h.engine.Session(r.Context(), id)
	if err != nil {
		h.writeError(w, id, err)
		return
	}
	h.writeJSON(w, http.StatusOK, NewSessionView(state))
}

// Message handles POST /api/chat/sessions/{sessionID}/messages.
func (h *Handler) Message(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode message request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	turn, err := h.engine.ProcessMessage(r.Context(), id, req.Text)
	if err != nil {
		h.writeError(w, id, err)
		return
	}
	h.publishTurn(turn)
	h.writeJSON(w, http.StatusOK, turn)
}

// Reset handles DELETE /api/chat/sessions/{sessionID}.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	turn, err := h.engine.ResetSession(r.Context(), id)
	if err != nil {
		h.writeError(w, id, err)
		return
	}
	h.publishTurn(turn)
	h.writeJSON(w, http.StatusOK, turn)
}

// Undo handles POST /api/chat/sessions/{sessionID}/undo.
func (h *Handler) Undo(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	state, err := h.engine.Undo(r.Context(), id)
	if err != nil {
		h.writeError(w, id, err)
		return
	}
	h.publishState(state)
	h.writeJSON(w, http.StatusOK, NewSessionView(state))
}

// Redo handles POST /api/chat/sessions/{sessionID}/redo.
func (h *Handler) Redo(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	state, err := h.engine.Redo(r.Context(), id)
	if err != nil {
		h.writeError(w, id, err)
		return
	}
	h.publishState(state)
	h.writeJSON(w, http.StatusOK, NewSessionView(state))
}

func (h *Handler) publishTurn(turn *Turn) {
	if h.publisher != nil {
		h.publisher.PublishTurn(turn)
	}
}

func (h *Handler) publishState(state *State) {
	if h.publisher != nil {
		h.publisher.PublishState(state)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, sessionID string, err error) {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		http.Error(w, "Session not found", http.StatusNotFound)
	case errors.Is(err, ErrEmptyMessage), errors.Is(err, ErrMessageTooLong):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNothingToUndo), errors.Is(err, ErrNothingToRedo):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		h.logger.Error("conversation request failed", "session_id", sessionID, "error", err)
		http.Error(w, "Failed to process conversation", http.StatusInternalServerError)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}
