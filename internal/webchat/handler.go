package webchat

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/net/websocket"

	"github.com/wolfman30/careconnect/internal/conversation"
	"github.com/wolfman30/careconnect/pkg/logging"
)

// ChatEngine is the subset of conversation.Engine the socket drives.
type ChatEngine interface {
	StartSession(ctx context.Context) (*conversation.Turn, error)
	Session(ctx context.Context, id string) (*conversation.State, error)
	ProcessMessage(ctx context.Context, id, text string) (*conversation.Turn, error)
	ResetSession(ctx context.Context, id string) (*conversation.Turn, error)
}

// Limiter throttles messages per session. Implemented by the middleware
// window limiters.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Handler manages web chat connections and runs each inbound message
// through the conversation engine.
type Handler struct {
	engine  ChatEngine
	limiter Limiter
	logger  *logging.Logger

	mu       sync.RWMutex
	sessions map[string]*wsConn // sessionID -> active connection
}

type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) send(msg OutboundMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return websocket.JSON.Send(c.conn, msg)
}

// NewHandler creates a web chat handler. limiter may be nil.
func NewHandler(engine ChatEngine, limiter Limiter, logger *logging.Logger) *Handler {
	if engine == nil {
		panic("webchat: engine cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		engine:   engine,
		limiter:  limiter,
		logger:   logger,
		sessions: make(map[string]*wsConn),
	}
}

// HandleWebSocket upgrades GET /ws/chat?session= to a WebSocket.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	ctx := r.Context()
	wsc := &wsConn{conn: conn}

	sessionID, state, err := h.open(ctx, strings.TrimSpace(r.URL.Query().Get("session")))
	if err != nil {
		h.logger.Error("webchat: failed to open session", "error", err)
		_ = wsc.send(errorMessage("Sorry, the chat is unavailable right now. Please try again."))
		return
	}

	// Register before the greeting frames; REST pushes may follow them.
	h.mu.Lock()
	h.sessions[sessionID] = wsc
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		if h.sessions[sessionID] == wsc {
			delete(h.sessions, sessionID)
		}
		h.mu.Unlock()
	}()

	_ = wsc.send(OutboundMessage{Type: TypeSession, SessionID: sessionID, Stage: state.Stage})
	_ = wsc.send(historyMessage(state))

	h.logger.Info("webchat: connection opened", "session_id", sessionID)

	for {
		var msg InboundMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			h.logger.Debug("webchat: connection closed", "session_id", sessionID, "error", err)
			return
		}

		switch msg.Type {
		case TypePing:
			_ = wsc.send(OutboundMessage{Type: TypePong})
		case TypeReset:
			turn, err := h.engine.ResetSession(ctx, sessionID)
			if err != nil {
				h.logger.Error("webchat: reset failed", "session_id", sessionID, "error", err)
				_ = wsc.send(errorMessage("Sorry, something went wrong. Please try again."))
				continue
			}
			_ = wsc.send(replyMessage(turn))
		case TypeMessage:
			if strings.TrimSpace(msg.Text) == "" {
				continue
			}
			_ = wsc.send(h.processMessage(ctx, sessionID, msg.Text))
		}
	}
}

// open resumes the requested session, recreating it under the same id when
// it has expired, or starts a fresh one when no id was given.
func (h *Handler) open(ctx context.Context, sessionID string) (string, *conversation.State, error) {
	if sessionID == "" {
		turn, err := h.engine.StartSession(ctx)
		if err != nil {
			return "", nil, err
		}
		sessionID = turn.SessionID
	}
	state, err := h.engine.Session(ctx, sessionID)
	if errors.Is(err, conversation.ErrSessionNotFound) {
		if _, err := h.engine.ResetSession(ctx, sessionID); err != nil {
			return "", nil, err
		}
		state, err = h.engine.Session(ctx, sessionID)
	}
	if err != nil {
		return "", nil, err
	}
	return sessionID, state, nil
}

func (h *Handler) processMessage(ctx context.Context, sessionID, text string) OutboundMessage {
	if h.limiter != nil {
		allowed, err := h.limiter.Allow(ctx, sessionID)
		if err != nil {
			h.logger.Warn("webchat: rate limit check failed", "session_id", sessionID, "error", err)
		} else if !allowed {
			return errorMessage("You're sending messages too quickly. Please wait a moment.")
		}
	}

	turn, err := h.engine.ProcessMessage(ctx, sessionID, text)
	switch {
	case errors.Is(err, conversation.ErrMessageTooLong):
		return errorMessage("That message is too long. Please keep it shorter.")
	case err != nil:
		h.logger.Error("webchat: failed to process message", "session_id", sessionID, "error", err)
		return errorMessage("Sorry, something went wrong. Please try again.")
	}
	return replyMessage(turn)
}

var _ conversation.SessionPublisher = (*Handler)(nil)

// PublishTurn pushes a turn taken outside the socket, such as a REST message
// or reset, to the session's open connection.
func (h *Handler) PublishTurn(turn *conversation.Turn) {
	if turn == nil {
		return
	}
	h.SendToSession(turn.SessionID, replyMessage(turn))
}

// PublishState replays the transcript after an undo or redo so the open
// connection matches the stored session.
func (h *Handler) PublishState(state *conversation.State) {
	if state == nil {
		return
	}
	h.SendToSession(state.ID, historyMessage(state))
}

// SendToSession sends a message to an active WebSocket session.
func (h *Handler) SendToSession(sessionID string, msg OutboundMessage) bool {
	h.mu.RLock()
	wsc, ok := h.sessions[sessionID]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	if err := wsc.send(msg); err != nil {
		h.logger.Debug("webchat: push to session failed", "session_id", sessionID, "error", err)
		return false
	}
	return true
}
