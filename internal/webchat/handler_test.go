package webchat

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"

	"github.com/wolfman30/careconnect/internal/conversation"
	"github.com/wolfman30/careconnect/pkg/logging"
)

type denyLimiter struct{}

func (denyLimiter) Allow(context.Context, string) (bool, error) { return false, nil }

type failingEngine struct{ ChatEngine }

func (failingEngine) StartSession(context.Context) (*conversation.Turn, error) {
	return nil, errors.New("redis: connection refused")
}

func newTestServer(t *testing.T, engine ChatEngine, limiter Limiter) *httptest.Server {
	t.Helper()
	h := NewHandler(engine, limiter, logging.New("error"))
	srv := httptest.NewServer(http.HandlerFunc(h.HandleWebSocket))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat" + query
	conn, err := websocket.Dial(url, "", "http://localhost/")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))
	return conn
}

func receive(t *testing.T, conn *websocket.Conn) OutboundMessage {
	t.Helper()
	var msg OutboundMessage
	require.NoError(t, websocket.JSON.Receive(conn, &msg))
	return msg
}

func newEngine() *conversation.Engine {
	return conversation.NewEngine(conversation.NewMemoryStateStore(), nil, nil, nil, logging.New("error"))
}

func TestWebSocketNewSession(t *testing.T) {
	srv := newTestServer(t, newEngine(), nil)
	conn := dial(t, srv, "")

	session := receive(t, conn)
	assert.Equal(t, TypeSession, session.Type)
	require.NotEmpty(t, session.SessionID)
	assert.Equal(t, conversation.StageSymptoms, session.Stage)

	history := receive(t, conn)
	assert.Equal(t, TypeHistory, history.Type)
	require.Len(t, history.Messages, 1)
	assert.Equal(t, "assistant", history.Messages[0].Role)

	require.NoError(t, websocket.JSON.Send(conn, InboundMessage{Type: TypeMessage, Text: "I have persistent tooth pain"}))
	reply := receive(t, conn)
	assert.Equal(t, TypeMessage, reply.Type)
	assert.Equal(t, "assistant", reply.Role)
	assert.NotEmpty(t, reply.Text)
	assert.Equal(t, conversation.StageTreatmentType, reply.Stage)
	assert.Equal(t, session.SessionID, reply.SessionID)

	require.NoError(t, websocket.JSON.Send(conn, InboundMessage{Type: TypePing}))
	assert.Equal(t, TypePong, receive(t, conn).Type)

	// Reconnecting replays the transcript.
	again := dial(t, srv, "?session="+session.SessionID)
	assert.Equal(t, session.SessionID, receive(t, again).SessionID)
	replay := receive(t, again)
	require.Len(t, replay.Messages, 3)
	assert.Equal(t, "user", replay.Messages[1].Role)
	assert.Equal(t, "I have persistent tooth pain", replay.Messages[1].Text)
}

func TestWebSocketUnknownSessionIsCreated(t *testing.T) {
	srv := newTestServer(t, newEngine(), nil)
	conn := dial(t, srv, "?session=ws-abc")

	session := receive(t, conn)
	assert.Equal(t, "ws-abc", session.SessionID)
	history := receive(t, conn)
	assert.Len(t, history.Messages, 1)

	require.NoError(t, websocket.JSON.Send(conn, InboundMessage{Type: TypeReset}))
	reset := receive(t, conn)
	assert.Equal(t, TypeMessage, reset.Type)
	assert.Equal(t, conversation.StageSymptoms, reset.Stage)
}

func TestWebSocketRateLimited(t *testing.T) {
	srv := newTestServer(t, newEngine(), denyLimiter{})
	conn := dial(t, srv, "?session=busy")
	receive(t, conn)
	receive(t, conn)

	require.NoError(t, websocket.JSON.Send(conn, InboundMessage{Type: TypeMessage, Text: "hello"}))
	msg := receive(t, conn)
	assert.Equal(t, TypeError, msg.Type)
	assert.Contains(t, msg.Text, "too quickly")
}

func TestWebSocketEngineUnavailable(t *testing.T) {
	srv := newTestServer(t, failingEngine{}, nil)
	conn := dial(t, srv, "")

	msg := receive(t, conn)
	assert.Equal(t, TypeError, msg.Type)
}

func TestSendToSessionWithoutConnection(t *testing.T) {
	h := NewHandler(newEngine(), nil, nil)
	assert.False(t, h.SendToSession("nobody", OutboundMessage{Type: TypeMessage}))
	h.PublishTurn(nil)
	h.PublishState(nil)
}

func TestRESTTurnsReachOpenSocket(t *testing.T) {
	engine := newEngine()
	h := NewHandler(engine, nil, logging.New("error"))
	rest := conversation.NewHandler(engine, logging.New("error"), conversation.WithPublisher(h))

	r := chi.NewRouter()
	r.Get("/ws/chat", h.HandleWebSocket)
	r.Post("/api/chat/sessions/{sessionID}/messages", rest.Message)
	r.Post("/api/chat/sessions/{sessionID}/undo", rest.Undo)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	conn := dial(t, srv, "?session=shared")
	receive(t, conn)
	receive(t, conn)

	resp, err := http.Post(srv.URL+"/api/chat/sessions/shared/messages", "application/json",
		strings.NewReader(`{"text":"I have persistent tooth pain"}`))
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	pushed := receive(t, conn)
	assert.Equal(t, TypeMessage, pushed.Type)
	assert.Equal(t, "shared", pushed.SessionID)
	assert.Equal(t, conversation.StageTreatmentType, pushed.Stage)

	resp, err = http.Post(srv.URL+"/api/chat/sessions/shared/undo", "application/json", nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	replay := receive(t, conn)
	assert.Equal(t, TypeHistory, replay.Type)
	assert.Len(t, replay.Messages, 1)
}
