package conversation

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	engine, _ := newTestEngine(t)
	h := NewHandler(engine, nil)
	r := chi.NewRouter()
	r.Post("/sessions", h.Start)
	r.Get("/sessions/{sessionID}", h.Get)
	r.Delete("/sessions/{sessionID}", h.Reset)
	r.Post("/sessions/{sessionID}/messages", h.Message)
	r.Post("/sessions/{sessionID}/undo", h.Undo)
	r.Post("/sessions/{sessionID}/redo", h.Redo)
	return r
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHandlerConversationFlow(t *testing.T) {
	router := newTestRouter(t)

	rr := doRequest(t, router, http.MethodPost, "/sessions", "")
	require.Equal(t, http.StatusCreated, rr.Code)
	var start Turn
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&start))
	require.NotEmpty(t, start.SessionID)
	base := "/sessions/" + start.SessionID

	rr = doRequest(t, router, http.MethodPost, base+"/messages", `{"text":"I have persistent tooth pain"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	var turn Turn
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&turn))
	assert.Equal(t, StageTreatmentType, turn.Stage)

	rr = doRequest(t, router, http.MethodGet, base, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var view SessionView
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&view))
	assert.Len(t, view.Messages, 3)
	assert.True(t, view.CanUndo)
	assert.False(t, view.CanRedo)

	rr = doRequest(t, router, http.MethodPost, base+"/undo", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&view))
	assert.Equal(t, StageSymptoms, view.Stage)
	assert.True(t, view.CanRedo)

	rr = doRequest(t, router, http.MethodPost, base+"/redo", "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doRequest(t, router, http.MethodPost, base+"/redo", "")
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = doRequest(t, router, http.MethodDelete, base, "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&turn))
	assert.Equal(t, start.SessionID, turn.SessionID)
	assert.Equal(t, StageSymptoms, turn.Stage)
}

func TestHandlerErrors(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"unknown session", http.MethodGet, "/sessions/missing", "", http.StatusNotFound},
		{"bad json", http.MethodPost, "/sessions/abc/messages", "{", http.StatusBadRequest},
		{"empty text", http.MethodPost, "/sessions/abc/messages", `{"text":"   "}`, http.StatusBadRequest},
		{"too long", http.MethodPost, "/sessions/abc/messages", `{"text":"` + strings.Repeat("a", maxMessageRunes+1) + `"}`, http.StatusBadRequest},
		{"undo unknown session", http.MethodPost, "/sessions/missing/undo", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(t, router, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, rr.Code)
		})
	}
}
