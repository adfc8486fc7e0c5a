package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func corsRequest(t *testing.T, opts CORSOptions, method, origin, preflightMethod string) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	called := false
	handler := CORS(opts)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(method, "/api/chat/sessions", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	if preflightMethod != "" {
		req.Header.Set("Access-Control-Request-Method", preflightMethod)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, called
}

func TestCORSOriginMatching(t *testing.T) {
	opts := CORSOptions{AllowedOrigins: []string{"https://app.careconnect.in/", "https://*.clinics.careconnect.in"}}

	tests := []struct {
		origin string
		allow  bool
	}{
		{"https://app.careconnect.in", true},
		{"https://mumbai.clinics.careconnect.in", true},
		{"https://clinics.careconnect.in", false},
		{"http://mumbai.clinics.careconnect.in", false},
		{"https://evilclinics.careconnect.in.example", false},
		{"https://unknown.example", false},
	}
	for _, tt := range tests {
		rec, called := corsRequest(t, opts, http.MethodPost, tt.origin, "")
		assert.True(t, called, tt.origin)
		if tt.allow {
			assert.Equal(t, tt.origin, rec.Header().Get("Access-Control-Allow-Origin"), tt.origin)
			assert.Equal(t, "Retry-After, X-Request-ID", rec.Header().Get("Access-Control-Expose-Headers"))
		} else {
			assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"), tt.origin)
		}
	}
}

func TestCORSAllowsAnyOrigin(t *testing.T) {
	rec, _ := corsRequest(t, CORSOptions{AllowedOrigins: []string{"*"}}, http.MethodGet, "https://random.example", "")
	assert.Equal(t, "https://random.example", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSPreflightUsesConfiguredLists(t *testing.T) {
	opts := CORSOptions{
		AllowedOrigins: []string{"https://app.careconnect.in"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		AllowedMethods: []string{"GET", "POST"},
		MaxAge:         time.Hour,
	}

	rec, called := corsRequest(t, opts, http.MethodOptions, "https://app.careconnect.in", "post")
	assert.False(t, called, "preflight must not reach the handler")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "Authorization, Content-Type", rec.Header().Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "GET, POST", rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "3600", rec.Header().Get("Access-Control-Max-Age"))

	rec, called = corsRequest(t, opts, http.MethodOptions, "https://app.careconnect.in", "DELETE")
	assert.False(t, called)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCORSPreflightDefaults(t *testing.T) {
	rec, _ := corsRequest(t, CORSOptions{AllowedOrigins: []string{"https://app.careconnect.in"}}, http.MethodOptions, "https://app.careconnect.in", "DELETE")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "Authorization, Content-Type, X-Request-ID", rec.Header().Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "600", rec.Header().Get("Access-Control-Max-Age"))
}

func TestCORSIgnoresRequestsWithoutOrigin(t *testing.T) {
	rec, called := corsRequest(t, CORSOptions{AllowedOrigins: []string{"*"}}, http.MethodOptions, "", "POST")
	assert.True(t, called)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
