package booking

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/careconnect/internal/accounts"
)

func withPatient(r *http.Request) *http.Request {
	claims := &accounts.Claims{Email: patient.Email, Name: patient.Name, Role: accounts.RolePatient}
	claims.Subject = patient.ID
	return r.WithContext(accounts.WithClaims(r.Context(), claims))
}

func newTestRouter(f fixture) http.Handler {
	h := NewHandler(f.svc, nil)
	r := chi.NewRouter()
	r.Post("/appointments", h.Create)
	r.Get("/appointments", h.List)
	r.Post("/appointments/{appointmentID}/cancel", h.Cancel)
	r.Get("/clinics/{clinicID}/availability", h.Availability)
	r.Put("/admin/clinics/{clinicID}/availability", h.SetCapacity)
	return r
}

func TestHandlerBookListCancel(t *testing.T) {
	f := newFixture(fakeSessions{"conv-1": completedSession("conv-1")}, 8)
	router := newTestRouter(f)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, withPatient(httptest.NewRequest(http.MethodPost, "/appointments", strings.NewReader(`{"conversation_id":"conv-1"}`))))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var appt Appointment
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&appt))
	assert.Equal(t, "clinic-1", appt.ClinicID)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, withPatient(httptest.NewRequest(http.MethodGet, "/appointments", nil)))
	require.Equal(t, http.StatusOK, rr.Code)
	var list struct {
		Appointments []Appointment `json:"appointments"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&list))
	assert.Len(t, list.Appointments, 1)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, withPatient(httptest.NewRequest(http.MethodPost, "/appointments/"+appt.ID+"/cancel", nil)))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, withPatient(httptest.NewRequest(http.MethodPost, "/appointments/"+appt.ID+"/cancel", nil)))
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestHandlerErrors(t *testing.T) {
	f := newFixture(nil, 8)
	router := newTestRouter(f)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/appointments", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, withPatient(httptest.NewRequest(http.MethodPost, "/appointments", strings.NewReader(`{`))))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, withPatient(httptest.NewRequest(http.MethodPost, "/appointments",
		strings.NewReader(`{"clinic_id":"nope","treatment_type":"dental","appointment_date":"tomorrow"}`))))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, withPatient(httptest.NewRequest(http.MethodPost, "/appointments/missing/cancel", nil)))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandlerAvailability(t *testing.T) {
	f := newFixture(nil, 5)
	router := newTestRouter(f)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPut, "/admin/clinics/clinic-1/availability",
		strings.NewReader(`{"date":"2026-10-20","capacity":2}`)))
	require.Equal(t, http.StatusOK, rr.Code)
	var avail Availability
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&avail))
	assert.Equal(t, "2026-10-20", avail.Date)
	assert.Equal(t, 2, avail.Capacity)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/clinics/clinic-1/availability", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&avail))
	assert.Equal(t, "2026-10-16", avail.Date)
	assert.Equal(t, 5, avail.Remaining)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/clinics/clinic-1/availability?date=whenever-ish", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
