package booking

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/careconnect/internal/accounts"
	"github.com/wolfman30/careconnect/pkg/logging"
)

// Handler exposes appointment endpoints. Patient routes expect the auth
// middleware to have placed claims in the request context.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Create handles POST /api/appointments.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := accounts.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	appt, err := h.service.Book(r.Context(), Patient{
		ID:    claims.UserID(),
		Email: claims.Email,
		Name:  claims.Name,
	}, req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, appt)
}

// List handles GET /api/appointments.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := accounts.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	appts, err := h.service.List(r.Context(), claims.UserID())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"appointments": appts})
}

// Cancel handles POST /api/appointments/{appointmentID}/cancel.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	claims, ok := accounts.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	appt, err := h.service.Cancel(r.Context(), claims.UserID(), chi.URLParam(r, "appointmentID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, appt)
}

// Availability handles GET /api/clinics/{clinicID}/availability?date=.
func (h *Handler) Availability(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = "today"
	}
	avail, err := h.service.Availability(r.Context(), chi.URLParam(r, "clinicID"), date)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, avail)
}

// CapacityRequest is the body of PUT /api/admin/clinics/{clinicID}/availability.
type CapacityRequest struct {
	Date     string `json:"date"`
	Capacity int    `json:"capacity"`
}

// SetCapacity handles PUT /api/admin/clinics/{clinicID}/availability.
func (h *Handler) SetCapacity(w http.ResponseWriter, r *http.Request) {
	var req CapacityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	clinicID := chi.URLParam(r, "clinicID")
	if err := h.service.SetCapacity(r.Context(), clinicID, req.Date, req.Capacity); err != nil {
		h.writeError(w, err)
		return
	}
	avail, err := h.service.Availability(r.Context(), clinicID, req.Date)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, avail)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrMissingClinic), errors.Is(err, ErrInvalidTreatment),
		errors.Is(err, ErrInvalidDate), errors.Is(err, ErrDateInPast),
		errors.Is(err, ErrInvalidCapacity), errors.Is(err, ErrConversationIncomplete):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrUnknownClinic), errors.Is(err, ErrAppointmentNotFound),
		errors.Is(err, ErrConversationNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrFullyBooked), errors.Is(err, ErrAlreadyCancelled):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		h.logger.Error("booking request failed", "error", err)
		http.Error(w, "Failed to process booking", http.StatusInternalServerError)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}
