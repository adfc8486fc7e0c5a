package verification

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/careconnect/internal/accounts"
	"github.com/wolfman30/careconnect/pkg/logging"
)

// Handler serves the doctor and admin verification endpoints.
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

// Submit handles POST /api/doctor/verification.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	claims, ok := accounts.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		req.Name = claims.Name
	}
	app, err := h.service.Submit(r.Context(), Doctor{ID: claims.UserID(), Email: claims.Email, Name: claims.Name}, req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, app)
}

// Status handles GET /api/doctor/verification.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	claims, ok := accounts.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	app, err := h.service.Status(r.Context(), claims.UserID())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, app)
}

// List handles GET /api/admin/verifications?status=pending&limit=50.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	status := StatusPending
	if raw := r.URL.Query().Get("status"); raw != "" {
		parsed, ok := ParseStatus(raw)
		if !ok {
			http.Error(w, ErrInvalidStatus.Error(), http.StatusBadRequest)
			return
		}
		status = parsed
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	apps, err := h.service.List(r.Context(), status, limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"applications": apps, "status": status})
}

// Approve handles POST /api/admin/verifications/{applicationID}/approve.
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.service.Approve)
}

// Reject handles POST /api/admin/verifications/{applicationID}/reject.
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.service.Reject)
}

type decisionFunc func(ctx context.Context, adminID, id, notes string) (*Application, error)

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, decide decisionFunc) {
	claims, ok := accounts.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var req DecisionRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	}
	app, err := decide(r.Context(), claims.UserID(), chi.URLParam(r, "applicationID"), req.Notes)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, app)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidName), errors.Is(err, ErrInvalidLicense),
		errors.Is(err, ErrInvalidSpecialty), errors.Is(err, ErrInvalidStatus):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrApplicationNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrAlreadyReviewed), errors.Is(err, ErrAlreadySubmitted):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		h.logger.Error("verification request failed", "error", err)
		http.Error(w, "Failed to process verification", http.StatusInternalServerError)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}
