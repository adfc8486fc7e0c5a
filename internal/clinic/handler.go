package clinic

import (
	"encoding/json"
	"net/http"

	"github.com/wolfman30/careconnect/pkg/logging"
)

// Handler exposes clinic recommendations over HTTP.
type Handler struct {
	recommender *Recommender
	logger      *logging.Logger
}

func NewHandler(recommender *Recommender, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{recommender: recommender, logger: logger}
}

// Recommendations returns ranked clinics for a treatment.
// GET /api/clinics/recommendations?treatment=dental&location=Mumbai
func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	treatment := r.URL.Query().Get("treatment")
	if !IsKnownService(treatment) {
		http.Error(w, `{"error": "treatment must be one of hair, dental, cosmetic, ivf, general"}`, http.StatusBadRequest)
		return
	}
	location := r.URL.Query().Get("location")

	result, err := h.recommender.Recommend(r.Context(), treatment, location)
	if err != nil {
		h.logger.Error("failed to recommend clinics", "treatment", treatment, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		h.logger.Error("failed to encode recommendations", "treatment", treatment, "error", err)
	}
}
