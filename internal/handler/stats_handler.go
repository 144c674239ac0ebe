// internal/handler/stats_handler.go
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	appErrors "github.com/unclebandit/coldmail-backend/internal/errors"
	"github.com/unclebandit/coldmail-backend/internal/service"
)

// StatsHandler serves read-only views over the scheduled email store
type StatsHandler struct {
	Service *service.SchedulingService
}

// NewStatsHandler creates a new StatsHandler with the given service
func NewStatsHandler(svc *service.SchedulingService) *StatsHandler {
	return &StatsHandler{Service: svc}
}

// GetStatsHandler returns counts per status plus how many pending records are throttled
func (h *StatsHandler) GetStatsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Service.Stats(r.Context())
	if err != nil {
		http.Error(w, "failed to compute stats: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

// GetScheduledEmailHandler returns a single scheduled email by ID
func (h *StatsHandler) GetScheduledEmailHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "invalid scheduled email id", http.StatusBadRequest)
		return
	}

	record, err := h.Service.Get(r.Context(), id)
	if err != nil {
		var notFound *appErrors.ScheduledEmailNotFoundError
		if errors.As(err, &notFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, "failed to fetch scheduled email: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(record)
}
