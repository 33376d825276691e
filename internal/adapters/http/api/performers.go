package api

import (
	"context"
	"net/http"
	"time"

	"github.com/okian/arena/internal/domain/model"
)

// PerformersDependencies defines the interface for period aggregates.
type PerformersDependencies interface {
	TopPerformersInPeriod(ctx context.Context, start, end time.Time, n int) ([]model.PeriodPerformer, error)
}

// PerformersHandler handles top-performers requests.
type PerformersHandler struct {
	deps PerformersDependencies
}

// NewPerformersHandler creates a new performers handler.
func NewPerformersHandler(deps PerformersDependencies) *PerformersHandler {
	return &PerformersHandler{deps: deps}
}

const defaultPerformersLimit = 10

// HandlePerformers handles GET /performers?start=&end=&limit= requests.
// start and end are RFC3339 timestamps; the window is [start, end).
func (h *PerformersHandler) HandlePerformers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	start, err := queryTime(r, "start")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	end, err := queryTime(r, "end")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	n, err := queryInt(r, "limit", defaultPerformersLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	performers, err := h.deps.TopPerformersInPeriod(r.Context(), start, end, n)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, performers)
}
