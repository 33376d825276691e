package api

import (
	"context"
	"net/http"

	"github.com/okian/arena/internal/domain/model"
)

// AdminDependencies defines the interface for operational endpoints.
type AdminDependencies interface {
	TriggerFullResync()
	GetStats(ctx context.Context) (model.Statistics, error)
}

// AdminHandler handles operational requests.
type AdminHandler struct {
	deps AdminDependencies
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(deps AdminDependencies) *AdminHandler {
	return &AdminHandler{deps: deps}
}

type resyncResponse struct {
	Status string `json:"status"`
}

// HandleResync handles POST /admin/resync requests. The pass runs in
// the background; a pass already running absorbs the trigger.
func (h *AdminHandler) HandleResync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	h.deps.TriggerFullResync()
	writeJSON(w, http.StatusAccepted, resyncResponse{Status: "resync scheduled"})
}

// HandleStats handles GET /admin/stats requests.
func (h *AdminHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	stats, err := h.deps.GetStats(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
