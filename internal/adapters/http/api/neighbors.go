package api

import (
	"context"
	"net/http"

	"github.com/okian/arena/internal/domain/model"
)

// NeighborsDependencies defines the interface for neighborhood reads.
type NeighborsDependencies interface {
	Neighbors(ctx context.Context, key model.LeaderboardKey, userID int64, radius int) ([]model.RankEntry, error)
}

// NeighborsHandler handles neighborhood requests.
type NeighborsHandler struct {
	deps NeighborsDependencies
}

// NewNeighborsHandler creates a new neighbors handler.
func NewNeighborsHandler(deps NeighborsDependencies) *NeighborsHandler {
	return &NeighborsHandler{deps: deps}
}

const defaultNeighborRadius = 5

// HandleGlobal handles GET /neighbors/global/{userID}?radius=N requests.
func (h *NeighborsHandler) HandleGlobal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	userID, ok := pathID(r, "/neighbors/global/")
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	h.serve(w, r, model.GlobalKey(), userID)
}

// HandleGame handles GET /neighbors/game/{gameID}/{userID}?radius=N requests.
func (h *NeighborsHandler) HandleGame(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	gameID, userID, ok := pathIDPair(r, "/neighbors/game/")
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	h.serve(w, r, model.GameKey(gameID), userID)
}

func (h *NeighborsHandler) serve(w http.ResponseWriter, r *http.Request, key model.LeaderboardKey, userID int64) {
	radius, err := queryInt(r, "radius", defaultNeighborRadius)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	entries, err := h.deps.Neighbors(r.Context(), key, userID, radius)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
