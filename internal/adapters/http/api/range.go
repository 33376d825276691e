package api

import (
	"context"
	"net/http"

	"github.com/okian/arena/internal/domain/model"
)

// RangeDependencies defines the interface for positional range reads.
type RangeDependencies interface {
	RangeByPosition(ctx context.Context, key model.LeaderboardKey, start, end int) ([]model.RankEntry, error)
}

// RangeHandler handles positional range requests.
type RangeHandler struct {
	deps RangeDependencies
}

// NewRangeHandler creates a new range handler.
func NewRangeHandler(deps RangeDependencies) *RangeHandler {
	return &RangeHandler{deps: deps}
}

// HandleGlobal handles GET /range/global?start=N&end=M requests.
func (h *RangeHandler) HandleGlobal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	h.serve(w, r, model.GlobalKey())
}

// HandleGame handles GET /range/game/{gameID}?start=N&end=M requests.
func (h *RangeHandler) HandleGame(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	gameID, ok := pathID(r, "/range/game/")
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	h.serve(w, r, model.GameKey(gameID))
}

func (h *RangeHandler) serve(w http.ResponseWriter, r *http.Request, key model.LeaderboardKey) {
	start, err := queryInt(r, "start", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	end, err := queryInt(r, "end", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	entries, err := h.deps.RangeByPosition(r.Context(), key, start, end)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
