package api

import (
	"context"
	"net/http"

	"github.com/okian/arena/internal/domain/model"
)

// LeaderboardDependencies defines the interface for leaderboard reads.
type LeaderboardDependencies interface {
	GlobalTopN(ctx context.Context, n int) ([]model.RankEntry, error)
	GameTopN(ctx context.Context, gameID int64, n int) ([]model.RankEntry, error)
}

// LeaderboardHandler handles leaderboard requests.
type LeaderboardHandler struct {
	deps LeaderboardDependencies
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps LeaderboardDependencies) *LeaderboardHandler {
	return &LeaderboardHandler{deps: deps}
}

const defaultLeaderboardLimit = 10

// HandleGlobal handles GET /leaderboard/global?limit=N requests.
func (h *LeaderboardHandler) HandleGlobal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	n, err := queryInt(r, "limit", defaultLeaderboardLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	entries, err := h.deps.GlobalTopN(r.Context(), n)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// HandleGame handles GET /leaderboard/game/{gameID}?limit=N requests.
func (h *LeaderboardHandler) HandleGame(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	gameID, ok := pathID(r, "/leaderboard/game/")
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	n, err := queryInt(r, "limit", defaultLeaderboardLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	entries, err := h.deps.GameTopN(r.Context(), gameID, n)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
