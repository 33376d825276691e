package api

import (
	"context"
	"net/http"
)

// RankDependencies defines the interface for rank lookups.
type RankDependencies interface {
	UserGlobalRank(ctx context.Context, userID int64) (int, error)
	UserGameRank(ctx context.Context, gameID, userID int64) (int, error)
}

// RankHandler handles rank requests.
type RankHandler struct {
	deps RankDependencies
}

// NewRankHandler creates a new rank handler.
func NewRankHandler(deps RankDependencies) *RankHandler {
	return &RankHandler{deps: deps}
}

type rankResponse struct {
	UserID int64 `json:"user_id"`
	GameID int64 `json:"game_id,omitempty"`
	Rank   int   `json:"rank"`
}

// HandleGlobal handles GET /rank/global/{userID} requests.
func (h *RankHandler) HandleGlobal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	userID, ok := pathID(r, "/rank/global/")
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	rank, err := h.deps.UserGlobalRank(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rankResponse{UserID: userID, Rank: rank})
}

// HandleGame handles GET /rank/game/{gameID}/{userID} requests.
func (h *RankHandler) HandleGame(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	gameID, userID, ok := pathIDPair(r, "/rank/game/")
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	rank, err := h.deps.UserGameRank(r.Context(), gameID, userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rankResponse{UserID: userID, GameID: gameID, Rank: rank})
}
