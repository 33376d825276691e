package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/arena/internal/domain/model"
	"github.com/okian/arena/internal/domain/ranking"
)

// ScoresDependencies defines the interface for score intake and history.
type ScoresDependencies interface {
	Submit(ctx context.Context, userID, gameID, value int64, submissionID string) (model.Score, error)
	RecentScores(ctx context.Context, limit int) ([]model.Score, error)
	UserScores(ctx context.Context, userID, gameID int64, limit int) ([]model.Score, error)
}

// ScoresHandler handles submission and score history requests.
type ScoresHandler struct {
	deps ScoresDependencies
}

// NewScoresHandler creates a new scores handler.
func NewScoresHandler(deps ScoresDependencies) *ScoresHandler {
	return &ScoresHandler{deps: deps}
}

// submitRequest mirrors the POST /scores body.
type submitRequest struct {
	SubmissionID string `json:"submission_id,omitempty"`
	UserID       int64  `json:"user_id"`
	GameID       int64  `json:"game_id"`
	Value        int64  `json:"value"`
}

type duplicateResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// HandleSubmit handles POST /scores requests.
func (h *ScoresHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("invalid json body"))
		return
	}

	score, err := h.deps.Submit(r.Context(), req.UserID, req.GameID, req.Value, req.SubmissionID)
	if err != nil {
		if errors.Is(err, ranking.ErrDuplicateSubmission) {
			writeJSON(w, http.StatusOK, duplicateResponse{Status: "accepted", Duplicate: true})
			return
		}
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, score)
}

const defaultScoresLimit = 20

// HandleRecent handles GET /scores/recent?limit=N requests.
func (h *ScoresHandler) HandleRecent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	limit, err := queryInt(r, "limit", defaultScoresLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	scores, err := h.deps.RecentScores(r.Context(), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scores)
}

// HandleUserScores handles GET /scores/user/{userID}?game=N&limit=M requests.
func (h *ScoresHandler) HandleUserScores(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	userID, ok := pathID(r, "/scores/user/")
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	gameID, err := queryInt(r, "game", 0)
	if err != nil || gameID < 0 {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	limit, err := queryInt(r, "limit", defaultScoresLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	scores, err := h.deps.UserScores(r.Context(), userID, int64(gameID), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scores)
}
