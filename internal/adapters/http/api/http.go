// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/okian/arena/internal/domain/model"
)

// Dependencies bundles everything the HTTP handlers need. The service
// layer implements all of it; handlers declare narrower slices.
type Dependencies interface {
	LeaderboardDependencies
	RankDependencies
	RangeDependencies
	NeighborsDependencies
	PerformersDependencies
	ScoresDependencies
	AdminDependencies
}

// Server wires HTTP routes for the ranking API.
type Server struct {
	leaderboardHandler *LeaderboardHandler
	rankHandler        *RankHandler
	rangeHandler       *RangeHandler
	neighborsHandler   *NeighborsHandler
	performersHandler  *PerformersHandler
	scoresHandler      *ScoresHandler
	adminHandler       *AdminHandler
	healthHandler      *HealthHandler
}

// NewServer creates an API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		leaderboardHandler: NewLeaderboardHandler(deps),
		rankHandler:        NewRankHandler(deps),
		rangeHandler:       NewRangeHandler(deps),
		neighborsHandler:   NewNeighborsHandler(deps),
		performersHandler:  NewPerformersHandler(deps),
		scoresHandler:      NewScoresHandler(deps),
		adminHandler:       NewAdminHandler(deps),
		healthHandler:      NewHealthHandler(),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/leaderboard/global", MetricsMiddleware(s.leaderboardHandler.HandleGlobal, "leaderboard_global"))
	mux.HandleFunc("/leaderboard/game/", MetricsMiddleware(s.leaderboardHandler.HandleGame, "leaderboard_game"))
	mux.HandleFunc("/rank/global/", MetricsMiddleware(s.rankHandler.HandleGlobal, "rank_global"))
	mux.HandleFunc("/rank/game/", MetricsMiddleware(s.rankHandler.HandleGame, "rank_game"))
	mux.HandleFunc("/range/global", MetricsMiddleware(s.rangeHandler.HandleGlobal, "range_global"))
	mux.HandleFunc("/range/game/", MetricsMiddleware(s.rangeHandler.HandleGame, "range_game"))
	mux.HandleFunc("/neighbors/global/", MetricsMiddleware(s.neighborsHandler.HandleGlobal, "neighbors_global"))
	mux.HandleFunc("/neighbors/game/", MetricsMiddleware(s.neighborsHandler.HandleGame, "neighbors_game"))
	mux.HandleFunc("/performers", MetricsMiddleware(s.performersHandler.HandlePerformers, "performers"))
	mux.HandleFunc("/scores", MetricsMiddleware(s.scoresHandler.HandleSubmit, "scores_submit"))
	mux.HandleFunc("/scores/recent", MetricsMiddleware(s.scoresHandler.HandleRecent, "scores_recent"))
	mux.HandleFunc("/scores/user/", MetricsMiddleware(s.scoresHandler.HandleUserScores, "scores_user"))
	mux.HandleFunc("/admin/resync", MetricsMiddleware(s.adminHandler.HandleResync, "admin_resync"))
	mux.HandleFunc("/admin/stats", MetricsMiddleware(s.adminHandler.HandleStats, "admin_stats"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDomainError maps engine sentinels onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

// pathID parses the single numeric path segment after prefix.
func pathID(r *http.Request, prefix string) (int64, bool) {
	rest := strings.TrimPrefix(r.URL.Path, prefix)
	if rest == "" || strings.Contains(rest, "/") {
		return 0, false
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// pathIDPair parses two numeric path segments after prefix.
func pathIDPair(r *http.Request, prefix string) (int64, int64, bool) {
	rest := strings.TrimPrefix(r.URL.Path, prefix)
	parts := strings.Split(rest, "/")
	if len(parts) != 2 {
		return 0, 0, false
	}
	first, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || first <= 0 {
		return 0, 0, false
	}
	second, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || second <= 0 {
		return 0, 0, false
	}
	return first, second, true
}

// queryInt reads an integer query parameter, using def when absent.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("invalid " + name)
	}
	return n, nil
}

// queryTime reads an RFC3339 query parameter.
func queryTime(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, errors.New("missing " + name)
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, errors.New("invalid " + name + "; must be RFC3339")
	}
	return t, nil
}
