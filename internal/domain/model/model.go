// Package model contains the contract types shared between the ranking
// components and the storage adapters.
package model

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel kinds shared across the ranking engine.
var (
	// ErrInvalidInput marks requests rejected synchronously: negative
	// scores, malformed rank ranges. Never retried.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound marks an unranked user or an unknown game. Surfaced as
	// an absent result, not used for control flow inside the engine.
	ErrNotFound = errors.New("not found")
)

// Score is one immutable submission row owned by the score store.
type Score struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	GameID      int64     `json:"game_id"`
	Value       int64     `json:"value"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// RankEntry is a transient leaderboard row constructed per query response.
type RankEntry struct {
	Rank        int        `json:"rank"`
	UserID      int64      `json:"user_id"`
	Username    string     `json:"username,omitempty"`
	Value       int64      `json:"value"`
	GameLabel   string     `json:"game_label,omitempty"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
}

// LeaderboardKey selects which ordered set (or which score store scope) a
// ranking operation consults: the global population or one game's.
type LeaderboardKey struct {
	gameID int64
	global bool
}

// GlobalKey returns the key for the global leaderboard.
func GlobalKey() LeaderboardKey {
	return LeaderboardKey{global: true}
}

// GameKey returns the key for one game's leaderboard.
func GameKey(gameID int64) LeaderboardKey {
	return LeaderboardKey{gameID: gameID}
}

// IsGlobal reports whether the key addresses the global leaderboard.
func (k LeaderboardKey) IsGlobal() bool { return k.global }

// GameID returns the game id for a game-scoped key; zero for the global key.
func (k LeaderboardKey) GameID() int64 { return k.gameID }

// String renders the key the way cache keys and log fields spell it.
func (k LeaderboardKey) String() string {
	if k.global {
		return "leaderboard:global"
	}
	return fmt.Sprintf("leaderboard:game:%d", k.gameID)
}

// UserStats aggregates one user's submissions within a scope.
type UserStats struct {
	Best    int64   `json:"best"`
	Count   int64   `json:"count"`
	Average float64 `json:"average"`
}

// PeriodPerformer is one row of a top-performers-in-period query.
type PeriodPerformer struct {
	Rank     int     `json:"rank"`
	UserID   int64   `json:"user_id"`
	Username string  `json:"username,omitempty"`
	Best     int64   `json:"best"`
	Count    int64   `json:"count"`
	Average  float64 `json:"average"`
}

// Statistics is the operational snapshot exposed to callers.
type Statistics struct {
	CachedPlayerCount int  `json:"cached_player_count"`
	DBPlayerCount     int64 `json:"db_player_count"`
	DBScoreCount      int64 `json:"db_score_count"`
	GameCount         int64 `json:"game_count"`
	CacheHealthy      bool `json:"cache_healthy"`
	ResyncRecommended bool `json:"resync_recommended"`
}

// Game is a registered game as the game directory resolves it.
type Game struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
