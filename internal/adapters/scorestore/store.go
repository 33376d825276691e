// Package scorestore persists score submissions and answers ranking
// queries from the authoritative relational store.
package scorestore

import (
	"context"
	"time"

	"github.com/okian/arena/internal/domain/model"
)

// BestRow is one user's best value within a leaderboard scope.
type BestRow struct {
	UserID int64 `bun:"user_id"`
	Best   int64 `bun:"best"`
}

// PerformerRow aggregates one user's submissions within a time period.
type PerformerRow struct {
	UserID  int64   `bun:"user_id"`
	Best    int64   `bun:"best"`
	Count   int64   `bun:"count"`
	Average float64 `bun:"average"`
}

// Store is the authoritative score storage. Writes are durable; reads
// recompute rankings from raw submissions, so results stay correct even
// when the cache is empty or offline.
type Store interface {
	// Insert persists one submission and returns the stored row.
	// Failures wrap ErrPersistence.
	Insert(ctx context.Context, userID, gameID, value int64) (model.Score, error)

	// BestPerUser returns each user's best value within the key's scope,
	// ordered by best descending then user id ascending.
	BestPerUser(ctx context.Context, key model.LeaderboardKey, limit int) ([]BestRow, error)

	// RankOfUser returns the user's 1-based position among per-user bests
	// within the key's scope. Returns ErrNotFound when the user has no
	// qualifying submission.
	RankOfUser(ctx context.Context, key model.LeaderboardKey, userID int64) (int, error)

	// UserStats aggregates the user's submissions within the key's scope.
	// Returns ErrNotFound when the user has no submissions there.
	UserStats(ctx context.Context, key model.LeaderboardKey, userID int64) (model.UserStats, error)

	// DistinctPlayerCount counts users with at least one submission in the
	// key's scope.
	DistinctPlayerCount(ctx context.Context, key model.LeaderboardKey) (int64, error)

	// ScoreCount counts all stored submissions.
	ScoreCount(ctx context.Context) (int64, error)

	// TopPerformers aggregates per-user best/count/average over
	// submissions in [start, end), ordered by best descending then user
	// id ascending.
	TopPerformers(ctx context.Context, start, end time.Time, limit int) ([]PerformerRow, error)

	// UserScores lists the user's submissions newest first; gameID 0
	// means all games.
	UserScores(ctx context.Context, userID, gameID int64, limit int) ([]model.Score, error)

	// RecentScores lists the newest submissions across all users.
	RecentScores(ctx context.Context, limit int) ([]model.Score, error)

	// HasSubmissionBetween reports whether the user submitted to the game
	// within [start, end).
	HasSubmissionBetween(ctx context.Context, userID, gameID int64, start, end time.Time) (bool, error)
}
