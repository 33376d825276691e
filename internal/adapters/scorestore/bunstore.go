package scorestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/okian/arena/internal/domain/model"
	"github.com/okian/arena/pkg/metrics"
)

// BunStore implements Store on top of a bun-managed SQL database.
type BunStore struct {
	DB *bun.DB
}

// New wraps an existing bun connection.
func New(db *bun.DB) *BunStore {
	return &BunStore{DB: db}
}

// CreateSchema creates the scores table. Used by tests and the seed tool.
func (s *BunStore) CreateSchema(ctx context.Context) error {
	_, err := s.DB.NewCreateTable().
		Model((*scoreRow)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create scores table: %w", err)
	}
	return nil
}

// scoped narrows a query to the key's game, or leaves it global.
func scoped(q *bun.SelectQuery, key model.LeaderboardKey) *bun.SelectQuery {
	if !key.IsGlobal() {
		q = q.Where("game_id = ?", key.GameID())
	}
	return q
}

func observeQuery(start time.Time) {
	metrics.RecordScoreStoreQueryLatency(float64(time.Since(start).Milliseconds()))
}

// Insert persists one submission row.
func (s *BunStore) Insert(ctx context.Context, userID, gameID, value int64) (model.Score, error) {
	row := scoreRow{
		UserID:      userID,
		GameID:      gameID,
		Value:       value,
		SubmittedAt: time.Now().UTC(),
	}

	if _, err := s.DB.NewInsert().Model(&row).Exec(ctx); err != nil {
		metrics.RecordErrorByComponent("scorestore", "insert")
		return model.Score{}, fmt.Errorf("%w: insert score for user %d: %v", ErrPersistence, userID, err)
	}

	return model.Score{
		ID:          row.ID,
		UserID:      row.UserID,
		GameID:      row.GameID,
		Value:       row.Value,
		SubmittedAt: row.SubmittedAt,
	}, nil
}

// BestPerUser returns each user's best value in scope, best first.
func (s *BunStore) BestPerUser(ctx context.Context, key model.LeaderboardKey, limit int) ([]BestRow, error) {
	defer observeQuery(time.Now())

	rows := make([]BestRow, 0, limit)
	q := s.DB.NewSelect().
		Model((*scoreRow)(nil)).
		ColumnExpr("user_id").
		ColumnExpr("MAX(value) AS best").
		GroupExpr("user_id").
		OrderExpr("best DESC, user_id ASC").
		Limit(limit)
	if err := scoped(q, key).Scan(ctx, &rows); err != nil {
		return nil, fmt.Errorf("%w: best per user for %s: %v", ErrPersistence, key, err)
	}
	return rows, nil
}

// RankOfUser computes the user's 1-based position among per-user bests
// with a window query, ordered identically to the cache.
func (s *BunStore) RankOfUser(ctx context.Context, key model.LeaderboardKey, userID int64) (int, error) {
	defer observeQuery(time.Now())

	query := `
		SELECT rn FROM (
			SELECT user_id, ROW_NUMBER() OVER (ORDER BY MAX(value) DESC, user_id ASC) AS rn
			FROM scores
			GROUP BY user_id
		) ranked WHERE user_id = ?`
	args := []interface{}{userID}
	if !key.IsGlobal() {
		query = `
			SELECT rn FROM (
				SELECT user_id, ROW_NUMBER() OVER (ORDER BY MAX(value) DESC, user_id ASC) AS rn
				FROM scores
				WHERE game_id = ?
				GROUP BY user_id
			) ranked WHERE user_id = ?`
		args = []interface{}{key.GameID(), userID}
	}

	var rank int
	if err := s.DB.NewRaw(query, args...).Scan(ctx, &rank); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("%w: rank of user %d for %s: %v", ErrPersistence, userID, key, err)
	}
	return rank, nil
}

// UserStats aggregates best, count and average for one user in scope.
func (s *BunStore) UserStats(ctx context.Context, key model.LeaderboardKey, userID int64) (model.UserStats, error) {
	defer observeQuery(time.Now())

	var agg struct {
		Best    int64   `bun:"best"`
		Count   int64   `bun:"count"`
		Average float64 `bun:"average"`
	}
	q := s.DB.NewSelect().
		Model((*scoreRow)(nil)).
		ColumnExpr("COALESCE(MAX(value), 0) AS best").
		ColumnExpr("COUNT(*) AS count").
		ColumnExpr("COALESCE(AVG(value), 0.0) AS average").
		Where("user_id = ?", userID)
	if err := scoped(q, key).Scan(ctx, &agg); err != nil {
		return model.UserStats{}, fmt.Errorf("%w: stats for user %d in %s: %v", ErrPersistence, userID, key, err)
	}
	if agg.Count == 0 {
		return model.UserStats{}, ErrNotFound
	}
	return model.UserStats{Best: agg.Best, Count: agg.Count, Average: agg.Average}, nil
}

// DistinctPlayerCount counts users with at least one submission in scope.
func (s *BunStore) DistinctPlayerCount(ctx context.Context, key model.LeaderboardKey) (int64, error) {
	defer observeQuery(time.Now())

	var count int64
	q := s.DB.NewSelect().
		Model((*scoreRow)(nil)).
		ColumnExpr("COUNT(DISTINCT user_id)")
	if err := scoped(q, key).Scan(ctx, &count); err != nil {
		return 0, fmt.Errorf("%w: distinct players for %s: %v", ErrPersistence, key, err)
	}
	return count, nil
}

// ScoreCount counts every stored submission.
func (s *BunStore) ScoreCount(ctx context.Context) (int64, error) {
	defer observeQuery(time.Now())

	count, err := s.DB.NewSelect().Model((*scoreRow)(nil)).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: score count: %v", ErrPersistence, err)
	}
	return int64(count), nil
}

// TopPerformers aggregates per-user performance over [start, end).
func (s *BunStore) TopPerformers(ctx context.Context, start, end time.Time, limit int) ([]PerformerRow, error) {
	defer observeQuery(time.Now())

	rows := make([]PerformerRow, 0, limit)
	err := s.DB.NewSelect().
		Model((*scoreRow)(nil)).
		ColumnExpr("user_id").
		ColumnExpr("MAX(value) AS best").
		ColumnExpr("COUNT(*) AS count").
		ColumnExpr("AVG(value) AS average").
		Where("submitted_at >= ?", start).
		Where("submitted_at < ?", end).
		GroupExpr("user_id").
		OrderExpr("best DESC, user_id ASC").
		Limit(limit).
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("%w: top performers: %v", ErrPersistence, err)
	}
	return rows, nil
}

// UserScores lists one user's submissions newest first.
func (s *BunStore) UserScores(ctx context.Context, userID, gameID int64, limit int) ([]model.Score, error) {
	defer observeQuery(time.Now())

	q := s.DB.NewSelect().
		Model((*scoreRow)(nil)).
		Where("user_id = ?", userID).
		OrderExpr("submitted_at DESC, id DESC").
		Limit(limit)
	if gameID > 0 {
		q = q.Where("game_id = ?", gameID)
	}

	var rows []scoreRow
	if err := q.Scan(ctx, &rows); err != nil {
		return nil, fmt.Errorf("%w: scores for user %d: %v", ErrPersistence, userID, err)
	}
	return toScores(rows), nil
}

// RecentScores lists the newest submissions across all users.
func (s *BunStore) RecentScores(ctx context.Context, limit int) ([]model.Score, error) {
	defer observeQuery(time.Now())

	var rows []scoreRow
	err := s.DB.NewSelect().
		Model((*scoreRow)(nil)).
		OrderExpr("submitted_at DESC, id DESC").
		Limit(limit).
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("%w: recent scores: %v", ErrPersistence, err)
	}
	return toScores(rows), nil
}

// HasSubmissionBetween reports a submission by the user to the game
// within [start, end).
func (s *BunStore) HasSubmissionBetween(ctx context.Context, userID, gameID int64, start, end time.Time) (bool, error) {
	defer observeQuery(time.Now())

	exists, err := s.DB.NewSelect().
		Model((*scoreRow)(nil)).
		Where("user_id = ?", userID).
		Where("game_id = ?", gameID).
		Where("submitted_at >= ?", start).
		Where("submitted_at < ?", end).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: submission check for user %d: %v", ErrPersistence, userID, err)
	}
	return exists, nil
}

func toScores(rows []scoreRow) []model.Score {
	out := make([]model.Score, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.Score{
			ID:          r.ID,
			UserID:      r.UserID,
			GameID:      r.GameID,
			Value:       r.Value,
			SubmittedAt: r.SubmittedAt,
		})
	}
	return out
}
