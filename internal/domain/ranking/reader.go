// Package ranking implements the read, write, reconciliation, and
// health components of the leaderboard engine. Reads prefer the cache
// and silently recompute from the authoritative store when the cache
// cannot answer; writes persist first and mirror into the cache on a
// best-effort basis.
package ranking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/arena/internal/adapters/directory"
	"github.com/okian/arena/internal/adapters/rankstore"
	"github.com/okian/arena/internal/adapters/scorestore"
	"github.com/okian/arena/internal/domain/model"
	"github.com/okian/arena/pkg/logger"
	"github.com/okian/arena/pkg/metrics"
)

// Default read configuration constants.
const (
	defaultMaxLimit = 100
	defaultMaxSpan  = 100
)

// Reader answers ranking queries cache-first. Cache failures and cache
// misses fall back to the score store; callers never see a cache error.
type Reader struct {
	cache  rankstore.Store
	scores scorestore.Store
	users  directory.Users
	games  directory.Games

	maxLimit int
	maxSpan  int

	logger logger.Logger
}

// ReaderOption applies a configuration option to the Reader.
type ReaderOption func(*Reader)

// WithMaxLimit caps how many entries one leaderboard query may return.
func WithMaxLimit(n int) ReaderOption {
	return func(r *Reader) {
		if n > 0 {
			r.maxLimit = n
		}
	}
}

// WithMaxSpan caps end minus start for a positional range query.
func WithMaxSpan(n int) ReaderOption {
	return func(r *Reader) {
		if n > 0 {
			r.maxSpan = n
		}
	}
}

// WithReaderLogger sets a custom logger for the Reader.
func WithReaderLogger(l logger.Logger) ReaderOption {
	return func(r *Reader) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewReader constructs a Reader over the cache and the authoritative
// store.
func NewReader(cache rankstore.Store, scores scorestore.Store, users directory.Users, games directory.Games, opts ...ReaderOption) *Reader {
	r := &Reader{
		cache:    cache,
		scores:   scores,
		users:    users,
		games:    games,
		maxLimit: defaultMaxLimit,
		maxSpan:  defaultMaxSpan,
		logger:   logger.Get().Named("reader"),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// GlobalTopN returns the top n entries of the global leaderboard.
func (r *Reader) GlobalTopN(ctx context.Context, n int) ([]model.RankEntry, error) {
	return r.topN(ctx, model.GlobalKey(), n)
}

// GameTopN returns the top n entries of one game's leaderboard.
func (r *Reader) GameTopN(ctx context.Context, gameID int64, n int) ([]model.RankEntry, error) {
	if gameID <= 0 {
		return nil, fmt.Errorf("%w: game id must be positive", model.ErrInvalidInput)
	}
	return r.topN(ctx, model.GameKey(gameID), n)
}

func (r *Reader) topN(ctx context.Context, key model.LeaderboardKey, n int) ([]model.RankEntry, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: limit must be positive", model.ErrInvalidInput)
	}
	if n > r.maxLimit {
		n = r.maxLimit
	}

	members, err := r.cache.TopN(ctx, key, n)
	switch {
	case err != nil:
		r.logger.Warn(ctx, "cache topN failed, using score store",
			logger.String("key", key.String()),
			logger.Error(err),
		)
		metrics.RecordCacheFallback("topn", "error")
		return r.topNFromScores(ctx, key, n)
	case len(members) == 0:
		// An empty cache cannot distinguish "no players" from "not yet
		// mirrored"; the authoritative store can.
		metrics.RecordCacheFallback("topn", "empty")
		return r.topNFromScores(ctx, key, n)
	default:
		metrics.RecordCacheHit("topn")
		entries := make([]model.RankEntry, 0, len(members))
		for i, m := range members {
			entries = append(entries, model.RankEntry{Rank: i + 1, UserID: m.UserID, Value: m.Value})
		}
		r.decorate(ctx, key, entries)
		return entries, nil
	}
}

func (r *Reader) topNFromScores(ctx context.Context, key model.LeaderboardKey, n int) ([]model.RankEntry, error) {
	rows, err := r.scores.BestPerUser(ctx, key, n)
	if err != nil {
		return nil, err
	}
	entries := make([]model.RankEntry, 0, len(rows))
	for i, row := range rows {
		entries = append(entries, model.RankEntry{Rank: i + 1, UserID: row.UserID, Value: row.Best})
	}
	r.decorate(ctx, key, entries)
	return entries, nil
}

// UserGlobalRank returns the user's 1-based global position.
func (r *Reader) UserGlobalRank(ctx context.Context, userID int64) (int, error) {
	return r.userRank(ctx, model.GlobalKey(), userID)
}

// UserGameRank returns the user's 1-based position within one game.
func (r *Reader) UserGameRank(ctx context.Context, gameID, userID int64) (int, error) {
	if gameID <= 0 {
		return 0, fmt.Errorf("%w: game id must be positive", model.ErrInvalidInput)
	}
	return r.userRank(ctx, model.GameKey(gameID), userID)
}

func (r *Reader) userRank(ctx context.Context, key model.LeaderboardKey, userID int64) (int, error) {
	if userID <= 0 {
		return 0, fmt.Errorf("%w: user id must be positive", model.ErrInvalidInput)
	}

	rank, err := r.cache.Rank(ctx, key, userID)
	if err == nil {
		metrics.RecordCacheHit("rank")
		return rank, nil
	}

	reason := "error"
	if errors.Is(err, rankstore.ErrNotFound) {
		// Absent from the cache is not proof of being unranked; the
		// mirror may simply not have caught up yet.
		reason = "miss"
	} else {
		r.logger.Warn(ctx, "cache rank failed, using score store",
			logger.String("key", key.String()),
			logger.Int64("user_id", userID),
			logger.Error(err),
		)
	}
	metrics.RecordCacheFallback("rank", reason)

	rank, err = r.scores.RankOfUser(ctx, key, userID)
	if err != nil {
		if errors.Is(err, scorestore.ErrNotFound) {
			return 0, model.ErrNotFound
		}
		return 0, err
	}
	return rank, nil
}

// RangeByPosition returns entries at 1-based inclusive positions
// [start, end]. Malformed or oversized ranges are rejected.
func (r *Reader) RangeByPosition(ctx context.Context, key model.LeaderboardKey, start, end int) ([]model.RankEntry, error) {
	if start < 1 {
		return nil, fmt.Errorf("%w: start must be at least 1", model.ErrInvalidInput)
	}
	if end < start {
		return nil, fmt.Errorf("%w: end must not precede start", model.ErrInvalidInput)
	}
	if end-start > r.maxSpan {
		return nil, fmt.Errorf("%w: range span exceeds %d", model.ErrInvalidInput, r.maxSpan)
	}
	return r.rangeByPosition(ctx, key, start, end)
}

// rangeByPosition fetches without span validation so Neighbors can
// reuse it.
func (r *Reader) rangeByPosition(ctx context.Context, key model.LeaderboardKey, start, end int) ([]model.RankEntry, error) {
	members, err := r.cache.RangeByPosition(ctx, key, start, end)
	if err != nil || len(members) == 0 {
		if err != nil {
			r.logger.Warn(ctx, "cache range failed, using score store",
				logger.String("key", key.String()),
				logger.Error(err),
			)
			metrics.RecordCacheFallback("range", "error")
		} else {
			metrics.RecordCacheFallback("range", "empty")
		}
		rows, serr := r.scores.BestPerUser(ctx, key, end)
		if serr != nil {
			return nil, serr
		}
		if start > len(rows) {
			return []model.RankEntry{}, nil
		}
		if end > len(rows) {
			end = len(rows)
		}
		entries := make([]model.RankEntry, 0, end-start+1)
		for i := start - 1; i < end; i++ {
			entries = append(entries, model.RankEntry{Rank: i + 1, UserID: rows[i].UserID, Value: rows[i].Best})
		}
		r.decorate(ctx, key, entries)
		return entries, nil
	}

	metrics.RecordCacheHit("range")
	entries := make([]model.RankEntry, 0, len(members))
	for i, m := range members {
		entries = append(entries, model.RankEntry{Rank: start + i, UserID: m.UserID, Value: m.Value})
	}
	r.decorate(ctx, key, entries)
	return entries, nil
}

// Neighbors returns the entries surrounding the user: up to radius
// positions above and below. An unranked user gets an empty slice.
func (r *Reader) Neighbors(ctx context.Context, key model.LeaderboardKey, userID int64, radius int) ([]model.RankEntry, error) {
	if radius < 0 || 2*radius > r.maxSpan {
		return nil, fmt.Errorf("%w: radius out of range", model.ErrInvalidInput)
	}

	rank, err := r.userRank(ctx, key, userID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return []model.RankEntry{}, nil
		}
		return nil, err
	}

	start := rank - radius
	if start < 1 {
		start = 1
	}
	return r.rangeByPosition(ctx, key, start, rank+radius)
}

// TopPerformersInPeriod aggregates per-user performance over
// submissions in [start, end). Served from the authoritative store
// only; the cache does not keep timestamps.
func (r *Reader) TopPerformersInPeriod(ctx context.Context, start, end time.Time, n int) ([]model.PeriodPerformer, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: limit must be positive", model.ErrInvalidInput)
	}
	if !end.After(start) {
		return nil, fmt.Errorf("%w: period end must follow start", model.ErrInvalidInput)
	}
	if n > r.maxLimit {
		n = r.maxLimit
	}

	rows, err := r.scores.TopPerformers(ctx, start, end, n)
	if err != nil {
		return nil, err
	}
	out := make([]model.PeriodPerformer, 0, len(rows))
	for i, row := range rows {
		p := model.PeriodPerformer{
			Rank:    i + 1,
			UserID:  row.UserID,
			Best:    row.Best,
			Count:   row.Count,
			Average: row.Average,
		}
		if name, nerr := r.users.Username(ctx, row.UserID); nerr == nil {
			p.Username = name
		}
		out = append(out, p)
	}
	return out, nil
}

// UserStats aggregates one user's submissions within a scope. Always
// authoritative.
func (r *Reader) UserStats(ctx context.Context, key model.LeaderboardKey, userID int64) (model.UserStats, error) {
	if userID <= 0 {
		return model.UserStats{}, fmt.Errorf("%w: user id must be positive", model.ErrInvalidInput)
	}
	stats, err := r.scores.UserStats(ctx, key, userID)
	if err != nil {
		if errors.Is(err, scorestore.ErrNotFound) {
			return model.UserStats{}, model.ErrNotFound
		}
		return model.UserStats{}, err
	}
	return stats, nil
}

// decorate fills usernames and the game label. Lookup failures leave
// labels empty; they never fail a ranking response.
func (r *Reader) decorate(ctx context.Context, key model.LeaderboardKey, entries []model.RankEntry) {
	var gameLabel string
	if !key.IsGlobal() {
		if name, err := r.games.Name(ctx, key.GameID()); err == nil {
			gameLabel = name
		}
	}
	for i := range entries {
		if name, err := r.users.Username(ctx, entries[i].UserID); err == nil {
			entries[i].Username = name
		}
		entries[i].GameLabel = gameLabel
	}
}
