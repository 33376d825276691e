package ranking

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/okian/arena/internal/adapters/directory"
	"github.com/okian/arena/internal/adapters/rankstore"
	"github.com/okian/arena/internal/adapters/scorestore"
	"github.com/okian/arena/internal/domain/model"
	"github.com/okian/arena/pkg/logger"
	"github.com/okian/arena/pkg/metrics"
)

// Default resync ceilings. A rebuild loads at most this many players
// per leaderboard; players beyond the ceiling are still served through
// the score store fallback.
const (
	defaultGlobalCeiling = 1000
	defaultGameCeiling   = 500
)

// Reconciler rebuilds the cache from the authoritative store. At most
// one pass runs at a time; concurrent triggers coalesce.
type Reconciler struct {
	cache  rankstore.Store
	scores scorestore.Store
	games  directory.Games

	globalCeiling int
	gameCeiling   int

	running atomic.Bool

	logger logger.Logger
}

// ReconcilerOption applies a configuration option to the Reconciler.
type ReconcilerOption func(*Reconciler)

// WithGlobalCeiling bounds how many players a global rebuild loads.
func WithGlobalCeiling(n int) ReconcilerOption {
	return func(r *Reconciler) {
		if n > 0 {
			r.globalCeiling = n
		}
	}
}

// WithGameCeiling bounds how many players a per-game rebuild loads.
func WithGameCeiling(n int) ReconcilerOption {
	return func(r *Reconciler) {
		if n > 0 {
			r.gameCeiling = n
		}
	}
}

// WithReconcilerLogger sets a custom logger for the Reconciler.
func WithReconcilerLogger(l logger.Logger) ReconcilerOption {
	return func(r *Reconciler) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewReconciler constructs a Reconciler.
func NewReconciler(cache rankstore.Store, scores scorestore.Store, games directory.Games, opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{
		cache:         cache,
		scores:        scores,
		games:         games,
		globalCeiling: defaultGlobalCeiling,
		gameCeiling:   defaultGameCeiling,
		logger:        logger.Get().Named("reconciler"),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Running reports whether a resync pass is currently executing.
func (r *Reconciler) Running() bool {
	return r.running.Load()
}

// FullResync clears the cache and rebuilds it from per-user bests:
// the global leaderboard up to the global ceiling, then every game up
// to the per-game ceiling. Returns ErrResyncInProgress when another
// pass holds the slot. On failure the pass aborts and partial state
// stands until the next pass.
func (r *Reconciler) FullResync(ctx context.Context) error {
	if !r.running.CompareAndSwap(false, true) {
		metrics.RecordResyncCoalesced()
		return ErrResyncInProgress
	}
	defer r.running.Store(false)

	start := time.Now()
	r.logger.Info(ctx, "full resync started")

	if err := r.rebuild(ctx); err != nil {
		metrics.RecordResyncFailure()
		r.logger.Error(ctx, "full resync failed",
			logger.Duration("elapsed", time.Since(start)),
			logger.Error(err),
		)
		return err
	}

	metrics.RecordResyncRun()
	metrics.RecordResyncDuration(float64(time.Since(start).Milliseconds()))
	metrics.UpdateResyncLastUnix(float64(time.Now().Unix()))
	r.logger.Info(ctx, "full resync finished",
		logger.Duration("elapsed", time.Since(start)),
	)
	return nil
}

func (r *Reconciler) rebuild(ctx context.Context) error {
	if err := r.cache.ClearAll(ctx); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}

	rows, err := r.scores.BestPerUser(ctx, model.GlobalKey(), r.globalCeiling)
	if err != nil {
		return fmt.Errorf("load global bests: %w", err)
	}
	for _, row := range rows {
		if _, err := r.cache.UpsertIfGreater(ctx, model.GlobalKey(), row.UserID, row.Best); err != nil {
			return fmt.Errorf("rebuild global: %w", err)
		}
		if _, err := r.cache.UpsertBest(ctx, row.UserID, row.Best); err != nil {
			return fmt.Errorf("rebuild best scalars: %w", err)
		}
	}

	games, err := r.games.List(ctx)
	if err != nil {
		return fmt.Errorf("list games: %w", err)
	}
	for _, game := range games {
		key := model.GameKey(game.ID)
		rows, err := r.scores.BestPerUser(ctx, key, r.gameCeiling)
		if err != nil {
			return fmt.Errorf("load bests for game %d: %w", game.ID, err)
		}
		for _, row := range rows {
			if _, err := r.cache.UpsertIfGreater(ctx, key, row.UserID, row.Best); err != nil {
				return fmt.Errorf("rebuild game %d: %w", game.ID, err)
			}
		}
	}

	return nil
}

// ResyncUser recomputes one user's bests from the authoritative store
// and raises the cached values. Cheap enough to run inline after a
// suspected missed mirror.
func (r *Reconciler) ResyncUser(ctx context.Context, userID int64) error {
	stats, err := r.scores.UserStats(ctx, model.GlobalKey(), userID)
	if err != nil {
		if errors.Is(err, scorestore.ErrNotFound) {
			return nil // nothing to mirror
		}
		return fmt.Errorf("load user %d global best: %w", userID, err)
	}
	if _, err := r.cache.UpsertIfGreater(ctx, model.GlobalKey(), userID, stats.Best); err != nil {
		return fmt.Errorf("resync user %d global: %w", userID, err)
	}
	if _, err := r.cache.UpsertBest(ctx, userID, stats.Best); err != nil {
		return fmt.Errorf("resync user %d best scalar: %w", userID, err)
	}

	games, err := r.games.List(ctx)
	if err != nil {
		return fmt.Errorf("list games: %w", err)
	}
	for _, game := range games {
		key := model.GameKey(game.ID)
		stats, err := r.scores.UserStats(ctx, key, userID)
		if err != nil {
			if errors.Is(err, scorestore.ErrNotFound) {
				continue
			}
			return fmt.Errorf("load user %d best for game %d: %w", userID, game.ID, err)
		}
		if _, err := r.cache.UpsertIfGreater(ctx, key, userID, stats.Best); err != nil {
			return fmt.Errorf("resync user %d game %d: %w", userID, game.ID, err)
		}
	}

	return nil
}
