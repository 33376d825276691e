package ranking

import (
	"context"
	"errors"
	"time"

	"github.com/okian/arena/internal/adapters/directory"
	"github.com/okian/arena/internal/adapters/rankstore"
	"github.com/okian/arena/internal/adapters/scorestore"
	"github.com/okian/arena/internal/domain/model"
	"github.com/okian/arena/pkg/logger"
	"github.com/okian/arena/pkg/metrics"
)

// Default monitor configuration constants.
const (
	defaultProbeInterval  = 15 * time.Minute
	defaultResyncInterval = time.Hour
)

// Monitor watches cache health and triggers resyncs when the cache
// drifts too far behind the authoritative store.
type Monitor struct {
	cache      rankstore.Store
	scores     scorestore.Store
	games      directory.Games
	reconciler *Reconciler

	probeInterval  time.Duration
	resyncInterval time.Duration

	logger logger.Logger
}

// MonitorOption applies a configuration option to the Monitor.
type MonitorOption func(*Monitor)

// WithProbeInterval sets how often the health probe fires.
func WithProbeInterval(d time.Duration) MonitorOption {
	return func(m *Monitor) {
		if d > 0 {
			m.probeInterval = d
		}
	}
}

// WithResyncInterval sets how often the periodic resync check fires.
func WithResyncInterval(d time.Duration) MonitorOption {
	return func(m *Monitor) {
		if d > 0 {
			m.resyncInterval = d
		}
	}
}

// WithMonitorLogger sets a custom logger for the Monitor.
func WithMonitorLogger(l logger.Logger) MonitorOption {
	return func(m *Monitor) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewMonitor constructs a Monitor.
func NewMonitor(cache rankstore.Store, scores scorestore.Store, games directory.Games, reconciler *Reconciler, opts ...MonitorOption) *Monitor {
	m := &Monitor{
		cache:          cache,
		scores:         scores,
		games:          games,
		reconciler:     reconciler,
		probeInterval:  defaultProbeInterval,
		resyncInterval: defaultResyncInterval,
		logger:         logger.Get().Named("monitor"),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// IsHealthy probes the cache with a cheap cardinality query.
func (m *Monitor) IsHealthy(ctx context.Context) bool {
	_, err := m.cache.Cardinality(ctx, model.GlobalKey())
	healthy := err == nil
	metrics.UpdateCacheHealthy(healthy)
	return healthy
}

// Stale reports whether the cache has fallen behind: the probe fails,
// or the cached population is below half the authoritative one.
func (m *Monitor) Stale(ctx context.Context) bool {
	cached, err := m.cache.Cardinality(ctx, model.GlobalKey())
	if err != nil {
		metrics.UpdateCacheHealthy(false)
		return true
	}
	metrics.UpdateCacheHealthy(true)

	dbPlayers, err := m.scores.DistinctPlayerCount(ctx, model.GlobalKey())
	if err != nil {
		// Cannot compare; do not thrash the cache on a flaky store.
		m.logger.Warn(ctx, "staleness check skipped", logger.Error(err))
		return false
	}
	return int64(cached) < dbPlayers/2
}

// Statistics snapshots the engine's operational counters.
func (m *Monitor) Statistics(ctx context.Context) (model.Statistics, error) {
	stats := model.Statistics{}

	cached, err := m.cache.Cardinality(ctx, model.GlobalKey())
	if err == nil {
		stats.CachedPlayerCount = cached
		stats.CacheHealthy = true
	}
	metrics.UpdateCacheHealthy(stats.CacheHealthy)
	metrics.UpdateCachedPlayers(stats.CachedPlayerCount)

	dbPlayers, err := m.scores.DistinctPlayerCount(ctx, model.GlobalKey())
	if err != nil {
		return model.Statistics{}, err
	}
	stats.DBPlayerCount = dbPlayers
	metrics.UpdateDBPlayers(dbPlayers)

	scoreCount, err := m.scores.ScoreCount(ctx)
	if err != nil {
		return model.Statistics{}, err
	}
	stats.DBScoreCount = scoreCount
	metrics.UpdateDBScores(scoreCount)

	gameCount, err := m.games.Count(ctx)
	if err != nil {
		return model.Statistics{}, err
	}
	stats.GameCount = gameCount
	metrics.UpdateGameCount(gameCount)

	stats.ResyncRecommended = !stats.CacheHealthy ||
		int64(stats.CachedPlayerCount) < stats.DBPlayerCount/2
	return stats, nil
}

// Run drives the health probe and the periodic resync check until ctx
// is canceled. Either timer firing while the cache is stale starts a
// full resync; overlapping starts coalesce in the reconciler.
func (m *Monitor) Run(ctx context.Context) {
	probe := time.NewTicker(m.probeInterval)
	defer probe.Stop()
	resync := time.NewTicker(m.resyncInterval)
	defer resync.Stop()

	m.logger.Info(ctx, "monitor started",
		logger.Duration("probe_interval", m.probeInterval),
		logger.Duration("resync_interval", m.resyncInterval),
	)

	for {
		select {
		case <-ctx.Done():
			m.logger.Info(context.Background(), "monitor stopped")
			return
		case <-probe.C:
			if m.Stale(ctx) {
				m.logger.Warn(ctx, "health probe found stale cache")
				m.triggerResync(ctx)
			}
		case <-resync.C:
			if m.Stale(ctx) {
				m.logger.Warn(ctx, "periodic check found stale cache")
				m.triggerResync(ctx)
			}
		}
	}
}

func (m *Monitor) triggerResync(ctx context.Context) {
	go func() {
		if err := m.reconciler.FullResync(ctx); err != nil {
			if errors.Is(err, ErrResyncInProgress) {
				m.logger.Debug(ctx, "resync already running, coalesced")
				return
			}
			m.logger.Error(ctx, "triggered resync failed", logger.Error(err))
		}
	}()
}
