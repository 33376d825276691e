// Package service wires the ranking engine together and implements the
// dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/uptrace/bun"

	"github.com/okian/arena/internal/adapters/directory"
	mirrorqueue "github.com/okian/arena/internal/adapters/mq/queue"
	workerpool "github.com/okian/arena/internal/adapters/mq/worker"
	"github.com/okian/arena/internal/adapters/rankstore"
	"github.com/okian/arena/internal/adapters/scorestore"
	"github.com/okian/arena/internal/domain/dedupe"
	"github.com/okian/arena/internal/domain/model"
	"github.com/okian/arena/internal/domain/ranking"
	"github.com/okian/arena/pkg/logger"
)

// Service owns the engine's components and lifecycle.
type Service struct {
	mu sync.RWMutex

	// Core components
	db         *bun.DB
	cache      rankstore.Store
	scores     scorestore.Store
	users      directory.Users
	games      directory.Games
	queue      mirrorqueue.Queue
	pool       *workerpool.Pool
	reader     *ranking.Reader
	writer     *ranking.Writer
	reconciler *ranking.Reconciler
	monitor    *ranking.Monitor

	// Configuration
	workerCount    int
	queueSize      int
	dedupeSize     int
	mirrorTimeout  time.Duration
	maxLimit       int
	maxSpan        int
	globalCeiling  int
	gameCeiling    int
	probeInterval  time.Duration
	resyncInterval time.Duration

	// State
	started bool
	cancel  context.CancelFunc

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithDB sets the relational database connection.
func WithDB(db *bun.DB) Option {
	return func(s *Service) {
		s.db = db
	}
}

// WithWorkerCount sets the number of mirror worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the mirror queue capacity.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the submission id cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithMirrorTimeout bounds each mirror job.
func WithMirrorTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.mirrorTimeout = d
		}
	}
}

// WithMaxLimit caps leaderboard query sizes.
func WithMaxLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxLimit = n
		}
	}
}

// WithMaxSpan caps positional range widths.
func WithMaxSpan(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxSpan = n
		}
	}
}

// WithResyncCeilings bounds how many players a resync loads globally
// and per game.
func WithResyncCeilings(global, game int) Option {
	return func(s *Service) {
		if global > 0 {
			s.globalCeiling = global
		}
		if game > 0 {
			s.gameCeiling = game
		}
	}
}

// WithProbeInterval sets the cache health probe period.
func WithProbeInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.probeInterval = d
		}
	}
}

// WithResyncInterval sets the periodic resync check period.
func WithResyncInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.resyncInterval = d
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:    runtime.NumCPU(),
		queueSize:      10000,
		dedupeSize:     100000,
		mirrorTimeout:  2 * time.Second,
		maxLimit:       100,
		maxSpan:        100,
		globalCeiling:  1000,
		gameCeiling:    500,
		probeInterval:  15 * time.Minute,
		resyncInterval: time.Hour,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start builds and starts every component. The database connection must
// be set before starting.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.db == nil {
		return fmt.Errorf("service requires a database connection")
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.logger.Info(ctx, "starting ranking service...")

	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.cache = rankstore.NewTreapStore(runCtx)
	s.scores = scorestore.New(s.db)
	dir := directory.New(s.db)
	s.users = dir
	s.games = dir

	s.queue = mirrorqueue.NewInMemoryQueue(
		mirrorqueue.WithCapacity(s.queueSize),
		mirrorqueue.WithBufferSize(s.queueSize),
	)
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.cache,
		workerpool.WithJobTimeout(s.mirrorTimeout),
	)
	s.pool.Start(runCtx)

	s.reader = ranking.NewReader(s.cache, s.scores, s.users, s.games,
		ranking.WithMaxLimit(s.maxLimit),
		ranking.WithMaxSpan(s.maxSpan),
	)
	s.writer = ranking.NewWriter(s.scores, s.queue,
		ranking.WithDeduper(dedupe.NewInMemoryDeduper(
			dedupe.WithMaxSize(s.dedupeSize),
		)),
	)
	s.reconciler = ranking.NewReconciler(s.cache, s.scores, s.games,
		ranking.WithGlobalCeiling(s.globalCeiling),
		ranking.WithGameCeiling(s.gameCeiling),
	)
	s.monitor = ranking.NewMonitor(s.cache, s.scores, s.games, s.reconciler,
		ranking.WithProbeInterval(s.probeInterval),
		ranking.WithResyncInterval(s.resyncInterval),
	)
	go s.monitor.Run(runCtx)

	// Warm the cache so early reads rarely need the fallback. Failure is
	// tolerable; reads stay correct through the score store.
	go func() {
		if err := s.reconciler.FullResync(runCtx); err != nil {
			s.logger.Warn(runCtx, "initial cache warm failed", logger.Error(err))
		}
	}()

	s.started = true
	s.logger.Info(ctx, "ranking service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queue_size", s.queueSize),
		logger.Int("dedupe_size", s.dedupeSize),
	)

	return nil
}

// Stop gracefully shuts the service down: the mirror queue drains, the
// monitor stops, and the cache closes.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping ranking service...")

	if s.pool != nil {
		_ = s.pool.Shutdown(ctx)
	}
	if s.cancel != nil {
		s.cancel()
	}
	if s.cache != nil {
		_ = s.cache.Close()
	}

	s.started = false
	s.logger.Info(ctx, "ranking service stopped")
}

// Started reports whether the service is running.
func (s *Service) Started() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// GlobalTopN returns the top n entries of the global leaderboard.
func (s *Service) GlobalTopN(ctx context.Context, n int) ([]model.RankEntry, error) {
	return s.reader.GlobalTopN(ctx, n)
}

// GameTopN returns the top n entries of one game's leaderboard.
func (s *Service) GameTopN(ctx context.Context, gameID int64, n int) ([]model.RankEntry, error) {
	return s.reader.GameTopN(ctx, gameID, n)
}

// UserGlobalRank returns the user's global position.
func (s *Service) UserGlobalRank(ctx context.Context, userID int64) (int, error) {
	return s.reader.UserGlobalRank(ctx, userID)
}

// UserGameRank returns the user's position within one game.
func (s *Service) UserGameRank(ctx context.Context, gameID, userID int64) (int, error) {
	return s.reader.UserGameRank(ctx, gameID, userID)
}

// RangeByPosition returns entries at the given 1-based positions.
func (s *Service) RangeByPosition(ctx context.Context, key model.LeaderboardKey, start, end int) ([]model.RankEntry, error) {
	return s.reader.RangeByPosition(ctx, key, start, end)
}

// Neighbors returns entries around one user.
func (s *Service) Neighbors(ctx context.Context, key model.LeaderboardKey, userID int64, radius int) ([]model.RankEntry, error) {
	return s.reader.Neighbors(ctx, key, userID, radius)
}

// TopPerformersInPeriod aggregates performance over a time period.
func (s *Service) TopPerformersInPeriod(ctx context.Context, start, end time.Time, n int) ([]model.PeriodPerformer, error) {
	return s.reader.TopPerformersInPeriod(ctx, start, end, n)
}

// UserStats aggregates one user's submissions within a scope.
func (s *Service) UserStats(ctx context.Context, key model.LeaderboardKey, userID int64) (model.UserStats, error) {
	return s.reader.UserStats(ctx, key, userID)
}

// Submit accepts one score submission.
func (s *Service) Submit(ctx context.Context, userID, gameID, value int64, submissionID string) (model.Score, error) {
	return s.writer.Submit(ctx, userID, gameID, value, submissionID)
}

// RecentScores lists the newest submissions.
func (s *Service) RecentScores(ctx context.Context, limit int) ([]model.Score, error) {
	if limit < 1 || limit > s.maxLimit {
		limit = s.maxLimit
	}
	return s.scores.RecentScores(ctx, limit)
}

// UserScores lists one user's submissions; gameID 0 means all games.
func (s *Service) UserScores(ctx context.Context, userID, gameID int64, limit int) ([]model.Score, error) {
	if limit < 1 || limit > s.maxLimit {
		limit = s.maxLimit
	}
	return s.scores.UserScores(ctx, userID, gameID, limit)
}

// TriggerFullResync starts a resync pass without waiting for it.
func (s *Service) TriggerFullResync() {
	go func() {
		ctx := context.Background()
		if err := s.reconciler.FullResync(ctx); err != nil {
			if errors.Is(err, ranking.ErrResyncInProgress) {
				s.logger.Debug(ctx, "resync trigger coalesced")
				return
			}
			s.logger.Error(ctx, "triggered resync failed", logger.Error(err))
		}
	}()
}

// GetStats snapshots operational statistics.
func (s *Service) GetStats(ctx context.Context) (model.Statistics, error) {
	return s.monitor.Statistics(ctx)
}
