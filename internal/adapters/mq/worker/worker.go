// Package worker drains the mirror queue into the ranking cache.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/okian/arena/internal/adapters/mq/queue"
	"github.com/okian/arena/internal/domain/model"
	"github.com/okian/arena/pkg/logger"
	"github.com/okian/arena/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultJobTimeout     = 2 * time.Second
	workerShutdownTimeout = 5 * time.Second
	poolShutdownTimeout   = 30 * time.Second
)

// Cache is the slice of the rank store a mirror worker writes to.
type Cache interface {
	UpsertIfGreater(ctx context.Context, key model.LeaderboardKey, userID, value int64) (bool, error)
	UpsertBest(ctx context.Context, userID, value int64) (bool, error)
}

// Queue defines how workers receive mirror jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Mirror
}

// Worker applies mirror jobs until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	Shutdown(ctx context.Context) error
}

// MirrorWorker implements Worker over one dequeue channel.
type MirrorWorker struct {
	queue      Queue
	cache      Cache
	name       string
	jobTimeout time.Duration

	shutdown chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	logger logger.Logger
}

// NewMirrorWorker creates a new worker with configuration options.
func NewMirrorWorker(q Queue, cache Cache, opts ...Option) *MirrorWorker {
	w := &MirrorWorker{
		queue:      q,
		cache:      cache,
		name:       "mirror",
		jobTimeout: defaultJobTimeout,
		shutdown:   make(chan struct{}),
		done:       make(chan struct{}),
		logger:     logger.Get().Named("mirror"),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.name != "mirror" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run starts the worker loop.
func (w *MirrorWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case m, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.apply(ctx, m); err != nil {
				w.logger.Error(ctx, "mirror apply failed",
					logger.String("key", m.Key.String()),
					logger.Int64("user_id", m.UserID),
					logger.Error(err),
				)
			}
		}
	}
}

// stop signals the worker loop to exit. Safe to call more than once.
func (w *MirrorWorker) stop() {
	w.stopOnce.Do(func() { close(w.shutdown) })
}

// Shutdown gracefully stops the worker.
func (w *MirrorWorker) Shutdown(ctx context.Context) error {
	w.stop()

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// apply mirrors one accepted submission into the game set, the global
// set, and the per-user best scalar. Errors here never reach the
// submitter; the durable row already exists.
func (w *MirrorWorker) apply(ctx context.Context, m queue.Mirror) error {
	start := time.Now()
	defer func() {
		metrics.RecordMirrorLatency(float64(time.Since(start).Milliseconds()))
	}()

	jobCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	defer cancel()

	if _, err := w.cache.UpsertIfGreater(jobCtx, m.Key, m.UserID, m.Value); err != nil {
		metrics.RecordMirrorError()
		metrics.RecordErrorByComponent("mirror_worker", "game_upsert")
		return fmt.Errorf("upsert %s: %w", m.Key, err)
	}
	if !m.Key.IsGlobal() {
		if _, err := w.cache.UpsertIfGreater(jobCtx, model.GlobalKey(), m.UserID, m.Value); err != nil {
			metrics.RecordMirrorError()
			metrics.RecordErrorByComponent("mirror_worker", "global_upsert")
			return fmt.Errorf("upsert global: %w", err)
		}
	}
	if _, err := w.cache.UpsertBest(jobCtx, m.UserID, m.Value); err != nil {
		metrics.RecordMirrorError()
		metrics.RecordErrorByComponent("mirror_worker", "best_upsert")
		return fmt.Errorf("upsert best: %w", err)
	}

	metrics.RecordMirrorApplied()
	return nil
}

// Pool manages multiple mirror workers over one queue.
type Pool struct {
	workers []*MirrorWorker
	queue   Queue

	shutdown chan struct{}
	stopOnce sync.Once

	logger logger.Logger
}

// NewPool creates a worker pool. A non-positive count defaults to the
// number of CPUs.
func NewPool(workerCount int, q Queue, cache Cache, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	pool := &Pool{
		workers:  make([]*MirrorWorker, workerCount),
		queue:    q,
		shutdown: make(chan struct{}),
		logger:   logger.Get().Named("mirror-pool"),
	}

	for i := 0; i < workerCount; i++ {
		workerOpts := append([]Option{WithName("mirror-" + strconv.Itoa(i))}, opts...)
		pool.workers[i] = NewMirrorWorker(q, cache, workerOpts...)
	}

	metrics.UpdateMirrorWorkerCount(workerCount)

	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Stop stops all workers without waiting for the queue to drain. Safe
// to call more than once and alongside Shutdown.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() { close(p.shutdown) })
	for _, w := range p.workers {
		w.stop()
	}
	for _, w := range p.workers {
		select {
		case <-w.done:
		case <-time.After(workerShutdownTimeout):
		}
	}
}

// Shutdown closes the queue, lets workers drain it, then stops them.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}

	return nil
}
