// Package queue carries mirror jobs from the submit path to the cache
// workers.
//
// Enqueue never blocks a submitter: when the queue is full the job is
// dropped and counted. The durable row already exists, so a dropped
// mirror only delays cache freshness until the next resync.
package queue

import (
	"context"
	"sync"

	"github.com/okian/arena/internal/domain/model"
	"github.com/okian/arena/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultQueueCapacity = 10000
	defaultBufferSize    = 10000
)

// Mirror is one cache update derived from an accepted submission.
type Mirror struct {
	Key    model.LeaderboardKey
	UserID int64
	Value  int64
}

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a mirror job. Returns false when the queue is full or
	// closed; the job is abandoned, never retried inline.
	Enqueue(ctx context.Context, m Mirror) bool

	// Dequeue returns a channel that yields jobs as they become
	// available. The channel is closed when the queue is closed.
	Dequeue(ctx context.Context) <-chan Mirror

	// Len returns the current number of queued jobs.
	Len(ctx context.Context) int

	// Close stops the queue. No new jobs are accepted and the dequeue
	// channel drains then closes.
	Close() error

	// IsClosed reports whether the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	jobs       chan Mirror
	capacity   int
	bufferSize int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity:   defaultQueueCapacity,
		bufferSize: defaultBufferSize,
	}

	for _, opt := range opts {
		opt(q)
	}

	if q.bufferSize < q.capacity {
		q.bufferSize = q.capacity
	}
	q.jobs = make(chan Mirror, q.bufferSize)

	metrics.UpdateMirrorQueueCapacity(q.capacity)
	metrics.UpdateMirrorQueueSize(0)
	metrics.UpdateMirrorQueueUtilization(0.0)

	return q
}

// Enqueue adds a mirror job without ever blocking the caller.
func (q *InMemoryQueue) Enqueue(ctx context.Context, m Mirror) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordMirrorDropped()
		metrics.RecordErrorByComponent("mirror_queue", "closed")
		return false
	}

	if len(q.jobs) >= q.capacity {
		metrics.RecordMirrorDropped()
		metrics.RecordErrorByComponent("mirror_queue", "capacity_exceeded")
		return false
	}

	select {
	case q.jobs <- m:
		q.publishGauges()
		return true
	case <-ctx.Done():
		metrics.RecordMirrorDropped()
		metrics.RecordErrorByComponent("mirror_queue", "context_cancelled")
		return false
	default:
		metrics.RecordMirrorDropped()
		metrics.RecordErrorByComponent("mirror_queue", "queue_full")
		return false
	}
}

// Dequeue returns a channel that yields jobs as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Mirror {
	out := make(chan Mirror)
	go func() {
		defer close(out)
		for m := range q.jobs {
			select {
			case out <- m:
				q.publishGauges()
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued jobs.
func (q *InMemoryQueue) Len(ctx context.Context) int {
	q.publishGauges()
	return len(q.jobs)
}

func (q *InMemoryQueue) publishGauges() {
	size := len(q.jobs)
	metrics.UpdateMirrorQueueSize(size)
	metrics.UpdateMirrorQueueUtilization(float64(size) / float64(q.capacity))
}

// Close stops the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.jobs)
	q.closed = true
	return nil
}

// IsClosed reports whether the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
