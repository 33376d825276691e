// Package dedupe tracks submission ids for idempotent score intake.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

// Deduper records seen submission ids so resubmitted requests are
// answered without writing a second row.
type Deduper interface {
	// SeenAndRecord atomically checks whether id was seen and records it
	// if not. Returns true when id was already seen.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets an id so the submission can be retried. Used when
	// a recorded submission failed before the durable write.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

const defaultMaxSize = 100000

// inMemoryDeduper keeps ids in a map plus a FIFO ring of insertion
// order. When the bound is reached the oldest id is evicted; unbounded
// mode (maxSize <= 0) skips the ring entirely.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]struct{}
	order   []string // ring buffer of insertion order, bounded mode only
	next    int      // ring write position
	maxSize int
	size    atomic.Int64
}

// NewInMemoryDeduper creates an in-memory deduper with configuration
// options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: defaultMaxSize,
	}

	for _, opt := range opts {
		opt(d)
	}

	d.seen = make(map[string]struct{})
	if d.maxSize > 0 {
		d.order = make([]string, 0, d.maxSize)
	}

	return d
}

func (d *inMemoryDeduper) SeenAndRecord(ctx context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[id]; exists {
		return true
	}

	if d.maxSize > 0 {
		if len(d.order) < d.maxSize {
			d.order = append(d.order, id)
		} else {
			// Ring is full: evict the oldest id at the write position.
			// Scrubbed slots are empty and evict nothing.
			old := d.order[d.next]
			if old != "" {
				delete(d.seen, old)
				d.size.Add(-1)
			}
			d.order[d.next] = id
			d.next = (d.next + 1) % d.maxSize
		}
	}

	d.seen[id] = struct{}{}
	d.size.Add(1)
	return false
}

func (d *inMemoryDeduper) Unrecord(ctx context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[id]; !exists {
		return
	}
	delete(d.seen, id)
	d.size.Add(-1)
	// Scrub the ring slot so a later re-record of the same id cannot
	// leave two live copies in the ring.
	for i := range d.order {
		if d.order[i] == id {
			d.order[i] = ""
			break
		}
	}
}

func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
