package ranking

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/arena/internal/adapters/mq/queue"
	"github.com/okian/arena/internal/adapters/scorestore"
	"github.com/okian/arena/internal/domain/dedupe"
	"github.com/okian/arena/internal/domain/model"
	"github.com/okian/arena/pkg/logger"
	"github.com/okian/arena/pkg/metrics"
)

// MirrorQueue is the slice of the mirror pipeline the writer needs.
type MirrorQueue interface {
	Enqueue(ctx context.Context, m queue.Mirror) bool
}

// Writer accepts score submissions. The durable insert is the only
// blocking step; the cache mirror is queued and may be abandoned under
// backpressure without affecting the caller.
type Writer struct {
	scores  scorestore.Store
	mirrors MirrorQueue
	deduper dedupe.Deduper

	logger logger.Logger
}

// WriterOption applies a configuration option to the Writer.
type WriterOption func(*Writer)

// WithDeduper enables submission id idempotency.
func WithDeduper(d dedupe.Deduper) WriterOption {
	return func(w *Writer) {
		if d != nil {
			w.deduper = d
		}
	}
}

// WithWriterLogger sets a custom logger for the Writer.
func WithWriterLogger(l logger.Logger) WriterOption {
	return func(w *Writer) {
		if l != nil {
			w.logger = l
		}
	}
}

// NewWriter constructs a Writer over the authoritative store and the
// mirror queue.
func NewWriter(scores scorestore.Store, mirrors MirrorQueue, opts ...WriterOption) *Writer {
	w := &Writer{
		scores:  scores,
		mirrors: mirrors,
		logger:  logger.Get().Named("writer"),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Submit validates and persists one submission, then queues the cache
// mirror. submissionID may be empty; when present, a repeated id is
// answered with ErrDuplicateSubmission and no second row.
func (w *Writer) Submit(ctx context.Context, userID, gameID, value int64, submissionID string) (model.Score, error) {
	start := time.Now()
	defer func() {
		metrics.RecordSubmitLatency(float64(time.Since(start).Milliseconds()))
	}()

	if userID <= 0 {
		return model.Score{}, fmt.Errorf("%w: user id must be positive", model.ErrInvalidInput)
	}
	if gameID <= 0 {
		return model.Score{}, fmt.Errorf("%w: game id must be positive", model.ErrInvalidInput)
	}
	if value < 0 {
		return model.Score{}, fmt.Errorf("%w: score must not be negative", model.ErrInvalidInput)
	}

	if submissionID != "" && w.deduper != nil {
		if w.deduper.SeenAndRecord(ctx, submissionID) {
			metrics.RecordDuplicateSubmission()
			w.logger.Debug(ctx, "duplicate submission",
				logger.String("submission_id", submissionID),
				logger.Int64("user_id", userID),
			)
			return model.Score{}, ErrDuplicateSubmission
		}
	}

	score, err := w.scores.Insert(ctx, userID, gameID, value)
	if err != nil {
		// The id was never accepted; let the client retry it.
		if submissionID != "" && w.deduper != nil {
			w.deduper.Unrecord(ctx, submissionID)
		}
		metrics.RecordSubmissionError()
		w.logger.Error(ctx, "score insert failed",
			logger.Int64("user_id", userID),
			logger.Int64("game_id", gameID),
			logger.Error(err),
		)
		return model.Score{}, err
	}

	metrics.RecordScoreSubmitted()

	// Best effort from here on; the row is durable regardless.
	job := queue.Mirror{Key: model.GameKey(gameID), UserID: userID, Value: value}
	if !w.mirrors.Enqueue(ctx, job) {
		w.logger.Warn(ctx, "mirror abandoned under backpressure",
			logger.Int64("user_id", userID),
			logger.Int64("game_id", gameID),
			logger.Int64("value", value),
		)
	}

	return score, nil
}
