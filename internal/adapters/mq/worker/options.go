package worker

import (
	"time"

	"github.com/okian/arena/pkg/logger"
)

// Option applies a configuration option to the MirrorWorker.
type Option func(*MirrorWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *MirrorWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithJobTimeout bounds how long one mirror job may take.
func WithJobTimeout(d time.Duration) Option {
	return func(w *MirrorWorker) {
		if d > 0 {
			w.jobTimeout = d
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *MirrorWorker) {
		if l != nil {
			w.logger = l
		}
	}
}
