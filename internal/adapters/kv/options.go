package kv

import (
	"time"

	"github.com/okian/detective/pkg/logger"
)

// Option applies a configuration option to an Adapter.
type Option func(*Adapter)

// WithLogger sets a custom logger for the adapter.
func WithLogger(l logger.Logger) Option {
	return func(a *Adapter) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithKind labels the adapter's logs and metrics, e.g. "progress".
func WithKind(kind string) Option {
	return func(a *Adapter) {
		if kind != "" {
			a.kind = kind
		}
	}
}

// BatcherOption applies a configuration option to a Batcher.
type BatcherOption func(*Batcher)

// WithFlushDelay sets the quiescence delay before staged writes flush.
// Zero disables staging and writes through.
func WithFlushDelay(d time.Duration) BatcherOption {
	return func(b *Batcher) {
		if d >= 0 {
			b.delay = d
		}
	}
}

// WithBatcherLogger sets a custom logger for the batcher.
func WithBatcherLogger(l logger.Logger) BatcherOption {
	return func(b *Batcher) {
		if l != nil {
			b.logger = l
		}
	}
}
