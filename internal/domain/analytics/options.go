package analytics

import (
	"time"

	"github.com/okian/detective/pkg/logger"
)

// Option applies a configuration option to the Sink.
type Option func(*Sink)

// WithRelay sets where attempts and feedback are forwarded.
func WithRelay(r Relayer) Option {
	return func(a *Sink) {
		a.relay = r
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(a *Sink) {
		if now != nil {
			a.now = now
		}
	}
}

// WithLogger sets a custom logger for the sink.
func WithLogger(l logger.Logger) Option {
	return func(a *Sink) {
		if l != nil {
			a.logger = l
		}
	}
}
