package service

import (
	"time"

	"github.com/okian/detective/internal/adapters/mq/worker"
	"github.com/okian/detective/internal/domain/grader"
	"github.com/okian/detective/internal/domain/identity"
	"github.com/okian/detective/internal/domain/model"
	"github.com/okian/detective/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithFlushDelay sets the quiescence delay of the write batcher.
// Zero writes through.
func WithFlushDelay(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.flushDelay = d
		}
	}
}

// WithRelayURL enables the remote relay to url.
func WithRelayURL(url string) Option {
	return func(s *Service) {
		s.relayURL = url
	}
}

// WithRelayTimeout bounds each relay POST.
func WithRelayTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.relayTimeout = d
		}
	}
}

// WithSender replaces the HTTP sender and enables the relay.
func WithSender(sender worker.Sender) Option {
	return func(s *Service) {
		s.sender = sender
	}
}

// WithQueueSize sets the relay queue capacity.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithWorkerCount sets the number of relay workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithDedupeSize sets how many relay ids are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithRunner replaces the embedded interpreter.
func WithRunner(r grader.Runner) Option {
	return func(s *Service) {
		s.runner = r
	}
}

// WithRunnerTimeout bounds each code run. Zero means no bound.
func WithRunnerTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.runnerTimeout = d
		}
	}
}

// WithLookup sets the caller-supplied identity source.
func WithLookup(fn identity.LookupFunc) Option {
	return func(s *Service) {
		s.lookup = fn
	}
}

// WithDefaultIdentity is used when no other source knows the player.
func WithDefaultIdentity(id model.Identity) Option {
	return func(s *Service) {
		s.defaultIdentity = id
	}
}
