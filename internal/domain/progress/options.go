package progress

import "github.com/okian/detective/pkg/logger"

// Option applies a configuration option to a Store.
type Option func(*Store)

// WithLogger sets a custom logger for the store.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}
