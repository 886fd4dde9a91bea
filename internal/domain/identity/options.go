package identity

import "github.com/okian/detective/pkg/logger"

// Option applies a configuration option to a Resolver.
type Option func(*Resolver)

// WithLogger sets a custom logger for the resolver.
func WithLogger(l logger.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}
