package grader

import "github.com/okian/detective/pkg/logger"

// Option applies a configuration option to the Grader.
type Option func(*Grader)

// WithLogger sets a custom logger for the grader.
func WithLogger(l logger.Logger) Option {
	return func(g *Grader) {
		if l != nil {
			g.logger = l
		}
	}
}
