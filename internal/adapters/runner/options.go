package runner

import (
	"time"

	"github.com/okian/detective/pkg/logger"
)

// Option applies a configuration option to the Interpreter.
type Option func(*Interpreter)

// WithTimeout bounds every run. Zero means runs are bounded only by the
// caller's context.
func WithTimeout(d time.Duration) Option {
	return func(i *Interpreter) {
		if d >= 0 {
			i.timeout = d
		}
	}
}

// WithAllowedPackages replaces the set of importable standard packages.
func WithAllowedPackages(pkgs ...string) Option {
	return func(i *Interpreter) {
		i.allowed = make(map[string]bool, len(pkgs))
		for _, p := range pkgs {
			i.allowed[p] = true
		}
	}
}

// WithLogger sets a custom logger for the interpreter.
func WithLogger(l logger.Logger) Option {
	return func(i *Interpreter) {
		if l != nil {
			i.logger = l
		}
	}
}
