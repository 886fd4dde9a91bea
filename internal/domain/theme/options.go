package theme

import "github.com/okian/detective/pkg/logger"

// Option applies a configuration option to the Controller.
type Option func(*Controller)

// WithLogger sets a custom logger for the controller.
func WithLogger(l logger.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}
