package leaderboard

import "github.com/okian/detective/pkg/logger"

// Option applies a configuration option to a Board.
type Option func(*Board)

// WithLogger sets a custom logger for the board.
func WithLogger(l logger.Logger) Option {
	return func(b *Board) {
		if l != nil {
			b.logger = l
		}
	}
}
