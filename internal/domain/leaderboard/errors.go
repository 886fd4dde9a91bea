package leaderboard

import "errors"

// ErrNotFound is returned when a player has no entry on a board.
var ErrNotFound = errors.New("entry not found")
