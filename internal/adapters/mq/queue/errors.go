package queue

import "errors"

// ErrFull is reported when an envelope is dropped because the queue is at capacity.
var ErrFull = errors.New("relay queue full")
