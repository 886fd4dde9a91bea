package runner

import "errors"

var (
	// ErrTimeout is reported when a run exceeds its deadline.
	ErrTimeout = errors.New("execution timed out")
	// ErrPanic is reported when interpreted code panics.
	ErrPanic = errors.New("execution panicked")
	// ErrGoroutine is reported for code that starts goroutines.
	ErrGoroutine = errors.New("go statements are not allowed")
)
