package identity

import "errors"

// ErrEmptyName is returned when remembering an identity without a name.
var ErrEmptyName = errors.New("identity name is empty")
