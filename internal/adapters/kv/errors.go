package kv

import "errors"

// Sentinel kinds for store errors.
var (
	ErrClosed      = errors.New("store closed")
	ErrEmptyKey    = errors.New("empty key")
	ErrDecodeValue = errors.New("decode stored value")
)
