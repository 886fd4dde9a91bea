package service

import "errors"

// Sentinel errors logged by the relay.
var (
	ErrEncodePayload = errors.New("encode relay payload")
	ErrRelayStopped  = errors.New("relay stopped")
)
