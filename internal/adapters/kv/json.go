package kv

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/okian/detective/pkg/logger"
	"github.com/okian/detective/pkg/metrics"
)

// Adapter layers JSON encoding over a Store. It never surfaces store or
// decode failures: reads fall back to the caller's default, writes report
// success as a bool after logging.
type Adapter struct {
	store  Store
	kind   string
	logger logger.Logger
}

// NewAdapter wraps store.
func NewAdapter(store Store, opts ...Option) *Adapter {
	a := &Adapter{
		store:  store,
		kind:   "value",
		logger: logger.Get().Named("kv"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// With returns a copy of the adapter labelled with kind.
func (a *Adapter) With(kind string) *Adapter {
	cp := *a
	cp.kind = kind
	return &cp
}

// Store returns the wrapped store.
func (a *Adapter) Store() Store {
	return a.store
}

// Load decodes the value under key into dst and reports whether it did.
// A missing key, a store error or a corrupt value all return false; dst must
// then be treated as unset.
func (a *Adapter) Load(ctx context.Context, key string, dst any) bool {
	raw, ok, err := a.store.Get(ctx, key)
	if err != nil {
		a.logger.Warn(ctx, "store read failed", logger.String("kind", a.kind), logger.String("key", key), logger.Error(err))
		metrics.RecordStoreReadFailure(a.kind)
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		a.logger.Warn(ctx, "corrupt stored value replaced by default",
			logger.String("kind", a.kind), logger.String("key", key),
			logger.Error(fmt.Errorf("%w: %w", ErrDecodeValue, err)))
		metrics.RecordStoreReadFailure(a.kind)
		metrics.RecordErrorByComponent("kv", "decode")
		return false
	}
	return true
}

// Save encodes v and stores it under key.
func (a *Adapter) Save(ctx context.Context, key string, v any) bool {
	raw, err := json.Marshal(v)
	if err != nil {
		a.writeFailed(ctx, key, fmt.Errorf("encode: %w", err))
		return false
	}
	if err := a.store.Set(ctx, key, string(raw)); err != nil {
		a.writeFailed(ctx, key, err)
		return false
	}
	a.logger.Debug(ctx, "saved", logger.String("kind", a.kind), logger.String("key", key))
	return true
}

// Remove deletes key.
func (a *Adapter) Remove(ctx context.Context, key string) bool {
	if err := a.store.Remove(ctx, key); err != nil {
		a.writeFailed(ctx, key, err)
		return false
	}
	a.logger.Debug(ctx, "removed", logger.String("kind", a.kind), logger.String("key", key))
	return true
}

// Keys lists keys under prefix; failures yield an empty list.
func (a *Adapter) Keys(ctx context.Context, prefix string) []string {
	keys, err := a.store.Keys(ctx, prefix)
	if err != nil {
		a.logger.Warn(ctx, "store list failed", logger.String("kind", a.kind), logger.String("prefix", prefix), logger.Error(err))
		metrics.RecordStoreReadFailure(a.kind)
		return nil
	}
	return keys
}

func (a *Adapter) writeFailed(ctx context.Context, key string, err error) {
	a.logger.Warn(ctx, "store write failed", logger.String("kind", a.kind), logger.String("key", key), logger.Error(err))
	metrics.RecordStoreWriteFailure(a.kind)
	metrics.RecordErrorByComponent("kv", "write")
}
