package kv

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/okian/detective/pkg/logger"
	"github.com/okian/detective/pkg/metrics"
)

const defaultFlushDelay = 250 * time.Millisecond

// staged is a pending write; removed marks a pending delete.
type staged struct {
	value   string
	removed bool
}

// Batcher coalesces writes to an underlying Store. Every Set or Remove
// cancels the scheduled flush and schedules a new one delay from now; the
// flush writes the last staged value per key. Reads observe staged values.
type Batcher struct {
	store  Store
	delay  time.Duration
	logger logger.Logger

	mu       sync.Mutex
	pending  map[string]staged
	inflight map[string]staged
	timer    *time.Timer
	closed   bool

	// flushMu serializes flushes so an older batch never lands after a newer one.
	flushMu sync.Mutex
}

var _ Store = (*Batcher)(nil)

// NewBatcher wraps store with write coalescing.
func NewBatcher(store Store, opts ...BatcherOption) *Batcher {
	b := &Batcher{
		store:   store,
		delay:   defaultFlushDelay,
		logger:  logger.Get().Named("kv-batcher"),
		pending: make(map[string]staged),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Batcher) Get(ctx context.Context, key string) (string, bool, error) {
	b.mu.Lock()
	w, ok := b.pending[key]
	if !ok {
		w, ok = b.inflight[key]
	}
	b.mu.Unlock()
	if ok {
		if w.removed {
			return "", false, nil
		}
		return w.value, true, nil
	}
	return b.store.Get(ctx, key)
}

func (b *Batcher) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return ErrEmptyKey
	}
	return b.stage(ctx, key, staged{value: value})
}

func (b *Batcher) Remove(ctx context.Context, key string) error {
	return b.stage(ctx, key, staged{removed: true})
}

// Keys merges staged writes over the underlying store's listing.
func (b *Batcher) Keys(ctx context.Context, prefix string) ([]string, error) {
	keys, err := b.store.Keys(ctx, prefix)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}

	b.mu.Lock()
	for _, layer := range []map[string]staged{b.inflight, b.pending} {
		for k, w := range layer {
			if strings.HasPrefix(k, prefix) {
				set[k] = !w.removed
			}
		}
	}
	b.mu.Unlock()

	out := make([]string, 0, len(set))
	for k, present := range set {
		if present {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (b *Batcher) stage(ctx context.Context, key string, w staged) error {
	b.mu.Lock()
	if b.closed || b.delay == 0 {
		b.mu.Unlock()
		return b.apply(ctx, key, w)
	}
	b.pending[key] = w
	n := len(b.pending)
	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(b.delay, func() {
		_ = b.Flush(context.Background())
	})
	b.mu.Unlock()

	metrics.UpdateBatchPending(n)
	return nil
}

// Flush writes every staged value now. Failures are logged and returned
// joined; the remaining keys are still written.
func (b *Batcher) Flush(ctx context.Context) error {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	b.mu.Lock()
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	batch := b.pending
	b.pending = make(map[string]staged)
	b.inflight = batch
	b.mu.Unlock()

	metrics.UpdateBatchPending(0)
	if len(batch) == 0 {
		b.mu.Lock()
		b.inflight = nil
		b.mu.Unlock()
		return nil
	}

	var errs []error
	for key, w := range batch {
		if err := b.apply(ctx, key, w); err != nil {
			b.logger.Warn(ctx, "staged write failed", logger.String("key", key), logger.Error(err))
			metrics.RecordStoreWriteFailure("batch")
			errs = append(errs, err)
		}
	}

	b.mu.Lock()
	b.inflight = nil
	b.mu.Unlock()

	metrics.RecordBatchFlush(len(batch))
	b.logger.Debug(ctx, "flushed staged writes", logger.Int("keys", len(batch)), logger.Int("failed", len(errs)))
	return errors.Join(errs...)
}

// Pending returns the number of staged writes.
func (b *Batcher) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Close flushes staged writes; later writes go straight to the store.
func (b *Batcher) Close(ctx context.Context) error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	return b.Flush(ctx)
}

func (b *Batcher) apply(ctx context.Context, key string, w staged) error {
	if w.removed {
		return b.store.Remove(ctx, key)
	}
	return b.store.Set(ctx, key, w.value)
}
