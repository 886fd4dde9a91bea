// Package dedupe tracks relay envelope ids so each payload leaves at most once.
package dedupe

import (
	"context"
	"sync"
)

const defaultMaxSize = 10000

// Deduper records seen ids.
type Deduper interface {
	// SeenAndRecord reports whether id was already seen and records it if not.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets id. Use it when an id was recorded but its payload
	// never made it onto the queue.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

// inMemoryDeduper keeps up to maxSize ids and evicts the oldest first.
// maxSize <= 0 keeps every id.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]int // id -> slot in ring, -1 when unbounded
	ring    []string       // insertion order for bounded mode; "" marks a free slot
	next    int            // next ring slot to write
	maxSize int
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: defaultMaxSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]int)
	if d.maxSize > 0 {
		d.ring = make([]string, d.maxSize)
	}
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return true
	}
	if d.maxSize <= 0 {
		d.seen[id] = -1
		return false
	}

	if old := d.ring[d.next]; old != "" {
		delete(d.seen, old)
	}
	d.ring[d.next] = id
	d.seen[id] = d.next
	d.next = (d.next + 1) % d.maxSize
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	slot, ok := d.seen[id]
	if !ok {
		return
	}
	delete(d.seen, id)
	if slot >= 0 {
		d.ring[slot] = ""
	}
}

// Size returns the number of remembered ids.
func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.seen))
}
