// Package queue holds relay envelopes between the callers that publish them
// and the workers that deliver them.
package queue

import (
	"context"
	"sync"

	"github.com/okian/detective/internal/domain/model"
	"github.com/okian/detective/pkg/metrics"
)

const defaultQueueCapacity = 1024

// Envelope is the payload type flowing through the queue.
type Envelope = model.Envelope

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds an envelope. It never blocks; false means the queue is
	// full or closed and the envelope was dropped.
	Enqueue(ctx context.Context, e Envelope) bool

	// Dequeue returns the channel workers read from. It is closed when the
	// queue is closed and drained.
	Dequeue() <-chan Envelope

	// Len returns the current number of queued envelopes.
	Len() int

	// Cap returns the queue capacity.
	Cap() int

	// Close stops accepting envelopes. Already queued ones stay readable.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	envelopes chan Envelope
	capacity  int
	mu        sync.RWMutex
	closed    bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultQueueCapacity,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.envelopes = make(chan Envelope, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0.0)
	return q
}

// Enqueue adds an envelope to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, e Envelope) bool { //nolint:gocritic // hugeParam: Envelope is passed by value for channel semantics
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordRelayDropped("closed")
		metrics.RecordErrorByComponent("queue", "closed")
		return false
	}

	select {
	case <-ctx.Done():
		metrics.RecordRelayDropped("context_cancelled")
		return false
	default:
	}

	select {
	case q.envelopes <- e:
		metrics.RecordRelayEnqueued()
		q.updateMetrics()
		return true
	default:
		metrics.RecordRelayDropped("queue_full")
		metrics.RecordErrorByComponent("queue", "queue_full")
		return false
	}
}

// Dequeue returns the channel envelopes are delivered on.
func (q *InMemoryQueue) Dequeue() <-chan Envelope {
	return q.envelopes
}

// Len returns the current number of queued envelopes.
func (q *InMemoryQueue) Len() int {
	q.updateMetrics()
	return len(q.envelopes)
}

// Cap returns the queue capacity.
func (q *InMemoryQueue) Cap() int {
	return q.capacity
}

func (q *InMemoryQueue) updateMetrics() {
	size := len(q.envelopes)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
}

// Close gracefully shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.envelopes)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
