package queue

import (
	"context"
	"sync"
	"testing"

	"github.com/okian/detective/internal/domain/model"
)

func envelope(id string) model.Envelope {
	return model.Envelope{ID: id, Kind: "attempt", Body: []byte(`{}`)}
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
	if c := q.Cap(); c != 2 {
		t.Errorf("expected capacity 2, got %d", c)
	}

	if !q.Enqueue(ctx, envelope("env1")) {
		t.Error("expected enqueue to succeed")
	}
	if l := q.Len(); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	e := <-q.Dequeue()
	if e.ID != "env1" {
		t.Errorf("expected env1, got %v", e.ID)
	}
	if l := q.Len(); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if !q.Enqueue(ctx, envelope("env1")) || !q.Enqueue(ctx, envelope("env2")) {
		t.Fatal("expected enqueue to succeed")
	}
	if q.Enqueue(ctx, envelope("env3")) {
		t.Error("expected enqueue to fail when full")
	}
	if l := q.Len(); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_CancelledContext(t *testing.T) {
	q := NewInMemoryQueue()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if q.Enqueue(ctx, envelope("env1")) {
		t.Error("expected enqueue to fail with a cancelled context")
	}
}

func TestInMemoryQueue_Close(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(4))
	ctx := context.Background()

	q.Enqueue(ctx, envelope("env1"))
	q.Enqueue(ctx, envelope("env2"))

	if err := q.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := q.Close(); err != nil {
		t.Errorf("second close should be a no-op, got %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to report closed")
	}
	if q.Enqueue(ctx, envelope("env3")) {
		t.Error("expected enqueue after close to fail")
	}

	var ids []string
	for e := range q.Dequeue() {
		ids = append(ids, e.ID)
	}
	if len(ids) != 2 || ids[0] != "env1" || ids[1] != "env2" {
		t.Errorf("expected queued envelopes to drain in order, got %v", ids)
	}
}

func TestInMemoryQueue_ConcurrentEnqueue(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(1000))
	ctx := context.Background()

	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				q.Enqueue(ctx, envelope("env"))
			}
		}()
	}
	wg.Wait()

	if l := q.Len(); l != 1000 {
		t.Errorf("expected length 1000, got %d", l)
	}
}
