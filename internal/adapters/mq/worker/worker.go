// Package worker delivers relay envelopes to the remote collector.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/detective/internal/domain/model"
	"github.com/okian/detective/pkg/logger"
	"github.com/okian/detective/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// Envelope abstracts what workers read off the queue.
type Envelope = model.Envelope

// Queue defines how workers receive envelopes.
type Queue interface {
	Dequeue() <-chan Envelope
}

// Worker delivers envelopes until its queue closes or ctx is canceled.
type Worker interface {
	Run(ctx context.Context)
}

// InMemoryWorker sends every envelope it reads exactly once; failures are
// logged and the envelope is dropped.
type InMemoryWorker struct {
	queue  Queue
	sender Sender
	name   string
	done   chan struct{}
	logger logger.Logger

	sent   *atomic.Int64
	failed *atomic.Int64
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, sender Sender, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:  queue,
		sender: sender,
		name:   "worker",
		done:   make(chan struct{}),
		logger: logger.Get().Named("worker"),
		sent:   &atomic.Int64{},
		failed: &atomic.Int64{},
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run drains the queue until it is closed and empty, or ctx is canceled.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	envelopes := w.queue.Dequeue()
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-envelopes:
			if !ok {
				return
			}
			w.deliver(ctx, e)
		}
	}
}

// Done is closed once Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} {
	return w.done
}

func (w *InMemoryWorker) deliver(ctx context.Context, e Envelope) { //nolint:gocritic // hugeParam: Envelope is passed by value for channel semantics
	start := time.Now()
	err := w.sender.Send(ctx, e)
	latency := float64(time.Since(start).Milliseconds())

	if err != nil {
		w.failed.Add(1)
		metrics.RecordRelaySent("error", latency)
		metrics.RecordErrorByComponent("worker", "relay_failed")
		w.logger.Warn(ctx, "relay failed, dropping envelope",
			logger.String("id", e.ID),
			logger.String("kind", e.Kind),
			logger.Error(err),
		)
		return
	}
	w.sent.Add(1)
	metrics.RecordRelaySent("ok", latency)
	w.logger.Debug(ctx, "relayed", logger.String("id", e.ID), logger.String("kind", e.Kind))
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	cancel  context.CancelFunc
	once    sync.Once
	logger  logger.Logger

	sent   atomic.Int64
	failed atomic.Int64
}

// NewPool creates a new worker pool. workerCount < 1 means one per CPU.
func NewPool(workerCount int, queue Queue, sender Sender, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   queue,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		w := NewInMemoryWorker(queue, sender, append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)...)
		w.sent = &p.sent
		w.failed = &p.failed
		p.workers[i] = w
	}
	return p
}

// Start starts all workers in the pool. Workers outlive ctx only until
// Shutdown or ctx cancellation, whichever comes first.
func (p *Pool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(context.WithoutCancel(ctx))
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	metrics.UpdateWorkerActiveCount(len(p.workers))
	p.logger.Info(ctx, "relay workers started", logger.Int("workers", len(p.workers)))
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Sent returns how many envelopes were delivered.
func (p *Pool) Sent() int64 { return p.sent.Load() }

// Failed returns how many envelopes were dropped after a failed send.
func (p *Pool) Failed() int64 { return p.failed.Load() }

// Shutdown closes the queue and waits for workers to drain it. When ctx
// expires first, in-flight sends are canceled and the rest are dropped.
func (p *Pool) Shutdown(ctx context.Context) error {
	var err error
	p.once.Do(func() {
		if closer, ok := p.queue.(interface{ Close() error }); ok {
			if cerr := closer.Close(); cerr != nil {
				p.logger.Error(ctx, "error closing queue", logger.Error(cerr))
			}
		}
		if p.cancel == nil {
			return
		}

		shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
		defer cancel()

	wait:
		for i, w := range p.workers {
			select {
			case <-w.done:
			case <-shutdownCtx.Done():
				p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
				err = fmt.Errorf("shutdown timed out: %w", shutdownCtx.Err())
				break wait
			}
		}

		p.cancel()
		for _, w := range p.workers {
			<-w.done
		}
		metrics.UpdateWorkerActiveCount(0)
		p.logger.Info(ctx, "relay workers stopped", logger.Int64("sent", p.sent.Load()), logger.Int64("failed", p.failed.Load()))
	})
	return err
}
