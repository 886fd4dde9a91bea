// Package service owns every game-suite component for one session and
// wires them onto a single key-value store.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/detective/internal/adapters/kv"
	"github.com/okian/detective/internal/adapters/mq/queue"
	"github.com/okian/detective/internal/adapters/mq/worker"
	"github.com/okian/detective/internal/adapters/runner"
	"github.com/okian/detective/internal/domain/analytics"
	"github.com/okian/detective/internal/domain/dedupe"
	"github.com/okian/detective/internal/domain/grader"
	"github.com/okian/detective/internal/domain/identity"
	"github.com/okian/detective/internal/domain/leaderboard"
	"github.com/okian/detective/internal/domain/model"
	"github.com/okian/detective/internal/domain/progress"
	"github.com/okian/detective/internal/domain/theme"
	"github.com/okian/detective/internal/domain/types"
	"github.com/okian/detective/pkg/logger"
	"github.com/okian/detective/pkg/metrics"
)

// Default session configuration constants.
const (
	defaultFlushDelay   = 250 * time.Millisecond
	defaultRelayTimeout = 5 * time.Second
	defaultQueueSize    = 1024
	defaultDedupeSize   = 10000
)

// Service is one session: the write batcher, every domain component and
// the relay pipeline. Components are built by New; Start launches the relay
// workers and restores the theme.
type Service struct {
	mu sync.RWMutex

	// Configuration
	flushDelay      time.Duration
	relayURL        string
	relayTimeout    time.Duration
	sender          worker.Sender
	queueSize       int
	workerCount     int
	dedupeSize      int
	runner          grader.Runner
	runnerTimeout   time.Duration
	lookup          identity.LookupFunc
	defaultIdentity model.Identity

	// Core components
	batcher   *kv.Batcher
	stored    *identity.StoredStrategy
	progress  *progress.Store
	board     *leaderboard.Board
	grader    *grader.Grader
	analytics *analytics.Sink
	theme     *theme.Controller

	// Relay pipeline; nil when the relay is disabled.
	deduper dedupe.Deduper
	queue   *queue.InMemoryQueue
	pool    *worker.Pool

	// State
	started   bool
	startedAt time.Time

	logger logger.Logger
}

// New builds a session over store. Every write goes through a batcher owned
// by the session.
func New(store kv.Store, opts ...Option) *Service {
	s := &Service{
		flushDelay:   defaultFlushDelay,
		relayTimeout: defaultRelayTimeout,
		queueSize:    defaultQueueSize,
		workerCount:  runtime.NumCPU(),
		dedupeSize:   defaultDedupeSize,
		logger:       logger.Get().Named("session"),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.batcher = kv.NewBatcher(store, kv.WithFlushDelay(s.flushDelay))
	s.stored = identity.NewStoredStrategy(s.batcher)
	s.progress = progress.NewStore(s.batcher)
	s.board = leaderboard.New(s.batcher)
	if s.runner == nil {
		s.runner = runner.New(runner.WithTimeout(s.runnerTimeout))
	}
	s.grader = grader.New(s.runner)
	s.theme = theme.New(s.batcher)

	if s.sender == nil && s.relayURL != "" {
		s.sender = worker.NewHTTPSender(s.relayURL, s.relayTimeout)
	}
	if s.sender != nil {
		s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
		s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
		s.pool = worker.NewPool(s.workerCount, s.queue, s.sender)
	}
	s.analytics = analytics.New(s.batcher, analytics.WithRelay(s))
	return s
}

// Start launches the relay workers and restores the persisted theme.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.pool != nil {
		s.pool.Start(ctx)
	}
	s.theme.Init(ctx)

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "session started",
		logger.Bool("relay", s.pool != nil),
		logger.Int("queueSize", s.queueSize),
		logger.Int("workers", s.workerCount),
		logger.Duration("flushDelay", s.flushDelay),
	)
	return nil
}

// Stop drains the relay queue and flushes staged writes.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping session...")

	var errs []error
	if s.pool != nil {
		if err := s.pool.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("relay shutdown: %w", err))
		}
		if c, ok := s.sender.(interface{ CloseIdleConnections() }); ok {
			c.CloseIdleConnections()
		}
	}
	if err := s.batcher.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("flush: %w", err))
	}

	s.started = false
	s.logger.Info(ctx, "session stopped")
	return errors.Join(errs...)
}

// Identity resolves the player from the stored identity, the lookup
// callback, the query parameters and finally the configured default.
func (s *Service) Identity(ctx context.Context, query url.Values) (model.Identity, bool) {
	return s.resolver(query).Resolve(ctx)
}

// Prefill returns the entry form state for the player.
func (s *Service) Prefill(ctx context.Context, query url.Values) identity.Fields {
	return s.resolver(query).Prefill(ctx)
}

func (s *Service) resolver(query url.Values) *identity.Resolver {
	strategies := []identity.Strategy{s.stored}
	if s.lookup != nil {
		strategies = append(strategies, identity.NewLookupStrategy(s.lookup))
	}
	strategies = append(strategies, identity.NewQueryStrategy(query))
	if s.defaultIdentity.Known() {
		def := s.defaultIdentity
		strategies = append(strategies, identity.NewLookupStrategy(func(context.Context) (model.Identity, bool) {
			return def, true
		}))
	}
	return identity.NewResolver(strategies)
}

// Remember stores id as the current player.
func (s *Service) Remember(ctx context.Context, id model.Identity) error {
	return s.stored.Remember(ctx, id)
}

// Forget removes the stored player.
func (s *Service) Forget(ctx context.Context) {
	s.stored.Forget(ctx)
}

func (s *Service) LoadProgress(ctx context.Context, name, group, gameID string) model.Progress {
	return s.progress.Load(ctx, name, group, gameID)
}

func (s *Service) SaveProgress(ctx context.Context, rec model.Progress, gameID string) {
	s.progress.Save(ctx, rec, gameID)
}

func (s *Service) ResetProgress(ctx context.Context, name, group, gameID string) {
	s.progress.Reset(ctx, name, group, gameID)
}

// Leaderboard returns gameID's display rows.
func (s *Service) Leaderboard(ctx context.Context, gameID string) []types.Row {
	return s.board.Render(ctx, gameID)
}

// TopN returns at most n display rows; n <= 0 means all.
func (s *Service) TopN(ctx context.Context, gameID string, n int) []types.Row {
	return s.board.Top(ctx, gameID, n)
}

// Rank returns one player's display row.
func (s *Service) Rank(ctx context.Context, gameID, name, group string) (types.Row, error) {
	return s.board.Rank(ctx, gameID, name, group)
}

// AddScore records a leaderboard result.
func (s *Service) AddScore(ctx context.Context, gameID, name, group string, score float64, elapsed string) leaderboard.Outcome {
	return s.board.Add(ctx, gameID, name, group, score, elapsed)
}

func (s *Service) ClearLeaderboard(ctx context.Context, gameID string) {
	s.board.Clear(ctx, gameID)
}

// Games lists games with a stored leaderboard.
func (s *Service) Games(ctx context.Context) []string {
	return s.board.Games(ctx)
}

// Run executes code without grading it.
func (s *Service) Run(ctx context.Context, code string) model.RunResult {
	return s.runner.Run(ctx, code)
}

// Grade runs code and compares its output with expected.
func (s *Service) Grade(ctx context.Context, code string, expected []string) grader.Verdict {
	return s.grader.Grade(ctx, code, expected)
}

// RecordResult logs a finished game and relays it.
func (s *Service) RecordResult(ctx context.Context, res analytics.GameResult) (model.Attempt, bool) {
	return s.analytics.Record(ctx, res)
}

// Best returns the cached best result of a player.
func (s *Service) Best(ctx context.Context, name, group, gameID string) (model.BestResult, bool) {
	return s.analytics.Best(ctx, name, group, gameID)
}

// Attempts returns the attempt log.
func (s *Service) Attempts(ctx context.Context) []model.Attempt {
	return s.analytics.Attempts(ctx)
}

// Feedback logs player feedback and relays it.
func (s *Service) Feedback(ctx context.Context, fb model.Feedback) (model.Feedback, bool) {
	return s.analytics.Feedback(ctx, fb)
}

// Feedbacks returns the feedback log.
func (s *Service) Feedbacks(ctx context.Context) []model.Feedback {
	return s.analytics.Feedbacks(ctx)
}

func (s *Service) Theme() theme.Presentation {
	return s.theme.Current()
}

func (s *Service) ApplyTheme(ctx context.Context, mode string) theme.Presentation {
	return s.theme.Apply(ctx, mode)
}

func (s *Service) ToggleTheme(ctx context.Context) theme.Presentation {
	return s.theme.Toggle(ctx)
}

func (s *Service) ToggleContrast(ctx context.Context) theme.Presentation {
	return s.theme.ToggleContrast(ctx)
}

// Flush writes staged values now.
func (s *Service) Flush(ctx context.Context) error {
	return s.batcher.Flush(ctx)
}

// Publish hands payload to the relay without waiting for delivery. Each
// attempt or feedback id is relayed at most once; a full queue drops the
// payload. It reports whether the payload was queued or already relayed.
func (s *Service) Publish(ctx context.Context, kind string, payload any) bool {
	if s.queue == nil {
		return false
	}

	id := relayID(payload)
	if s.deduper.SeenAndRecord(ctx, id) {
		metrics.RecordRelayDuplicate()
		s.logger.Debug(ctx, "duplicate relay payload skipped", logger.String("id", id), logger.String("kind", kind))
		return true
	}

	body, err := json.Marshal(payload)
	if err != nil {
		s.deduper.Unrecord(ctx, id)
		metrics.RecordRelayDropped("encode")
		s.logger.Warn(ctx, "relay payload dropped", logger.String("kind", kind), logger.Error(fmt.Errorf("%w: %w", ErrEncodePayload, err)))
		return false
	}

	env := model.Envelope{ID: id, Kind: kind, Body: body, CreatedAt: time.Now().UTC()}
	if !s.queue.Enqueue(ctx, env) {
		s.deduper.Unrecord(ctx, id)
		reason := queue.ErrFull
		if s.queue.IsClosed() {
			reason = ErrRelayStopped
		}
		s.logger.Warn(ctx, "relay payload dropped", logger.String("id", id), logger.String("kind", kind), logger.Error(reason))
		return false
	}
	return true
}

// relayID reuses the payload's own id so the same record is never sent twice.
func relayID(payload any) string {
	switch p := payload.(type) {
	case model.Attempt:
		if p.ID != "" {
			return p.ID
		}
	case model.Feedback:
		if p.ID != "" {
			return p.ID
		}
	}
	return uuid.NewString()
}

// GetStats returns session statistics for monitoring.
func (s *Service) GetStats() types.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := types.Stats{
		Started:       s.started,
		PendingWrites: s.batcher.Pending(),
		Leaderboards:  len(s.board.Games(ctx)),
		RelayEnabled:  s.queue != nil,
	}
	if s.started {
		stats.UptimeSeconds = int64(time.Since(s.startedAt) / time.Second)
	}
	if s.queue != nil {
		stats.RelayQueued = s.queue.Len()
		stats.RelayCapacity = s.queue.Cap()
		stats.RelayWorkers = s.pool.Size()
		stats.RelaySeen = s.deduper.Size()
		stats.RelaySent = s.pool.Sent()
		stats.RelayFailed = s.pool.Failed()
	}
	return stats
}
