// Package analytics records finished games and feedback locally and hands
// them to a best-effort remote relay.
package analytics

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/detective/internal/adapters/kv"
	"github.com/okian/detective/internal/domain/model"
	"github.com/okian/detective/pkg/logger"
	"github.com/okian/detective/pkg/metrics"
)

// Store keys.
const (
	LogKey        = "teacher_analytics_backup"
	FeedbackKey   = "python_detective_feedbacks"
	bestKeyPrefix = "python_detective_"
)

// Relay kinds.
const (
	KindAttempt  = "attempt"
	KindFeedback = "feedback"
)

const defaultMaxScore = 100

// Relayer forwards payloads to the remote collector without waiting for
// delivery. It reports whether the payload was accepted for sending.
type Relayer interface {
	Publish(ctx context.Context, kind string, payload any) bool
}

// GameResult is what a game reports when it ends.
type GameResult struct {
	Name            string        `json:"name"`
	Group           string        `json:"group"`
	GameID          string        `json:"gameId"`
	GameTitle       string        `json:"gameTitle"`
	Score           float64       `json:"score"`
	MaxScore        float64       `json:"maxScore"`
	TotalTime       time.Duration `json:"-"`
	TotalTimeMs     int64         `json:"totalTimeMs"`
	TimeFormatted   string        `json:"timeFormatted"`
	ScenesCompleted int           `json:"scenesCompleted"`
	TotalScenes     int           `json:"totalScenes"`
	Awarded         model.IDSet   `json:"awarded"`
	Attempts        int           `json:"attempts"`
}

// elapsed prefers TotalTime and falls back to TotalTimeMs.
func (r GameResult) elapsed() time.Duration {
	if r.TotalTime > 0 {
		return r.TotalTime
	}
	return time.Duration(r.TotalTimeMs) * time.Millisecond
}

// Sink writes the attempt log, the best-score cache and the feedback log.
type Sink struct {
	kv     *kv.Adapter
	relay  Relayer
	now    func() time.Time
	logger logger.Logger

	// mu serializes appends to the shared logs.
	mu sync.Mutex
}

// New returns a sink over s.
func New(s kv.Store, opts ...Option) *Sink {
	a := &Sink{
		now:    time.Now,
		logger: logger.Get().Named("analytics"),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.kv = kv.NewAdapter(s, kv.WithKind("analytics"), kv.WithLogger(a.logger))
	return a
}

// BestKey returns the best-score cache key. Name and group are used as given.
func BestKey(name, group, gameID string) string {
	return bestKeyPrefix + name + "_" + group + "_" + gameID
}

// Record appends an attempt for res, refreshes the best-score cache when
// res beats it, and relays the attempt. The bool reports whether the
// attempt reached the local log.
func (a *Sink) Record(ctx context.Context, res GameResult) (model.Attempt, bool) {
	now := a.now().UTC()
	elapsed := res.elapsed()
	maxScore := res.MaxScore
	if maxScore == 0 {
		maxScore = defaultMaxScore
	}

	attempt := model.Attempt{
		ID:              uuid.NewString(),
		StudentName:     res.Name,
		StudentGroup:    res.Group,
		GameID:          res.GameID,
		GameTitle:       res.GameTitle,
		Score:           res.Score,
		MaxScore:        maxScore,
		TimeSpent:       int64(elapsed / time.Second),
		ScenesCompleted: res.ScenesCompleted,
		TotalScenes:     res.TotalScenes,
		DateCompleted:   now,
		Details: model.AttemptDetail{
			Awarded:  res.Awarded,
			Attempts: res.Attempts,
		},
	}

	a.mu.Lock()
	var log []model.Attempt
	if !a.kv.Load(ctx, LogKey, &log) {
		log = nil
	}
	log = append(log, attempt)
	saved := a.kv.Save(ctx, LogKey, log)

	bestKey := BestKey(res.Name, res.Group, res.GameID)
	var best model.BestResult
	if !a.kv.Load(ctx, bestKey, &best) || best.Score < res.Score {
		a.kv.Save(ctx, bestKey, model.BestResult{
			Name:            res.Name,
			Group:           res.Group,
			Score:           res.Score,
			Awarded:         res.Awarded,
			ScenesCompleted: res.ScenesCompleted,
			TotalTimeMs:     elapsed.Milliseconds(),
			TimeFormatted:   res.TimeFormatted,
			Date:            now,
			GameID:          res.GameID,
			GameName:        res.GameTitle,
		})
		metrics.RecordBestScoreUpdate()
	}
	a.mu.Unlock()

	metrics.RecordAttempt()
	a.logger.Info(ctx, "attempt recorded",
		logger.String("id", attempt.ID),
		logger.String("game", res.GameID),
		logger.String("name", res.Name),
		logger.Float64("score", res.Score),
		logger.Bool("saved", saved),
	)
	a.publish(ctx, KindAttempt, attempt)
	return attempt, saved
}

// Best returns the cached best result for a player in gameID.
func (a *Sink) Best(ctx context.Context, name, group, gameID string) (model.BestResult, bool) {
	var best model.BestResult
	if !a.kv.Load(ctx, BestKey(name, group, gameID), &best) {
		return model.BestResult{}, false
	}
	return best, true
}

// Attempts returns the whole attempt log, oldest first.
func (a *Sink) Attempts(ctx context.Context) []model.Attempt {
	var log []model.Attempt
	if !a.kv.Load(ctx, LogKey, &log) {
		return []model.Attempt{}
	}
	return log
}

// Feedback appends fb to the feedback log and relays it. Missing id and
// timestamp are filled in.
func (a *Sink) Feedback(ctx context.Context, fb model.Feedback) (model.Feedback, bool) {
	if fb.ID == "" {
		fb.ID = uuid.NewString()
	}
	if fb.Timestamp.IsZero() {
		fb.Timestamp = a.now().UTC()
	}

	a.mu.Lock()
	var log []model.Feedback
	if !a.kv.Load(ctx, FeedbackKey, &log) {
		log = nil
	}
	log = append(log, fb)
	saved := a.kv.Save(ctx, FeedbackKey, log)
	a.mu.Unlock()

	metrics.RecordFeedback()
	a.logger.Info(ctx, "feedback recorded", logger.String("id", fb.ID), logger.String("game", fb.GameID), logger.Bool("saved", saved))
	a.publish(ctx, KindFeedback, fb)
	return fb, saved
}

// Feedbacks returns the feedback log, oldest first.
func (a *Sink) Feedbacks(ctx context.Context) []model.Feedback {
	var log []model.Feedback
	if !a.kv.Load(ctx, FeedbackKey, &log) {
		return []model.Feedback{}
	}
	return log
}

func (a *Sink) publish(ctx context.Context, kind string, payload any) {
	if a.relay == nil {
		return
	}
	if !a.relay.Publish(ctx, kind, payload) {
		a.logger.Debug(ctx, "relay did not accept payload", logger.String("kind", kind))
	}
}
