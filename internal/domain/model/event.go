package model

import (
	"encoding/json"
	"time"
)

// Attempt is one finished game run as written to the analytics log.
// Records are append-only.
type Attempt struct {
	ID              string        `json:"id"`
	StudentName     string        `json:"studentName"`
	StudentGroup    string        `json:"studentGroup"`
	GameID          string        `json:"gameId"`
	GameTitle       string        `json:"gameTitle"`
	Score           float64       `json:"score"`
	MaxScore        float64       `json:"maxScore"`
	TimeSpent       int64         `json:"timeSpent"` // whole seconds
	ScenesCompleted int           `json:"scenesCompleted"`
	TotalScenes     int           `json:"totalScenes"`
	DateCompleted   time.Time     `json:"dateCompleted"`
	Details         AttemptDetail `json:"details"`
}

// AttemptDetail is the free-form part of an attempt.
type AttemptDetail struct {
	Awarded  IDSet `json:"awarded"`
	Attempts int   `json:"attempts"`
}

// BestResult is the cached best run for a (player, game) pair.
type BestResult struct {
	Name            string    `json:"name"`
	Group           string    `json:"group"`
	Score           float64   `json:"score"`
	Awarded         IDSet     `json:"awarded"`
	ScenesCompleted int       `json:"scenesCompleted"`
	TotalTimeMs     int64     `json:"totalTime"`
	TimeFormatted   string    `json:"timeFormatted"`
	Date            time.Time `json:"date"`
	GameID          string    `json:"gameId"`
	GameName        string    `json:"gameName"`
}

// Feedback is a free-text rating left by a player.
type Feedback struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Group     string    `json:"group"`
	GameID    string    `json:"gameId"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	Timestamp time.Time `json:"timestamp"`

	// Extra carries any additional form fields verbatim.
	Extra map[string]any `json:"extra,omitempty"`
}

// RunResult is the outcome of executing submitted code. A failed run
// carries the interpreter's message in Err and never an OK output.
type RunResult struct {
	OK     bool   `json:"ok"`
	Output string `json:"out,omitempty"`
	Err    string `json:"err,omitempty"`
}

// Envelope wraps a payload handed to the remote relay. ID makes delivery
// at-most-once.
type Envelope struct {
	ID        string          `json:"id"`
	Kind      string          `json:"kind"`
	Body      json.RawMessage `json:"body"`
	CreatedAt time.Time       `json:"createdAt"`
}
