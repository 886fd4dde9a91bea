// Package types contains common types used across the application
package types

// Row is a read-only leaderboard display line.
type Row struct {
	Rank  int     `json:"rank"`
	Name  string  `json:"name"`
	Group string  `json:"group"`
	Score float64 `json:"score"`
	Time  string  `json:"time"`
}

// Stats is a point-in-time snapshot of the session.
type Stats struct {
	Started       bool  `json:"started"`
	PendingWrites int   `json:"pending_writes"`
	RelayQueued   int   `json:"relay_queued"`
	RelayCapacity int   `json:"relay_capacity"`
	RelayWorkers  int   `json:"relay_workers"`
	RelaySeen     int64 `json:"relay_seen"`
	RelaySent     int64 `json:"relay_sent"`
	RelayFailed   int64 `json:"relay_failed"`
	Leaderboards  int   `json:"leaderboards"`
	UptimeSeconds int64 `json:"uptime_seconds"`
	RelayEnabled  bool  `json:"relay_enabled"`
}
