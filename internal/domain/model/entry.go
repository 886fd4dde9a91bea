package model

// Entry is one leaderboard line. A game's list holds at most one entry per
// (Name, Group) pair.
type Entry struct {
	Name  string  `json:"name"`
	Group string  `json:"group"`
	Score float64 `json:"score"`
	Time  string  `json:"time"`
}
