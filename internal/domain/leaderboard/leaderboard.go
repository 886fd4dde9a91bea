// Package leaderboard keeps a ranked list of best scores per game.
package leaderboard

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/okian/detective/internal/adapters/kv"
	"github.com/okian/detective/internal/domain/model"
	"github.com/okian/detective/internal/domain/types"
	"github.com/okian/detective/pkg/logger"
	"github.com/okian/detective/pkg/metrics"
)

const (
	// KeyPrefix is followed directly by the game id.
	KeyPrefix = "python_detective_leaderboard_"

	UnknownName = "Unknown"
	NoGroup     = "No group"

	// blank is shown for empty names and groups in rendered rows.
	blank = "—"
)

// Outcome reports what Add did.
type Outcome string

const (
	Inserted  Outcome = "inserted"
	Improved  Outcome = "improved"
	Unchanged Outcome = "unchanged"
)

// Board reads and updates leaderboards. Read-modify-write cycles are
// serialized so concurrent Adds never lose an entry.
type Board struct {
	kv     *kv.Adapter
	logger logger.Logger
	mu     sync.Mutex
}

// New returns a board over s.
func New(s kv.Store, opts ...Option) *Board {
	b := &Board{
		logger: logger.Get().Named("leaderboard"),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.kv = kv.NewAdapter(s, kv.WithKind("leaderboard"), kv.WithLogger(b.logger))
	return b
}

// Key returns the store key of gameID's board.
func Key(gameID string) string {
	return KeyPrefix + gameID
}

// Get returns the ordered entries of gameID, empty on a miss or a corrupt list.
func (b *Board) Get(ctx context.Context, gameID string) []model.Entry {
	var entries []model.Entry
	if !b.kv.Load(ctx, Key(gameID), &entries) {
		return []model.Entry{}
	}
	if entries == nil {
		return []model.Entry{}
	}
	return entries
}

// Add records a result. An existing (name, group) entry only changes when
// score is strictly greater; otherwise a new entry is appended. Empty name and
// group become placeholders before matching.
func (b *Board) Add(ctx context.Context, gameID, name, group string, score float64, elapsed string) Outcome {
	if name == "" {
		name = UnknownName
	}
	if group == "" {
		group = NoGroup
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	entries := b.Get(ctx, gameID)
	outcome := Inserted
	found := false
	for i := range entries {
		if entries[i].Name != name || entries[i].Group != group {
			continue
		}
		found = true
		outcome = Unchanged
		if score > entries[i].Score {
			entries[i].Score = score
			entries[i].Time = elapsed
			outcome = Improved
		}
		break
	}
	if !found {
		entries = append(entries, model.Entry{Name: name, Group: group, Score: score, Time: elapsed})
	}
	Sort(entries)

	if outcome != Unchanged {
		b.kv.Save(ctx, Key(gameID), entries)
		metrics.UpdateLeaderboardSize(gameID, len(entries))
	}
	metrics.RecordLeaderboardUpdate(string(outcome))
	b.logger.Debug(ctx, "leaderboard updated",
		logger.String("game", gameID), logger.String("name", name),
		logger.String("outcome", string(outcome)), logger.Int("entries", len(entries)))
	return outcome
}

// Sort orders entries by score descending, then time ascending. Times
// compare as strings, which is only meaningful for equal-width m:ss values.
func Sort(entries []model.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].Time < entries[j].Time
	})
}

// Clear removes gameID's board.
func (b *Board) Clear(ctx context.Context, gameID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.kv.Remove(ctx, Key(gameID)) {
		metrics.UpdateLeaderboardSize(gameID, 0)
		b.logger.Info(ctx, "leaderboard cleared", logger.String("game", gameID))
	}
}

// Render projects gameID's board into display rows with 1-based ranks.
func (b *Board) Render(ctx context.Context, gameID string) []types.Row {
	entries := b.Get(ctx, gameID)
	rows := make([]types.Row, len(entries))
	for i, e := range entries {
		rows[i] = types.Row{
			Rank:  i + 1,
			Name:  orBlank(e.Name),
			Group: orBlank(e.Group),
			Score: e.Score,
			Time:  e.Time,
		}
	}
	return rows
}

// Top returns at most n rows; n <= 0 means all.
func (b *Board) Top(ctx context.Context, gameID string, n int) []types.Row {
	rows := b.Render(ctx, gameID)
	if n > 0 && n < len(rows) {
		rows = rows[:n]
	}
	return rows
}

// Rank returns the row of one player.
func (b *Board) Rank(ctx context.Context, gameID, name, group string) (types.Row, error) {
	if name == "" {
		name = UnknownName
	}
	if group == "" {
		group = NoGroup
	}
	for i, e := range b.Get(ctx, gameID) {
		if e.Name == name && e.Group == group {
			return types.Row{Rank: i + 1, Name: e.Name, Group: e.Group, Score: e.Score, Time: e.Time}, nil
		}
	}
	return types.Row{}, fmt.Errorf("%s/%s in %s: %w", name, group, gameID, ErrNotFound)
}

// Games lists the ids of every stored board. The prefix is shared with the
// best-score cache, so keys whose value is not an entry list are skipped.
func (b *Board) Games(ctx context.Context) []string {
	store := b.kv.Store()
	keys := b.kv.Keys(ctx, KeyPrefix)
	games := make([]string, 0, len(keys))
	for _, k := range keys {
		raw, ok, err := store.Get(ctx, k)
		if err != nil || !ok || !isBoard(raw) {
			continue
		}
		games = append(games, strings.TrimPrefix(k, KeyPrefix))
	}
	return games
}

func isBoard(raw string) bool {
	var entries []model.Entry
	return json.Unmarshal([]byte(raw), &entries) == nil
}

func orBlank(s string) string {
	if s == "" {
		return blank
	}
	return s
}

// FormatElapsed renders d as m:ss, truncating to whole seconds.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	s := int64(d / time.Second)
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}
