// Package progress persists one save state per (player, game) pair.
package progress

import (
	"context"
	"strings"
	"unicode"

	"github.com/okian/detective/internal/adapters/kv"
	"github.com/okian/detective/internal/domain/model"
	"github.com/okian/detective/pkg/logger"
	"github.com/okian/detective/pkg/metrics"
)

// KeyPrefix starts every progress key.
const KeyPrefix = "python_detective_"

// Store loads, saves and resets progress records.
type Store struct {
	kv     *kv.Adapter
	logger logger.Logger
}

// NewStore returns a progress store over s.
func NewStore(s kv.Store, opts ...Option) *Store {
	p := &Store{
		logger: logger.Get().Named("progress"),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.kv = kv.NewAdapter(s, kv.WithKind("progress"), kv.WithLogger(p.logger))
	return p
}

// Key returns the store key for a player's progress in gameID.
func Key(name, group, gameID string) string {
	return KeyPrefix + gameID + "_" + safe(name) + "_" + safe(group)
}

// safe lowercases s and replaces everything outside [a-z0-9] with '_'.
// Replacement counts UTF-16 code units, so a rune outside the BMP becomes
// "__", and 'İ' lowercases to "i" plus a combining dot.
func safe(s string) string {
	if s == "" {
		return "unknown"
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == 'İ' {
			b.WriteString("i_")
			continue
		}
		r = unicode.ToLower(r)
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
		case r > 0xFFFF:
			b.WriteString("__")
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// Load returns the saved record, or an empty one on a miss or a corrupt value.
func (s *Store) Load(ctx context.Context, name, group, gameID string) model.Progress {
	key := Key(name, group, gameID)
	var rec model.Progress
	if !s.kv.Load(ctx, key, &rec) {
		return model.Progress{}
	}
	s.logger.Debug(ctx, "progress loaded", logger.String("key", key), logger.Int("attempts", rec.Attempts))
	return rec
}

// Save stores rec under the key derived from its own name and group.
// Failures are logged and counted, never returned.
func (s *Store) Save(ctx context.Context, rec model.Progress, gameID string) {
	key := Key(rec.Name, rec.Group, gameID)
	if s.kv.Save(ctx, key, rec) {
		metrics.RecordProgressSave()
	}
}

// Reset removes the saved record.
func (s *Store) Reset(ctx context.Context, name, group, gameID string) {
	key := Key(name, group, gameID)
	if s.kv.Remove(ctx, key) {
		s.logger.Info(ctx, "progress reset", logger.String("key", key))
		metrics.RecordProgressReset()
	}
}
