// Package identity resolves who is playing from an ordered list of sources.
package identity

import (
	"context"
	"net/url"

	"github.com/okian/detective/internal/adapters/kv"
	"github.com/okian/detective/internal/domain/model"
	"github.com/okian/detective/pkg/logger"
	"github.com/okian/detective/pkg/metrics"
)

// StoredKey holds the remembered identity.
const StoredKey = "python_detective_current_agent"

// Query parameter names.
const (
	ParamAgent = "agent"
	ParamGroup = "group"
)

// Strategy attempts one way of finding the player.
type Strategy interface {
	Name() string
	Resolve(ctx context.Context) (model.Identity, bool)
}

// Resolver tries its strategies in order and returns the first hit.
type Resolver struct {
	strategies []Strategy
	logger     logger.Logger
}

// NewResolver returns a resolver over strategies, tried in the given order.
func NewResolver(strategies []Strategy, opts ...Option) *Resolver {
	r := &Resolver{
		logger: logger.Get().Named("identity"),
	}
	for _, s := range strategies {
		if s != nil {
			r.strategies = append(r.strategies, s)
		}
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the current identity. It has no side effects.
func (r *Resolver) Resolve(ctx context.Context) (model.Identity, bool) {
	for _, s := range r.strategies {
		if id, ok := s.Resolve(ctx); ok {
			r.logger.Debug(ctx, "identity resolved", logger.String("strategy", s.Name()), logger.String("name", id.Name))
			metrics.RecordIdentityResolved(s.Name())
			return id, true
		}
	}
	r.logger.Debug(ctx, "identity not found")
	metrics.RecordIdentityResolved("none")
	return model.Identity{}, false
}

// Fields is the state of the name/group entry form.
type Fields struct {
	Name        string `json:"name"`
	Group       string `json:"group"`
	NameLocked  bool   `json:"name_locked"`
	Placeholder string `json:"placeholder,omitempty"`
}

// NamePlaceholder prompts for manual entry when nobody is known.
const NamePlaceholder = "Enter detective name"

// Prefill returns the entry form state: a known name is filled in and locked,
// otherwise the form is left open for manual entry.
func (r *Resolver) Prefill(ctx context.Context) Fields {
	id, ok := r.Resolve(ctx)
	if !ok {
		return Fields{Placeholder: NamePlaceholder}
	}
	return Fields{Name: id.Name, Group: id.Group, NameLocked: true}
}

// StoredStrategy reads the remembered identity from the store.
type StoredStrategy struct {
	store *kv.Adapter
}

// NewStoredStrategy returns a strategy backed by store.
func NewStoredStrategy(store kv.Store, opts ...kv.Option) *StoredStrategy {
	return &StoredStrategy{store: kv.NewAdapter(store, append([]kv.Option{kv.WithKind("identity")}, opts...)...)}
}

func (s *StoredStrategy) Name() string { return "stored" }

func (s *StoredStrategy) Resolve(ctx context.Context) (model.Identity, bool) {
	var id model.Identity
	if !s.store.Load(ctx, StoredKey, &id) || !id.Known() {
		return model.Identity{}, false
	}
	return id, true
}

// Remember persists id so later sessions resolve it first.
func (s *StoredStrategy) Remember(ctx context.Context, id model.Identity) error {
	if !id.Known() {
		return ErrEmptyName
	}
	s.store.Save(ctx, StoredKey, id)
	return nil
}

// Forget removes the remembered identity.
func (s *StoredStrategy) Forget(ctx context.Context) {
	s.store.Remove(ctx, StoredKey)
}

// LookupFunc is a caller-supplied identity source.
type LookupFunc func(ctx context.Context) (model.Identity, bool)

// LookupStrategy wraps a LookupFunc. A nil func never resolves.
type LookupStrategy struct {
	fn LookupFunc
}

func NewLookupStrategy(fn LookupFunc) *LookupStrategy {
	return &LookupStrategy{fn: fn}
}

func (s *LookupStrategy) Name() string { return "lookup" }

func (s *LookupStrategy) Resolve(ctx context.Context) (model.Identity, bool) {
	if s.fn == nil {
		return model.Identity{}, false
	}
	id, ok := s.fn(ctx)
	if !ok || !id.Known() {
		return model.Identity{}, false
	}
	return id, true
}

// QueryStrategy reads the agent and group query parameters.
type QueryStrategy struct {
	values url.Values
}

func NewQueryStrategy(values url.Values) *QueryStrategy {
	return &QueryStrategy{values: values}
}

// ParseQueryStrategy parses a raw query string such as "agent=Bob&group=G2".
// A malformed query yields a strategy that never resolves.
func ParseQueryStrategy(rawQuery string) *QueryStrategy {
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return &QueryStrategy{}
	}
	return &QueryStrategy{values: values}
}

func (s *QueryStrategy) Name() string { return "query" }

func (s *QueryStrategy) Resolve(_ context.Context) (model.Identity, bool) {
	name := s.values.Get(ParamAgent)
	if name == "" {
		return model.Identity{}, false
	}
	return model.Identity{Name: name, Group: s.values.Get(ParamGroup)}, true
}
