// Package rules manages the in-memory view of the persisted rule
// collection.
package rules

import (
	"context"
	"sync"

	"github.com/quelld/quell/internal/model"
	"github.com/quelld/quell/internal/service"
)

// Repository is a read-through cache over the rule store. Reads return a
// consistent snapshot; the cache is replaced atomically on every
// successful save, so a classification never observes a partially-updated
// list. Concurrent edits are last-writer-wins.
type Repository struct {
	store  service.RuleStore
	mu     sync.Mutex
	cached []model.Rule
	loaded bool
}

// NewRepository creates a repository backed by store.
func NewRepository(store service.RuleStore) *Repository {
	return &Repository{store: store}
}

// Rules returns a snapshot copy of the current rule list. The caller owns
// the copy and may mutate it freely.
func (r *Repository) Rules(ctx context.Context) ([]model.Rule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.loaded {
		rules, err := r.store.GetRules(ctx)
		if err != nil {
			return nil, err
		}
		r.cached = rules
		r.loaded = true
	}

	snapshot := make([]model.Rule, len(r.cached))
	copy(snapshot, r.cached)
	return snapshot, nil
}

// Save persists the rule collection and replaces the cache atomically.
// On a store failure the previous cache stays authoritative.
func (r *Repository) Save(ctx context.Context, rules []model.Rule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.store.SaveRules(ctx, rules); err != nil {
		return err
	}

	cached := make([]model.Rule, len(rules))
	copy(cached, rules)
	r.cached = cached
	r.loaded = true
	return nil
}

// Stage replaces the cached rule list without touching the store. The
// in-memory list becomes authoritative immediately; pair with Persist to
// write it out. Used by the event processor so hit-count updates are
// visible to the next classification even while the disk write is still
// queued.
func (r *Repository) Stage(rules []model.Rule) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cached := make([]model.Rule, len(rules))
	copy(cached, rules)
	r.cached = cached
	r.loaded = true
}

// Persist writes the current cached rule list to the store. On failure
// the cache stays authoritative for the session.
func (r *Repository) Persist(ctx context.Context) error {
	r.mu.Lock()
	snapshot := make([]model.Rule, len(r.cached))
	copy(snapshot, r.cached)
	loaded := r.loaded
	r.mu.Unlock()

	if !loaded {
		return nil
	}
	return r.store.SaveRules(ctx, snapshot)
}

// Invalidate drops the cache so the next read goes back to the store.
func (r *Repository) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cached = nil
	r.loaded = false
}
