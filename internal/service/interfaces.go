// Package service defines the contracts between the engine and its
// collaborators.
package service

import (
	"context"

	"github.com/quelld/quell/internal/model"
)

// RuleStore persists the ordered rule collection. Order is insertion
// order and is the stable tie-break for "first match".
type RuleStore interface {
	// GetRules returns the rules in insertion order.
	GetRules(ctx context.Context) ([]model.Rule, error)
	// SaveRules replaces the entire collection atomically.
	SaveRules(ctx context.Context, rules []model.Rule) error
}

// HistoryStore persists one notification log (allowed or blocked),
// most-recent-first, deduplicated by content tuple.
type HistoryStore interface {
	GetHistory(ctx context.Context) ([]model.Notification, error)
	// SaveNotification records the event at the front of the log. A
	// content-identical entry (ignoring timestamp) is replaced rather
	// than duplicated; the return value reports whether the entry was
	// genuinely new.
	SaveNotification(ctx context.Context, n *model.Notification) (bool, error)
	DeleteNotification(ctx context.Context, n *model.Notification) error
	DeleteAllForPackage(ctx context.Context, packageName string) error
	Clear(ctx context.Context) error
}

// UnmonitoredStore tracks packages whose allowed notifications are not
// recorded.
type UnmonitoredStore interface {
	Contains(ctx context.Context, packageName string) (bool, error)
	Add(ctx context.Context, packageName string) error
	Remove(ctx context.Context, packageName string) error
	List(ctx context.Context) ([]string, error)
}

// StatsStore tracks running counters.
type StatsStore interface {
	// IncrementBlocked bumps the total count of newly blocked
	// notifications.
	IncrementBlocked(ctx context.Context) error
	BlockedTotal(ctx context.Context) (int64, error)
}

// Source delivers notification events from the platform bridge. Next
// blocks until an event arrives, the context is done, or the stream ends.
type Source interface {
	Next(ctx context.Context) (*model.Notification, error)
}

// Sink issues commands back to the platform bridge.
type Sink interface {
	// Cancel asks the platform to cancel the notification with the given
	// identity token. Best effort: the platform may refuse.
	Cancel(ctx context.Context, id string) error
}

// Observer receives fire-and-forget change signals.
type Observer interface {
	// HistoryChanged signals that a history log was modified. No payload,
	// at-least-once delivery.
	HistoryChanged()
}
