package model

import (
	"strings"
	"time"
)

// Notification is a single notification-like event delivered by the
// platform bridge. Immutable once created.
type Notification struct {
	// ID is an ephemeral identity token used to correlate a later
	// user-triggered action. It is not persisted across restarts.
	ID          string `json:"id,omitempty"`
	AppLabel    string `json:"app_label,omitempty"`
	PackageName string `json:"package_name"`
	Title       string `json:"title,omitempty"`
	Text        string `json:"text,omitempty"`
	// Timestamp is epoch milliseconds.
	Timestamp  int64 `json:"timestamp"`
	WasOngoing bool  `json:"was_ongoing,omitempty"`
	// Action is an opaque platform action handle delivered with the
	// event, if any. It is never persisted.
	Action string `json:"action,omitempty"`
}

// Blank reports whether the event carries no usable content. Blank events
// are dropped before classification.
func (n *Notification) Blank() bool {
	return strings.TrimSpace(n.Title) == "" && strings.TrimSpace(n.Text) == ""
}

// Label returns the display name for the event, falling back to the
// package name when no label could be resolved.
func (n *Notification) Label() string {
	if n.AppLabel != "" {
		return n.AppLabel
	}
	return n.PackageName
}

// DedupKey returns the content tuple key used for debounce and history
// deduplication. The separator cannot occur in notification text.
func (n *Notification) DedupKey() string {
	return n.PackageName + "\x00" + n.Title + "\x00" + n.Text
}

// Time returns the event timestamp as a time.Time.
func (n *Notification) Time() time.Time {
	return time.UnixMilli(n.Timestamp)
}
