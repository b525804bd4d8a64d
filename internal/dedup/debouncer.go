// Package dedup suppresses redundant recording of near-duplicate events.
package dedup

import "time"

// DefaultWindow is how long a content-identical repeat event is not
// re-recorded.
const DefaultWindow = 5 * time.Second

// Debouncer tracks recently seen content keys. State is process-memory
// only and confined to the event-processing goroutine; it needs no
// locking and does not survive restarts.
type Debouncer struct {
	lastSeen map[string]time.Time
	window   time.Duration
}

// NewDebouncer creates a debouncer with the given window. A zero or
// negative window falls back to DefaultWindow.
func NewDebouncer(window time.Duration) *Debouncer {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Debouncer{
		lastSeen: make(map[string]time.Time),
		window:   window,
	}
}

// IsDuplicate reports whether key was recorded within the window.
func (d *Debouncer) IsDuplicate(key string, now time.Time) bool {
	seen, ok := d.lastSeen[key]
	return ok && now.Sub(seen) < d.window
}

// Record marks key as seen at now.
func (d *Debouncer) Record(key string, now time.Time) {
	d.lastSeen[key] = now
}

// Sweep drops entries older than the window. Called opportunistically
// after each processed event.
func (d *Debouncer) Sweep(now time.Time) {
	for key, seen := range d.lastSeen {
		if now.Sub(seen) > d.window {
			delete(d.lastSeen, key)
		}
	}
}

// Len returns the number of tracked keys.
func (d *Debouncer) Len() int {
	return len(d.lastSeen)
}
