package engine

import "sync"

// Broadcaster fans out fire-and-forget "history changed" signals. Sends
// never block: each subscriber channel holds one pending signal and
// coalesces the rest, which preserves at-least-once delivery.
type Broadcaster struct {
	mu   sync.Mutex
	subs []chan struct{}
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{}
}

// Subscribe registers a new observer channel.
func (b *Broadcaster) Subscribe() <-chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan struct{}, 1)
	b.subs = append(b.subs, ch)
	return ch
}

// HistoryChanged signals every subscriber without blocking.
func (b *Broadcaster) HistoryChanged() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
