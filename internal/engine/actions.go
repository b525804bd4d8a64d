package engine

import "sync"

// ActionRegistry maps event identity tokens to opaque platform action
// handles for the lifetime of the process. Nothing here survives a
// restart.
type ActionRegistry struct {
	mu      sync.RWMutex
	actions map[string]string
}

// NewActionRegistry creates an empty registry.
func NewActionRegistry() *ActionRegistry {
	return &ActionRegistry{actions: make(map[string]string)}
}

// Save associates an action handle with an event token.
func (r *ActionRegistry) Save(id, action string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions[id] = action
}

// Get returns the action handle for an event token, if any.
func (r *ActionRegistry) Get(id string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	action, ok := r.actions[id]
	return action, ok
}

// Clear drops all registered actions.
func (r *ActionRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = make(map[string]string)
}
