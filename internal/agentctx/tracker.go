// Package agentctx tracks the ambient facts (current page, product, cart)
// that accompany every agent command.
package agentctx

import (
	"maps"
	"sync"
)

// Well-known context keys.
const (
	KeyCurrentProductID = "current_product_id"
	KeyCurrentPage      = "current_page"
	KeyCartItems        = "cart_items"
)

// Updater is the write side of a Tracker. Components that only push facts
// (the cart store, the page loader) depend on this.
type Updater interface {
	Update(key string, value any)
}

// Tracker is a last-write-wins map of context facts.
type Tracker struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{values: make(map[string]any)}
}

// Update overwrites the value at key.
func (t *Tracker) Update(key string, value any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.values[key] = value
}

// Clear empties the tracker.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.values = make(map[string]any)
}

// Snapshot returns a copy of the current context. Slice values are copied
// too so a later Update cannot alter a command already in flight.
func (t *Tracker) Snapshot() map[string]any {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := maps.Clone(t.values)
	for k, v := range out {
		if ss, ok := v.([]string); ok {
			out[k] = append([]string(nil), ss...)
		}
	}
	return out
}

// Get returns the value at key.
func (t *Tracker) Get(key string) (any, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.values[key]
	return v, ok
}
