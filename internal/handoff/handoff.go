// Package handoff passes agent results from the page that received them to
// the page that displays them.
//
// Delivery has two paths and every consumer must handle both:
//
//   - Push: listeners already attached to the current document receive an
//     Event as soon as results are published.
//   - Pull: a page loaded afterwards cannot have been listening, so it reads
//     the persisted slot with Pull when it loads.
//
// Publish always writes the slot before notifying listeners.
package handoff

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ashureev/shopagent/internal/store"
)

// Topics, named after the storage slots they persist to.
const (
	TopicSearchResults = store.KeySearchResults
	TopicOrderResults  = store.KeyOrderResults
)

// Event is a same-document notification.
type Event struct {
	Topic  string          `json:"topic"`
	Detail json.RawMessage `json:"detail"`
}

// Listener receives events for a topic. It runs on the publisher's
// goroutine and must not block.
type Listener func(Event)

// Hub owns the slots of one browsing context and its listeners.
type Hub struct {
	slots     store.Store
	mu        sync.RWMutex
	listeners map[string]map[uint64]Listener
	nextID    uint64
}

// NewHub creates a hub persisting slots in kv.
func NewHub(kv store.Store) *Hub {
	return &Hub{
		slots:     kv,
		listeners: make(map[string]map[uint64]Listener),
	}
}

// Publish stores detail in the topic's slot and notifies listeners. A slot
// write failure is returned but listeners are still notified.
func (h *Hub) Publish(ctx context.Context, topic string, detail json.RawMessage) error {
	var saveErr error
	if err := h.slots.Set(ctx, topic, string(detail)); err != nil {
		saveErr = fmt.Errorf("persist %s: %w", topic, err)
		slog.Warn("handoff slot write failed", "topic", topic, "error", err)
	}

	h.mu.RLock()
	targets := make([]Listener, 0, len(h.listeners[topic]))
	for _, fn := range h.listeners[topic] {
		targets = append(targets, fn)
	}
	h.mu.RUnlock()

	ev := Event{Topic: topic, Detail: detail}
	for _, fn := range targets {
		fn(ev)
	}
	return saveErr
}

// Pull returns the last published detail for topic.
func (h *Hub) Pull(ctx context.Context, topic string) (json.RawMessage, bool, error) {
	v, ok, err := h.slots.Get(ctx, topic)
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", topic, err)
	}
	if !ok || !json.Valid([]byte(v)) {
		return nil, false, nil
	}
	return json.RawMessage(v), true, nil
}

// Subscribe attaches fn to topic until the returned cancel is called.
// cancel is idempotent.
func (h *Hub) Subscribe(topic string, fn Listener) (cancel func()) {
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	if h.listeners[topic] == nil {
		h.listeners[topic] = make(map[uint64]Listener)
	}
	h.listeners[topic][id] = fn
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.listeners[topic], id)
			if len(h.listeners[topic]) == 0 {
				delete(h.listeners, topic)
			}
		})
	}
}

// Listeners returns the number of listeners attached to topic.
func (h *Hub) Listeners(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.listeners[topic])
}
