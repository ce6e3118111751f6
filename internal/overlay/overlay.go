// Package overlay manages transient UI elements: notifications and
// suggestion lists that dismiss themselves after a fixed lifetime.
package overlay

import (
	"slices"
	"sync"
	"time"
)

// Kind distinguishes overlay elements.
type Kind string

const (
	KindNotification Kind = "notification"
	KindSuggestions  Kind = "suggestions"
)

// Phase is a lifecycle step reported to a Sink.
type Phase string

const (
	PhaseEnter   Phase = "enter"
	PhaseExit    Phase = "exit"
	PhaseRemoved Phase = "removed"
)

// Snapshot is an immutable view of an element.
type Snapshot struct {
	ID    uint64
	Kind  Kind
	Text  string
	Items []string
}

// Event is a lifecycle transition of one element.
type Event struct {
	Phase   Phase
	Element Snapshot
}

// Sink presents overlay elements. OnEvent may be called from timer
// goroutines.
type Sink interface {
	OnEvent(Event)
}

// Config holds element lifetimes.
type Config struct {
	NotificationTTL time.Duration
	SuggestionTTL   time.Duration
	ExitTransition  time.Duration
}

// DefaultConfig returns the storefront's lifetimes.
func DefaultConfig() Config {
	return Config{
		NotificationTTL: 3 * time.Second,
		SuggestionTTL:   10 * time.Second,
		ExitTransition:  300 * time.Millisecond,
	}
}

// Layer is the host-page overlay.
type Layer struct {
	sink   Sink
	cfg    Config
	mu     sync.Mutex
	active map[uint64]*Element
	nextID uint64
}

// NewLayer creates a layer presenting to sink. A nil sink discards events.
func NewLayer(sink Sink, cfg Config) *Layer {
	return &Layer{
		sink:   sink,
		cfg:    cfg,
		active: make(map[uint64]*Element),
	}
}

// Element is a live overlay element.
type Element struct {
	layer *Layer
	snap  Snapshot

	mu      sync.Mutex
	exiting bool
	removed bool
}

// Snapshot returns the element's contents.
func (e *Element) Snapshot() Snapshot {
	return e.snap
}

// Notify shows a notification.
func (l *Layer) Notify(text string) {
	l.Push(KindNotification, text, nil)
}

// ShowSuggestions shows a suggestion list.
func (l *Layer) ShowSuggestions(items []string) {
	l.Push(KindSuggestions, "", items)
}

// Push shows an element and schedules its dismissal.
func (l *Layer) Push(kind Kind, text string, items []string) *Element {
	ttl := l.cfg.NotificationTTL
	if kind == KindSuggestions {
		ttl = l.cfg.SuggestionTTL
	}

	l.mu.Lock()
	l.nextID++
	e := &Element{
		layer: l,
		snap:  Snapshot{ID: l.nextID, Kind: kind, Text: text, Items: slices.Clone(items)},
	}
	l.active[e.snap.ID] = e
	l.mu.Unlock()

	l.emit(PhaseEnter, e)
	time.AfterFunc(ttl, e.Dismiss)
	return e
}

// Dismiss starts the exit transition and removes the element when it
// completes. Dismissing a removed or exiting element does nothing.
func (e *Element) Dismiss() {
	e.mu.Lock()
	if e.removed || e.exiting {
		e.mu.Unlock()
		return
	}
	e.exiting = true
	e.mu.Unlock()

	e.layer.emit(PhaseExit, e)
	if e.layer.cfg.ExitTransition <= 0 {
		e.Remove()
		return
	}
	time.AfterFunc(e.layer.cfg.ExitTransition, e.Remove)
}

// Remove detaches the element immediately. It is safe to call at any time
// and more than once.
func (e *Element) Remove() {
	e.mu.Lock()
	if e.removed {
		e.mu.Unlock()
		return
	}
	e.removed = true
	e.mu.Unlock()

	e.layer.mu.Lock()
	delete(e.layer.active, e.snap.ID)
	e.layer.mu.Unlock()

	e.layer.emit(PhaseRemoved, e)
}

// Active returns the elements currently attached, oldest first.
func (l *Layer) Active() []Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Snapshot, 0, len(l.active))
	for _, e := range l.active {
		out = append(out, e.snap)
	}
	slices.SortFunc(out, func(a, b Snapshot) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out
}

func (l *Layer) emit(phase Phase, e *Element) {
	if l.sink == nil {
		return
	}
	l.sink.OnEvent(Event{Phase: phase, Element: e.snap})
}
