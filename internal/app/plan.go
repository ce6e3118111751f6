package app

import (
	"slices"
	"sync"

	"github.com/ashureev/shopagent/internal/render"
)

// Effects is what a dispatch asks a browser tab to do.
type Effects struct {
	Navigate      string         `json:"navigate,omitempty"`
	Notifications []string       `json:"notifications,omitempty"`
	Suggestions   []string       `json:"suggestions,omitempty"`
	Modals        []render.Modal `json:"modals,omitempty"`
	CartCount     *int           `json:"cart_count,omitempty"`
	Stale         bool           `json:"stale,omitempty"`
}

// PlanHost collects effects for a remote page instead of presenting them.
type PlanHost struct {
	mu  sync.Mutex
	eff Effects
}

func (h *PlanHost) Notify(text string) {
	h.mu.Lock()
	h.eff.Notifications = append(h.eff.Notifications, text)
	h.mu.Unlock()
}

func (h *PlanHost) ShowSuggestions(items []string) {
	h.mu.Lock()
	h.eff.Suggestions = slices.Clone(items)
	h.mu.Unlock()
}

func (h *PlanHost) ShowModal(m render.Modal) {
	h.mu.Lock()
	h.eff.Modals = append(h.eff.Modals, m)
	h.mu.Unlock()
}

func (h *PlanHost) ShowCartCount(n int) {
	h.mu.Lock()
	h.eff.CartCount = &n
	h.mu.Unlock()
}

// Drain returns the collected effects and resets the host.
func (h *PlanHost) Drain() Effects {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := h.eff
	h.eff = Effects{}
	return out
}
