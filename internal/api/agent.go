package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/ashureev/shopagent/internal/agent"
	"github.com/ashureev/shopagent/internal/app"
	"github.com/ashureev/shopagent/internal/dispatch"
	"github.com/ashureev/shopagent/internal/identity"
	"github.com/ashureev/shopagent/internal/page"
)

// maxCommandLength bounds a single user command.
const maxCommandLength = 2000

// CommandRequest is the body of POST /api/agent/command.
type CommandRequest struct {
	Command string `json:"command"`
}

// CommandResponse is the effect plan the page applies.
type CommandResponse struct {
	app.Effects
	Action agent.Action `json:"action,omitempty"`
	Status agent.Status `json:"status,omitempty"`
}

// Command forwards a user command to the agent and returns what the page
// should do with the reply.
func (h *Handler) Command(w http.ResponseWriter, r *http.Request) {
	var req CommandRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.Command = strings.TrimSpace(req.Command)
	if req.Command == "" {
		Error(w, http.StatusBadRequest, "command is required")
		return
	}
	if len(req.Command) > maxCommandLength {
		Error(w, http.StatusRequestEntityTooLarge, "command too long")
		return
	}

	deviceID := identity.DeviceIDFromContext(r.Context())
	if h.limiter != nil && !h.limiter.Allow(deviceID) {
		w.Header().Set("Retry-After", "1")
		Error(w, http.StatusTooManyRequests, "too many commands, slow down")
		return
	}

	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	// Sending happens outside the session lock so a slow reply does not
	// block newer commands from the same tab.
	resp := sess.App.Channel.SendCommand(r.Context(), req.Command)

	var res dispatch.Result
	eff := sess.Apply(func(a *app.App) {
		res = a.Dispatch(r.Context(), resp)
	})
	eff.Stale = res.Stale
	if res.Err != nil {
		slog.Warn("Agent response partially rendered", "error", res.Err, "device_id", deviceID, "action", res.Action)
	}

	JSON(w, http.StatusOK, CommandResponse{Effects: eff, Action: resp.Action, Status: resp.Status})
}

// Suggestions returns example commands.
func (h *Handler) Suggestions(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	items, err := sess.App.Channel.Suggestions(r.Context(), app.DefaultSuggestionLimit)
	if err != nil {
		slog.Warn("Failed to load suggestions", "error", err)
		Error(w, http.StatusBadGateway, "suggestions unavailable")
		return
	}
	if items == nil {
		items = []string{}
	}
	JSON(w, http.StatusOK, map[string][]string{"suggestions": items})
}

// ModeRequest is the body of PUT /api/agent/mode.
type ModeRequest struct {
	Enabled bool `json:"enabled"`
}

// ModeResponse reports agent mode and the effects of toggling it.
type ModeResponse struct {
	Enabled bool         `json:"enabled"`
	Effects *app.Effects `json:"effects,omitempty"`
}

// GetMode reports whether agent mode is on for the device.
func (h *Handler) GetMode(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	JSON(w, http.StatusOK, ModeResponse{Enabled: sess.App.AgentMode(r.Context())})
}

// SetMode toggles agent mode.
func (h *Handler) SetMode(w http.ResponseWriter, r *http.Request) {
	var req ModeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var err error
	eff := sess.Apply(func(a *app.App) {
		err = a.SetAgentMode(r.Context(), req.Enabled)
	})
	if err != nil {
		slog.Error("Failed to save agent mode", "error", err)
		Error(w, http.StatusInternalServerError, "failed to save agent mode")
		return
	}
	JSON(w, http.StatusOK, ModeResponse{Enabled: req.Enabled, Effects: &eff})
}

// PageRequest is the body of POST /api/agent/page.
type PageRequest struct {
	URL string `json:"url"`
}

// PageResponse is what a freshly loaded page needs from the agent.
type PageResponse struct {
	Page     string `json:"page"`
	Products any    `json:"products,omitempty"`
	Orders   any    `json:"orders,omitempty"`
}

// LoadPage runs the on-load hooks for the page the tab just opened.
func (h *Handler) LoadPage(w http.ResponseWriter, r *http.Request) {
	var req PageRequest
	if !decodeBody(w, r, &req) {
		return
	}
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var (
		v   page.View
		err error
	)
	sess.Apply(func(a *app.App) {
		v, err = a.Open(r.Context(), req.URL)
	})
	if err != nil {
		slog.Warn("Page load hooks failed", "error", err, "url", req.URL)
	}

	out := PageResponse{Page: v.Location.Name()}
	if v.Products != nil {
		out.Products = v.Products
	}
	if v.Orders != nil {
		out.Orders = v.Orders
	}
	JSON(w, http.StatusOK, out)
}
