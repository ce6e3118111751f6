// Package api provides HTTP handlers for the storefront API.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/ashureev/shopagent/internal/app"
	"github.com/ashureev/shopagent/internal/identity"
	"github.com/go-chi/chi/v5"
)

// maxBodySize bounds request bodies (64KB).
const maxBodySize = 64 << 10

// Handler serves the cart, agent and handoff endpoints.
type Handler struct {
	sessions *app.Registry
	limiter  *RateLimiter
}

// NewHandler creates a new Handler. limiter may be nil to disable
// command throttling.
func NewHandler(sessions *app.Registry, limiter *RateLimiter) *Handler {
	return &Handler{sessions: sessions, limiter: limiter}
}

// RegisterRoutes registers the API routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/cart", h.GetCart)
		r.Post("/cart/items", h.AddCartItem)
		r.Delete("/cart", h.ClearCart)

		r.Route("/agent", func(r chi.Router) {
			r.Post("/command", h.Command)
			r.Get("/suggestions", h.Suggestions)
			r.Get("/mode", h.GetMode)
			r.Put("/mode", h.SetMode)
			r.Post("/page", h.LoadPage)
		})

		r.Get("/handoff/{topic}", h.PullHandoff)
	})
}

// session resolves the caller's tab session, writing an error response
// when it cannot.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*app.Session, bool) {
	deviceID := identity.DeviceIDFromContext(r.Context())
	if deviceID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}
	sess, err := h.sessions.Get(r.Context(), deviceID, identity.SessionIDFromContext(r.Context()))
	if err != nil {
		slog.Error("Failed to open agent session", "error", err, "device_id", deviceID)
		Error(w, http.StatusInternalServerError, "session unavailable")
		return nil, false
	}
	return sess, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// Pinger is a dependency with a liveness check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	kv      Pinger
	timeout time.Duration
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(kv Pinger) *HealthHandler {
	return &HealthHandler{kv: kv, timeout: 5 * time.Second}
}

// Health returns the health status of the API and its dependencies.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	checks := map[string]string{"api": "ok"}
	status := map[string]interface{}{
		"status": "healthy",
		"checks": checks,
	}
	statusCode := http.StatusOK

	if err := h.kv.Ping(ctx); err != nil {
		slog.Error("Health check failed", "error", err)
		status["status"] = "degraded"
		checks["storage"] = "unreachable"
		statusCode = http.StatusServiceUnavailable
	} else {
		checks["storage"] = "ok"
	}

	JSON(w, statusCode, status)
}

// RegisterHealth registers the detailed health check route.
func (h *HealthHandler) RegisterHealth(r chi.Router) {
	r.Get("/healthz", h.Health)
}
