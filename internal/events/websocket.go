package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/ashureev/shopagent/internal/app"
	"github.com/ashureev/shopagent/internal/handoff"
	"github.com/ashureev/shopagent/internal/identity"
	"github.com/coder/websocket"
)

const (
	frameBuffer  = 16
	writeTimeout = 5 * time.Second
)

// Frame is a message sent to the browser.
type Frame struct {
	Type   string          `json:"type"`
	Topic  string          `json:"topic,omitempty"`
	Detail json.RawMessage `json:"detail,omitempty"`
}

// Frame types.
const (
	FrameReady   = "ready"
	FrameHandoff = "handoff"
)

// WebSocketHandler streams a tab's handoff events.
type WebSocketHandler struct {
	sessions *app.Registry
	mgr      *Manager
}

// NewWebSocketHandler creates the /ws/events handler.
func NewWebSocketHandler(sessions *app.Registry, mgr *Manager) *WebSocketHandler {
	return &WebSocketHandler{sessions: sessions, mgr: mgr}
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	deviceID := identity.DeviceIDFromContext(r.Context())
	sessionID := identity.SessionIDFromContext(r.Context())

	sess, err := h.sessions.Get(r.Context(), deviceID, sessionID)
	if err != nil {
		slog.Error("Failed to open agent session", "error", err, "device_id", deviceID)
		http.Error(w, `{"error":"session unavailable"}`, http.StatusInternalServerError)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "device_id", deviceID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "stream ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "device_id", deviceID)
		}
	}()

	l, ctx := NewListener(r.Context())
	h.mgr.Register(deviceID, sessionID, l)
	defer h.mgr.Unregister(deviceID, sessionID, l)

	// An open stream keeps the tab alive for the sweeper.
	defer sess.Hold()()

	// Control frames are handled and the context ends when the peer goes away.
	ctx = ws.CloseRead(ctx)

	frames := make(chan Frame, frameBuffer)
	push := func(ev handoff.Event) {
		select {
		case frames <- Frame{Type: FrameHandoff, Topic: ev.Topic, Detail: ev.Detail}:
		default:
			slog.Warn("Dropping handoff event for slow listener", "device_id", deviceID, "session_id", sessionID, "topic", ev.Topic)
		}
	}
	for _, topic := range []string{handoff.TopicSearchResults, handoff.TopicOrderResults} {
		defer sess.App.Hub.Subscribe(topic, push)()
	}

	if err := writeFrame(ctx, ws, Frame{Type: FrameReady}); err != nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			slog.Debug("Event stream closed", "device_id", deviceID, "session_id", sessionID, "cause", context.Cause(ctx))
			return
		case f := <-frames:
			if err := writeFrame(ctx, ws, f); err != nil {
				slog.Debug("Failed to write event frame", "error", err, "device_id", deviceID)
				return
			}
		}
	}
}

func writeFrame(ctx context.Context, ws *websocket.Conn, f Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return ws.Write(ctx, websocket.MessageText, data)
}
