// Package events pushes same-document handoff events to browser tabs over
// WebSocket.
package events

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ashureev/shopagent/internal/metrics"
)

// Listener is the event stream of one connected tab.
type Listener struct {
	cancel context.CancelCauseFunc
}

// NewListener derives the listener's lifetime from parent.
func NewListener(parent context.Context) (*Listener, context.Context) {
	ctx, cancel := context.WithCancelCause(parent)
	return &Listener{cancel: cancel}, ctx
}

// Close ends the stream.
func (l *Listener) Close(reason string) {
	l.cancel(&closedError{reason: reason})
}

type closedError struct{ reason string }

func (e *closedError) Error() string { return "listener closed: " + e.reason }

// Manager tracks the active listener of every device and tab. A tab has at
// most one listener; registering another replaces and closes the first.
type Manager struct {
	mu     sync.RWMutex
	active map[string]map[string]*Listener
	count  int
}

// NewManager creates a new listener manager.
func NewManager() *Manager {
	return &Manager{
		active: make(map[string]map[string]*Listener),
	}
}

// GetActive returns the active listener for a device and tab.
func (m *Manager) GetActive(deviceID, sessionID string) *Listener {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if sessions, ok := m.active[deviceID]; ok {
		return sessions[sessionID]
	}
	return nil
}

// Register adds a listener for a device/tab.
func (m *Manager) Register(deviceID, sessionID string, l *Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.active[deviceID]; !exists {
		m.active[deviceID] = make(map[string]*Listener)
	}

	if existing, exists := m.active[deviceID][sessionID]; exists {
		if existing != l {
			existing.Close("session replaced")
		}
	} else {
		m.count++
	}

	m.active[deviceID][sessionID] = l
	metrics.SetEventListeners(m.count)
	slog.Info("Event listener registered", "device_id", deviceID, "session_id", sessionID)
}

// Unregister removes a listener if it is still the active one.
func (m *Manager) Unregister(deviceID, sessionID string, l *Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sessions, ok := m.active[deviceID]; ok {
		if current, exists := sessions[sessionID]; exists && current == l {
			delete(sessions, sessionID)
			if len(sessions) == 0 {
				delete(m.active, deviceID)
			}
			m.count--
			metrics.SetEventListeners(m.count)
			slog.Info("Event listener unregistered", "device_id", deviceID, "session_id", sessionID)
		}
	}
}

// CloseSession terminates the listener of one tab.
func (m *Manager) CloseSession(deviceID, sessionID string) {
	m.mu.RLock()
	l := m.active[deviceID][sessionID]
	m.mu.RUnlock()

	if l != nil {
		l.Close("session closed")
	}
}

// Count returns the number of active listeners.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.count
}
