package app

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Session is the server-side App of one browser tab.
type Session struct {
	Device string
	Tab    string
	App    *App
	Plan   *PlanHost

	mu       sync.Mutex
	lastSeen atomic.Int64
	streams  atomic.Int32
}

func (s *Session) touch() {
	s.lastSeen.Store(time.Now().UnixNano())
}

// Hold marks the session as in use by a long-lived stream. The sweeper
// never evicts a held session. release drops the hold and counts as
// activity; calling it more than once has no further effect.
func (s *Session) Hold() (release func()) {
	s.streams.Add(1)
	s.touch()
	var once sync.Once
	return func() {
		once.Do(func() {
			s.streams.Add(-1)
			s.touch()
		})
	}
}

// Apply runs fn with exclusive access to the App and returns the effects
// it produced, including any scheduled navigation.
func (s *Session) Apply(fn func(a *App)) Effects {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	fn(s.App)
	eff := s.Plan.Drain()
	if target, ok := s.App.Navigator.TakePending(); ok {
		eff.Navigate = target
	}
	return eff
}

// Factory builds the App for a device and tab, presenting to host.
type Factory func(ctx context.Context, device, tab string, host Host) (*App, error)

// Registry holds one Session per (device, tab).
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	factory  Factory
	onEvict  func(*Session)
}

// NewRegistry creates a registry that builds Apps with factory.
func NewRegistry(factory Factory) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		factory:  factory,
	}
}

// OnEvict registers a callback run for each session the sweeper removes.
func (r *Registry) OnEvict(fn func(*Session)) {
	r.mu.Lock()
	r.onEvict = fn
	r.mu.Unlock()
}

func sessionKey(device, tab string) string {
	return device + ":" + tab
}

// Get returns the session for device and tab, creating it on first use.
func (r *Registry) Get(ctx context.Context, device, tab string) (*Session, error) {
	key := sessionKey(device, tab)

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[key]; ok {
		s.touch()
		return s, nil
	}

	plan := &PlanHost{}
	a, err := r.factory(ctx, device, tab, plan)
	if err != nil {
		return nil, err
	}
	s := &Session{Device: device, Tab: tab, App: a, Plan: plan}
	s.touch()
	r.sessions[key] = s
	slog.Info("Agent session created", "device_id", device, "session_id", tab)
	return s, nil
}

// Lookup returns an existing session.
func (r *Registry) Lookup(device, tab string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionKey(device, tab)]
	return s, ok
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep removes sessions idle for longer than idle and returns how many
// were removed. Held sessions are skipped.
func (r *Registry) Sweep(idle time.Duration) int {
	cutoff := time.Now().Add(-idle).UnixNano()

	r.mu.Lock()
	var expired []*Session
	for key, s := range r.sessions {
		if s.streams.Load() == 0 && s.lastSeen.Load() < cutoff {
			expired = append(expired, s)
			delete(r.sessions, key)
		}
	}
	onEvict := r.onEvict
	r.mu.Unlock()

	for _, s := range expired {
		slog.Info("Agent session expired", "device_id", s.Device, "session_id", s.Tab)
		if onEvict != nil {
			onEvict(s)
		}
	}
	return len(expired)
}

// StartSweeper periodically evicts idle sessions until ctx is done.
func (r *Registry) StartSweeper(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("Session sweeper started", "interval", interval, "idle", idle)

		for {
			select {
			case <-ticker.C:
				if n := r.Sweep(idle); n > 0 {
					slog.Info("Session sweeper cleanup completed", "cleaned", n)
				}
			case <-ctx.Done():
				slog.Info("Session sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}
