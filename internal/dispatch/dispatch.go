// Package dispatch routes an agent response to its effects.
//
// A response is processed in a fixed order, each step independent of the
// others:
//
//  1. navigation  -> Navigator (scheduled, so later steps still run)
//  2. message     -> Notifier
//  3. action      -> exactly one Strategy, chosen by tag
//  4. suggestions -> SuggestionDisplay
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ashureev/shopagent/internal/agent"
	"github.com/ashureev/shopagent/internal/metrics"
)

// Navigator schedules a page replace.
type Navigator interface {
	Navigate(agent.Navigation)
}

// Notifier shows a transient message.
type Notifier interface {
	Notify(text string)
}

// SuggestionDisplay shows a list of example commands.
type SuggestionDisplay interface {
	ShowSuggestions(items []string)
}

// Strategy renders one action tag.
type Strategy interface {
	Render(ctx context.Context, resp *agent.Response)
}

// StrategyFunc adapts a function to Strategy.
type StrategyFunc func(ctx context.Context, resp *agent.Response)

func (f StrategyFunc) Render(ctx context.Context, resp *agent.Response) { f(ctx, resp) }

// Result reports which steps ran.
type Result struct {
	Seq       uint64
	Stale     bool
	Navigated bool
	Notified  bool
	Action    agent.Action
	Rendered  bool
	Suggested bool
	// Err is set when a step panicked.
	Err error
}

// Dispatcher applies responses. Nil collaborators skip their step.
type Dispatcher struct {
	nav         Navigator
	notifier    Notifier
	suggestions SuggestionDisplay
	strategies  map[agent.Action]Strategy
	logger      *slog.Logger

	mu      sync.Mutex
	lastSeq uint64
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the dispatcher logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// New creates a dispatcher.
func New(nav Navigator, notifier Notifier, suggestions SuggestionDisplay, strategies map[agent.Action]Strategy, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		nav:         nav,
		notifier:    notifier,
		suggestions: suggestions,
		strategies:  make(map[agent.Action]Strategy, len(strategies)),
		logger:      slog.Default(),
	}
	for tag, s := range strategies {
		d.strategies[tag] = s
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// admit applies the ordering guard: a response sent before one that was
// already dispatched is dropped.
func (d *Dispatcher) admit(seq uint64) bool {
	if seq == 0 {
		return true
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if seq < d.lastSeq {
		return false
	}
	d.lastSeq = seq
	return true
}

// Dispatch applies resp. A nil response does nothing.
func (d *Dispatcher) Dispatch(ctx context.Context, resp *agent.Response) Result {
	if resp == nil {
		return Result{}
	}
	res := Result{Seq: resp.Seq, Action: resp.Action}

	if !d.admit(resp.Seq) {
		res.Stale = true
		metrics.RecordStaleDropped()
		d.logger.Info("dropping stale agent response", "seq", resp.Seq, "action", resp.Action)
		return res
	}

	if resp.Navigation != nil && resp.Navigation.Page != "" && d.nav != nil {
		res.Navigated = d.guard(&res, "navigate", func() { d.nav.Navigate(*resp.Navigation) })
	}

	if resp.Message != "" && d.notifier != nil {
		res.Notified = d.guard(&res, "notify", func() { d.notifier.Notify(resp.Message) })
	}

	if s, ok := d.strategies[resp.Action]; ok && resp.Action != "" {
		res.Rendered = d.guard(&res, string(resp.Action), func() { s.Render(ctx, resp) })
	}

	if len(resp.Suggestions) > 0 && d.suggestions != nil {
		res.Suggested = d.guard(&res, "suggestions", func() { d.suggestions.ShowSuggestions(resp.Suggestions) })
	}

	metrics.RecordDispatch(string(resp.Action))
	return res
}

// guard runs fn, converting a panic into res.Err so the remaining steps
// still run. It reports whether fn completed.
func (d *Dispatcher) guard(res *Result, step string, fn func()) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%s step panicked: %v", step, r)
			d.logger.Error("dispatch step failed", "step", step, "error", err, "seq", res.Seq)
			if res.Err == nil {
				res.Err = err
			}
			ok = false
		}
	}()
	fn()
	return true
}
