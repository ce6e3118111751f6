// Package prefs persists user preferences.
package prefs

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ashureev/shopagent/internal/store"
)

// Prefs reads and writes preferences in a key-value store.
type Prefs struct {
	kv store.Store
}

// New creates preferences backed by kv.
func New(kv store.Store) *Prefs {
	return &Prefs{kv: kv}
}

// AgentMode reports whether agent mode is on. Either of the two legacy
// keys being "true" enables it. Read errors count as off.
func (p *Prefs) AgentMode(ctx context.Context) bool {
	for _, key := range []string{store.KeyAgentMode, store.KeyAIModeEnabled} {
		v, ok, err := p.kv.Get(ctx, key)
		if err == nil && ok && v == "true" {
			return true
		}
	}
	return false
}

// SetAgentMode writes the flag under both keys.
func (p *Prefs) SetAgentMode(ctx context.Context, on bool) error {
	v := strconv.FormatBool(on)
	for _, key := range []string{store.KeyAgentMode, store.KeyAIModeEnabled} {
		if err := p.kv.Set(ctx, key, v); err != nil {
			return fmt.Errorf("save %s: %w", key, err)
		}
	}
	return nil
}
