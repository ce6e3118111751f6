// Package store provides the persisted key-value layer that stands in for
// browser storage, with memory, SQLite and Redis implementations.
package store

import (
	"context"
	"errors"
)

// Keys shared by the storefront components.
const (
	KeyCartData      = "cartData"
	KeyCartCount     = "cartCount"
	KeyAgentMode     = "agentMode"
	KeyAIModeEnabled = "aiModeEnabled"
	KeySearchResults = "aiSearchResults"
	KeyOrderResults  = "aiOrderResults"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store closed")

// Store is a string key-value store with get/set/remove semantics.
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set writes value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error

	// Ping verifies backend connectivity.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}

type prefixed struct {
	Store
	prefix string
}

// WithPrefix namespaces every key of s under prefix. Closing the returned
// store is a no-op so per-device views can share one backend.
func WithPrefix(s Store, prefix string) Store {
	if prefix == "" {
		return s
	}
	return &prefixed{Store: s, prefix: prefix}
}

func (p *prefixed) Get(ctx context.Context, key string) (string, bool, error) {
	return p.Store.Get(ctx, p.prefix+key)
}

func (p *prefixed) Set(ctx context.Context, key, value string) error {
	return p.Store.Set(ctx, p.prefix+key, value)
}

func (p *prefixed) Remove(ctx context.Context, key string) error {
	return p.Store.Remove(ctx, p.prefix+key)
}

func (p *prefixed) Close() error { return nil }
