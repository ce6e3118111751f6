// Package cart implements the persisted shopping cart.
//
// The cart lives in the device's key-value store under cartData, with a
// redundant string count under cartCount for pages that only show the
// badge. Malformed persisted data reads as an empty cart.
package cart

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/ashureev/shopagent/internal/agentctx"
	"github.com/ashureev/shopagent/internal/store"
)

// ProductID identifies a catalog product. The catalog uses numeric ids but
// the agent backend exchanges them as strings, so both JSON forms decode.
type ProductID string

// UnmarshalJSON accepts a JSON string or number.
func (p *ProductID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*p = ProductID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("product id: %w", err)
	}
	*p = ProductID(n.String())
	return nil
}

// MarshalJSON writes canonical integer ids as numbers, matching the catalog
// format. Anything else, "007" or "+5" included, stays a string.
func (p ProductID) MarshalJSON() ([]byte, error) {
	if n, err := strconv.ParseInt(string(p), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(p) {
		return []byte(p), nil
	}
	return json.Marshal(string(p))
}

// Item is one cart line.
type Item struct {
	ID       ProductID `json:"id"`
	Name     string    `json:"name"`
	Price    float64   `json:"price"`
	Quantity int       `json:"quantity"`
}

// Cart is the persisted cart document. Count always equals the sum of
// item quantities.
type Cart struct {
	Items []Item `json:"items"`
	Count int    `json:"count"`
}

func emptyCart() Cart {
	return Cart{Items: []Item{}, Count: 0}
}

func (c *Cart) recount() {
	n := 0
	for _, it := range c.Items {
		n += it.Quantity
	}
	c.Count = n
}

func (c Cart) clone() Cart {
	out := Cart{Items: make([]Item, len(c.Items)), Count: c.Count}
	copy(out.Items, c.Items)
	return out
}

// Store reads and writes the cart through a key-value backend.
type Store struct {
	kv      store.Store
	tracker agentctx.Updater
	mu      sync.Locker
}

// Option configures a Store.
type Option func(*Store)

// WithLock makes the store serialize on mu instead of a private mutex.
// Stores that share one key space must share one lock, otherwise their
// read-modify-write cycles interleave and lose updates.
func WithLock(mu sync.Locker) Option {
	return func(s *Store) {
		if mu != nil {
			s.mu = mu
		}
	}
}

// NewStore creates a cart store. tracker may be nil; when set, every
// mutation pushes the current item ids under cart_items.
func NewStore(kv store.Store, tracker agentctx.Updater, opts ...Option) *Store {
	s := &Store{kv: kv, tracker: tracker, mu: &sync.Mutex{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Locks hands out one mutex per key, typically a device id, so every tab of
// a device writes its cart under the same lock.
type Locks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewLocks creates an empty lock table.
func NewLocks() *Locks {
	return &Locks{locks: make(map[string]*sync.Mutex)}
}

// For returns the mutex for key, creating it on first use.
func (l *Locks) For(key string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	return m
}

// Load returns the persisted cart, or an empty cart when nothing usable
// is stored.
func (s *Store) Load(ctx context.Context) Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx)
}

func (s *Store) loadLocked(ctx context.Context) Cart {
	raw, ok, err := s.kv.Get(ctx, store.KeyCartData)
	if err != nil {
		slog.Warn("cart: read failed, using empty cart", "error", err)
		return emptyCart()
	}
	if !ok {
		return emptyCart()
	}

	var c Cart
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		slog.Warn("cart: malformed persisted cart, using empty cart", "error", err)
		return emptyCart()
	}
	if c.Items == nil {
		c.Items = []Item{}
	}
	c.recount()
	return c
}

// saveLocked persists the cart document. The cartCount mirror is written
// best-effort: a failure there is logged and the mirror may lag until the
// next successful save, but cartData stays authoritative and Load recounts.
func (s *Store) saveLocked(ctx context.Context, c Cart) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}
	if err := s.kv.Set(ctx, store.KeyCartData, string(data)); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	if err := s.kv.Set(ctx, store.KeyCartCount, strconv.Itoa(c.Count)); err != nil {
		slog.Warn("cart: count mirror write failed", "count", c.Count, "error", err)
	}
	return nil
}

// AddItem adds one unit of a product. An existing line keeps its original
// name and price and has its quantity incremented.
func (s *Store) AddItem(ctx context.Context, id ProductID, name string, price float64) (Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.loadLocked(ctx)

	found := false
	for i := range c.Items {
		if c.Items[i].ID == id {
			c.Items[i].Quantity++
			found = true
			break
		}
	}
	if !found {
		c.Items = append(c.Items, Item{ID: id, Name: name, Price: price, Quantity: 1})
	}
	c.recount()

	if err := s.saveLocked(ctx, c); err != nil {
		return c.clone(), err
	}
	s.notify(c)
	return c.clone(), nil
}

// Items returns the cart lines in insertion order.
func (s *Store) Items(ctx context.Context) []Item {
	return s.Load(ctx).Items
}

// ItemIDs returns the stringified ids of every cart line.
func (s *Store) ItemIDs(ctx context.Context) []string {
	return itemIDs(s.Load(ctx))
}

// Count returns the total quantity in the cart.
func (s *Store) Count(ctx context.Context) int {
	return s.Load(ctx).Count
}

// Clear empties the cart and persists the empty document.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := emptyCart()
	if err := s.saveLocked(ctx, c); err != nil {
		return err
	}
	s.notify(c)
	return nil
}

func (s *Store) notify(c Cart) {
	if s.tracker == nil {
		return
	}
	s.tracker.Update(agentctx.KeyCartItems, itemIDs(c))
}

func itemIDs(c Cart) []string {
	ids := make([]string, 0, len(c.Items))
	for _, it := range c.Items {
		ids = append(ids, string(it.ID))
	}
	return ids
}
