// Package page models storefront locations and the work a page does when
// it loads.
package page

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/ashureev/shopagent/internal/agent"
	"github.com/ashureev/shopagent/internal/agentctx"
	"github.com/ashureev/shopagent/internal/handoff"
)

// Storefront pages.
const (
	Home     = "index.html"
	Products = "products.html"
	Product  = "product.html"
	Cart     = "cart.html"
	Orders   = "orders.html"
)

// URL builds "page?query" for nav. The query is omitted when there are no
// params; keys are sorted.
func URL(nav agent.Navigation) string {
	if len(nav.Params) == 0 {
		return nav.Page
	}
	q := url.Values{}
	for k, v := range nav.Params {
		q.Set(k, paramText(v))
	}
	return nav.Page + "?" + q.Encode()
}

func paramText(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case float64:
		return agent.FormatNumber(x)
	case bool:
		if x {
			return "true"
		}
		return "false"
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
}

// Location is a parsed page URL.
type Location struct {
	Page  string
	Query url.Values
}

// Parse splits raw into page and query. Leading slashes are dropped and an
// empty page means the home page.
func Parse(raw string) Location {
	u, err := url.Parse(raw)
	if err != nil {
		return Location{Page: strings.TrimLeft(raw, "/"), Query: url.Values{}}
	}
	p := strings.TrimLeft(u.Path, "/")
	if p == "" {
		p = Home
	}
	return Location{Page: p, Query: u.Query()}
}

// Name is the page stem used as current_page ("products", "home").
func (l Location) Name() string {
	if l.Page == Home {
		return "home"
	}
	return strings.TrimSuffix(l.Page, ".html")
}

// String renders the location back to a URL.
func (l Location) String() string {
	if len(l.Query) == 0 {
		return l.Page
	}
	return l.Page + "?" + l.Query.Encode()
}

// Navigator records page replacements for the host to apply once the
// current dispatch has finished.
type Navigator struct {
	mu      sync.Mutex
	pending string
	has     bool
}

// Navigate schedules a replace of the current page. A later call in the
// same dispatch overrides an earlier one.
func (n *Navigator) Navigate(nav agent.Navigation) {
	target := URL(nav)
	n.mu.Lock()
	n.pending, n.has = target, true
	n.mu.Unlock()
	slog.Debug("navigation scheduled", "url", target)
}

// TakePending returns and clears the scheduled location.
func (n *Navigator) TakePending() (string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	target, ok := n.pending, n.has
	n.pending, n.has = "", false
	return target, ok
}

// View is what a freshly loaded page shows.
type View struct {
	Location Location
	// Products or Orders hold the handoff slot pulled on load, if any.
	Products json.RawMessage
	Orders   json.RawMessage
}

// Loader runs the on-load hooks of a page.
type Loader struct {
	tracker agentctx.Updater
	hub     *handoff.Hub
}

// NewLoader creates a loader. Either argument may be nil.
func NewLoader(tracker agentctx.Updater, hub *handoff.Hub) *Loader {
	return &Loader{tracker: tracker, hub: hub}
}

// Load records the page in the context tracker and pulls the handoff slot
// the page consumes.
func (l *Loader) Load(ctx context.Context, raw string) (View, error) {
	loc := Parse(raw)
	v := View{Location: loc}

	if l.tracker != nil {
		l.tracker.Update(agentctx.KeyCurrentPage, loc.Name())
		if loc.Page == Product {
			if id := loc.Query.Get("id"); id != "" {
				l.tracker.Update(agentctx.KeyCurrentProductID, id)
			}
		}
	}

	if l.hub == nil {
		return v, nil
	}
	var err error
	switch loc.Page {
	case Products:
		v.Products, _, err = l.hub.Pull(ctx, handoff.TopicSearchResults)
	case Orders:
		v.Orders, _, err = l.hub.Pull(ctx, handoff.TopicOrderResults)
	}
	if err != nil {
		return v, fmt.Errorf("load %s: %w", loc.Page, err)
	}
	return v, nil
}
