// Package app wires the storefront agent for one browsing context (a tab).
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/ashureev/shopagent/internal/agent"
	"github.com/ashureev/shopagent/internal/agentctx"
	"github.com/ashureev/shopagent/internal/cart"
	"github.com/ashureev/shopagent/internal/dispatch"
	"github.com/ashureev/shopagent/internal/handoff"
	"github.com/ashureev/shopagent/internal/metrics"
	"github.com/ashureev/shopagent/internal/page"
	"github.com/ashureev/shopagent/internal/prefs"
	"github.com/ashureev/shopagent/internal/render"
	"github.com/ashureev/shopagent/internal/store"
)

// User-facing notices.
const (
	ProcessingNotice   = "Processing your request..."
	ActivatedNotice    = "AI Agent Mode Activated! Getting smart recommendations..."
	DeactivatedNotice  = "AI Agent Mode Deactivated"
	MultiItemTipNotice = `💡 You have multiple items in cart. Try: "Compare phones in my cart"`
)

// DefaultSuggestionLimit is how many suggestions agent-mode activation shows.
const DefaultSuggestionLimit = 4

// Host presents an App's effects.
type Host interface {
	dispatch.Notifier
	dispatch.SuggestionDisplay
	render.Surface
}

// CartBadge is implemented by hosts that display the cart count.
type CartBadge interface {
	ShowCartCount(n int)
}

// Deps are the collaborators of an App.
type Deps struct {
	// DeviceKV persists the cart and preferences across tabs.
	DeviceKV store.Store
	// TabKV holds the handoff slots of this tab. Defaults to DeviceKV.
	TabKV store.Store
	// CartLock serializes cart writes across every App sharing DeviceKV.
	// Defaults to a lock private to this App.
	CartLock sync.Locker

	APIBase         string
	HTTPClient      *http.Client
	SessionID       string
	SuggestionLimit int
	Host            Host
	Logger          *slog.Logger
}

// App is one agent instance. All state is owned here and reached through
// the App; nothing is global.
type App struct {
	Tracker    *agentctx.Tracker
	Cart       *cart.Store
	Prefs      *prefs.Prefs
	Channel    *agent.Channel
	Hub        *handoff.Hub
	Navigator  *page.Navigator
	Loader     *page.Loader
	Dispatcher *dispatch.Dispatcher

	host   Host
	limit  int
	logger *slog.Logger
}

// New builds an App from deps.
func New(ctx context.Context, d Deps) (*App, error) {
	if d.DeviceKV == nil {
		return nil, fmt.Errorf("app: device store is required")
	}
	if d.Host == nil {
		return nil, fmt.Errorf("app: host is required")
	}
	if d.TabKV == nil {
		d.TabKV = d.DeviceKV
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.SuggestionLimit <= 0 {
		d.SuggestionLimit = DefaultSuggestionLimit
	}

	a := &App{
		Tracker:   agentctx.NewTracker(),
		Prefs:     prefs.New(d.DeviceKV),
		Hub:       handoff.NewHub(d.TabKV),
		Navigator: &page.Navigator{},
		host:      d.Host,
		limit:     d.SuggestionLimit,
		logger:    d.Logger,
	}
	a.Cart = cart.NewStore(d.DeviceKV, a.Tracker, cart.WithLock(d.CartLock))
	a.Loader = page.NewLoader(a.Tracker, a.Hub)

	opts := []agent.Option{agent.WithLogger(d.Logger)}
	if d.HTTPClient != nil {
		opts = append(opts, agent.WithHTTPClient(d.HTTPClient))
	}
	if d.SessionID != "" {
		opts = append(opts, agent.WithSessionID(d.SessionID))
	}
	a.Channel = agent.NewChannel(d.APIBase, a.Tracker, opts...)

	r := &render.Renderer{Handoff: a.Hub, Surface: d.Host, Cart: a, Logger: d.Logger}
	a.Dispatcher = dispatch.New(a.Navigator, d.Host, d.Host, r.Strategies(), dispatch.WithLogger(d.Logger))

	if ids := a.Cart.ItemIDs(ctx); len(ids) > 0 {
		a.Tracker.Update(agentctx.KeyCartItems, ids)
	}
	return a, nil
}

// Submit sends a user command and applies the reply.
func (a *App) Submit(ctx context.Context, text string) dispatch.Result {
	a.host.Notify(ProcessingNotice)
	return a.Dispatch(ctx, a.Channel.SendCommand(ctx, text))
}

// Dispatch applies a response to this App.
func (a *App) Dispatch(ctx context.Context, resp *agent.Response) dispatch.Result {
	res := a.Dispatcher.Dispatch(ctx, resp)
	a.logger.Debug("agent response dispatched",
		"session_id", a.Channel.SessionID(),
		"seq", res.Seq,
		"action", res.Action,
		"stale", res.Stale,
	)
	return res
}

// AddToCart adds a product from a page's add button.
func (a *App) AddToCart(ctx context.Context, id cart.ProductID, name string, price float64) (cart.Cart, error) {
	c, err := a.Cart.AddItem(ctx, id, name, price)
	if err != nil {
		a.logger.Error("failed to persist cart", "error", err, "product_id", id)
	}
	metrics.RecordCartAdd()

	a.host.Notify(name + " added to cart!")
	a.showCount(c.Count)

	if len(c.Items) >= 2 && a.Prefs.AgentMode(ctx) {
		a.host.Notify(MultiItemTipNotice)
	}
	return c, err
}

// RefreshCart re-reads the cart and updates the host's badge.
func (a *App) RefreshCart(ctx context.Context) {
	a.showCount(a.Cart.Count(ctx))
}

func (a *App) showCount(n int) {
	if badge, ok := a.host.(CartBadge); ok {
		badge.ShowCartCount(n)
	}
}

// AgentMode reports whether agent mode is on.
func (a *App) AgentMode(ctx context.Context) bool {
	return a.Prefs.AgentMode(ctx)
}

// SetAgentMode toggles agent mode. Turning it on fetches and shows
// example commands; a failed fetch is logged and otherwise ignored.
func (a *App) SetAgentMode(ctx context.Context, on bool) error {
	if err := a.Prefs.SetAgentMode(ctx, on); err != nil {
		return err
	}
	if !on {
		a.host.Notify(DeactivatedNotice)
		return nil
	}

	a.host.Notify(ActivatedNotice)
	items, err := a.Channel.Suggestions(ctx, a.limit)
	if err != nil {
		a.logger.Warn("failed to load suggestions", "error", err)
		return nil
	}
	if len(items) > 0 {
		a.host.ShowSuggestions(items)
	}
	return nil
}

// Open loads a page and runs its on-load hooks.
func (a *App) Open(ctx context.Context, rawURL string) (page.View, error) {
	return a.Loader.Load(ctx, rawURL)
}

// FollowNavigation loads the page scheduled by the last dispatch, if any.
func (a *App) FollowNavigation(ctx context.Context) (page.View, bool, error) {
	target, ok := a.Navigator.TakePending()
	if !ok {
		return page.View{}, false, nil
	}
	v, err := a.Open(ctx, target)
	return v, true, err
}
