package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ashureev/shopagent/internal/agent"
	"github.com/ashureev/shopagent/internal/agentctx"
	"github.com/ashureev/shopagent/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAgent serves canned replies and records the last command body.
type fakeAgent struct {
	mu          sync.Mutex
	reply       string
	suggestions []string
	last        agent.CommandRequest
}

func (f *fakeAgent) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /command", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		_ = json.NewDecoder(r.Body).Decode(&f.last)
		_, _ = w.Write([]byte(f.reply))
	})
	mux.HandleFunc("GET /suggestions", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"suggestions": f.suggestions})
	})
	return mux
}

func newTestApp(t *testing.T, fa *fakeAgent) (*App, *PlanHost) {
	t.Helper()
	srv := httptest.NewServer(fa.handler())
	t.Cleanup(srv.Close)

	host := &PlanHost{}
	a, err := New(context.Background(), Deps{
		DeviceKV: store.NewMemory(),
		APIBase:  srv.URL,
		Host:     host,
	})
	require.NoError(t, err)
	return a, host
}

func TestSubmitSearchNavigatesAndHandsOff(t *testing.T) {
	ctx := context.Background()
	fa := &fakeAgent{reply: `{
		"navigation":{"page":"products.html","params":{"search":"phone"}},
		"message":"Found 2 phones",
		"action":"search",
		"data":{"products":[{"id":1},{"id":2}]},
		"suggestions":["Compare them"]
	}`}
	a, host := newTestApp(t, fa)

	res := a.Submit(ctx, "show me phones")
	assert.True(t, res.Navigated && res.Rendered && res.Suggested)

	eff := host.Drain()
	assert.Equal(t, []string{ProcessingNotice, "Found 2 phones"}, eff.Notifications)
	assert.Equal(t, []string{"Compare them"}, eff.Suggestions)

	v, ok, err := a.FollowNavigation(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "products.html", v.Location.Page)
	assert.JSONEq(t, `[{"id":1},{"id":2}]`, string(v.Products))

	page, _ := a.Tracker.Get(agentctx.KeyCurrentPage)
	assert.Equal(t, "products", page)
}

func TestSubmitFallbackOnBackendFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	host := &PlanHost{}
	a, err := New(context.Background(), Deps{DeviceKV: store.NewMemory(), APIBase: srv.URL, Host: host})
	require.NoError(t, err)

	res := a.Submit(context.Background(), "anything")
	assert.Equal(t, agent.ActionUnknown, res.Action)
	assert.Equal(t, []string{ProcessingNotice, agent.FallbackMessage}, host.Drain().Notifications)
}

func TestCartContextTravelsWithCommands(t *testing.T) {
	ctx := context.Background()
	fa := &fakeAgent{reply: `{}`}
	a, _ := newTestApp(t, fa)

	_, err := a.AddToCart(ctx, "13", "iPhone 13", 59999)
	require.NoError(t, err)
	_, err = a.Open(ctx, "product.html?id=7")
	require.NoError(t, err)

	a.Submit(ctx, "compare phones in my cart")

	fa.mu.Lock()
	defer fa.mu.Unlock()
	assert.Equal(t, "compare phones in my cart", fa.last.Command)
	assert.Equal(t, []any{"13"}, fa.last.Context[agentctx.KeyCartItems])
	assert.Equal(t, "7", fa.last.Context[agentctx.KeyCurrentProductID])
	assert.Equal(t, a.Channel.SessionID(), fa.last.SessionID)
}

func TestAddToCartNoticesAndTip(t *testing.T) {
	ctx := context.Background()
	a, host := newTestApp(t, &fakeAgent{})

	_, err := a.AddToCart(ctx, "1", "Pixel 7", 49999)
	require.NoError(t, err)
	eff := host.Drain()
	assert.Equal(t, []string{"Pixel 7 added to cart!"}, eff.Notifications)
	require.NotNil(t, eff.CartCount)
	assert.Equal(t, 1, *eff.CartCount)

	// Second distinct item without agent mode: no tip.
	_, err = a.AddToCart(ctx, "2", "iPhone 13", 59999)
	require.NoError(t, err)
	assert.Equal(t, []string{"iPhone 13 added to cart!"}, host.Drain().Notifications)

	require.NoError(t, a.Prefs.SetAgentMode(ctx, true))
	c, err := a.AddToCart(ctx, "2", "iPhone 13", 59999)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Count)
	assert.Equal(t, []string{"iPhone 13 added to cart!", MultiItemTipNotice}, host.Drain().Notifications)
}

func TestSetAgentModeShowsSuggestions(t *testing.T) {
	ctx := context.Background()
	fa := &fakeAgent{suggestions: []string{"a", "b", "c", "d", "e", "f"}}
	a, host := newTestApp(t, fa)

	require.NoError(t, a.SetAgentMode(ctx, true))
	eff := host.Drain()
	assert.Equal(t, []string{ActivatedNotice}, eff.Notifications)
	assert.Equal(t, []string{"a", "b", "c", "d"}, eff.Suggestions)
	assert.True(t, a.AgentMode(ctx))

	require.NoError(t, a.SetAgentMode(ctx, false))
	eff = host.Drain()
	assert.Equal(t, []string{DeactivatedNotice}, eff.Notifications)
	assert.Empty(t, eff.Suggestions)
}

func TestAddToCartActionRefreshesBadge(t *testing.T) {
	ctx := context.Background()
	a, host := newTestApp(t, &fakeAgent{reply: `{"action":"add_to_cart","data":{"success":true},"message":"Added"}`})
	_, err := a.Cart.AddItem(ctx, "5", "Galaxy S23", 74999)
	require.NoError(t, err)

	a.Submit(ctx, "add galaxy to cart")
	eff := host.Drain()
	require.NotNil(t, eff.CartCount)
	assert.Equal(t, 1, *eff.CartCount)
}

func TestNewRequiresStoreAndHost(t *testing.T) {
	_, err := New(context.Background(), Deps{Host: &PlanHost{}})
	assert.Error(t, err)
	_, err = New(context.Background(), Deps{DeviceKV: store.NewMemory()})
	assert.Error(t, err)
}

func TestRegistryReusesAndSweeps(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	built := 0
	reg := NewRegistry(func(ctx context.Context, device, tab string, host Host) (*App, error) {
		built++
		return New(ctx, Deps{
			DeviceKV: store.WithPrefix(kv, device+":"),
			TabKV:    store.WithPrefix(kv, device+":"+tab+":"),
			APIBase:  "http://127.0.0.1:0",
			Host:     host,
		})
	})

	s1, err := reg.Get(ctx, "dev", "tab-1")
	require.NoError(t, err)
	s2, err := reg.Get(ctx, "dev", "tab-1")
	require.NoError(t, err)
	assert.Same(t, s1, s2)

	_, err = reg.Get(ctx, "dev", "tab-2")
	require.NoError(t, err)
	assert.Equal(t, 2, built)

	var evicted []string
	reg.OnEvict(func(s *Session) { evicted = append(evicted, s.Tab) })

	assert.Zero(t, reg.Sweep(time.Hour))
	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, 2, reg.Sweep(time.Millisecond))
	assert.ElementsMatch(t, []string{"tab-1", "tab-2"}, evicted)
	assert.Zero(t, reg.Len())
}

func TestSessionApplyCollectsNavigation(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(func(ctx context.Context, _, _ string, host Host) (*App, error) {
		return New(ctx, Deps{DeviceKV: store.NewMemory(), APIBase: "http://127.0.0.1:0", Host: host})
	})
	s, err := reg.Get(ctx, "dev", "tab")
	require.NoError(t, err)

	eff := s.Apply(func(a *App) {
		a.Dispatch(ctx, &agent.Response{
			Navigation: &agent.Navigation{Page: "orders.html"},
			Message:    "Here are your orders",
		})
	})
	assert.Equal(t, "orders.html", eff.Navigate)
	assert.Equal(t, []string{"Here are your orders"}, eff.Notifications)

	assert.Equal(t, Effects{}, s.Apply(func(*App) {}))
}

func TestSweepSkipsHeldSessions(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(func(ctx context.Context, _, _ string, host Host) (*App, error) {
		return New(ctx, Deps{DeviceKV: store.NewMemory(), APIBase: "http://127.0.0.1:0", Host: host})
	})
	s, err := reg.Get(ctx, "dev", "tab")
	require.NoError(t, err)

	release := s.Hold()
	time.Sleep(5 * time.Millisecond)
	assert.Zero(t, reg.Sweep(time.Millisecond), "held session swept")
	assert.Equal(t, 1, reg.Len())

	release()
	release()
	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, 1, reg.Sweep(time.Millisecond))
	assert.Zero(t, reg.Len())
}

func TestAppsSharingCartLockDoNotLoseAdds(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	var lock sync.Mutex

	newTab := func() *App {
		a, err := New(ctx, Deps{
			DeviceKV: kv,
			CartLock: &lock,
			APIBase:  "http://127.0.0.1:0",
			Host:     &PlanHost{},
		})
		require.NoError(t, err)
		return a
	}
	tabs := []*App{newTab(), newTab()}

	const perTab = 25
	var wg sync.WaitGroup
	for _, a := range tabs {
		for i := 0; i < perTab; i++ {
			wg.Add(1)
			go func(a *App) {
				defer wg.Done()
				_, err := a.Cart.AddItem(ctx, "13", "iPhone 13", 45999)
				assert.NoError(t, err)
			}(a)
		}
	}
	wg.Wait()

	assert.Equal(t, 2*perTab, tabs[1].Cart.Count(ctx))
}
