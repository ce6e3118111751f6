package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ashureev/shopagent/internal/app"
	"github.com/ashureev/shopagent/internal/overlay"
	"github.com/ashureev/shopagent/internal/render"
	"github.com/ashureev/shopagent/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestREPL(t *testing.T, reply string) (*repl, *bytes.Buffer) {
	t.Helper()
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(backend.Close)

	var out bytes.Buffer
	host := &terminalHost{
		Layer:           overlay.NewLayer(overlay.NewTerminalSink(&out), overlay.DefaultConfig()),
		TerminalSurface: render.NewTerminalSurface(&out),
		out:             &out,
	}
	a, err := app.New(context.Background(), app.Deps{DeviceKV: store.NewMemory(), APIBase: backend.URL, Host: host})
	require.NoError(t, err)
	return &repl{app: a, out: &out, current: "index.html"}, &out
}

func TestREPLAddAndShowCart(t *testing.T) {
	r, out := newTestREPL(t, `{}`)
	ctx := context.Background()

	assert.False(t, r.handle(ctx, "/add 13 59999 iPhone 13"))
	assert.Contains(t, out.String(), "iPhone 13 added to cart!")
	assert.Contains(t, out.String(), "🛒 Cart: 1")

	out.Reset()
	r.handle(ctx, "/cart")
	assert.Contains(t, out.String(), "iPhone 13")
	assert.Contains(t, out.String(), "1 items, ₹59999")

	assert.True(t, r.handle(ctx, "/quit"))
}

func TestREPLFollowsNavigation(t *testing.T) {
	r, out := newTestREPL(t, `{
		"navigation":{"page":"products.html","params":{"search":"phone"}},
		"action":"search",
		"data":{"products":[{"id":1,"name":"Pixel 7","price":49999}]}
	}`)

	r.handle(context.Background(), "show me phones")
	assert.Equal(t, "products.html?search=phone", r.current)
	assert.Contains(t, out.String(), "Processing your request...")
	assert.Contains(t, out.String(), "Search results (1)")
	assert.Contains(t, out.String(), "Pixel 7  ₹49999")
	assert.Equal(t, "products › ", r.prompt())
}

func TestREPLRejectsBadInput(t *testing.T) {
	r, out := newTestREPL(t, `{}`)
	ctx := context.Background()

	r.handle(ctx, "/add 1 cheap thing")
	assert.Contains(t, out.String(), `invalid price "cheap"`)

	r.handle(ctx, "/mode maybe")
	assert.Contains(t, out.String(), "usage: /mode on|off")

	r.handle(ctx, "/dance")
	assert.Contains(t, out.String(), "unknown command /dance")
}
