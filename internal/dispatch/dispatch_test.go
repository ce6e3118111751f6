package dispatch

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/ashureev/shopagent/internal/agent"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// journal records every effect in order, plus each suggestion list shown.
type journal struct {
	calls       []string
	suggestions [][]string
}

func (j *journal) Navigate(nav agent.Navigation) { j.calls = append(j.calls, "navigate:"+nav.Page) }
func (j *journal) Notify(text string) { j.calls = append(j.calls, "notify:"+text) }
func (j *journal) ShowSuggestions(items []string) {
	j.calls = append(j.calls, "suggest:"+strings.Join(items, "|"))
	j.suggestions = append(j.suggestions, append([]string(nil), items...))
}

func (j *journal) strategy(tag string) Strategy {
	return StrategyFunc(func(context.Context, *agent.Response) { j.calls = append(j.calls, "render:"+tag) })
}

func newJournaled() (*Dispatcher, *journal) {
	j := &journal{}
	strategies := map[agent.Action]Strategy{}
	for _, tag := range []agent.Action{agent.ActionSearch, agent.ActionAddToCart, agent.ActionSummarize,
		agent.ActionShowOrders, agent.ActionCompare, agent.ActionRecommend} {
		strategies[tag] = j.strategy(string(tag))
	}
	return New(j, j, j, strategies), j
}

func TestDispatchFixedOrder(t *testing.T) {
	d, j := newJournaled()

	res := d.Dispatch(context.Background(), &agent.Response{
		Navigation:  &agent.Navigation{Page: "products.html", Params: map[string]any{"search": "phone"}},
		Message:     "Found 3 phones",
		Action:      agent.ActionSearch,
		Data:        json.RawMessage(`{"products":[]}`),
		Suggestions: []string{"Compare them"},
	})

	want := []string{"navigate:products.html", "notify:Found 3 phones", "render:search", "suggest:Compare them"}
	if diff := cmp.Diff(want, j.calls); diff != "" {
		t.Errorf("effects mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, res.Navigated && res.Notified && res.Rendered && res.Suggested)
	assert.NoError(t, res.Err)
}

func TestDispatchEmptyResponseIsNoop(t *testing.T) {
	d, j := newJournaled()
	res := d.Dispatch(context.Background(), &agent.Response{})
	assert.Empty(t, j.calls)
	assert.False(t, res.Rendered)

	assert.Equal(t, Result{}, d.Dispatch(context.Background(), nil))
}

func TestDispatchUnknownActionStillNotifies(t *testing.T) {
	d, j := newJournaled()
	d.Dispatch(context.Background(), agent.Fallback())
	assert.Equal(t, []string{"notify:" + agent.FallbackMessage}, j.calls)
}

func TestDispatchUnrecognizedTagIsIgnored(t *testing.T) {
	d, j := newJournaled()
	res := d.Dispatch(context.Background(), &agent.Response{Action: "dance", Message: "ok"})
	assert.Equal(t, []string{"notify:ok"}, j.calls)
	assert.False(t, res.Rendered)
}

func TestDispatchMessageAndSuggestionsOnly(t *testing.T) {
	d, j := newJournaled()
	res := d.Dispatch(context.Background(), &agent.Response{Message: "X", Suggestions: []string{"a", "b"}})

	if diff := cmp.Diff([]string{"notify:X", "suggest:a|b"}, j.calls); diff != "" {
		t.Errorf("effects mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([][]string{{"a", "b"}}, j.suggestions); diff != "" {
		t.Errorf("suggestions mismatch (-want +got):\n%s", diff)
	}
	assert.False(t, res.Navigated)
	assert.False(t, res.Rendered)
	assert.True(t, res.Notified && res.Suggested)
}

func TestDispatchNavigationOnly(t *testing.T) {
	d, j := newJournaled()
	d.Dispatch(context.Background(), &agent.Response{Action: agent.ActionNavigate, Navigation: &agent.Navigation{Page: "orders.html"}})
	assert.Equal(t, []string{"navigate:orders.html"}, j.calls)
}

func TestPanickingStrategyDoesNotStopSuggestions(t *testing.T) {
	j := &journal{}
	d := New(j, j, j, map[agent.Action]Strategy{
		agent.ActionCompare: StrategyFunc(func(context.Context, *agent.Response) { panic("bad table") }),
	})

	res := d.Dispatch(context.Background(), &agent.Response{
		Action:      agent.ActionCompare,
		Message:     "Here is the comparison",
		Suggestions: []string{"Which is cheaper?"},
	})

	assert.Equal(t, []string{"notify:Here is the comparison", "suggest:Which is cheaper?"}, j.calls)
	assert.False(t, res.Rendered)
	assert.True(t, res.Suggested)
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "bad table")
}

func TestStaleResponsesAreDropped(t *testing.T) {
	d, j := newJournaled()
	ctx := context.Background()

	assert.False(t, d.Dispatch(ctx, &agent.Response{Seq: 2, Message: "second"}).Stale)
	assert.True(t, d.Dispatch(ctx, &agent.Response{Seq: 1, Message: "first"}).Stale)
	assert.False(t, d.Dispatch(ctx, &agent.Response{Seq: 3, Message: "third"}).Stale)
	assert.False(t, d.Dispatch(ctx, &agent.Response{Message: "unsequenced"}).Stale)

	assert.Equal(t, []string{"notify:second", "notify:third", "notify:unsequenced"}, j.calls)
}

func TestNilCollaboratorsSkipSteps(t *testing.T) {
	d := New(nil, nil, nil, nil)
	res := d.Dispatch(context.Background(), &agent.Response{
		Navigation:  &agent.Navigation{Page: "cart.html"},
		Message:     "hi",
		Action:      agent.ActionSearch,
		Suggestions: []string{"x"},
	})
	assert.False(t, res.Navigated || res.Notified || res.Rendered || res.Suggested)
}
