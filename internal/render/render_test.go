package render

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/ashureev/shopagent/internal/agent"
	"github.com/ashureev/shopagent/internal/dispatch"
	"github.com/ashureev/shopagent/internal/handoff"
	"github.com/ashureev/shopagent/internal/store"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type refreshCounter struct{ n int }

func (r *refreshCounter) RefreshCart(context.Context) { r.n++ }

func setup() (*dispatch.Dispatcher, *handoff.Hub, *Recorder, *refreshCounter) {
	hub := handoff.NewHub(store.NewMemory())
	rec := &Recorder{}
	refresh := &refreshCounter{}
	r := &Renderer{Handoff: hub, Surface: rec, Cart: refresh}
	return dispatch.New(nil, nil, nil, r.Strategies()), hub, rec, refresh
}

func respond(t *testing.T, body string) *agent.Response {
	t.Helper()
	resp, err := agent.DecodeResponse([]byte(body))
	require.NoError(t, err)
	return resp
}

func TestSearchPublishesBothPaths(t *testing.T) {
	d, hub, _, _ := setup()
	ctx := context.Background()

	var pushed []handoff.Event
	defer hub.Subscribe(handoff.TopicSearchResults, func(ev handoff.Event) { pushed = append(pushed, ev) })()

	d.Dispatch(ctx, respond(t, `{"action":"search","data":{"products":[{"id":1,"name":"Pixel 7"}]}}`))

	require.Len(t, pushed, 1)
	slot, ok, err := hub.Pull(ctx, handoff.TopicSearchResults)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `[{"id":1,"name":"Pixel 7"}]`, string(slot))
}

func TestSearchWithoutProductsDoesNothing(t *testing.T) {
	d, hub, _, _ := setup()
	d.Dispatch(context.Background(), respond(t, `{"action":"search","data":{}}`))
	_, ok, _ := hub.Pull(context.Background(), handoff.TopicSearchResults)
	assert.False(t, ok)
}

func TestShowOrdersPublishes(t *testing.T) {
	d, hub, _, _ := setup()
	d.Dispatch(context.Background(), respond(t, `{"action":"show_orders","data":{"orders":[{"id":"ORD-7"}]}}`))
	slot, ok, _ := hub.Pull(context.Background(), handoff.TopicOrderResults)
	require.True(t, ok)
	assert.JSONEq(t, `[{"id":"ORD-7"}]`, string(slot))
}

func TestAddToCartRefreshesOnlyOnSuccess(t *testing.T) {
	d, _, _, refresh := setup()
	ctx := context.Background()
	d.Dispatch(ctx, respond(t, `{"action":"add_to_cart","data":{"success":false}}`))
	d.Dispatch(ctx, respond(t, `{"action":"add_to_cart"}`))
	assert.Zero(t, refresh.n)

	d.Dispatch(ctx, respond(t, `{"action":"add_to_cart","data":{"success":true}}`))
	assert.Equal(t, 1, refresh.n)
}

func TestAddToCartWithoutRefresherIsNoop(t *testing.T) {
	r := &Renderer{}
	d := dispatch.New(nil, nil, nil, r.Strategies())
	res := d.Dispatch(context.Background(), respond(t, `{"action":"add_to_cart","data":{"success":true}}`))
	assert.True(t, res.Rendered)
	assert.NoError(t, res.Err)
}

func TestSummarizeModal(t *testing.T) {
	d, _, rec, _ := setup()
	d.Dispatch(context.Background(), respond(t, `{
		"action":"summarize",
		"summary":"Great camera, average battery.",
		"data":{"overall_rating":4.26,"total_reviews":156,"recommendation":"Worth it for photographers"}
	}`))

	want := []Modal{{
		Kind:  ModalSummary,
		Title: "Review Summary",
		Blocks: []Block{
			{Kind: BlockText, Lines: []string{"Great camera, average battery."}},
			{Kind: BlockStats, Lines: []string{"Overall Rating: 4.3/5", "156 reviews"}},
			{Kind: BlockHighlight, Lines: []string{"Worth it for photographers"}},
		},
	}}
	if diff := cmp.Diff(want, rec.Modals()); diff != "" {
		t.Errorf("modal mismatch (-want +got):\n%s", diff)
	}
}

func TestSummarizeRequiresSummaryText(t *testing.T) {
	d, _, rec, _ := setup()
	d.Dispatch(context.Background(), respond(t, `{"action":"summarize","data":{"overall_rating":4}}`))
	assert.Empty(t, rec.Modals())
}

func TestCompareTable(t *testing.T) {
	d, _, rec, _ := setup()
	d.Dispatch(context.Background(), respond(t, `{
		"action":"compare",
		"data":{
			"summary":"Both are solid.\nPixel wins on camera.",
			"comparison":{
				"p1":{"name":"Pixel 7","price":49999,"specs":{"camera":"50MP","battery":"4355mAh"},
					"review_analysis":{"camera":{"average_rating":4.6}}},
				"p2":{"name":"iPhone 13","price":"59999","specs":{"camera":"12MP"},"review_analysis":{}}
			},
			"recommendation":{"recommended_product":"Pixel 7","reason":"Better value"}
		}
	}`))

	modals := rec.Modals()
	require.Len(t, modals, 1)
	m := modals[0]
	assert.Equal(t, "Product Comparison", m.Title)
	require.Len(t, m.Blocks, 3)

	assert.Equal(t, []string{"Both are solid.", "Pixel wins on camera."}, m.Blocks[0].Lines)

	table := m.Blocks[1]
	assert.Equal(t, []string{"Feature", "Pixel 7\n₹49999", "iPhone 13\n₹59999"}, table.Header)
	assert.Equal(t, [][]string{
		{"camera", "50MP\n⭐ 4.6/5", "12MP"},
		{"battery", "4355mAh", "N/A"},
	}, table.Rows)

	assert.Equal(t, Block{Kind: BlockHighlight, Title: "AI Recommendation", Lines: []string{"Pixel 7", "Better value"}}, m.Blocks[2])
}

func TestCompareWithoutTableRendersSummaryOnly(t *testing.T) {
	d, _, rec, _ := setup()
	res := d.Dispatch(context.Background(), respond(t, `{"action":"compare","data":{"summary":"Not enough data"}}`))
	require.NoError(t, res.Err)

	modals := rec.Modals()
	require.Len(t, modals, 1)
	require.Len(t, modals[0].Blocks, 1)
	assert.Equal(t, BlockText, modals[0].Blocks[0].Kind)
}

func TestRecommendModal(t *testing.T) {
	d, _, rec, _ := setup()
	d.Dispatch(context.Background(), respond(t, `{
		"action":"recommend",
		"data":{
			"budget":50000,
			"priorities_analyzed":["camera","battery"],
			"recommendations":[{
				"product":"Pixel 7","online_price":49999,
				"score":{"camera":92.46,"battery":80},
				"overall_score":86.2,
				"store_prices":[
					{"store":"Reliance Digital","distance":"2.1 km","price":48999,"savings":1000},
					{"store":"Croma","distance":"4 km","price":49999,"savings":0}
				]
			}],
			"best_choice":{"product":"Pixel 7","overall_score":86.2,"reasons":["great camera","in budget"],
				"best_store_deal":{"store":"Reliance Digital"},"savings":1000}
		}
	}`))

	modals := rec.Modals()
	require.Len(t, modals, 1)
	m := modals[0]
	require.Len(t, m.Blocks, 3)
	assert.Equal(t, []string{"Based on your budget of ₹50000 and priorities: camera, battery"}, m.Blocks[0].Lines)

	card := m.Blocks[1]
	assert.Equal(t, "1. Pixel 7", card.Title)
	assert.Equal(t, []string{
		"₹49999",
		"camera: 92.5/100",
		"battery: 80.0/100",
		"Overall Score: 86.2/100",
		"Available at nearby stores:",
		"  Reliance Digital (2.1 km)  ₹48999  Save ₹1000",
		"  Croma (4 km)  ₹49999",
	}, card.Lines)

	best := m.Blocks[2]
	assert.Equal(t, "🏆 Best Choice: Pixel 7", best.Title)
	assert.Equal(t, []string{"Score: 86.2/100", "Why: great camera, in budget", "Best deal at Reliance Digital - Save ₹1000"}, best.Lines)
}

func TestDrawIncludesTableCells(t *testing.T) {
	out := Draw(ComparisonModal(agent.ComparisonPayload{
		Summary: "summary",
		Products: []agent.ComparedProduct{
			{Name: "A", Price: "10", Specs: []agent.SpecValue{{Feature: "ram", Value: "8GB"}}},
		},
	}))
	for _, want := range []string{"Product Comparison", "Feature", "8GB", "₹10"} {
		assert.True(t, strings.Contains(out, want), "missing %q in\n%s", want, out)
	}
}

func TestRecorderDrain(t *testing.T) {
	rec := &Recorder{}
	rec.ShowModal(Modal{Title: "x"})
	assert.Len(t, rec.Drain(), 1)
	assert.Empty(t, rec.Drain())

	b, err := json.Marshal(Modal{Kind: ModalSummary, Title: "t", Blocks: []Block{{Kind: BlockText, Lines: []string{"l"}}}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"summary","title":"t","blocks":[{"kind":"text","lines":["l"]}]}`, string(b))
}
