package render

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ashureev/shopagent/internal/agent"
	"github.com/ashureev/shopagent/internal/dispatch"
	"github.com/ashureev/shopagent/internal/handoff"
)

// Publisher hands results to the page that shows them.
type Publisher interface {
	Publish(ctx context.Context, topic string, detail json.RawMessage) error
}

// CartRefresher updates the host's cart indicator.
type CartRefresher interface {
	RefreshCart(ctx context.Context)
}

// Renderer holds what the strategies present to. Any field may be nil,
// in which case the strategies using it do nothing.
type Renderer struct {
	Handoff Publisher
	Surface Surface
	Cart    CartRefresher
	Logger  *slog.Logger
}

// Strategies returns the strategy table keyed by action tag.
func (r *Renderer) Strategies() map[agent.Action]dispatch.Strategy {
	return map[agent.Action]dispatch.Strategy{
		agent.ActionSearch:     dispatch.StrategyFunc(r.search),
		agent.ActionAddToCart:  dispatch.StrategyFunc(r.addToCart),
		agent.ActionSummarize:  dispatch.StrategyFunc(r.summarize),
		agent.ActionShowOrders: dispatch.StrategyFunc(r.showOrders),
		agent.ActionCompare:    dispatch.StrategyFunc(r.compare),
		agent.ActionRecommend:  dispatch.StrategyFunc(r.recommend),
	}
}

func (r *Renderer) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

func (r *Renderer) publish(ctx context.Context, topic string, detail json.RawMessage) {
	if r.Handoff == nil {
		return
	}
	if err := r.Handoff.Publish(ctx, topic, detail); err != nil {
		r.logger().Warn("handoff publish failed", "topic", topic, "error", err)
	}
}

func (r *Renderer) show(m Modal) {
	if r.Surface != nil {
		r.Surface.ShowModal(m)
	}
}

func (r *Renderer) search(ctx context.Context, resp *agent.Response) {
	if p, ok := resp.SearchData(); ok {
		r.publish(ctx, handoff.TopicSearchResults, p.Products)
	}
}

func (r *Renderer) showOrders(ctx context.Context, resp *agent.Response) {
	if p, ok := resp.OrdersData(); ok {
		r.publish(ctx, handoff.TopicOrderResults, p.Orders)
	}
}

func (r *Renderer) addToCart(ctx context.Context, resp *agent.Response) {
	if !resp.AddToCartData().Success || r.Cart == nil {
		return
	}
	r.Cart.RefreshCart(ctx)
}

func (r *Renderer) summarize(_ context.Context, resp *agent.Response) {
	if m, ok := SummaryModal(resp); ok {
		r.show(m)
	}
}

func (r *Renderer) compare(_ context.Context, resp *agent.Response) {
	if resp.HasData() {
		r.show(ComparisonModal(resp.ComparisonData()))
	}
}

func (r *Renderer) recommend(_ context.Context, resp *agent.Response) {
	if resp.HasData() {
		r.show(RecommendationModal(resp.RecommendationData()))
	}
}

// SummaryModal builds the review summary dialog. ok is false when the
// response has no summary text.
func SummaryModal(resp *agent.Response) (Modal, bool) {
	if resp.Summary == "" {
		return Modal{}, false
	}
	m := Modal{
		Kind:   ModalSummary,
		Title:  "Review Summary",
		Blocks: []Block{{Kind: BlockText, Lines: []string{resp.Summary}}},
	}

	data := resp.SummaryData()
	if data.OverallRating != 0 {
		stats := []string{fmt.Sprintf("Overall Rating: %.1f/5", data.OverallRating)}
		if data.TotalReviews != "" {
			stats = append(stats, data.TotalReviews+" reviews")
		}
		m.Blocks = append(m.Blocks, Block{Kind: BlockStats, Lines: stats})
	}
	if data.Recommendation != "" {
		m.Blocks = append(m.Blocks, Block{Kind: BlockHighlight, Lines: []string{data.Recommendation}})
	}
	return m, true
}

// ComparisonModal builds the side-by-side comparison dialog. The table is
// left out when the payload has no products.
func ComparisonModal(p agent.ComparisonPayload) Modal {
	m := Modal{Kind: ModalComparison, Title: "Product Comparison"}

	if p.Summary != "" {
		m.Blocks = append(m.Blocks, Block{Kind: BlockText, Lines: strings.Split(p.Summary, "\n")})
	}

	if len(p.Products) > 0 {
		table := Block{Kind: BlockTable, Header: []string{"Feature"}}
		for _, prod := range p.Products {
			table.Header = append(table.Header, prod.Name+"\n₹"+prod.Price)
		}
		for _, feature := range p.Features() {
			row := []string{feature}
			for _, prod := range p.Products {
				cell := prod.Spec(feature)
				if cell == "" {
					cell = "N/A"
				}
				if rating, ok := prod.Ratings[feature]; ok {
					cell += fmt.Sprintf("\n⭐ %.1f/5", rating)
				}
				row = append(row, cell)
			}
			table.Rows = append(table.Rows, row)
		}
		m.Blocks = append(m.Blocks, table)
	}

	if p.Recommendation != nil {
		m.Blocks = append(m.Blocks, Block{
			Kind:  BlockHighlight,
			Title: "AI Recommendation",
			Lines: []string{p.Recommendation.Product, p.Recommendation.Reason},
		})
	}
	return m
}

// RecommendationModal builds the ranked recommendations dialog.
func RecommendationModal(p agent.RecommendationPayload) Modal {
	m := Modal{Kind: ModalRecommendations, Title: "AI Recommendations"}

	m.Blocks = append(m.Blocks, Block{
		Kind: BlockText,
		Lines: []string{fmt.Sprintf("Based on your budget of ₹%s and priorities: %s",
			p.Budget, strings.Join(p.Priorities, ", "))},
	})

	for i, rec := range p.Recommendations {
		card := Block{
			Kind:  BlockCard,
			Title: fmt.Sprintf("%d. %s", i+1, rec.Product),
			Lines: []string{"₹" + rec.OnlinePrice},
		}
		for _, s := range rec.Scores {
			card.Lines = append(card.Lines, fmt.Sprintf("%s: %.1f/100", s.Criterion, s.Value))
		}
		card.Lines = append(card.Lines, "Overall Score: "+rec.OverallScore+"/100")
		if len(rec.StorePrices) > 0 {
			card.Lines = append(card.Lines, "Available at nearby stores:")
			for _, sp := range rec.StorePrices {
				line := fmt.Sprintf("  %s (%s)  ₹%s", sp.Store, sp.Distance, sp.Price)
				if sp.Savings > 0 {
					line += "  Save ₹" + agent.FormatNumber(sp.Savings)
				}
				card.Lines = append(card.Lines, line)
			}
		}
		m.Blocks = append(m.Blocks, card)
	}

	if best := p.BestChoice; best != nil {
		hl := Block{
			Kind:  BlockHighlight,
			Title: "🏆 Best Choice: " + best.Product,
			Lines: []string{
				"Score: " + best.OverallScore + "/100",
				"Why: " + strings.Join(best.Reasons, ", "),
			},
		}
		if best.BestDealStore != "" {
			hl.Lines = append(hl.Lines, fmt.Sprintf("Best deal at %s - Save ₹%s", best.BestDealStore, best.Savings))
		}
		m.Blocks = append(m.Blocks, hl)
	}
	return m
}
