package agent

import "encoding/json"

// SearchPayload is the data of a search response.
type SearchPayload struct {
	Products json.RawMessage
}

// OrdersPayload is the data of a show_orders response.
type OrdersPayload struct {
	Orders json.RawMessage
}

// AddToCartPayload is the data of an add_to_cart response.
type AddToCartPayload struct {
	Success bool
	Message string
}

// SummaryPayload carries the optional review statistics of a summarize
// response. The summary text itself is the top-level Response.Summary.
type SummaryPayload struct {
	OverallRating  float64 // zero when absent
	TotalReviews   string
	Recommendation string
}

// SpecValue is one feature cell of a compared product.
type SpecValue struct {
	Feature string
	Value   string // empty when the product lacks the feature
}

// ComparedProduct is one column of the comparison table.
type ComparedProduct struct {
	Key     string
	Name    string
	Price   string
	Specs   []SpecValue
	Ratings map[string]float64 // feature -> average rating, when reviewed
}

// Spec returns the product's value for feature.
func (p ComparedProduct) Spec(feature string) string {
	for _, s := range p.Specs {
		if s.Feature == feature {
			return s.Value
		}
	}
	return ""
}

// Verdict is the recommended product of a comparison.
type Verdict struct {
	Product string
	Reason  string
}

// ComparisonPayload is the data of a compare response.
type ComparisonPayload struct {
	Summary        string
	Products       []ComparedProduct // nil when the comparison table is absent
	Recommendation *Verdict
}

// Features lists the table rows: the feature keys of the first product in
// document order.
func (c ComparisonPayload) Features() []string {
	if len(c.Products) == 0 {
		return nil
	}
	out := make([]string, 0, len(c.Products[0].Specs))
	for _, s := range c.Products[0].Specs {
		out = append(out, s.Feature)
	}
	return out
}

// Score is one per-criterion score of a recommendation.
type Score struct {
	Criterion string
	Value     float64
}

// StorePrice is a nearby-store offer.
type StorePrice struct {
	Store    string
	Distance string
	Price    string
	Savings  float64
}

// Recommendation is one ranked card.
type Recommendation struct {
	Product      string
	OnlinePrice  string
	Scores       []Score
	OverallScore string
	StorePrices  []StorePrice
}

// BestChoice highlights the top recommendation.
type BestChoice struct {
	Product       string
	OverallScore  string
	Reasons       []string
	BestDealStore string // empty when no store deal
	Savings       string
}

// RecommendationPayload is the data of a recommend response.
type RecommendationPayload struct {
	Budget          string
	Priorities      []string
	Recommendations []Recommendation
	BestChoice      *BestChoice
}

func (r *Response) dataObject() object {
	if !r.HasData() {
		return nil
	}
	obj, _ := parseObject(r.Data)
	return obj
}

// SearchData decodes a search payload. ok is false unless data.products is
// present.
func (r *Response) SearchData() (SearchPayload, bool) {
	products, ok := r.dataObject().raw("products")
	if !ok {
		return SearchPayload{}, false
	}
	return SearchPayload{Products: products}, true
}

// OrdersData decodes a show_orders payload.
func (r *Response) OrdersData() (OrdersPayload, bool) {
	orders, ok := r.dataObject().raw("orders")
	if !ok {
		return OrdersPayload{}, false
	}
	return OrdersPayload{Orders: orders}, true
}

// AddToCartData decodes an add_to_cart payload. Success follows
// JavaScript truthiness of data.success.
func (r *Response) AddToCartData() AddToCartPayload {
	obj := r.dataObject()
	return AddToCartPayload{
		Success: obj.truthy("success"),
		Message: obj.str("message"),
	}
}

// SummaryData decodes the optional statistics of a summarize payload.
func (r *Response) SummaryData() SummaryPayload {
	obj := r.dataObject()
	var p SummaryPayload
	if rating, ok := obj.num("overall_rating"); ok {
		p.OverallRating = rating
	}
	p.TotalReviews, _ = obj.text("total_reviews")
	p.Recommendation, _ = obj.text("recommendation")
	return p
}

// ComparisonData decodes a compare payload. Sections that are missing or
// malformed are left empty.
func (r *Response) ComparisonData() ComparisonPayload {
	obj := r.dataObject()
	p := ComparisonPayload{Summary: obj.str("summary")}

	if table, ok := obj.obj("comparison"); ok {
		for _, f := range table {
			prod, ok := parseObject(f.value)
			if !ok {
				continue
			}
			p.Products = append(p.Products, decodeComparedProduct(f.key, prod))
		}
	}

	if rec, ok := obj.obj("recommendation"); ok {
		p.Recommendation = &Verdict{
			Product: rec.str("recommended_product"),
			Reason:  rec.str("reason"),
		}
	}
	return p
}

func decodeComparedProduct(key string, prod object) ComparedProduct {
	cp := ComparedProduct{Key: key, Name: prod.str("name"), Ratings: map[string]float64{}}
	cp.Price, _ = prod.text("price")

	if specs, ok := prod.obj("specs"); ok {
		for _, s := range specs {
			text, _ := scalarText(s.value)
			cp.Specs = append(cp.Specs, SpecValue{Feature: s.key, Value: text})
		}
	}
	if analysis, ok := prod.obj("review_analysis"); ok {
		for _, a := range analysis {
			fa, ok := parseObject(a.value)
			if !ok {
				continue
			}
			if avg, ok := fa.num("average_rating"); ok && avg != 0 {
				cp.Ratings[a.key] = avg
			}
		}
	}
	return cp
}

// RecommendationData decodes a recommend payload.
func (r *Response) RecommendationData() RecommendationPayload {
	obj := r.dataObject()
	p := RecommendationPayload{Priorities: obj.strings("priorities_analyzed")}
	p.Budget, _ = obj.text("budget")

	if recs, ok := obj.list("recommendations"); ok {
		for _, raw := range recs {
			rec, ok := parseObject(raw)
			if !ok {
				continue
			}
			p.Recommendations = append(p.Recommendations, decodeRecommendation(rec))
		}
	}

	if best, ok := obj.obj("best_choice"); ok {
		bc := &BestChoice{
			Product: best.str("product"),
			Reasons: best.strings("reasons"),
		}
		bc.OverallScore, _ = best.text("overall_score")
		bc.Savings, _ = best.text("savings")
		if deal, ok := best.obj("best_store_deal"); ok {
			bc.BestDealStore = deal.str("store")
		}
		p.BestChoice = bc
	}
	return p
}

func decodeRecommendation(rec object) Recommendation {
	out := Recommendation{Product: rec.str("product")}
	out.OnlinePrice, _ = rec.text("online_price")
	out.OverallScore, _ = rec.text("overall_score")

	if scores, ok := rec.obj("score"); ok {
		for _, s := range scores {
			var v float64
			if err := json.Unmarshal(s.value, &v); err != nil {
				continue
			}
			out.Scores = append(out.Scores, Score{Criterion: s.key, Value: v})
		}
	}

	if stores, ok := rec.list("store_prices"); ok {
		for _, raw := range stores {
			st, ok := parseObject(raw)
			if !ok {
				continue
			}
			sp := StorePrice{Store: st.str("store"), Distance: st.str("distance")}
			sp.Price, _ = st.text("price")
			sp.Savings, _ = st.num("savings")
			out.StorePrices = append(out.StorePrices, sp)
		}
	}
	return out
}
