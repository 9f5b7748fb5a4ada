// Package ranking scores candidate products on text relevance and business
// signals and orders them by the combined score.
package ranking

import (
	"math"
	"sort"
	"time"

	"github.com/Sumit-Saurabh98/indexsearch/internal/domain"
)

// Factor names, also used as keys in RankedProduct.FactorScores.
const (
	FactorTextRelevance        = "textRelevance"
	FactorRating               = "rating"
	FactorSalesPopularity      = "salesPopularity"
	FactorStockAvailability    = "stockAvailability"
	FactorPriceCompetitiveness = "priceCompetitiveness"
	FactorRecency              = "recency"
	FactorReturnRate           = "returnRate"
	FactorComplaintsRate       = "complaintsRate"
)

// Weight pairs a factor with its weight. Negative weights are penalties and
// contribute weight*(1-score).
type Weight struct {
	Factor string
	Value  float64
}

// DefaultWeights returns the production weight table in evaluation order.
func DefaultWeights() []Weight {
	return []Weight{
		{FactorTextRelevance, 0.50},
		{FactorRating, 0.20},
		{FactorSalesPopularity, 0.10},
		{FactorStockAvailability, 0.05},
		{FactorPriceCompetitiveness, 0.05},
		{FactorRecency, 0.05},
		{FactorReturnRate, -0.025},
		{FactorComplaintsRate, -0.025},
	}
}

// textScoreSaturation is the engine text score mapped to full relevance.
const textScoreSaturation = 10

// Stats are batch-wide bounds used to normalize factor scores.
type Stats struct {
	MaxPrice           float64
	MinPrice           float64
	PriceRange         float64
	MaxSalesCount      int
	MaxReviewCount     int
	MaxComplaintsCount int
	OldestCreatedAt    time.Time
	NewestCreatedAt    time.Time
	DateRange          time.Duration
}

// ComputeStats scans candidates once. PriceRange and DateRange are floored
// at 1 (one currency unit and one millisecond).
func ComputeStats(candidates []domain.Candidate) Stats {
	var s Stats
	for i, c := range candidates {
		p := &c.Product
		if i == 0 {
			s.MinPrice, s.MaxPrice = p.Price, p.Price
			s.OldestCreatedAt, s.NewestCreatedAt = p.CreatedAt, p.CreatedAt
		}
		s.MaxPrice = math.Max(s.MaxPrice, p.Price)
		s.MinPrice = math.Min(s.MinPrice, p.Price)
		s.MaxSalesCount = max(s.MaxSalesCount, p.SalesCount)
		s.MaxReviewCount = max(s.MaxReviewCount, p.ReviewCount)
		s.MaxComplaintsCount = max(s.MaxComplaintsCount, p.ComplaintsCount)
		if p.CreatedAt.Before(s.OldestCreatedAt) {
			s.OldestCreatedAt = p.CreatedAt
		}
		if p.CreatedAt.After(s.NewestCreatedAt) {
			s.NewestCreatedAt = p.CreatedAt
		}
	}

	s.PriceRange = s.MaxPrice - s.MinPrice
	if s.PriceRange < 1 {
		s.PriceRange = 1
	}
	s.DateRange = s.NewestCreatedAt.Sub(s.OldestCreatedAt)
	if s.DateRange < time.Millisecond {
		s.DateRange = time.Millisecond
	}
	return s
}

// Engine ranks candidate batches with a fixed weight table.
type Engine struct {
	weights []Weight
}

// Option configures an Engine.
type Option func(*Engine)

// WithWeights replaces the default weight table.
func WithWeights(w []Weight) Option {
	return func(e *Engine) {
		e.weights = append([]Weight(nil), w...)
	}
}

// New creates a ranking engine.
func New(opts ...Option) *Engine {
	e := &Engine{weights: DefaultWeights()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Rank scores every candidate and returns them sorted by composite score,
// highest first. Equal scores keep their input order. textScores, keyed by
// product ID, take precedence over a candidate's own TextScore.
func (e *Engine) Rank(candidates []domain.Candidate, textScores map[string]float64) []domain.RankedProduct {
	if len(candidates) == 0 {
		return []domain.RankedProduct{}
	}

	stats := ComputeStats(candidates)
	ranked := make([]domain.RankedProduct, len(candidates))
	for i, c := range candidates {
		textScore := c.TextScore
		if s, ok := textScores[c.Product.ID]; ok {
			textScore = s
		}
		factors := FactorScores(&c.Product, stats, textScore)
		ranked[i] = domain.RankedProduct{
			Candidate:      c,
			FactorScores:   factors,
			CompositeScore: math.Round(e.Composite(factors)*100) / 100,
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].CompositeScore > ranked[j].CompositeScore
	})
	return ranked
}

// Composite combines factor scores into a value in [0, 100].
func (e *Engine) Composite(factors map[string]float64) float64 {
	var score float64
	for _, w := range e.weights {
		f := factors[w.Factor]
		if w.Value < 0 {
			score += w.Value * (1 - f)
		} else {
			score += w.Value * f
		}
	}
	return math.Max(0, math.Min(100, score*100))
}

// FactorScores computes the eight normalized factors for p, each in [0, 1].
func FactorScores(p *domain.Product, stats Stats, textScore float64) map[string]float64 {
	sales := 0.0
	if stats.MaxSalesCount > 0 {
		sales = float64(p.SalesCount) / float64(stats.MaxSalesCount)
	}
	complaints := 1.0
	if stats.MaxComplaintsCount > 0 {
		complaints = 1 - float64(p.ComplaintsCount)/float64(stats.MaxComplaintsCount)
	}

	return map[string]float64{
		FactorTextRelevance:        clamp01(textScore / textScoreSaturation),
		FactorRating:               clamp01(p.Rating / 5),
		FactorSalesPopularity:      clamp01(sales),
		FactorStockAvailability:    stockScore(p.Stock),
		FactorPriceCompetitiveness: clamp01(1 - (p.Price-stats.MinPrice)/stats.PriceRange),
		FactorRecency:              clamp01(float64(p.CreatedAt.Sub(stats.OldestCreatedAt)) / float64(stats.DateRange)),
		FactorReturnRate:           clamp01(1 - math.Min(p.ReturnRate/100, 1)),
		FactorComplaintsRate:       clamp01(complaints),
	}
}

// stockScore maps stock into out, low, medium and healthy tiers.
func stockScore(stock int) float64 {
	switch {
	case stock <= 0:
		return 0
	case stock < 10:
		return 0.5
	case stock < 50:
		return 0.75
	default:
		return 1
	}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
