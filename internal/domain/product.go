package domain

import (
	"math"
	"time"
)

// Catalog defaults applied when a product is indexed without them.
const (
	DefaultCategory = "other"
	DefaultCurrency = "Rupee"
	DefaultSource   = "manual"
)

// Categories lists the catalog categories.
func Categories() []string {
	return []string{
		"mobile-phones", "laptops", "headphones", "phone-accessories", "tablets",
		"smartwatches", "cameras", "gaming", "audio", DefaultCategory,
	}
}

// Product is a catalog record as stored by the search engine.
type Product struct {
	ID              string         `json:"id"`
	Title           string         `json:"title"`
	Description     string         `json:"description"`
	Price           float64        `json:"price"`
	MRP             float64        `json:"mrp"`
	Currency        string         `json:"currency"`
	Rating          float64        `json:"rating"`
	ReviewCount     int            `json:"reviewCount"`
	Stock           int            `json:"stock"`
	SalesCount      int            `json:"salesCount"`
	ReturnRate      float64        `json:"returnRate"`
	ComplaintsCount int            `json:"complaintsCount"`
	Category        string         `json:"category"`
	Brand           *string        `json:"brand"`
	Metadata        map[string]any `json:"metadata"`
	Source          string         `json:"source"`
	SourceURL       string         `json:"sourceUrl,omitempty"`
	Images          []string       `json:"images"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

// BrandName returns the brand or "" when the product has none.
func (p *Product) BrandName() string {
	if p.Brand == nil {
		return ""
	}
	return *p.Brand
}

// DiscountPercent is the rounded markdown from MRP, or 0 when the product
// sells at or above MRP.
func (p *Product) DiscountPercent() int {
	if p.MRP > 0 && p.MRP > p.Price {
		return int(math.Round((p.MRP - p.Price) / p.MRP * 100))
	}
	return 0
}

// InStock reports whether at least one unit is available.
func (p *Product) InStock() bool {
	return p.Stock > 0
}

// Candidate is a product matched by the engine together with its full-text
// relevance sub-score. TextScore is 0 when no text query was issued.
type Candidate struct {
	Product   Product
	TextScore float64
}

// RankedProduct is a candidate annotated by the ranking engine.
type RankedProduct struct {
	Candidate
	FactorScores   map[string]float64
	CompositeScore float64
}

// ProductView is the API representation of a product in search results.
type ProductView struct {
	Product
	ProductID       string             `json:"productId"`
	SellingPrice    float64            `json:"Sellingprice"`
	DiscountPercent int                `json:"discountPercent"`
	InStock         bool               `json:"inStock"`
	RankingScore    *float64           `json:"rankingScore,omitempty"`
	RankingFactors  map[string]float64 `json:"rankingFactors,omitempty"`
}

// NewProductView builds the API view of p.
func NewProductView(p Product) ProductView {
	if p.Metadata == nil {
		p.Metadata = map[string]any{}
	}
	if p.Images == nil {
		p.Images = []string{}
	}
	return ProductView{
		Product:         p,
		ProductID:       p.ID,
		SellingPrice:    p.Price,
		DiscountPercent: p.DiscountPercent(),
		InStock:         p.InStock(),
	}
}

// NewRankedView builds the API view of a ranked product, exposing its
// composite score and factor breakdown.
func NewRankedView(r RankedProduct) ProductView {
	v := NewProductView(r.Product)
	score := r.CompositeScore
	v.RankingScore = &score
	v.RankingFactors = r.FactorScores
	return v
}
