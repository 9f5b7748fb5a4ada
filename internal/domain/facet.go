package domain

// GroupBy selects the grouping key for an engine aggregation.
type GroupBy string

const (
	GroupByNone         GroupBy = "none"
	GroupByCategory     GroupBy = "category"
	GroupByBrand        GroupBy = "brand"
	GroupByRatingBucket GroupBy = "ratingBucket"
)

// Group is one aggregation row. Engines return groups ordered by Count
// descending, then Key ascending. Products without a brand are excluded
// from GroupByBrand.
type Group struct {
	Key        string  `json:"key"`
	Count      int     `json:"count"`
	MinPrice   float64 `json:"minPrice"`
	MaxPrice   float64 `json:"maxPrice"`
	AvgPrice   float64 `json:"avgPrice"`
	AvgRating  float64 `json:"avgRating"`
	TotalStock int     `json:"totalStock"`
}

// Rating bucket labels, highest first.
const (
	Rating45Plus  = "4.5+"
	Rating40Plus  = "4.0+"
	Rating35Plus  = "3.5+"
	Rating30Plus  = "3.0+"
	RatingBelow30 = "Below 3.0"
)

// RatingBuckets returns the bucket labels in display order.
func RatingBuckets() []string {
	return []string{Rating45Plus, Rating40Plus, Rating35Plus, Rating30Plus, RatingBelow30}
}

// RatingBucket places rating in exactly one bucket.
func RatingBucket(rating float64) string {
	switch {
	case rating >= 4.5:
		return Rating45Plus
	case rating >= 4.0:
		return Rating40Plus
	case rating >= 3.5:
		return Rating35Plus
	case rating >= 3.0:
		return Rating30Plus
	default:
		return RatingBelow30
	}
}

// FacetCount is a value and the number of matching products.
type FacetCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// PriceStats summarizes prices across the matching products.
type PriceStats struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
}

// Facets summarize the full candidate set, independent of pagination.
type Facets struct {
	Categories []FacetCount `json:"categories"`
	Brands     []FacetCount `json:"brands"`
	PriceRange PriceStats   `json:"priceRange"`
	Ratings    []FacetCount `json:"ratings"`
}

// CategoryStats is the per-category catalog summary.
type CategoryStats struct {
	Category   string  `json:"category"`
	Count      int     `json:"count"`
	AvgPrice   float64 `json:"avgPrice"`
	AvgRating  float64 `json:"avgRating"`
	TotalStock int     `json:"totalStock"`
}

// CatalogStats is the catalog summary grouped by category.
type CatalogStats struct {
	Total      int             `json:"total"`
	ByCategory []CategoryStats `json:"byCategory"`
}
