package domain

import "github.com/Sumit-Saurabh98/indexsearch/pkg/pagination"

// Sort fields accepted by search.
const (
	SortPrice      = "price"
	SortRating     = "rating"
	SortSalesCount = "salesCount"
	SortCreatedAt  = "createdAt"
)

// Sort orders accepted by search.
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// ValidSortFields returns the fields results may be sorted by.
func ValidSortFields() []string {
	return []string{SortPrice, SortRating, SortSalesCount, SortCreatedAt}
}

// IsValidSortField checks whether field is a sortable product field.
func IsValidSortField(field string) bool {
	for _, f := range ValidSortFields() {
		if f == field {
			return true
		}
	}
	return false
}

// IsValidSortOrder checks whether order is asc or desc.
func IsValidSortOrder(order string) bool {
	return order == OrderAsc || order == OrderDesc
}

// SearchRequest holds every parameter that shapes one search call.
// Nil pointers mean the parameter was not supplied.
type SearchRequest struct {
	Query         string
	Page          int
	Limit         int
	Category      *string
	Brand         *string
	MinPrice      *float64
	MaxPrice      *float64
	MinRating     *float64
	InStock       *bool
	SortBy        string
	SortOrder     string
	UseRanking    bool
	IncludeFacets bool
}

// NewSearchRequest returns a request for query with default paging,
// ranking and facets enabled.
func NewSearchRequest(query string) SearchRequest {
	return SearchRequest{
		Query:         query,
		Page:          pagination.DefaultPage,
		Limit:         pagination.DefaultLimit,
		UseRanking:    true,
		IncludeFacets: true,
	}
}

// Filter is the engine-level constraint set for a candidate fetch.
type Filter struct {
	Text      string
	Category  *string
	Brand     *string
	MinPrice  *float64
	MaxPrice  *float64
	MinRating *float64
	InStock   bool
}

// WithoutText returns a copy of f with the full-text clause removed.
func (f *Filter) WithoutText() *Filter {
	if f == nil {
		return &Filter{}
	}
	c := *f
	c.Text = ""
	return &c
}

// AppliedSort is the field sort used when ranking was not applied.
type AppliedSort struct {
	SortBy    string `json:"sortBy"`
	SortOrder string `json:"sortOrder"`
}

// Meta describes how a search was interpreted and executed.
type Meta struct {
	OriginalQuery    string            `json:"originalQuery"`
	ProcessedQuery   string            `json:"processedQuery"`
	Corrections      []Correction      `json:"corrections,omitempty"`
	ExtractedFilters *ExtractedFilters `json:"extractedFilters,omitempty"`
	AppliedSort      *AppliedSort      `json:"appliedSort,omitempty"`
	RankingApplied   bool              `json:"rankingApplied"`
	ResponseTimeMs   int64             `json:"responseTime"`
	Cached           bool              `json:"cached"`
}

// SearchResult is one page of search results.
type SearchResult struct {
	Products   []ProductView   `json:"products"`
	Pagination pagination.Meta `json:"pagination"`
	Facets     *Facets         `json:"facets"`
	Meta       Meta            `json:"meta"`
}
