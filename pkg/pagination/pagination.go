package pagination

import "math"

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params is a normalized page request: Page >= 1 and 1 <= Limit <= max.
type Params struct {
	Page  int
	Limit int
}

// New normalizes page and limit. Non-positive values take the defaults and
// limit is capped at max (MaxLimit when max <= 0).
func New(page, limit, max int) Params {
	if max <= 0 {
		max = MaxLimit
	}
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > max {
		limit = max
	}
	return Params{Page: page, Limit: limit}
}

// Offset is the zero-based index of the first item on the page.
func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Bounds returns the half-open [start,end) window of the page within a
// list of total items. Pages past the end yield an empty window.
func (p Params) Bounds(total int) (start, end int) {
	start = min(p.Offset(), total)
	end = min(start+p.Limit, total)
	return start, end
}

// Pages is ceil(total/limit).
func (p Params) Pages(total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Ceil(float64(total) / float64(p.Limit)))
}

// Meta describes a served page.
type Meta struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// Meta builds the pagination block for a result set of total items.
func (p Params) Meta(total int) Meta {
	return Meta{Page: p.Page, Limit: p.Limit, Total: total, Pages: p.Pages(total)}
}

// Slice returns the page window of items.
func Slice[T any](items []T, p Params) []T {
	start, end := p.Bounds(len(items))
	return items[start:end]
}
