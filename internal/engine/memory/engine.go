package memory

import (
	"context"
	"math"
	"strings"
	"sync"

	apperrors "github.com/Sumit-Saurabh98/indexsearch/pkg/errors"

	"github.com/Sumit-Saurabh98/indexsearch/internal/domain"
	"github.com/Sumit-Saurabh98/indexsearch/internal/engine"
)

// Field weights for text scoring.
const (
	titleWeight       = 10
	brandWeight       = 5
	descriptionWeight = 1
)

// Engine is an in-memory implementation of the SearchEngine interface.
// Products are kept in first-insertion order so that results are stable.
// Thread-safe via sync.RWMutex.
type Engine struct {
	mu       sync.RWMutex
	ids      []string
	products map[string]domain.Product
}

// New creates a new in-memory search engine.
func New() *Engine {
	return &Engine{
		products: make(map[string]domain.Product),
	}
}

// Index adds or updates a single product in the in-memory index.
func (e *Engine) Index(_ context.Context, product *domain.Product) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.put(*product)
	return nil
}

// BulkIndex adds or updates multiple products in the in-memory index.
func (e *Engine) BulkIndex(_ context.Context, products []domain.Product) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range products {
		e.put(products[i])
	}
	return nil
}

// put must be called with mu held.
func (e *Engine) put(p domain.Product) {
	if _, exists := e.products[p.ID]; !exists {
		e.ids = append(e.ids, p.ID)
	}
	e.products[p.ID] = p
}

// Delete removes a product from the in-memory index by its ID.
func (e *Engine) Delete(_ context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.products[id]; !exists {
		return nil
	}
	delete(e.products, id)
	for i, existing := range e.ids {
		if existing == id {
			e.ids = append(e.ids[:i], e.ids[i+1:]...)
			break
		}
	}
	return nil
}

// Get returns a product by ID.
func (e *Engine) Get(_ context.Context, id string) (*domain.Product, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	p, ok := e.products[id]
	if !ok {
		return nil, apperrors.NotFound("product", id)
	}
	return &p, nil
}

// Find returns all products matching the filter in insertion order.
func (e *Engine) Find(_ context.Context, filter *domain.Filter) ([]domain.Candidate, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if filter == nil {
		filter = &domain.Filter{}
	}
	terms := tokenize(filter.Text)

	matched := make([]domain.Candidate, 0)
	for _, id := range e.ids {
		p := e.products[id]
		if !matches(&p, filter) {
			continue
		}
		var score float64
		if len(terms) > 0 {
			score = textScore(&p, terms)
			if score == 0 {
				continue
			}
		}
		matched = append(matched, domain.Candidate{Product: p, TextScore: score})
	}
	return matched, nil
}

// Aggregate groups the matching products.
func (e *Engine) Aggregate(ctx context.Context, filter *domain.Filter, by domain.GroupBy) ([]domain.Group, error) {
	candidates, err := e.Find(ctx, filter)
	if err != nil {
		return nil, err
	}

	type acc struct {
		group     domain.Group
		priceSum  float64
		ratingSum float64
	}
	var order []string
	accs := make(map[string]*acc)

	for i := range candidates {
		p := &candidates[i].Product
		key, ok := groupKey(p, by)
		if !ok {
			continue
		}
		a, exists := accs[key]
		if !exists {
			a = &acc{group: domain.Group{Key: key, MinPrice: math.Inf(1), MaxPrice: math.Inf(-1)}}
			accs[key] = a
			order = append(order, key)
		}
		a.group.Count++
		a.group.MinPrice = math.Min(a.group.MinPrice, p.Price)
		a.group.MaxPrice = math.Max(a.group.MaxPrice, p.Price)
		a.group.TotalStock += p.Stock
		a.priceSum += p.Price
		a.ratingSum += p.Rating
	}

	groups := make([]domain.Group, 0, len(order))
	for _, key := range order {
		a := accs[key]
		a.group.AvgPrice = a.priceSum / float64(a.group.Count)
		a.group.AvgRating = a.ratingSum / float64(a.group.Count)
		groups = append(groups, a.group)
	}
	engine.SortGroups(groups)
	return groups, nil
}

// Ping always succeeds.
func (e *Engine) Ping(_ context.Context) error {
	return nil
}

// Len returns the number of indexed products.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.ids)
}

func groupKey(p *domain.Product, by domain.GroupBy) (string, bool) {
	switch by {
	case domain.GroupByCategory:
		return p.Category, true
	case domain.GroupByBrand:
		if p.Brand == nil || *p.Brand == "" {
			return "", false
		}
		return *p.Brand, true
	case domain.GroupByRatingBucket:
		return domain.RatingBucket(p.Rating), true
	default:
		return "", true
	}
}

// matches checks whether a product satisfies the non-text filters.
func matches(p *domain.Product, f *domain.Filter) bool {
	if f.Category != nil && *f.Category != "" && !strings.EqualFold(p.Category, *f.Category) {
		return false
	}
	if f.Brand != nil && *f.Brand != "" {
		if !strings.Contains(strings.ToLower(p.BrandName()), strings.ToLower(*f.Brand)) {
			return false
		}
	}
	if f.MinPrice != nil && p.Price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && p.Price > *f.MaxPrice {
		return false
	}
	if f.MinRating != nil && p.Rating < *f.MinRating {
		return false
	}
	if f.InStock && p.Stock <= 0 {
		return false
	}
	return true
}

func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), notWord)
	seen := make(map[string]bool, len(fields))
	terms := fields[:0]
	for _, f := range fields {
		if !seen[f] {
			seen[f] = true
			terms = append(terms, f)
		}
	}
	return terms
}

func isWordRune(r rune) bool {
	return r == '+' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r > 0x7f
}

// textScore is a weighted term-frequency score: each query term counts once
// per occurrence in a field, scaled by the field weight and averaged over the
// number of query terms.
func textScore(p *domain.Product, terms []string) float64 {
	fields := []struct {
		tokens []string
		weight float64
	}{
		{strings.FieldsFunc(strings.ToLower(p.Title), notWord), titleWeight},
		{strings.FieldsFunc(strings.ToLower(p.BrandName()), notWord), brandWeight},
		{strings.FieldsFunc(strings.ToLower(p.Description), notWord), descriptionWeight},
	}

	var score float64
	for _, term := range terms {
		for _, f := range fields {
			for _, tok := range f.tokens {
				if tok == term {
					score += f.weight
				}
			}
		}
	}
	return score / float64(len(terms))
}

func notWord(r rune) bool {
	return !isWordRune(r)
}
