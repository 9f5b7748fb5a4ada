package engine

import (
	"context"
	"sort"

	"github.com/Sumit-Saurabh98/indexsearch/internal/domain"
)

// SearchEngine defines the interface for indexing and querying products.
// Implementations may use Elasticsearch, PostgreSQL, or in-memory storage.
type SearchEngine interface {
	// Index adds or updates a single product.
	Index(ctx context.Context, product *domain.Product) error

	// BulkIndex adds or updates multiple products.
	BulkIndex(ctx context.Context, products []domain.Product) error

	// Delete removes a product by its ID. Deleting an unknown ID is not an error.
	Delete(ctx context.Context, id string) error

	// Get returns one product or an apperrors.NotFound error.
	Get(ctx context.Context, id string) (*domain.Product, error)

	// Find returns every product matching filter. When filter.Text is set,
	// only products matching at least one query term are returned and each
	// carries the backend's relevance score. Results are unpaginated.
	Find(ctx context.Context, filter *domain.Filter) ([]domain.Candidate, error)

	// Aggregate groups the products matching filter and returns per-group
	// counts and price, rating and stock statistics, ordered by SortGroups.
	Aggregate(ctx context.Context, filter *domain.Filter, by domain.GroupBy) ([]domain.Group, error)

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
}

// SortGroups orders groups by count descending, then key ascending.
func SortGroups(groups []domain.Group) {
	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].Count != groups[j].Count {
			return groups[i].Count > groups[j].Count
		}
		return groups[i].Key < groups[j].Key
	})
}
