package service

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/Sumit-Saurabh98/indexsearch/internal/domain"
)

const (
	categoryFacetLimit = 10
	brandFacetLimit    = 15
)

// facets aggregates the filter without its text clause. The four
// aggregations run concurrently; if any of them fails the whole block is
// dropped and nil is returned.
func (s *SearchService) facets(ctx context.Context, filter *domain.Filter) *domain.Facets {
	f := filter.WithoutText()
	var facets domain.Facets

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		groups, err := s.engine.Aggregate(gctx, f, domain.GroupByCategory)
		if err != nil {
			return fmt.Errorf("category facet: %w", err)
		}
		facets.Categories = topCounts(groups, categoryFacetLimit)
		return nil
	})
	g.Go(func() error {
		groups, err := s.engine.Aggregate(gctx, f, domain.GroupByBrand)
		if err != nil {
			return fmt.Errorf("brand facet: %w", err)
		}
		facets.Brands = topCounts(groups, brandFacetLimit)
		return nil
	})
	g.Go(func() error {
		groups, err := s.engine.Aggregate(gctx, f, domain.GroupByNone)
		if err != nil {
			return fmt.Errorf("price facet: %w", err)
		}
		if len(groups) > 0 {
			facets.PriceRange = domain.PriceStats{
				Min: groups[0].MinPrice,
				Max: groups[0].MaxPrice,
				Avg: groups[0].AvgPrice,
			}
		}
		return nil
	})
	g.Go(func() error {
		groups, err := s.engine.Aggregate(gctx, f, domain.GroupByRatingBucket)
		if err != nil {
			return fmt.Errorf("rating facet: %w", err)
		}
		facets.Ratings = ratingCounts(groups)
		return nil
	})

	if err := g.Wait(); err != nil {
		searchFacetFailures.Inc()
		s.logger.WarnContext(ctx, "facet aggregation failed", slog.String("error", err.Error()))
		return nil
	}
	return &facets
}

// topCounts keeps the first n groups, which engines return ordered by count.
func topCounts(groups []domain.Group, n int) []domain.FacetCount {
	out := make([]domain.FacetCount, 0, min(len(groups), n))
	for _, g := range groups {
		if len(out) == n {
			break
		}
		out = append(out, domain.FacetCount{Value: g.Key, Count: g.Count})
	}
	return out
}

// ratingCounts lists every bucket in display order, including empty ones.
func ratingCounts(groups []domain.Group) []domain.FacetCount {
	counts := make(map[string]int, len(groups))
	for _, g := range groups {
		counts[g.Key] = g.Count
	}
	buckets := domain.RatingBuckets()
	out := make([]domain.FacetCount, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, domain.FacetCount{Value: b, Count: counts[b]})
	}
	return out
}
