package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/Sumit-Saurabh98/indexsearch/internal/cache"
	"github.com/Sumit-Saurabh98/indexsearch/internal/domain"
)

// Stats summarizes the indexed catalog by category.
func (s *SearchService) Stats(ctx context.Context) (*domain.CatalogStats, error) {
	groups, err := s.engine.Aggregate(ctx, &domain.Filter{}, domain.GroupByCategory)
	if err != nil {
		return nil, fmt.Errorf("catalog stats: %w", err)
	}

	stats := &domain.CatalogStats{ByCategory: make([]domain.CategoryStats, 0, len(groups))}
	for _, g := range groups {
		stats.Total += g.Count
		stats.ByCategory = append(stats.ByCategory, domain.CategoryStats{
			Category:   g.Key,
			Count:      g.Count,
			AvgPrice:   round2(g.AvgPrice),
			AvgRating:  round2(g.AvgRating),
			TotalStock: g.TotalStock,
		})
	}
	return stats, nil
}

// CacheStats reports result cache occupancy and hit rate.
func (s *SearchService) CacheStats(ctx context.Context) (cache.Stats, error) {
	stats, err := s.cache.Stats(ctx)
	if err != nil {
		return cache.Stats{}, fmt.Errorf("cache stats: %w", err)
	}
	return stats, nil
}

// ClearCache drops every cached result and resets the counters.
func (s *SearchService) ClearCache(ctx context.Context) error {
	if err := s.cache.Clear(ctx); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	s.logger.InfoContext(ctx, "result cache cleared")
	return nil
}

// InvalidateCache drops cached results whose key contains pattern.
func (s *SearchService) InvalidateCache(ctx context.Context, pattern string) (int, error) {
	n, err := s.cache.Invalidate(ctx, pattern)
	if err != nil {
		return n, fmt.Errorf("invalidate cache: %w", err)
	}
	s.logger.InfoContext(ctx, "result cache invalidated",
		slog.String("pattern", pattern),
		slog.Int("removed", n),
	)
	return n, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
