// Package cache stores serialized search results for a short time so that
// repeated identical searches skip the pipeline.
package cache

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/Sumit-Saurabh98/indexsearch/internal/domain"
)

// Cache is a best-effort result store. Callers treat any error as a miss.
type Cache interface {
	// Get returns the value stored under key and whether it was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key.
	Set(ctx context.Context, key string, value []byte) error

	// Invalidate removes every key containing substr and returns the count.
	Invalidate(ctx context.Context, substr string) (int, error)

	// Clear removes every entry and resets hit counters.
	Clear(ctx context.Context) error

	// Stats reports occupancy and hit counters.
	Stats(ctx context.Context) (Stats, error)
}

// Stats describes cache occupancy and effectiveness. HitRate is a
// percentage rounded to two decimals.
type Stats struct {
	Backend string  `json:"backend"`
	Size    int     `json:"size"`
	MaxSize int     `json:"maxSize,omitempty"`
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hitRate"`
}

func hitRate(hits, misses int64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return math.Round(float64(hits)/float64(total)*10000) / 100
}

// Key builds the cache key for req. Every parameter that changes the
// response takes a fixed position; unset parameters are empty.
func Key(req *domain.SearchRequest) string {
	parts := []string{
		req.Query,
		strconv.Itoa(req.Page),
		strconv.Itoa(req.Limit),
		str(req.Category),
		str(req.Brand),
		num(req.MinPrice),
		num(req.MaxPrice),
		num(req.MinRating),
		boolean(req.InStock),
		req.SortBy,
		req.SortOrder,
		strconv.FormatBool(req.UseRanking),
		strconv.FormatBool(req.IncludeFacets),
	}
	return strings.Join(parts, "|")
}

func str(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func num(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func boolean(v *bool) string {
	if v == nil {
		return ""
	}
	return strconv.FormatBool(*v)
}
