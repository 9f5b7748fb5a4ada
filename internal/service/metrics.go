package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	searchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_requests_total",
			Help: "Total number of search requests by mode and outcome",
		},
		[]string{"mode", "outcome"},
	)

	searchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "search_duration_seconds",
			Help:    "End-to-end search latency in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"cached"},
	)

	searchCandidates = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "search_candidates",
			Help:    "Number of candidates fetched per uncached search",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
	)

	searchCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_cache_lookups_total",
			Help: "Result cache lookups by result (hit, miss, error)",
		},
		[]string{"result"},
	)

	searchFacetFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "search_facet_failures_total",
			Help: "Searches whose facet aggregation failed",
		},
	)
)
