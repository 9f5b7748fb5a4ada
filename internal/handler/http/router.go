package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Sumit-Saurabh98/indexsearch/pkg/health"
	"github.com/Sumit-Saurabh98/indexsearch/pkg/middleware"

	"github.com/Sumit-Saurabh98/indexsearch/internal/service"
)

const serviceName = "search"

// RouterConfig tunes the HTTP surface.
type RouterConfig struct {
	// RequestTimeout bounds every request. Zero disables the timeout.
	RequestTimeout time.Duration
	// ResultMaxAge is advertised in Cache-Control on successful searches.
	ResultMaxAge time.Duration
	// RateLimitRPS and RateLimitBurst bound searches per client IP. A zero
	// rate disables the limit.
	RateLimitRPS   float64
	RateLimitBurst int
	CORS           middleware.CORSConfig
}

// DefaultRouterConfig returns the production router settings.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		RequestTimeout: 30 * time.Second,
		ResultMaxAge:   30 * time.Second,
		RateLimitRPS:   20,
		RateLimitBurst: 40,
		CORS:           middleware.DefaultCORSConfig(),
	}
}

// NewRouter creates a chi router with all search service routes registered.
func NewRouter(
	searchService *service.SearchService,
	healthHandler *health.Handler,
	logger *slog.Logger,
	cfg RouterConfig,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	if cfg.RequestTimeout > 0 {
		r.Use(chimw.Timeout(cfg.RequestTimeout))
	}
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics(serviceName))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	searchHandler := NewSearchHandler(searchService, logger)

	r.Route("/api/v1/search", func(r chi.Router) {
		r.With(
			middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst, logger),
			middleware.CacheControl(cfg.ResultMaxAge),
		).Get("/product", searchHandler.Search)
		r.Get("/parse", searchHandler.Parse)
		r.Get("/stats", searchHandler.Stats)
		r.Get("/cache/stats", searchHandler.CacheStats)
		r.Delete("/cache", searchHandler.ClearCache)

		r.Group(func(r chi.Router) {
			r.Use(ContentTypeJSON)
			r.Post("/index", searchHandler.IndexProduct)
			r.Post("/bulk", searchHandler.BulkIndex)
			r.Post("/reindex", searchHandler.Reindex)
		})

		r.Get("/{id}", searchHandler.GetProduct)
		r.Delete("/{id}", searchHandler.DeleteProduct)
	})

	return r
}
