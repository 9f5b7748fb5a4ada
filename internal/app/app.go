package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Sumit-Saurabh98/indexsearch/pkg/database"
	"github.com/Sumit-Saurabh98/indexsearch/pkg/health"
	"github.com/Sumit-Saurabh98/indexsearch/pkg/httpclient"
	pkgkafka "github.com/Sumit-Saurabh98/indexsearch/pkg/kafka"
	"github.com/Sumit-Saurabh98/indexsearch/pkg/middleware"
	"github.com/Sumit-Saurabh98/indexsearch/pkg/tracing"

	"github.com/Sumit-Saurabh98/indexsearch/internal/cache"
	"github.com/Sumit-Saurabh98/indexsearch/internal/config"
	"github.com/Sumit-Saurabh98/indexsearch/internal/engine"
	esengine "github.com/Sumit-Saurabh98/indexsearch/internal/engine/elasticsearch"
	"github.com/Sumit-Saurabh98/indexsearch/internal/engine/memory"
	pgengine "github.com/Sumit-Saurabh98/indexsearch/internal/engine/postgres"
	"github.com/Sumit-Saurabh98/indexsearch/internal/event"
	handler "github.com/Sumit-Saurabh98/indexsearch/internal/handler/http"
	"github.com/Sumit-Saurabh98/indexsearch/internal/service"
)

// ServiceName identifies the service in logs, traces and metrics.
const ServiceName = "search-service"

const idempotencyTTL = 24 * time.Hour

// App wires together all dependencies and runs the search service.
type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	consumer   *pkgkafka.Consumer
	httpServer *http.Server
	closers    []func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
// Resources acquired before a failure are released.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	a := &App{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			_ = a.close(context.Background())
		}
	}()

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing(ServiceName))
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, shutdownTracing)

	healthHandler := health.NewHandler()

	eng, err := a.newEngine(ctx)
	if err != nil {
		return nil, err
	}
	healthHandler.Register(cfg.SearchEngine, eng.Ping)

	resultCache, err := a.newCache(ctx, healthHandler)
	if err != nil {
		return nil, err
	}

	// Reindex pulls from the product service through a circuit breaker.
	products := httpclient.NewBreakerClient(
		httpclient.New(httpclient.DefaultConfig()),
		httpclient.DefaultBreakerConfig("product-service"),
		logger,
	)

	searchService := service.NewSearchService(eng, resultCache, logger,
		service.WithMaxLimit(cfg.MaxLimit),
		service.WithSlowThreshold(cfg.SlowThreshold),
		service.WithProductSource(products, cfg.ProductServiceURL),
	)

	if cfg.KafkaEnabled {
		eventConsumer := event.NewConsumer(searchService, logger)
		store := pkgkafka.NewMemoryIdempotencyStore(idempotencyTTL)
		a.consumer = pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
			Brokers:  cfg.KafkaBrokers,
			GroupID:  cfg.KafkaGroupID,
			Topics:   event.Topics(),
			MinBytes: 1,
			MaxBytes: 10e6, // 10 MB
		}, pkgkafka.IdempotentHandler(store, cfg.KafkaGroupID, eventConsumer.Handle, logger), logger)
		healthHandler.Register("kafka", func(ctx context.Context) error {
			return pkgkafka.PingBrokers(ctx, cfg.KafkaBrokers)
		})
		logger.Info("kafka consumer initialized",
			slog.Any("brokers", cfg.KafkaBrokers),
			slog.Any("topics", event.Topics()),
		)
	}

	routerCfg := handler.DefaultRouterConfig()
	routerCfg.RequestTimeout = cfg.RequestTimeout
	routerCfg.ResultMaxAge = cfg.CacheTTL
	routerCfg.RateLimitRPS = cfg.RateLimitRPS
	routerCfg.RateLimitBurst = cfg.RateLimitBurst
	if len(cfg.CORSOrigins) > 0 {
		routerCfg.CORS = middleware.CORSConfig{AllowedOrigins: cfg.CORSOrigins}
	}
	router := handler.NewRouter(searchService, healthHandler, logger, routerCfg)

	a.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return a, nil
}

// newEngine connects the configured search backend.
func (a *App) newEngine(ctx context.Context) (engine.SearchEngine, error) {
	cfg, logger := a.cfg, a.logger
	switch cfg.SearchEngine {
	case config.EngineElasticsearch:
		eng, err := esengine.New(ctx, cfg.ElasticsearchURL, cfg.ElasticsearchIndex, logger)
		if err != nil {
			return nil, fmt.Errorf("init elasticsearch engine: %w", err)
		}
		logger.Info("elasticsearch search engine initialized",
			slog.String("url", cfg.ElasticsearchURL),
			slog.String("index", cfg.ElasticsearchIndex),
		)
		return eng, nil

	case config.EnginePostgres:
		pool, err := database.NewPostgresPool(ctx, cfg.Postgres(), logger)
		if err != nil {
			return nil, fmt.Errorf("init postgres engine: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error {
			pool.Close()
			return nil
		})
		if err := pgengine.Migrate(ctx, pool, logger); err != nil {
			return nil, fmt.Errorf("init postgres engine: %w", err)
		}
		if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, ServiceName); err != nil {
			logger.Warn("postgres pool metrics not registered", slog.String("error", err.Error()))
		}
		logger.Info("postgres search engine initialized",
			slog.String("host", cfg.PostgresHost),
			slog.String("database", cfg.PostgresDB),
		)
		return pgengine.New(pool, logger, cfg.SlowQuery), nil

	default:
		logger.Info("in-memory search engine initialized")
		return memory.New(), nil
	}
}

// newCache builds the configured result cache backend.
func (a *App) newCache(ctx context.Context, healthHandler *health.Handler) (cache.Cache, error) {
	cfg, logger := a.cfg, a.logger
	if cfg.CacheBackend != config.CacheRedis {
		logger.Info("in-memory result cache initialized",
			slog.Duration("ttl", cfg.CacheTTL),
			slog.Int("max_size", cfg.CacheMaxSize),
		)
		return cache.NewMemory(cfg.CacheTTL, cfg.CacheMaxSize), nil
	}

	client, err := database.NewRedisClient(ctx, cfg.Redis())
	if err != nil {
		return nil, fmt.Errorf("init redis cache: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) error { return client.Close() })
	healthHandler.Register("redis", func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
	logger.Info("redis result cache initialized",
		slog.String("addr", cfg.Redis().Addr()),
		slog.Duration("ttl", cfg.CacheTTL),
		slog.Int("max_size", cfg.CacheMaxSize),
	)
	return cache.NewRedis(client, cfg.CacheTTL, cfg.CacheMaxSize), nil
}

// Handler exposes the HTTP router.
func (a *App) Handler() http.Handler {
	return a.httpServer.Handler
}

// Run starts the HTTP server and the Kafka consumer, blocking until the
// context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	if a.consumer != nil {
		go func() {
			if err := a.consumer.Start(ctx); err != nil {
				errCh <- fmt.Errorf("kafka consumer: %w", err)
			}
		}()
	}

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case runErr = <-errCh:
	}

	return errors.Join(runErr, a.Shutdown())
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}
	if a.consumer != nil {
		if err := a.consumer.Close(); err != nil {
			a.logger.Error("kafka consumer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	errs = append(errs, a.close(shutdownCtx))

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// close releases acquired resources in reverse order.
func (a *App) close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
