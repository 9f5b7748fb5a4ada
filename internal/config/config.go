package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"time"

	pkgconfig "github.com/Sumit-Saurabh98/indexsearch/pkg/config"
	"github.com/Sumit-Saurabh98/indexsearch/pkg/database"
	"github.com/Sumit-Saurabh98/indexsearch/pkg/tracing"
)

// Search engine backends.
const (
	EngineMemory        = "memory"
	EngineElasticsearch = "elasticsearch"
	EnginePostgres      = "postgres"
)

// Result cache backends.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config holds all configuration for the search service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	Version     string `env:"SERVICE_VERSION" envDefault:"dev"`

	// HTTP server
	HTTPPort        int           `env:"SEARCH_HTTP_PORT" envDefault:"8010"`
	RequestTimeout  time.Duration `env:"SEARCH_REQUEST_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"SEARCH_SHUTDOWN_TIMEOUT" envDefault:"15s"`
	CORSOrigins     []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	// Search engine selection (memory, elasticsearch or postgres)
	SearchEngine string `env:"SEARCH_ENGINE" envDefault:"memory"`

	// Elasticsearch
	ElasticsearchURL   string `env:"ELASTICSEARCH_URL" envDefault:"http://localhost:9200"`
	ElasticsearchIndex string `env:"ELASTICSEARCH_INDEX" envDefault:"products"`

	// PostgreSQL
	PostgresHost     string        `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort     int           `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser     string        `env:"POSTGRES_USER" envDefault:"postgres"`
	PostgresPassword string        `env:"POSTGRES_PASSWORD" envDefault:"postgres"`
	PostgresDB       string        `env:"POSTGRES_DB" envDefault:"search"`
	PostgresSSLMode  string        `env:"POSTGRES_SSLMODE" envDefault:"disable"`
	PostgresMaxConns int32         `env:"POSTGRES_MAX_CONNS" envDefault:"10"`
	PostgresMinConns int32         `env:"POSTGRES_MIN_CONNS" envDefault:"2"`
	SlowQuery        time.Duration `env:"POSTGRES_SLOW_QUERY" envDefault:"200ms"`

	// Result cache
	CacheBackend string        `env:"CACHE_BACKEND" envDefault:"memory"`
	CacheTTL     time.Duration `env:"CACHE_TTL" envDefault:"30s"`
	CacheMaxSize int           `env:"CACHE_MAX_SIZE" envDefault:"200"`

	// Redis
	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisPoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"10"`

	// Search behaviour
	MaxLimit      int           `env:"SEARCH_MAX_LIMIT" envDefault:"100"`
	SlowThreshold time.Duration `env:"SEARCH_SLOW_THRESHOLD" envDefault:"1s"`

	// Per-client limit on GET /api/v1/search/product. Zero disables it.
	RateLimitRPS   float64 `env:"SEARCH_RATE_LIMIT_RPS" envDefault:"20"`
	RateLimitBurst int     `env:"SEARCH_RATE_LIMIT_BURST" envDefault:"40"`

	// Kafka
	KafkaEnabled bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	KafkaGroupID string   `env:"KAFKA_GROUP_ID" envDefault:"search-service"`

	// Product service URL for reindex fetching
	ProductServiceURL string `env:"PRODUCT_SERVICE_URL" envDefault:"http://localhost:8080"`

	// Tracing
	OTelEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTelEndpoint   string  `env:"OTEL_ENDPOINT" envDefault:"localhost:4318"`
	OTelSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"0.1"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	return load(nil)
}

// LoadFrom reads configuration from an explicit variable set.
func LoadFrom(environment map[string]string) (*Config, error) {
	if environment == nil {
		environment = map[string]string{}
	}
	return load(environment)
}

func load(environment map[string]string) (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.LoadWithEnvironment(cfg, environment); err != nil {
		return nil, fmt.Errorf("load search config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	var errs []error
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP port: %d", c.HTTPPort))
	}
	if !slices.Contains([]string{EngineMemory, EngineElasticsearch, EnginePostgres}, c.SearchEngine) {
		errs = append(errs, fmt.Errorf("SEARCH_ENGINE must be memory, elasticsearch or postgres, got %q", c.SearchEngine))
	}
	if c.SearchEngine == EngineElasticsearch {
		if _, err := url.ParseRequestURI(c.ElasticsearchURL); err != nil {
			errs = append(errs, fmt.Errorf("invalid ELASTICSEARCH_URL: %w", err))
		}
		if c.ElasticsearchIndex == "" {
			errs = append(errs, errors.New("ELASTICSEARCH_INDEX is required"))
		}
	}
	if c.SearchEngine == EnginePostgres && (c.PostgresPort < 1 || c.PostgresPort > 65535) {
		errs = append(errs, fmt.Errorf("invalid POSTGRES_PORT: %d", c.PostgresPort))
	}
	if c.CacheBackend != CacheMemory && c.CacheBackend != CacheRedis {
		errs = append(errs, fmt.Errorf("CACHE_BACKEND must be memory or redis, got %q", c.CacheBackend))
	}
	if c.CacheTTL <= 0 {
		errs = append(errs, fmt.Errorf("CACHE_TTL must be positive, got %s", c.CacheTTL))
	}
	if c.CacheMaxSize < 1 {
		errs = append(errs, fmt.Errorf("CACHE_MAX_SIZE must be positive, got %d", c.CacheMaxSize))
	}
	if c.RateLimitRPS < 0 {
		errs = append(errs, fmt.Errorf("SEARCH_RATE_LIMIT_RPS must not be negative, got %g", c.RateLimitRPS))
	}
	if c.RateLimitRPS > 0 && c.RateLimitBurst < 1 {
		errs = append(errs, fmt.Errorf("SEARCH_RATE_LIMIT_BURST must be positive, got %d", c.RateLimitBurst))
	}
	if c.MaxLimit < 1 {
		errs = append(errs, fmt.Errorf("SEARCH_MAX_LIMIT must be positive, got %d", c.MaxLimit))
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		errs = append(errs, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is set"))
	}
	if c.OTelSampleRate < 0 || c.OTelSampleRate > 1 {
		errs = append(errs, fmt.Errorf("OTEL_SAMPLE_RATE must be within [0,1], got %g", c.OTelSampleRate))
	}
	return errors.Join(errs...)
}

// Postgres returns the connection pool settings.
func (c *Config) Postgres() database.PostgresConfig {
	return database.PostgresConfig{
		Host:            c.PostgresHost,
		Port:            c.PostgresPort,
		User:            c.PostgresUser,
		Password:        c.PostgresPassword,
		DBName:          c.PostgresDB,
		SSLMode:         c.PostgresSSLMode,
		MaxConns:        c.PostgresMaxConns,
		MinConns:        c.PostgresMinConns,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
	}
}

// Redis returns the Redis client settings.
func (c *Config) Redis() database.RedisConfig {
	return database.RedisConfig{
		Host:     c.RedisHost,
		Port:     c.RedisPort,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
		PoolSize: c.RedisPoolSize,
	}
}

// Tracing returns the trace exporter settings for service.
func (c *Config) Tracing(service string) tracing.Config {
	return tracing.Config{
		ServiceName:    service,
		ServiceVersion: c.Version,
		Environment:    c.Environment,
		Endpoint:       c.OTelEndpoint,
		SampleRate:     c.OTelSampleRate,
		Enabled:        c.OTelEnabled,
	}
}
