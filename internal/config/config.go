// Package config holds the review service configuration.
package config

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/J-Stott/RegularReviewsBackEnd/internal/catalog"
	"github.com/J-Stott/RegularReviewsBackEnd/internal/service"
	pkgconfig "github.com/J-Stott/RegularReviewsBackEnd/pkg/config"
	"github.com/J-Stott/RegularReviewsBackEnd/pkg/database"
	"github.com/J-Stott/RegularReviewsBackEnd/pkg/logger"
	"github.com/J-Stott/RegularReviewsBackEnd/pkg/tracing"
)

// Storage drivers.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config holds all configuration for the review service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"review-service"`
	Version     string `env:"SERVICE_VERSION" envDefault:"dev"`

	// HTTP server
	HTTPPort          int      `env:"REVIEW_HTTP_PORT" envDefault:"8080"`
	CORSOrigins       []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	PublicCacheMaxAge int      `env:"PUBLIC_CACHE_MAX_AGE_SECONDS" envDefault:"30"`
	RateLimitRPS      float64  `env:"RATE_LIMIT_RPS" envDefault:"5"`
	RateLimitBurst    int      `env:"RATE_LIMIT_BURST" envDefault:"20"`

	// Storage: postgres, or memory for local runs without a database.
	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"postgres"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"reviews"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"reviews_secret"`
	PostgresDB   string `env:"REVIEW_DB_NAME" envDefault:"reviews_db"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Database pool
	DBMaxConns            int32 `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns            int32 `env:"DB_MIN_CONNS" envDefault:"5"`
	DBMaxConnLifetimeMins int   `env:"DB_MAX_CONN_LIFETIME_MINUTES" envDefault:"60"`
	DBMaxConnIdleTimeMins int   `env:"DB_MAX_CONN_IDLE_TIME_MINUTES" envDefault:"30"`

	// Slow query logging
	SlowQueryThresholdMs int `env:"LOG_SLOW_QUERY_MS" envDefault:"500"`

	// Redis. An empty address disables the catalog cache and idempotency store.
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Game catalog. Without credentials only already stored games can be reviewed.
	IGDBClientID           string `env:"IGDB_CLIENT_ID"`
	IGDBClientSecret       string `env:"IGDB_CLIENT_SECRET"`
	IGDBBaseURL            string `env:"IGDB_BASE_URL" envDefault:"https://api.igdb.com/v4"`
	IGDBTokenURL           string `env:"IGDB_TOKEN_URL" envDefault:"https://id.twitch.tv/oauth2/token"`
	CatalogCacheTTLMinutes int    `env:"CATALOG_CACHE_TTL_MINUTES" envDefault:"1440"`

	// Kafka
	KafkaEnabled bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	KafkaGroupID string   `env:"KAFKA_GROUP_ID" envDefault:"review-service"`

	// Auth
	JWTSecret string `env:"JWT_SECRET" envDefault:"dev-secret-change-me"`
	JWTIssuer string `env:"JWT_ISSUER"`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Pprof debug endpoints (IP allowlist in CIDR notation)
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"127.0.0.0/8,::1/128" envSeparator:","`

	// Review rules
	KeylockTimeoutMs       int `env:"KEYLOCK_TIMEOUT_MS" envDefault:"10000"`
	ReviewGracePeriodHours int `env:"REVIEW_GRACE_PERIOD_HOURS" envDefault:"48"`
	CommentsPageSize       int `env:"COMMENTS_PAGE_SIZE" envDefault:"20"`
	ReviewsPageSize        int `env:"REVIEWS_PAGE_SIZE" envDefault:"10"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load review config: %w", err)
	}
	return cfg, nil
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	check(c.HTTPPort >= 1 && c.HTTPPort <= 65535, "invalid HTTP port: %d", c.HTTPPort)
	check(slices.Contains([]string{StoragePostgres, StorageMemory}, c.StorageDriver),
		"STORAGE_DRIVER must be %q or %q, got %q", StoragePostgres, StorageMemory, c.StorageDriver)
	if c.StorageDriver == StoragePostgres {
		check(c.PostgresHost != "", "POSTGRES_HOST is required")
		check(c.PostgresUser != "", "POSTGRES_USER is required")
		check(c.DBMinConns <= c.DBMaxConns, "DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.KafkaEnabled {
		check(len(c.KafkaBrokers) > 0, "KAFKA_BROKERS is required when KAFKA_ENABLED is set")
	}
	check((c.IGDBClientID == "") == (c.IGDBClientSecret == ""),
		"IGDB_CLIENT_ID and IGDB_CLIENT_SECRET must be set together")
	check(c.JWTSecret != "", "JWT_SECRET is required")
	check(c.Environment != "production" || c.JWTSecret != "dev-secret-change-me",
		"JWT_SECRET must be changed in production")
	check(c.OTELSampleRate >= 0 && c.OTELSampleRate <= 1.0,
		"OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	check(c.RateLimitRPS > 0, "RATE_LIMIT_RPS must be > 0, got %f", c.RateLimitRPS)
	check(c.RateLimitBurst > 0, "RATE_LIMIT_BURST must be > 0, got %d", c.RateLimitBurst)
	check(c.KeylockTimeoutMs > 0, "KEYLOCK_TIMEOUT_MS must be > 0, got %d", c.KeylockTimeoutMs)
	check(c.ReviewGracePeriodHours >= 0, "REVIEW_GRACE_PERIOD_HOURS must be >= 0, got %d", c.ReviewGracePeriodHours)
	check(c.CommentsPageSize > 0, "COMMENTS_PAGE_SIZE must be > 0, got %d", c.CommentsPageSize)
	check(c.ReviewsPageSize > 0, "REVIEWS_PAGE_SIZE must be > 0, got %d", c.ReviewsPageSize)
	check(c.CatalogCacheTTLMinutes > 0, "CATALOG_CACHE_TTL_MINUTES must be > 0, got %d", c.CatalogCacheTTLMinutes)

	return errors.Join(errs...)
}

// Postgres returns the connection and pool settings.
func (c *Config) Postgres() database.PostgresConfig {
	return database.PostgresConfig{
		Host:            c.PostgresHost,
		Port:            c.PostgresPort,
		User:            c.PostgresUser,
		Password:        c.PostgresPass,
		DBName:          c.PostgresDB,
		SSLMode:         c.PostgresSSL,
		MaxConns:        c.DBMaxConns,
		MinConns:        c.DBMinConns,
		MaxConnLifetime: time.Duration(c.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime: time.Duration(c.DBMaxConnIdleTimeMins) * time.Minute,
	}
}

// Redis returns the Redis client settings.
func (c *Config) Redis() database.RedisConfig {
	return database.RedisConfig{Addr: c.RedisAddr, Password: c.RedisPassword, DB: c.RedisDB}
}

// Catalog returns the IGDB client settings.
func (c *Config) Catalog() catalog.Config {
	return catalog.Config{
		ClientID:     c.IGDBClientID,
		ClientSecret: c.IGDBClientSecret,
		BaseURL:      c.IGDBBaseURL,
		TokenURL:     c.IGDBTokenURL,
	}
}

// CatalogEnabled reports whether IGDB credentials are configured.
func (c *Config) CatalogEnabled() bool {
	return c.IGDBClientID != ""
}

// CatalogCacheTTL is how long catalog lookups stay cached.
func (c *Config) CatalogCacheTTL() time.Duration {
	return time.Duration(c.CatalogCacheTTLMinutes) * time.Minute
}

// Tracing returns the tracer settings.
func (c *Config) Tracing() tracing.Config {
	return tracing.Config{
		Enabled:        c.OTELEnabled,
		ServiceName:    c.ServiceName,
		ServiceVersion: c.Version,
		Environment:    c.Environment,
		OTLPEndpoint:   c.OTELEndpoint,
		SampleRate:     c.OTELSampleRate,
	}
}

// ServiceOptions returns the review rule tunables.
func (c *Config) ServiceOptions() service.Options {
	opts := service.DefaultOptions()
	opts.GracePeriod = time.Duration(c.ReviewGracePeriodHours) * time.Hour
	opts.CommentsPageSize = c.CommentsPageSize
	opts.ReviewsPageSize = c.ReviewsPageSize
	return opts
}

// KeylockTimeout bounds how long an operation waits for a keyed lock.
func (c *Config) KeylockTimeout() time.Duration {
	return time.Duration(c.KeylockTimeoutMs) * time.Millisecond
}

// SlowQueryThreshold is the duration above which queries are logged.
func (c *Config) SlowQueryThreshold() time.Duration {
	return time.Duration(c.SlowQueryThresholdMs) * time.Millisecond
}

// PublicCacheTTL is the max-age of anonymous public reads.
func (c *Config) PublicCacheTTL() time.Duration {
	return time.Duration(c.PublicCacheMaxAge) * time.Second
}
