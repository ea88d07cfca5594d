// Package app wires the review service together and runs it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/J-Stott/RegularReviewsBackEnd/internal/auth"
	"github.com/J-Stott/RegularReviewsBackEnd/internal/catalog"
	"github.com/J-Stott/RegularReviewsBackEnd/internal/config"
	"github.com/J-Stott/RegularReviewsBackEnd/internal/event"
	handler "github.com/J-Stott/RegularReviewsBackEnd/internal/handler/http"
	"github.com/J-Stott/RegularReviewsBackEnd/internal/repository"
	"github.com/J-Stott/RegularReviewsBackEnd/internal/repository/memory"
	"github.com/J-Stott/RegularReviewsBackEnd/internal/repository/postgres"
	"github.com/J-Stott/RegularReviewsBackEnd/internal/service"
	"github.com/J-Stott/RegularReviewsBackEnd/migrations"
	"github.com/J-Stott/RegularReviewsBackEnd/pkg/database"
	"github.com/J-Stott/RegularReviewsBackEnd/pkg/health"
	pkgkafka "github.com/J-Stott/RegularReviewsBackEnd/pkg/kafka"
	"github.com/J-Stott/RegularReviewsBackEnd/pkg/keylock"
	"github.com/J-Stott/RegularReviewsBackEnd/pkg/middleware"
	"github.com/J-Stott/RegularReviewsBackEnd/pkg/tracing"
)

// accessTokenExpiry is the lifetime of tokens signed with JWT_SECRET.
const accessTokenExpiry = 15 * time.Minute

// App wires together all dependencies and runs the review service.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	pool        *pgxpool.Pool
	redis       *redis.Client
	producer    *pkgkafka.Producer
	dlq         *pkgkafka.DLQProducer
	userDeleted *pkgkafka.Consumer

	services       handler.Services
	httpServer     *http.Server
	tracerShutdown tracing.Shutdown
	stopBackground context.CancelFunc
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}
	if err := a.init(ctx); err != nil {
		_ = a.closeResources()
		if a.tracerShutdown != nil {
			_ = a.tracerShutdown(ctx)
		}
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg, logger := a.cfg, a.logger

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.Init(ctx, cfg.Tracing())
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	a.tracerShutdown = tracerShutdown

	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}

	a.redis = a.openRedis(ctx)

	locks := keylock.New(keylock.WithTimeout(cfg.KeylockTimeout()))
	opts := cfg.ServiceOptions()

	// Event publishing is optional; without Kafka events are dropped.
	var events service.EventPublisher = service.NopPublisher{}
	if cfg.KafkaEnabled {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		if err := database.Retry(ctx, database.DefaultRetryPolicy, logger, "kafka ping", a.producer.Ping); err != nil {
			logger.Warn("kafka producer ping failed after retries, continuing in degraded mode",
				slog.String("error", err.Error()),
			)
		} else {
			logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
		}
		events = event.NewProducer(a.producer, logger)
	}

	// Build the dependency graph.
	games := service.NewGameService(store, a.catalog(locks), locks, logger, opts)
	aggregates := service.NewAggregateMaintainer(store, locks, logger, opts)
	reviews := service.NewReviewService(store, games, aggregates, locks, events, logger, opts)
	a.services = handler.Services{
		Games:       games,
		Reviews:     reviews,
		Reactions:   service.NewReactionService(store, locks, events, logger),
		Discussions: service.NewDiscussionService(store, locks, events, logger, opts),
		Drafts:      service.NewDraftService(store, games, opts),
		Aggregates:  aggregates,
	}

	if cfg.KafkaEnabled {
		a.userDeleted = a.newUserDeletedConsumer(reviews)
	}

	// Health checks.
	healthHandler := health.NewHandler(5 * time.Second)
	healthHandler.RegisterCritical("store", store.Ping)
	if a.redis != nil {
		healthHandler.RegisterNonCritical("redis", func(ctx context.Context) error {
			return a.redis.Ping(ctx).Err()
		})
	}
	if a.producer != nil {
		healthHandler.RegisterNonCritical("kafka", a.producer.Ping)
	}

	bgCtx, stop := context.WithCancel(context.Background())
	a.stopBackground = stop

	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.CORSOrigins
	cors.Environment = cfg.Environment

	// HTTP router.
	router := handler.NewRouter(a.services, healthHandler, handler.RouterConfig{
		ServiceName:       cfg.ServiceName,
		Validator:         auth.NewManager(cfg.JWTSecret, cfg.JWTIssuer, accessTokenExpiry).Validator(),
		RateLimiter:       middleware.NewRateLimiter(bgCtx, cfg.RateLimitRPS, cfg.RateLimitBurst, logger),
		CORS:              cors,
		PprofCIDRs:        cfg.PprofAllowedCIDRs,
		PublicCacheMaxAge: cfg.PublicCacheTTL(),
	}, logger)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return nil
}

// openStore connects the configured storage backend.
func (a *App) openStore(ctx context.Context) (repository.Store, error) {
	cfg, logger := a.cfg, a.logger

	if cfg.StorageDriver == config.StorageMemory {
		logger.Warn("using in-memory storage, data is lost on restart")
		return memory.New(), nil
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres(), logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	a.pool = pool
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, cfg.ServiceName); err != nil {
		logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
	}

	// Run database migrations.
	if err := database.Migrate(ctx, pool, migrations.FS, logger); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	// Configure slow query logging.
	if cfg.SlowQueryThresholdMs > 0 {
		database.SetSlowQueryLogging(cfg.SlowQueryThreshold(), logger)
	}
	return postgres.NewStore(pool), nil
}

// openRedis connects to Redis. Redis only backs caches, so the service
// starts without it.
func (a *App) openRedis(ctx context.Context) *redis.Client {
	if a.cfg.RedisAddr == "" {
		return nil
	}
	client, err := database.NewRedisClient(ctx, a.cfg.Redis(), a.logger)
	if err != nil {
		a.logger.Warn("redis unavailable, continuing without cache",
			slog.String("addr", a.cfg.RedisAddr),
			slog.String("error", err.Error()),
		)
		return nil
	}
	return client
}

// catalog builds the game catalog, cached in Redis when available.
func (a *App) catalog(locks *keylock.Mutex) service.Catalog {
	if !a.cfg.CatalogEnabled() {
		a.logger.Warn("IGDB credentials not configured, catalog lookups disabled")
		return catalog.Disabled{}
	}
	client := catalog.NewIGDBClient(a.cfg.Catalog(), a.redis, locks, a.logger)
	if a.redis == nil {
		return client
	}
	return catalog.NewCachedCatalog(client, a.redis, a.cfg.CatalogCacheTTL(), a.logger)
}

// newUserDeletedConsumer removes a deleted account's reviews. Redeliveries
// are filtered by event ID.
func (a *App) newUserDeletedConsumer(reviews *service.ReviewService) *pkgkafka.Consumer {
	var store pkgkafka.IdempotencyStore = pkgkafka.NewMemoryIdempotencyStore(24 * time.Hour)
	if a.redis != nil {
		store = pkgkafka.NewRedisIdempotencyStore(a.redis, a.cfg.ServiceName+":processed", 24*time.Hour)
	}

	consumer := event.NewConsumer(reviews, a.logger)
	a.dlq = pkgkafka.NewDLQProducer(a.cfg.KafkaBrokers, a.logger)

	return pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
		Brokers:  a.cfg.KafkaBrokers,
		GroupID:  a.cfg.KafkaGroupID + "-user-deleted",
		Topic:    event.TopicUserDeleted,
		MinBytes: 1,
		MaxBytes: 10e6,
	}, pkgkafka.IdempotentHandler(store, consumer.HandleUserDeleted, a.logger), a.logger).WithDLQ(a.dlq)
}

// Handler returns the HTTP handler.
func (a *App) Handler() http.Handler {
	return a.httpServer.Handler
}

// Run starts the HTTP server and Kafka consumer, then blocks until the
// context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	// Start HTTP server.
	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	// Start Kafka consumer.
	if a.userDeleted != nil {
		go func() {
			if err := a.userDeleted.Start(ctx); err != nil {
				errCh <- fmt.Errorf("user deleted consumer: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		if shutdownErr := a.Shutdown(); shutdownErr != nil {
			return errors.Join(err, shutdownErr)
		}
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in order:
// 1. HTTP server (drain in-flight requests)
// 2. Tracer (flush pending spans from drained requests)
// 3. Kafka consumer and dead letter producer
// 4. Kafka producer
// 5. Redis and PostgreSQL
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	// 1. Drain in-flight HTTP requests (5s budget).
	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 2. Flush pending spans after HTTP drain so in-flight request spans are captured.
	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if err := a.closeResources(); err != nil {
		errs = append(errs, err)
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// closeResources releases everything opened by init. Fields left nil by a
// failed init are skipped.
func (a *App) closeResources() error {
	var errs []error
	closeWith := func(name string, fn func() error) {
		if err := fn(); err != nil {
			a.logger.Error(name+" close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.stopBackground != nil {
		a.stopBackground()
	}
	if a.userDeleted != nil {
		closeWith("user deleted consumer", a.userDeleted.Close)
	}
	if a.dlq != nil {
		closeWith("dead letter producer", a.dlq.Close)
	}
	if a.producer != nil {
		closeWith("kafka producer", a.producer.Close)
	}
	if a.redis != nil {
		closeWith("redis", a.redis.Close)
	}
	if a.pool != nil {
		a.pool.Close()
	}
	return errors.Join(errs...)
}
