package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"github.com/J-Stott/RegularReviewsBackEnd/internal/domain"
)

const gameKeyPrefix = "catalog:game:"

var cacheLookups = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "catalog_cache_lookups_total",
		Help: "Total number of catalog cache lookups by result (hit, miss, error)",
	},
	[]string{"result"},
)

// Lookup is the catalog contract shared by the IGDB client and the cache.
type Lookup interface {
	LookupGame(ctx context.Context, igdbID int64) (*domain.CatalogGame, error)
}

// CachedCatalog caches catalog lookups in Redis. Redis failures are logged
// and fall through to the wrapped catalog.
type CachedCatalog struct {
	next   Lookup
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedCatalog wraps next with a Redis cache of the given TTL.
func NewCachedCatalog(next Lookup, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedCatalog {
	return &CachedCatalog{next: next, client: client, ttl: ttl, logger: logger}
}

func gameKey(igdbID int64) string {
	return fmt.Sprintf("%s%d", gameKeyPrefix, igdbID)
}

// LookupGame returns the cached entry or asks the wrapped catalog and caches
// a successful answer.
func (c *CachedCatalog) LookupGame(ctx context.Context, igdbID int64) (*domain.CatalogGame, error) {
	key := gameKey(igdbID)

	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var game domain.CatalogGame
		if err := json.Unmarshal(data, &game); err == nil {
			cacheLookups.WithLabelValues("hit").Inc()
			return &game, nil
		}
		cacheLookups.WithLabelValues("error").Inc()
	case errors.Is(err, redis.Nil):
		cacheLookups.WithLabelValues("miss").Inc()
	default:
		cacheLookups.WithLabelValues("error").Inc()
		c.logger.WarnContext(ctx, "catalog cache read failed",
			slog.Int64("igdb_id", igdbID),
			slog.String("error", err.Error()),
		)
	}

	game, err := c.next.LookupGame(ctx, igdbID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(game); err == nil {
		if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.WarnContext(ctx, "catalog cache write failed",
				slog.Int64("igdb_id", igdbID),
				slog.String("error", err.Error()),
			)
		}
	}
	return game, nil
}
