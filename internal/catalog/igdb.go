// Package catalog looks games up in the IGDB catalog.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/J-Stott/RegularReviewsBackEnd/internal/domain"
	apperrors "github.com/J-Stott/RegularReviewsBackEnd/pkg/errors"
	"github.com/J-Stott/RegularReviewsBackEnd/pkg/httpclient"
	"github.com/J-Stott/RegularReviewsBackEnd/pkg/keylock"
)

// Config holds the IGDB credentials and endpoints.
type Config struct {
	ClientID     string
	ClientSecret string
	BaseURL      string
	TokenURL     string
}

const gameFields = "fields name,url,summary,first_release_date,cover.url;"

// IGDBClient queries the IGDB v4 API. It satisfies service.Catalog.
type IGDBClient struct {
	http    *httpclient.BreakerClient
	tokens  *tokenSource
	cfg     Config
	logger  *slog.Logger
	baseURL string
}

// NewIGDBClient creates an IGDB client. rdb may be nil, in which case access
// tokens are only held in memory.
func NewIGDBClient(cfg Config, rdb *redis.Client, locks *keylock.Mutex, logger *slog.Logger) *IGDBClient {
	hc := httpclient.NewBreakerClient(
		httpclient.New(httpclient.DefaultConfig()),
		httpclient.DefaultBreakerConfig("igdb"),
		logger,
	)
	return &IGDBClient{
		http: hc,
		tokens: &tokenSource{
			http:         hc,
			redis:        rdb,
			locks:        locks,
			logger:       logger,
			tokenURL:     cfg.TokenURL,
			clientID:     cfg.ClientID,
			clientSecret: cfg.ClientSecret,
			now:          time.Now,
		},
		cfg:     cfg,
		logger:  logger,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
	}
}

type igdbGame struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	URL              string `json:"url"`
	Summary          string `json:"summary"`
	FirstReleaseDate *int64 `json:"first_release_date"`
	Cover            *struct {
		URL string `json:"url"`
	} `json:"cover"`
}

func (g igdbGame) toDomain() *domain.CatalogGame {
	out := &domain.CatalogGame{
		ID:      g.ID,
		Name:    g.Name,
		URL:     g.URL,
		Summary: g.Summary,
	}
	if g.FirstReleaseDate != nil {
		released := time.Unix(*g.FirstReleaseDate, 0).UTC()
		out.ReleaseDate = &released
	}
	if g.Cover != nil {
		out.CoverURL = g.Cover.URL
	}
	return out
}

// LookupGame fetches a single game by its IGDB id.
func (c *IGDBClient) LookupGame(ctx context.Context, igdbID int64) (*domain.CatalogGame, error) {
	query := fmt.Sprintf("%s where id = %d; limit 1;", gameFields, igdbID)

	var games []igdbGame
	if err := c.query(ctx, "games", query, &games); err != nil {
		return nil, err
	}
	if len(games) == 0 {
		return nil, apperrors.NotFound("catalog game", fmt.Sprint(igdbID))
	}
	return games[0].toDomain(), nil
}

// query runs an Apicalypse query against endpoint. A rejected token is
// dropped and the query retried once with a fresh one.
func (c *IGDBClient) query(ctx context.Context, endpoint, body string, out any) error {
	for attempt := 0; ; attempt++ {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return fmt.Errorf("catalog token: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+endpoint, strings.NewReader(body))
		if err != nil {
			return fmt.Errorf("create catalog request: %w", err)
		}
		req.Header.Set("Client-ID", c.cfg.ClientID)
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Content-Type", "text/plain")

		resp, err := c.http.Do(ctx, req)
		if err != nil {
			if errors.Is(err, httpclient.ErrCircuitOpen) {
				return apperrors.ServiceUnavailable("game catalog is unavailable")
			}
			return fmt.Errorf("catalog request: %w", err)
		}

		if resp.StatusCode == http.StatusUnauthorized && attempt == 0 {
			_ = resp.Body.Close()
			c.tokens.Invalidate(ctx, token)
			c.logger.WarnContext(ctx, "catalog rejected access token, refreshing")
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return httpclient.ParseResponseError(resp, "igdb")
		}

		defer resp.Body.Close()
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode catalog response: %w", err)
		}
		return nil
	}
}

// Disabled is a catalog used when no IGDB credentials are configured. Every
// lookup fails with SERVICE_UNAVAILABLE; games already stored keep working.
type Disabled struct{}

// LookupGame always fails.
func (Disabled) LookupGame(context.Context, int64) (*domain.CatalogGame, error) {
	return nil, apperrors.ServiceUnavailable("game catalog is not configured")
}
