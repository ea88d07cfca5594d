package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/J-Stott/RegularReviewsBackEnd/pkg/httpclient"
	"github.com/J-Stott/RegularReviewsBackEnd/pkg/keylock"
)

const (
	tokenLockKey  = "catalog:access-token"
	tokenCacheKey = "catalog:access-token"

	// tokenExpiryMargin is subtracted from the upstream expiry so a token is
	// never used in its last moments.
	tokenExpiryMargin = time.Minute
)

type accessToken struct {
	Value     string    `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (t *accessToken) valid(now time.Time) bool {
	return t != nil && t.Value != "" && now.Before(t.ExpiresAt)
}

// tokenSource hands out client-credentials access tokens. The current token
// is held in memory and shared through Redis; refreshes are serialized by a
// keyed lock so concurrent callers trigger one upstream request.
type tokenSource struct {
	http         *httpclient.BreakerClient
	redis        *redis.Client
	locks        *keylock.Mutex
	logger       *slog.Logger
	tokenURL     string
	clientID     string
	clientSecret string
	now          func() time.Time

	mu      sync.RWMutex
	current *accessToken
}

func (s *tokenSource) cached() *accessToken {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current.valid(s.now()) {
		return s.current
	}
	return nil
}

func (s *tokenSource) set(t *accessToken) {
	s.mu.Lock()
	s.current = t
	s.mu.Unlock()
}

// Token returns a valid access token, fetching a new one if needed.
func (s *tokenSource) Token(ctx context.Context) (string, error) {
	if t := s.cached(); t != nil {
		return t.Value, nil
	}

	var token string
	err := s.locks.WithLock(ctx, tokenLockKey, func(ctx context.Context) error {
		if t := s.cached(); t != nil {
			token = t.Value
			return nil
		}
		if t := s.fromRedis(ctx); t.valid(s.now()) {
			s.set(t)
			token = t.Value
			return nil
		}

		t, err := s.fetch(ctx)
		if err != nil {
			return err
		}
		s.set(t)
		s.toRedis(ctx, t)
		token = t.Value
		return nil
	})
	if err != nil {
		return "", err
	}
	return token, nil
}

// Invalidate drops token if it is still the current one, e.g. after the
// catalog rejected it.
func (s *tokenSource) Invalidate(ctx context.Context, token string) {
	s.mu.Lock()
	if s.current != nil && s.current.Value == token {
		s.current = nil
	}
	s.mu.Unlock()

	if s.redis != nil {
		if err := s.redis.Del(ctx, tokenCacheKey).Err(); err != nil {
			s.logger.WarnContext(ctx, "failed to drop cached access token", slog.String("error", err.Error()))
		}
	}
}

func (s *tokenSource) fromRedis(ctx context.Context) *accessToken {
	if s.redis == nil {
		return nil
	}
	data, err := s.redis.Get(ctx, tokenCacheKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.WarnContext(ctx, "failed to read cached access token", slog.String("error", err.Error()))
		}
		return nil
	}
	var t accessToken
	if err := json.Unmarshal(data, &t); err != nil {
		return nil
	}
	return &t
}

func (s *tokenSource) toRedis(ctx context.Context, t *accessToken) {
	if s.redis == nil {
		return
	}
	ttl := t.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return
	}
	data, err := json.Marshal(t)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, tokenCacheKey, data, ttl).Err(); err != nil {
		s.logger.WarnContext(ctx, "failed to cache access token", slog.String("error", err.Error()))
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

func (s *tokenSource) fetch(ctx context.Context) (*accessToken, error) {
	form := url.Values{
		"client_id":     {s.clientID},
		"client_secret": {s.clientSecret},
		"grant_type":    {"client_credentials"},
	}

	resp, err := s.http.Post(ctx, s.tokenURL, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("request access token: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, httpclient.ParseResponseError(resp, "twitch")
	}
	defer resp.Body.Close()

	var body tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode access token: %w", err)
	}
	if body.AccessToken == "" {
		return nil, errors.New("decode access token: empty token")
	}

	expires := time.Duration(body.ExpiresIn)*time.Second - tokenExpiryMargin
	if expires <= 0 {
		expires = time.Duration(body.ExpiresIn) * time.Second
	}

	s.logger.InfoContext(ctx, "catalog access token refreshed",
		slog.Int64("expires_in_seconds", body.ExpiresIn),
	)
	return &accessToken{Value: body.AccessToken, ExpiresAt: s.now().Add(expires)}, nil
}
