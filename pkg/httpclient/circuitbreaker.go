package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker/v2"
)

// BreakerConfig tunes the circuit breaker guarding one upstream.
type BreakerConfig struct {
	Upstream string
	// HalfOpenProbes is how many requests may pass while half-open.
	HalfOpenProbes uint32
	// ResetInterval clears the closed-state counts; 0 never clears them.
	ResetInterval time.Duration
	// OpenFor is how long the breaker rejects before probing again.
	OpenFor    time.Duration
	TripRatio  float64
	MinSamples uint32
}

// DefaultBreakerConfig trips after half of at least five requests fail and
// probes again after thirty seconds.
func DefaultBreakerConfig(upstream string) BreakerConfig {
	return BreakerConfig{
		Upstream:       upstream,
		HalfOpenProbes: 1,
		ResetInterval:  time.Minute,
		OpenFor:        30 * time.Second,
		TripRatio:      0.5,
		MinSamples:     5,
	}
}

var (
	breakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "upstream_breaker_state",
		Help: "Breaker state per upstream (0=closed, 1=half-open, 2=open).",
	}, []string{"upstream"})
	breakerRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "upstream_breaker_rejected_total",
		Help: "Requests refused without contacting the upstream because its breaker was open.",
	}, []string{"upstream"})
)

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	}
	return -1
}

// ErrCircuitOpen is returned while the upstream's breaker is open.
var ErrCircuitOpen = gobreaker.ErrOpenState

// BreakerClient sends requests through a Client guarded by a circuit breaker.
// Server errors count against the upstream; client errors and caller
// cancellations do not.
type BreakerClient struct {
	client   *Client
	cb       *gobreaker.CircuitBreaker[*http.Response]
	upstream string
}

// NewBreakerClient wraps client with a breaker configured by cfg.
func NewBreakerClient(client *Client, cfg BreakerConfig, logger *slog.Logger) *BreakerClient {
	breakerState.WithLabelValues(cfg.Upstream).Set(0)
	cb := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        cfg.Upstream,
		MaxRequests: cfg.HalfOpenProbes,
		Interval:    cfg.ResetInterval,
		Timeout:     cfg.OpenFor,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.Requests >= cfg.MinSamples &&
				float64(c.TotalFailures)/float64(c.Requests) >= cfg.TripRatio
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("upstream breaker changed state",
				slog.String("upstream", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			breakerState.WithLabelValues(name).Set(stateValue(to))
		},
	})
	return &BreakerClient{client: client, cb: cb, upstream: cfg.Upstream}
}

// Do sends req. A 5xx response is drained, closed and returned as an error.
func (c *BreakerClient) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	resp, err := c.cb.Execute(func() (*http.Response, error) {
		resp, err := c.client.Do(ctx, req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
			_ = resp.Body.Close()
			return nil, fmt.Errorf("%s: server error %d: %s", c.upstream, resp.StatusCode, body)
		}
		return resp, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		breakerRejected.WithLabelValues(c.upstream).Inc()
	}
	return resp, err
}

// Post sends a POST with the given content type.
func (c *BreakerClient) Post(ctx context.Context, url, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("create POST request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	return c.Do(ctx, req)
}

// State reports the breaker's current state.
func (c *BreakerClient) State() gobreaker.State {
	return c.cb.State()
}
