package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ok(context.Context) error { return nil }

func failing(msg string) Checker {
	return func(context.Context) error { return errors.New(msg) }
}

func probe(t *testing.T, handler http.HandlerFunc) (int, Response) {
	t.Helper()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return rec.Code, resp
}

func TestLiveness_AlwaysUp(t *testing.T) {
	h := NewHandler(time.Second)
	h.RegisterCritical("postgres", failing("down"))

	code, resp := probe(t, h.LivenessHandler())
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, StatusUp, resp.Status)
	assert.Empty(t, resp.Checks)
	assert.False(t, resp.Timestamp.IsZero())
}

func TestReadiness(t *testing.T) {
	tests := []struct {
		name     string
		postgres Checker
		redis    Checker
		wantCode int
		want     Status
	}{
		{"all healthy", ok, ok, http.StatusOK, StatusUp},
		{"non-critical down", ok, failing("connection refused"), http.StatusOK, StatusDegraded},
		{"critical down", failing("no pool"), ok, http.StatusServiceUnavailable, StatusDown},
		{"everything down", failing("no pool"), failing("connection refused"), http.StatusServiceUnavailable, StatusDown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(time.Second)
			h.RegisterCritical("postgres", tt.postgres)
			h.RegisterNonCritical("redis", tt.redis)

			code, resp := probe(t, h.ReadinessHandler())
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.want, resp.Status)
			require.Len(t, resp.Checks, 2)
			assert.True(t, resp.Checks["postgres"].Critical)
			assert.False(t, resp.Checks["redis"].Critical)
		})
	}
}

func TestReadiness_ReportsCheckError(t *testing.T) {
	h := NewHandler(time.Second)
	h.RegisterNonCritical("kafka", failing("no brokers"))

	_, resp := probe(t, h.ReadinessHandler())
	assert.Equal(t, StatusDown, resp.Checks["kafka"].Status)
	assert.Equal(t, "no brokers", resp.Checks["kafka"].Error)
	assert.NotEmpty(t, resp.Checks["kafka"].Duration)
}

func TestCheck_TimesOutSlowChecks(t *testing.T) {
	h := NewHandler(20 * time.Millisecond)
	h.RegisterCritical("postgres", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	start := time.Now()
	resp := h.Check(context.Background())
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, StatusDown, resp.Status)
	assert.Contains(t, resp.Checks["postgres"].Error, "deadline exceeded")
}

func TestCheck_RunsConcurrently(t *testing.T) {
	h := NewHandler(time.Second)
	release := make(chan struct{})
	started := make(chan struct{}, 2)
	slow := func(ctx context.Context) error {
		started <- struct{}{}
		select {
		case <-release:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	h.RegisterCritical("a", slow)
	h.RegisterCritical("b", slow)

	done := make(chan Response)
	go func() { done <- h.Check(context.Background()) }()
	<-started
	<-started
	close(release)

	assert.Equal(t, StatusUp, (<-done).Status)
}

func TestRegister_ReplacesExistingCheck(t *testing.T) {
	h := NewHandler(time.Second)
	h.RegisterCritical("postgres", failing("old"))
	h.RegisterCritical("postgres", ok)

	assert.Equal(t, StatusUp, h.Check(context.Background()).Status)
}
