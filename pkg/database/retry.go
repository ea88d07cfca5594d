package database

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// RetryPolicy bounds the startup retries used when dialing Postgres or Redis
// and when applying migrations.
type RetryPolicy struct {
	Attempts int
	BaseWait time.Duration
	Jitter   float64
}

// DefaultRetryPolicy waits roughly 1s, 2s and 4s between attempts.
var DefaultRetryPolicy = RetryPolicy{Attempts: 3, BaseWait: time.Second, Jitter: 0.25}

func (p RetryPolicy) backoff(attempt int) time.Duration {
	base := p.BaseWait << max(attempt, 0)
	if p.Jitter <= 0 {
		return base
	}
	// #nosec G404 -- jitter does not need a secure source
	spread := float64(base) * p.Jitter * (2*rand.Float64() - 1)
	return base + time.Duration(spread)
}

// Retry runs fn until it succeeds, returns a non-transient error, or the
// attempts run out. op names the operation in logs and errors.
func Retry(ctx context.Context, policy RetryPolicy, logger *slog.Logger, op string, fn func(context.Context) error) error {
	attempts := max(policy.Attempts, 1)
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if !IsTransient(err) || attempt == attempts-1 {
			break
		}
		wait := policy.backoff(attempt)
		if logger != nil {
			logger.WarnContext(ctx, op+" failed, retrying",
				slog.Int("attempt", attempt+1),
				slog.Int("max_attempts", attempts),
				slog.Duration("backoff", wait),
				slog.String("error", err.Error()),
			)
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%s: %w", op, errors.Join(ctx.Err(), err))
		case <-timer.C:
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// IsTransient reports whether err looks like a connectivity failure worth
// retrying rather than a SQL or constraint error.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Class 08 is connection exceptions; 57P03 is "cannot connect now".
		return len(pgErr.Code) == 5 && (pgErr.Code[:2] == "08" || pgErr.Code == "57P03")
	}
	if pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE)
}
