package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/J-Stott/RegularReviewsBackEnd/internal/domain"
	apperrors "github.com/J-Stott/RegularReviewsBackEnd/pkg/errors"
	"github.com/J-Stott/RegularReviewsBackEnd/pkg/keylock"
)

// Lock key builders. Every aggregate mutation happens under exactly one of
// these keys per aggregate.
func gameKey(id string) string           { return "game:" + id }
func reviewKey(id string) string         { return "review:" + id }
func userKey(id string) string           { return "user:" + id }
func catalogKey(igdbID int64) string     { return fmt.Sprintf("catalog:%d", igdbID) }
func createKey(user, game string) string { return "create:" + user + ":" + game }

// Options holds tunables shared by the services.
type Options struct {
	// GracePeriod is how long after a game's release reviews are refused.
	GracePeriod time.Duration
	// ReviewsPageSize is the page size for review listings.
	ReviewsPageSize int
	// CommentsPageSize is the page size for discussion listings.
	CommentsPageSize int
	// Now returns the current time; defaults to time.Now in UTC.
	Now func() time.Time
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		GracePeriod:      48 * time.Hour,
		ReviewsPageSize:  10,
		CommentsPageSize: 20,
		Now:              func() time.Time { return time.Now().UTC() },
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.GracePeriod < 0 {
		o.GracePeriod = 0
	}
	if o.ReviewsPageSize <= 0 {
		o.ReviewsPageSize = d.ReviewsPageSize
	}
	if o.CommentsPageSize <= 0 {
		o.CommentsPageSize = d.CommentsPageSize
	}
	if o.Now == nil {
		o.Now = d.Now
	}
	return o
}

// lockErr converts a keylock failure into the LOCK_TIMEOUT application error.
func lockErr(key string, err error) error {
	if errors.Is(err, keylock.ErrTimeout) {
		return apperrors.LockTimeout(key, err)
	}
	return err
}

// withLock runs fn under key, mapping acquisition failures.
func withLock(ctx context.Context, locks *keylock.Mutex, key string, fn func(ctx context.Context) error) error {
	release, err := locks.Lock(ctx, key)
	if err != nil {
		return lockErr(key, err)
	}
	defer release()
	return fn(ctx)
}

// withReviewLock holds the review key, then the aggregate keys. Keys are
// always taken in the order create, review, then game and user, so a saga
// holding a review key can still reach the game and user keys.
func withReviewLock(ctx context.Context, locks *keylock.Mutex, reviewID string, aggregates []string, fn func(ctx context.Context) error) error {
	return withLock(ctx, locks, reviewKey(reviewID), func(ctx context.Context) error {
		return withLocks(ctx, locks, aggregates, fn)
	})
}

// withLocks runs fn while holding every key.
func withLocks(ctx context.Context, locks *keylock.Mutex, keys []string, fn func(ctx context.Context) error) error {
	release, err := locks.LockMany(ctx, keys...)
	if err != nil {
		return lockErr(fmt.Sprint(keys), err)
	}
	defer release()
	return fn(ctx)
}

// persistErr passes typed failures through and wraps everything else as a
// PERSISTENCE_ERROR.
func persistErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperrors.AppError
	switch {
	case errors.As(err, &appErr):
		return err
	case apperrors.IsClientError(err),
		errors.Is(err, apperrors.ErrInvariantViolation),
		errors.Is(err, apperrors.ErrLockTimeout):
		return err
	default:
		return apperrors.Persistence(op, err)
	}
}

// requirePrincipal rejects anonymous callers.
func requirePrincipal(p *domain.Principal) error {
	if p == nil || p.UserID == "" {
		return apperrors.Unauthorized("authentication required")
	}
	return nil
}
