package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/J-Stott/RegularReviewsBackEnd/internal/domain"
	"github.com/J-Stott/RegularReviewsBackEnd/internal/repository"
	apperrors "github.com/J-Stott/RegularReviewsBackEnd/pkg/errors"
	"github.com/J-Stott/RegularReviewsBackEnd/pkg/keylock"
)

// AggregateMaintainer owns every read-modify-write of game averages and user
// review counters. The locking methods take the aggregate's key themselves;
// the *Locked methods expect the caller to hold it already, typically because
// the change is part of a wider transaction.
type AggregateMaintainer struct {
	store  repository.Store
	locks  *keylock.Mutex
	logger *slog.Logger
	opts   Options
}

// NewAggregateMaintainer creates a new aggregate maintainer.
func NewAggregateMaintainer(store repository.Store, locks *keylock.Mutex, logger *slog.Logger, opts Options) *AggregateMaintainer {
	return &AggregateMaintainer{store: store, locks: locks, logger: logger, opts: opts.withDefaults()}
}

// AddToGame folds a review's ratings into the game's averages.
func (m *AggregateMaintainer) AddToGame(ctx context.Context, gameID string, r domain.RatingVector) (*domain.Game, error) {
	var game *domain.Game
	err := withLock(ctx, m.locks, gameKey(gameID), func(ctx context.Context) error {
		var err error
		game, err = m.mutateGameLocked(ctx, m.store, gameID, func(g *domain.Game) error {
			g.AddRatings(r)
			return nil
		})
		return err
	})
	return game, err
}

// RemoveFromGame takes a review's ratings out of the game's averages.
func (m *AggregateMaintainer) RemoveFromGame(ctx context.Context, gameID string, r domain.RatingVector) (*domain.Game, error) {
	var game *domain.Game
	err := withLock(ctx, m.locks, gameKey(gameID), func(ctx context.Context) error {
		var err error
		game, err = m.RemoveFromGameLocked(ctx, m.store, gameID, r)
		return err
	})
	return game, err
}

// ReplaceInGame swaps one review's ratings for new ones in a single step.
func (m *AggregateMaintainer) ReplaceInGame(ctx context.Context, gameID string, old, updated domain.RatingVector) (*domain.Game, error) {
	var game *domain.Game
	err := withLock(ctx, m.locks, gameKey(gameID), func(ctx context.Context) error {
		var err error
		game, err = m.ReplaceInGameLocked(ctx, m.store, gameID, old, updated)
		return err
	})
	return game, err
}

// RemoveFromGameLocked is RemoveFromGame for callers already holding the game key.
func (m *AggregateMaintainer) RemoveFromGameLocked(ctx context.Context, store repository.Store, gameID string, r domain.RatingVector) (*domain.Game, error) {
	return m.mutateGameLocked(ctx, store, gameID, func(g *domain.Game) error {
		return g.RemoveRatings(r)
	})
}

// ReplaceInGameLocked is ReplaceInGame for callers already holding the game key.
func (m *AggregateMaintainer) ReplaceInGameLocked(ctx context.Context, store repository.Store, gameID string, old, updated domain.RatingVector) (*domain.Game, error) {
	return m.mutateGameLocked(ctx, store, gameID, func(g *domain.Game) error {
		return g.ReplaceRatings(old, updated)
	})
}

func (m *AggregateMaintainer) mutateGameLocked(ctx context.Context, store repository.Store, gameID string, mutate func(*domain.Game) error) (*domain.Game, error) {
	game, err := store.Games().GetByID(ctx, gameID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("game", gameID)
		}
		return nil, persistErr("get game", err)
	}
	if err := mutate(game); err != nil {
		return nil, err
	}
	game.UpdatedAt = m.opts.Now()
	if err := store.Games().UpdateAggregates(ctx, game); err != nil {
		return nil, persistErr("update game aggregates", err)
	}
	return game, nil
}

// AdjustUserReviews changes a user's review counter by delta.
func (m *AggregateMaintainer) AdjustUserReviews(ctx context.Context, userID string, delta int) (*domain.UserStats, error) {
	var stats *domain.UserStats
	err := withLock(ctx, m.locks, userKey(userID), func(ctx context.Context) error {
		var err error
		stats, err = m.AdjustUserReviewsLocked(ctx, m.store, userID, delta)
		return err
	})
	return stats, err
}

// AdjustUserReviewsLocked is AdjustUserReviews for callers already holding the user key.
func (m *AggregateMaintainer) AdjustUserReviewsLocked(ctx context.Context, store repository.Store, userID string, delta int) (*domain.UserStats, error) {
	stats, err := store.UserStats().Get(ctx, userID)
	if err != nil {
		return nil, persistErr("get user stats", err)
	}
	if stats.NumReviews+delta < 0 {
		return nil, apperrors.InvariantViolation(fmt.Sprintf("user %s review count would go negative", userID))
	}
	stats.NumReviews += delta
	if err := store.UserStats().Save(ctx, stats); err != nil {
		return nil, persistErr("save user stats", err)
	}
	return stats, nil
}

// RecomputeGame rebuilds a game's averages from its stored reviews.
func (m *AggregateMaintainer) RecomputeGame(ctx context.Context, gameID string) (*domain.Game, error) {
	var game *domain.Game
	err := withLock(ctx, m.locks, gameKey(gameID), func(ctx context.Context) error {
		ratings, err := m.store.Reviews().RatingsForGame(ctx, gameID)
		if err != nil {
			return persistErr("list game ratings", err)
		}
		game, err = m.mutateGameLocked(ctx, m.store, gameID, func(g *domain.Game) error {
			g.Recompute(ratings)
			return nil
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	m.logger.InfoContext(ctx, "game aggregates recomputed",
		slog.String("game_id", gameID),
		slog.Int("num_reviews", game.NumReviews),
	)
	return game, nil
}

// RecomputeUser recounts a user's reviews.
func (m *AggregateMaintainer) RecomputeUser(ctx context.Context, userID string) (*domain.UserStats, error) {
	var stats *domain.UserStats
	err := withLock(ctx, m.locks, userKey(userID), func(ctx context.Context) error {
		n, err := m.store.Reviews().CountByAuthor(ctx, userID)
		if err != nil {
			return persistErr("count user reviews", err)
		}
		stats = &domain.UserStats{UserID: userID, NumReviews: n}
		return persistErr("save user stats", m.store.UserStats().Save(ctx, stats))
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// RecomputeResult summarises a bulk recompute.
type RecomputeResult struct {
	Games int `json:"games"`
	Users int `json:"users"`
}

// RecomputeAll rebuilds every game and user aggregate, one key at a time.
func (m *AggregateMaintainer) RecomputeAll(ctx context.Context) (RecomputeResult, error) {
	var res RecomputeResult

	gameIDs, err := m.store.Games().ListIDs(ctx)
	if err != nil {
		return res, persistErr("list games", err)
	}
	for _, id := range gameIDs {
		if _, err := m.RecomputeGame(ctx, id); err != nil {
			return res, fmt.Errorf("recompute game %s: %w", id, err)
		}
		res.Games++
	}

	userIDs, err := m.store.UserStats().ListUserIDs(ctx)
	if err != nil {
		return res, persistErr("list users", err)
	}
	for _, id := range userIDs {
		if _, err := m.RecomputeUser(ctx, id); err != nil {
			return res, fmt.Errorf("recompute user %s: %w", id, err)
		}
		res.Users++
	}
	return res, nil
}

// GetUserStats returns a user's counters.
func (m *AggregateMaintainer) GetUserStats(ctx context.Context, userID string) (*domain.UserStats, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}
	stats, err := m.store.UserStats().Get(ctx, userID)
	if err != nil {
		return nil, persistErr("get user stats", err)
	}
	return stats, nil
}
