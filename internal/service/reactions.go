package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/J-Stott/RegularReviewsBackEnd/internal/domain"
	"github.com/J-Stott/RegularReviewsBackEnd/internal/repository"
	apperrors "github.com/J-Stott/RegularReviewsBackEnd/pkg/errors"
	"github.com/J-Stott/RegularReviewsBackEnd/pkg/keylock"
)

// ReactionsView is a review's tally plus the viewer's own state, if signed in.
type ReactionsView struct {
	Tally     domain.Tally         `json:"tally"`
	UserState *domain.UserReaction `json:"user_state"`
}

// ReactionService applies reaction toggles under the review's lock.
type ReactionService struct {
	store  repository.Store
	locks  *keylock.Mutex
	events EventPublisher
	logger *slog.Logger
}

// NewReactionService creates a new reaction service. A nil publisher disables events.
func NewReactionService(store repository.Store, locks *keylock.Mutex, events EventPublisher, logger *slog.Logger) *ReactionService {
	if events == nil {
		events = NopPublisher{}
	}
	return &ReactionService{store: store, locks: locks, events: events, logger: logger}
}

// Toggle flips one reaction kind for the caller on a review.
func (s *ReactionService) Toggle(ctx context.Context, p *domain.Principal, reviewID, rawKind string) (*domain.ToggleResult, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	kind, err := domain.ParseReactionKind(rawKind)
	if err != nil {
		return nil, err
	}

	review, err := s.review(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if review.AuthorID == p.UserID {
		return nil, apperrors.ConflictWithCode("SELF_REACTION", "you cannot react to your own review")
	}

	var result domain.ToggleResult
	err = withLock(ctx, s.locks, reviewKey(reviewID), func(ctx context.Context) error {
		return s.store.WithTx(ctx, func(tx repository.Store) error {
			reaction, err := tx.Reactions().GetByID(ctx, review.ReactionID)
			if err != nil {
				if errors.Is(err, apperrors.ErrNotFound) {
					// The review was deleted while we waited for the lock.
					return apperrors.NotFound("review", reviewID)
				}
				return persistErr("get reaction", err)
			}
			state, err := tx.Reactions().GetUserReaction(ctx, reaction.ID, p.UserID)
			if err != nil {
				return persistErr("get user reaction", err)
			}

			result, err = domain.Toggle(reaction.Tally, state, kind)
			if err != nil {
				return err
			}

			if err := tx.Reactions().UpdateTally(ctx, reaction.ID, result.Tally); err != nil {
				return persistErr("update reaction tally", err)
			}
			if err := tx.Reactions().PutUserReaction(ctx, reaction.ID, p.UserID, result.UserState); err != nil {
				return persistErr("save user reaction", err)
			}
			return nil
		})
	})
	if err != nil {
		return nil, persistErr("toggle reaction", err)
	}

	ReactionToggles.WithLabelValues(string(kind)).Inc()
	if err := s.events.PublishReactionToggled(ctx, reviewID, p.UserID, result); err != nil {
		s.logger.WarnContext(ctx, "failed to publish reaction event",
			slog.String("review_id", reviewID),
			slog.String("error", err.Error()),
		)
	}
	return &result, nil
}

// Get returns a review's tally and, for a signed-in viewer, their own state.
func (s *ReactionService) Get(ctx context.Context, reviewID string, viewer *domain.Principal) (*ReactionsView, error) {
	review, err := s.review(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	reaction, err := s.store.Reactions().GetByID(ctx, review.ReactionID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("reaction", review.ReactionID)
		}
		return nil, persistErr("get reaction", err)
	}

	view := &ReactionsView{Tally: reaction.Tally}
	if viewer != nil && viewer.UserID != "" {
		state, err := s.store.Reactions().GetUserReaction(ctx, reaction.ID, viewer.UserID)
		if err != nil {
			return nil, persistErr("get user reaction", err)
		}
		view.UserState = &state
	}
	return view, nil
}

func (s *ReactionService) review(ctx context.Context, reviewID string) (*domain.Review, error) {
	if reviewID == "" {
		return nil, apperrors.InvalidInput("review id is required")
	}
	review, err := s.store.Reviews().GetByID(ctx, reviewID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("review", reviewID)
		}
		return nil, persistErr("get review", err)
	}
	return review, nil
}
