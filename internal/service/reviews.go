package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/J-Stott/RegularReviewsBackEnd/internal/domain"
	"github.com/J-Stott/RegularReviewsBackEnd/internal/repository"
	apperrors "github.com/J-Stott/RegularReviewsBackEnd/pkg/errors"
	"github.com/J-Stott/RegularReviewsBackEnd/pkg/keylock"
	"github.com/J-Stott/RegularReviewsBackEnd/pkg/pagination"
)

// CreateReviewInput holds the data for a new review. The game is identified
// either by its internal id or by its catalog id.
type CreateReviewInput struct {
	GameID          string             `json:"game_id"`
	IGDBID          int64              `json:"igdb_id"`
	Ratings         domain.RatingInput `json:"ratings"`
	Title           string             `json:"title"`
	Content         string             `json:"content"`
	WantsDiscussion bool               `json:"wants_discussion"`
	DraftID         string             `json:"draft_id,omitempty"`
}

// UpdateReviewInput holds the replacement ratings and text for a review.
type UpdateReviewInput struct {
	Ratings domain.RatingInput `json:"ratings"`
	Title   string             `json:"title"`
	Content string             `json:"content"`
}

// ReviewService orchestrates the review lifecycle: creation as a compensating
// saga, and edits and deletions as single transactions.
type ReviewService struct {
	store      repository.Store
	games      *GameService
	aggregates *AggregateMaintainer
	locks      *keylock.Mutex
	events     EventPublisher
	logger     *slog.Logger
	opts       Options
}

// NewReviewService creates a new review service. A nil publisher disables events.
func NewReviewService(
	store repository.Store,
	games *GameService,
	aggregates *AggregateMaintainer,
	locks *keylock.Mutex,
	events EventPublisher,
	logger *slog.Logger,
	opts Options,
) *ReviewService {
	if events == nil {
		events = NopPublisher{}
	}
	return &ReviewService{
		store:      store,
		games:      games,
		aggregates: aggregates,
		locks:      locks,
		events:     events,
		logger:     logger,
		opts:       opts.withDefaults(),
	}
}

func duplicateReview() error {
	return apperrors.ConflictWithCode("DUPLICATE_REVIEW", "you have already reviewed this game")
}

// Create validates the input and runs the creation saga. On failure every
// completed step is compensated before the error is returned.
func (s *ReviewService) Create(ctx context.Context, p *domain.Principal, in CreateReviewInput) (*domain.Review, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	ratings, err := in.Ratings.Normalize()
	if err != nil {
		return nil, err
	}
	text := domain.ReviewText{Title: in.Title, Content: in.Content}
	if err := text.Validate(); err != nil {
		return nil, err
	}

	game, err := s.resolveGame(ctx, in)
	if err != nil {
		return nil, err
	}

	// The review key is held for the whole saga so that edits, deletions,
	// reactions and comments on the new review wait until it is complete.
	reviewID := uuid.New().String()
	var review *domain.Review
	keys := []string{createKey(p.UserID, game.ID), reviewKey(reviewID)}
	err = withLocks(ctx, s.locks, keys, func(ctx context.Context) error {
		_, err := s.store.Reviews().GetByAuthorAndGame(ctx, p.UserID, game.ID)
		switch {
		case err == nil:
			return duplicateReview()
		case !errors.Is(err, apperrors.ErrNotFound):
			return persistErr("get review", err)
		}

		if !game.ReleasedBefore(s.opts.Now(), s.opts.GracePeriod) {
			return apperrors.TooEarly("TOO_EARLY_TO_REVIEW",
				fmt.Sprintf("reviews open %s after release", s.opts.GracePeriod))
		}

		review, err = s.createSaga(ctx, reviewID, p.UserID, game, ratings, text, in.WantsDiscussion)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "review created",
		slog.String("review_id", review.ID),
		slog.String("game_id", game.ID),
		slog.String("user_id", p.UserID),
	)

	if in.DraftID != "" {
		s.discardDraft(ctx, p.UserID, in.DraftID)
	}
	if err := s.events.PublishReviewCreated(ctx, review, game); err != nil {
		s.logger.WarnContext(ctx, "failed to publish review created event",
			slog.String("review_id", review.ID),
			slog.String("error", err.Error()),
		)
	}
	return review, nil
}

func (s *ReviewService) resolveGame(ctx context.Context, in CreateReviewInput) (*domain.Game, error) {
	if in.GameID != "" {
		game, err := s.store.Games().GetByID(ctx, in.GameID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, apperrors.NotFound("game", in.GameID)
			}
			return nil, persistErr("get game", err)
		}
		return game, nil
	}
	if in.IGDBID <= 0 {
		return nil, apperrors.InvalidInput("game_id or igdb_id is required")
	}
	return s.games.FindOrCreate(ctx, in.IGDBID)
}

func (s *ReviewService) createSaga(
	ctx context.Context,
	reviewID string,
	userID string,
	game *domain.Game,
	ratings domain.RatingVector,
	text domain.ReviewText,
	wantsDiscussion bool,
) (*domain.Review, error) {
	reaction := &domain.Reaction{ID: uuid.New().String()}
	review := &domain.Review{
		ID:         reviewID,
		AuthorID:   userID,
		GameID:     game.ID,
		Ratings:    ratings,
		Title:      text.Title,
		Content:    text.Content,
		ReactionID: reaction.ID,
		CreatedAt:  s.opts.Now(),
	}

	sg := &saga{name: "create_review", logger: s.logger}

	sg.add(sagaStep{
		name: domain.SagaStepCreateReaction,
		action: func(ctx context.Context) error {
			return persistErr("create reaction", s.store.Reactions().Create(ctx, reaction))
		},
		compensate: func(ctx context.Context) error {
			return s.store.Reactions().Delete(ctx, reaction.ID)
		},
	})

	var discussion *domain.Discussion
	if wantsDiscussion {
		discussion = &domain.Discussion{ID: uuid.New().String()}
		review.DiscussionID = &discussion.ID
		sg.add(sagaStep{
			name: domain.SagaStepCreateDiscussion,
			action: func(ctx context.Context) error {
				return persistErr("create discussion", s.store.Discussions().Create(ctx, discussion))
			},
			compensate: func(ctx context.Context) error {
				return s.store.Discussions().Delete(ctx, discussion.ID)
			},
		})
	}

	sg.add(sagaStep{
		name: domain.SagaStepCreateReview,
		action: func(ctx context.Context) error {
			err := s.store.Reviews().Create(ctx, review)
			if errors.Is(err, apperrors.ErrAlreadyExists) {
				return duplicateReview()
			}
			return persistErr("create review", err)
		},
		compensate: func(ctx context.Context) error {
			return s.store.Reviews().Delete(ctx, review.ID)
		},
	})

	sg.add(sagaStep{
		name: domain.SagaStepAddGameRatings,
		action: func(ctx context.Context) error {
			updated, err := s.aggregates.AddToGame(ctx, game.ID, ratings)
			if err == nil {
				*game = *updated
			}
			return err
		},
		compensate: func(ctx context.Context) error {
			_, err := s.aggregates.RemoveFromGame(ctx, game.ID, ratings)
			return err
		},
	})

	sg.add(sagaStep{
		name: domain.SagaStepIncrementUser,
		action: func(ctx context.Context) error {
			_, err := s.aggregates.AdjustUserReviews(ctx, userID, 1)
			return err
		},
		compensate: func(ctx context.Context) error {
			_, err := s.aggregates.AdjustUserReviews(ctx, userID, -1)
			return err
		},
	})

	sg.add(sagaStep{
		name: domain.SagaStepLinkRecords,
		action: func(ctx context.Context) error {
			return persistErr("link review records", s.store.WithTx(ctx, func(tx repository.Store) error {
				if err := tx.Reactions().LinkReview(ctx, reaction.ID, review.ID); err != nil {
					return err
				}
				if discussion != nil {
					return tx.Discussions().LinkReview(ctx, discussion.ID, review.ID)
				}
				return nil
			}))
		},
	})

	if _, err := sg.run(ctx); err != nil {
		return nil, err
	}
	return review, nil
}

// discardDraft removes the draft a review was published from. Failures are
// logged only; the review already exists.
func (s *ReviewService) discardDraft(ctx context.Context, userID, draftID string) {
	draft, err := s.store.Drafts().GetByID(ctx, draftID)
	if err != nil || draft.AuthorID != userID {
		return
	}
	if err := s.store.Drafts().Delete(ctx, draftID); err != nil {
		s.logger.WarnContext(ctx, "failed to delete published draft",
			slog.String("draft_id", draftID),
			slog.String("error", err.Error()),
		)
	}
}

// Update replaces a review's ratings and text and adjusts the game averages
// in the same transaction. Only the author may edit a review.
func (s *ReviewService) Update(ctx context.Context, p *domain.Principal, reviewID string, in UpdateReviewInput) (*domain.Review, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	ratings, err := in.Ratings.Normalize()
	if err != nil {
		return nil, err
	}
	text := domain.ReviewText{Title: in.Title, Content: in.Content}
	if err := text.Validate(); err != nil {
		return nil, err
	}

	pre, err := s.getReview(ctx, s.store, reviewID)
	if err != nil {
		return nil, err
	}
	if pre.AuthorID != p.UserID {
		return nil, apperrors.Forbidden("only the author may edit a review")
	}

	var (
		updated *domain.Review
		game    *domain.Game
	)
	err = withReviewLock(ctx, s.locks, reviewID, []string{gameKey(pre.GameID)}, func(ctx context.Context) error {
		return s.store.WithTx(ctx, func(tx repository.Store) error {
			review, err := s.getReview(ctx, tx, reviewID)
			if err != nil {
				return err
			}
			if review.AuthorID != p.UserID {
				return apperrors.Forbidden("only the author may edit a review")
			}

			game, err = s.aggregates.ReplaceInGameLocked(ctx, tx, review.GameID, review.Ratings, ratings)
			if err != nil {
				return err
			}

			now := s.opts.Now()
			review.Ratings = ratings
			review.Title = text.Title
			review.Content = text.Content
			review.EditedAt = &now
			if err := tx.Reviews().Update(ctx, review); err != nil {
				return persistErr("update review", err)
			}
			updated = review
			return nil
		})
	})
	if err != nil {
		return nil, persistErr("update review", err)
	}

	s.logger.InfoContext(ctx, "review updated",
		slog.String("review_id", reviewID),
		slog.String("game_id", game.ID),
	)
	if err := s.events.PublishReviewUpdated(ctx, updated, game); err != nil {
		s.logger.WarnContext(ctx, "failed to publish review updated event",
			slog.String("review_id", reviewID),
			slog.String("error", err.Error()),
		)
	}
	return updated, nil
}

// Delete removes a review together with its reaction tally, its discussion
// and its contribution to the game and user aggregates, in one transaction.
// The author or an admin may delete a review.
func (s *ReviewService) Delete(ctx context.Context, p *domain.Principal, reviewID string) error {
	if err := requirePrincipal(p); err != nil {
		return err
	}

	pre, err := s.getReview(ctx, s.store, reviewID)
	if err != nil {
		return err
	}
	if pre.AuthorID != p.UserID && !p.IsAdmin() {
		return apperrors.Forbidden("only the author or an admin may delete a review")
	}

	var (
		deleted *domain.Review
		game    *domain.Game
	)
	keys := []string{gameKey(pre.GameID), userKey(pre.AuthorID)}
	err = withReviewLock(ctx, s.locks, reviewID, keys, func(ctx context.Context) error {
		return s.store.WithTx(ctx, func(tx repository.Store) error {
			review, err := s.getReview(ctx, tx, reviewID)
			if err != nil {
				return err
			}

			if err := tx.Reviews().Delete(ctx, review.ID); err != nil {
				return persistErr("delete review", err)
			}
			if err := ignoreNotFound(tx.Reactions().Delete(ctx, review.ReactionID)); err != nil {
				return persistErr("delete reaction", err)
			}
			if review.HasDiscussion() {
				if err := ignoreNotFound(tx.Discussions().Delete(ctx, *review.DiscussionID)); err != nil {
					return persistErr("delete discussion", err)
				}
			}
			if _, err := s.aggregates.AdjustUserReviewsLocked(ctx, tx, review.AuthorID, -1); err != nil {
				return err
			}
			game, err = s.aggregates.RemoveFromGameLocked(ctx, tx, review.GameID, review.Ratings)
			if err != nil {
				return err
			}
			deleted = review
			return nil
		})
	})
	if err != nil {
		return persistErr("delete review", err)
	}

	s.logger.InfoContext(ctx, "review deleted",
		slog.String("review_id", reviewID),
		slog.String("game_id", game.ID),
		slog.String("deleted_by", p.UserID),
	)
	if err := s.events.PublishReviewDeleted(ctx, deleted, game); err != nil {
		s.logger.WarnContext(ctx, "failed to publish review deleted event",
			slog.String("review_id", reviewID),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

func ignoreNotFound(err error) error {
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil
	}
	return err
}

func (s *ReviewService) getReview(ctx context.Context, store repository.Store, id string) (*domain.Review, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("review id is required")
	}
	review, err := store.Reviews().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("review", id)
		}
		return nil, persistErr("get review", err)
	}
	return review, nil
}

// Get returns a review annotated with what viewer may do with it. viewer may be nil.
func (s *ReviewService) Get(ctx context.Context, reviewID string, viewer *domain.Principal) (*domain.ReviewView, error) {
	review, err := s.getReview(ctx, s.store, reviewID)
	if err != nil {
		return nil, err
	}
	return &domain.ReviewView{Review: *review, AdminStatus: domain.AdminStatusFor(review, viewer)}, nil
}

// ListLatest returns a page of the newest reviews across all games.
func (s *ReviewService) ListLatest(ctx context.Context, page int) (*pagination.Result[domain.Review], error) {
	return s.list(ctx, repository.ReviewFilter{}, page)
}

// ListByUser returns a page of one user's reviews, newest first.
func (s *ReviewService) ListByUser(ctx context.Context, userID string, page int) (*pagination.Result[domain.Review], error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}
	return s.list(ctx, repository.ReviewFilter{AuthorID: userID}, page)
}

func (s *ReviewService) list(ctx context.Context, filter repository.ReviewFilter, page int) (*pagination.Result[domain.Review], error) {
	params := pagination.New(page, s.opts.ReviewsPageSize)
	reviews, total, err := s.store.Reviews().List(ctx, filter, params.PerPage, params.Offset)
	if err != nil {
		return nil, persistErr("list reviews", err)
	}
	res := pagination.NewResult(reviews, total, params)
	return &res, nil
}

// DeleteUserContent removes every review and draft written by a user whose
// account was removed. Each review goes through the normal delete transaction.
// It returns the number of reviews deleted.
func (s *ReviewService) DeleteUserContent(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, apperrors.InvalidInput("user id is required")
	}

	ids, err := s.store.Reviews().ListIDsByAuthor(ctx, userID)
	if err != nil {
		return 0, persistErr("list user reviews", err)
	}

	system := domain.SystemPrincipal()
	deleted := 0
	for _, id := range ids {
		err := s.Delete(ctx, system, id)
		if errors.Is(err, apperrors.ErrNotFound) {
			continue
		}
		if err != nil {
			return deleted, fmt.Errorf("delete review %s: %w", id, err)
		}
		deleted++
	}

	drafts, err := s.store.Drafts().ListByAuthor(ctx, userID)
	if err != nil {
		return deleted, persistErr("list user drafts", err)
	}
	for _, d := range drafts {
		if err := ignoreNotFound(s.store.Drafts().Delete(ctx, d.ID)); err != nil {
			return deleted, persistErr("delete draft", err)
		}
	}

	s.logger.InfoContext(ctx, "user content removed",
		slog.String("user_id", userID),
		slog.Int("reviews", deleted),
		slog.Int("drafts", len(drafts)),
	)
	return deleted, nil
}
