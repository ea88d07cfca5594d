package repository

import (
	"context"

	"github.com/J-Stott/RegularReviewsBackEnd/internal/domain"
)

// GameRepository defines persistence operations for games and their aggregates.
type GameRepository interface {
	// GetByID retrieves a game by its internal id.
	GetByID(ctx context.Context, id string) (*domain.Game, error)

	// GetByIGDBID retrieves a game by its external catalog id.
	GetByIGDBID(ctx context.Context, igdbID int64) (*domain.Game, error)

	// GetByLinkName retrieves a game by its URL-friendly name.
	GetByLinkName(ctx context.Context, linkName string) (*domain.Game, error)

	// Create inserts a new game. A second game with the same catalog id fails
	// with ErrAlreadyExists.
	Create(ctx context.Context, game *domain.Game) error

	// UpdateAggregates persists num_reviews and the five rating averages.
	UpdateAggregates(ctx context.Context, game *domain.Game) error

	// ListIDs returns every game id.
	ListIDs(ctx context.Context) ([]string, error)
}

// ReviewFilter narrows a review listing. Empty fields are ignored.
type ReviewFilter struct {
	GameID   string
	AuthorID string
}

// ReviewRepository defines persistence operations for reviews.
type ReviewRepository interface {
	// Create inserts a review. A second review for the same (author, game)
	// fails with ErrAlreadyExists.
	Create(ctx context.Context, review *domain.Review) error

	// GetByID retrieves a review by id.
	GetByID(ctx context.Context, id string) (*domain.Review, error)

	// GetByAuthorAndGame retrieves the author's review of a game.
	GetByAuthorAndGame(ctx context.Context, authorID, gameID string) (*domain.Review, error)

	// Update persists ratings, text and the edit timestamp.
	Update(ctx context.Context, review *domain.Review) error

	// Delete removes a review.
	Delete(ctx context.Context, id string) error

	// List returns reviews newest first together with the total match count.
	List(ctx context.Context, filter ReviewFilter, limit, offset int) ([]domain.Review, int, error)

	// RatingsForGame returns the rating vectors of every review of a game.
	RatingsForGame(ctx context.Context, gameID string) ([]domain.RatingVector, error)

	// CountByAuthor counts the reviews written by a user.
	CountByAuthor(ctx context.Context, authorID string) (int, error)

	// ListIDsByAuthor returns the ids of every review written by a user.
	ListIDsByAuthor(ctx context.Context, authorID string) ([]string, error)
}

// ReactionRepository defines persistence operations for reaction tallies and
// per-user reaction state.
type ReactionRepository interface {
	Create(ctx context.Context, reaction *domain.Reaction) error
	GetByID(ctx context.Context, id string) (*domain.Reaction, error)
	LinkReview(ctx context.Context, id, reviewID string) error
	UpdateTally(ctx context.Context, id string, tally domain.Tally) error

	// GetUserReaction returns the user's state, empty if the user never reacted.
	GetUserReaction(ctx context.Context, reactionID, userID string) (domain.UserReaction, error)

	// PutUserReaction stores the user's state; an empty state removes the record.
	PutUserReaction(ctx context.Context, reactionID, userID string, state domain.UserReaction) error

	// Delete removes the tally and every per-user record.
	Delete(ctx context.Context, id string) error
}

// DiscussionRepository defines persistence operations for discussions and comments.
type DiscussionRepository interface {
	Create(ctx context.Context, discussion *domain.Discussion) error
	GetByID(ctx context.Context, id string) (*domain.Discussion, error)
	LinkReview(ctx context.Context, id, reviewID string) error

	// Delete removes the discussion and all of its comments.
	Delete(ctx context.Context, id string) error

	AddComment(ctx context.Context, comment *domain.Comment) error
	GetComment(ctx context.Context, id string) (*domain.Comment, error)
	UpdateComment(ctx context.Context, comment *domain.Comment) error
	DeleteComment(ctx context.Context, id string) error

	// ListComments returns comments oldest first together with the total count.
	ListComments(ctx context.Context, discussionID string, limit, offset int) ([]domain.Comment, int, error)
}

// UserStatsRepository defines persistence operations for per-user counters.
type UserStatsRepository interface {
	// Get returns the user's counters, zeroed if the user has none yet.
	Get(ctx context.Context, userID string) (*domain.UserStats, error)

	// Save upserts the user's counters.
	Save(ctx context.Context, stats *domain.UserStats) error

	// ListUserIDs returns every user with stored counters.
	ListUserIDs(ctx context.Context) ([]string, error)
}

// DraftRepository defines persistence operations for review drafts.
type DraftRepository interface {
	Create(ctx context.Context, draft *domain.Draft) error
	GetByID(ctx context.Context, id string) (*domain.Draft, error)
	Update(ctx context.Context, draft *domain.Draft) error
	Delete(ctx context.Context, id string) error
	ListByAuthor(ctx context.Context, authorID string) ([]domain.Draft, error)
}

// Store groups the repositories behind one persistence backend.
type Store interface {
	Games() GameRepository
	Reviews() ReviewRepository
	Reactions() ReactionRepository
	Discussions() DiscussionRepository
	UserStats() UserStatsRepository
	Drafts() DraftRepository

	// WithTx runs fn against a Store whose writes commit atomically when fn
	// returns nil and are discarded otherwise. Calling WithTx on a
	// transactional Store joins the outer transaction.
	WithTx(ctx context.Context, fn func(tx Store) error) error

	// Ping checks the backend is reachable.
	Ping(ctx context.Context) error
}
