package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/J-Stott/RegularReviewsBackEnd/internal/domain"
	"github.com/J-Stott/RegularReviewsBackEnd/pkg/database"
	apperrors "github.com/J-Stott/RegularReviewsBackEnd/pkg/errors"
)

// ReactionRepository implements repository.ReactionRepository using PostgreSQL.
type ReactionRepository struct {
	pool database.DBTX
}

// NewReactionRepository creates a new PostgreSQL-backed reaction repository.
func NewReactionRepository(pool database.DBTX) *ReactionRepository {
	return &ReactionRepository{pool: pool}
}

// Create inserts an empty or pre-filled tally.
func (r *ReactionRepository) Create(ctx context.Context, rc *domain.Reaction) error {
	var reviewID *string
	if rc.ReviewID != "" {
		reviewID = &rc.ReviewID
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO reactions (id, review_id, up, down, funny) VALUES ($1, $2, $3, $4, $5)`,
		rc.ID, reviewID, rc.Tally.Up, rc.Tally.Down, rc.Tally.Funny)
	if err != nil {
		return fmt.Errorf("create reaction: %w", err)
	}
	return nil
}

// GetByID retrieves a tally.
func (r *ReactionRepository) GetByID(ctx context.Context, id string) (*domain.Reaction, error) {
	var (
		rc       domain.Reaction
		reviewID *string
	)
	err := r.pool.QueryRow(ctx,
		`SELECT id, review_id, up, down, funny FROM reactions WHERE id = $1`, id,
	).Scan(&rc.ID, &reviewID, &rc.Tally.Up, &rc.Tally.Down, &rc.Tally.Funny)
	if err != nil {
		return nil, notFound(err, "get reaction")
	}
	if reviewID != nil {
		rc.ReviewID = *reviewID
	}
	return &rc, nil
}

// LinkReview points the tally back at its review.
func (r *ReactionRepository) LinkReview(ctx context.Context, id, reviewID string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE reactions SET review_id = $2 WHERE id = $1`, id, reviewID)
	if err != nil {
		return fmt.Errorf("link reaction: %w", err)
	}
	return expectOne(tag.RowsAffected())
}

// UpdateTally overwrites the tally counts.
func (r *ReactionRepository) UpdateTally(ctx context.Context, id string, t domain.Tally) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE reactions SET up = $2, down = $3, funny = $4 WHERE id = $1`,
		id, t.Up, t.Down, t.Funny)
	if err != nil {
		if database.IsCheckViolation(err) {
			return apperrors.InvariantViolation("reaction tally must not be negative")
		}
		return fmt.Errorf("update reaction tally: %w", err)
	}
	return expectOne(tag.RowsAffected())
}

// GetUserReaction returns the user's state, empty if none is stored.
func (r *ReactionRepository) GetUserReaction(ctx context.Context, reactionID, userID string) (domain.UserReaction, error) {
	var ur domain.UserReaction
	err := r.pool.QueryRow(ctx,
		`SELECT up, down, funny FROM user_reactions WHERE reaction_id = $1 AND user_id = $2`,
		reactionID, userID,
	).Scan(&ur.Up, &ur.Down, &ur.Funny)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.UserReaction{}, nil
		}
		return domain.UserReaction{}, fmt.Errorf("get user reaction: %w", err)
	}
	return ur, nil
}

// PutUserReaction upserts the user's state, deleting it when empty.
func (r *ReactionRepository) PutUserReaction(ctx context.Context, reactionID, userID string, ur domain.UserReaction) error {
	if ur.IsEmpty() {
		_, err := r.pool.Exec(ctx,
			`DELETE FROM user_reactions WHERE reaction_id = $1 AND user_id = $2`, reactionID, userID)
		if err != nil {
			return fmt.Errorf("clear user reaction: %w", err)
		}
		return nil
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO user_reactions (reaction_id, user_id, up, down, funny)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (reaction_id, user_id) DO UPDATE SET
			up = EXCLUDED.up,
			down = EXCLUDED.down,
			funny = EXCLUDED.funny`,
		reactionID, userID, ur.Up, ur.Down, ur.Funny)
	if err != nil {
		if database.IsCheckViolation(err) {
			return apperrors.InvariantViolation("user reaction cannot be both up and down")
		}
		return fmt.Errorf("put user reaction: %w", err)
	}
	return nil
}

// Delete removes the tally; per-user rows cascade.
func (r *ReactionRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM reactions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete reaction: %w", err)
	}
	return expectOne(tag.RowsAffected())
}
