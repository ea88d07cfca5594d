package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/J-Stott/RegularReviewsBackEnd/internal/domain"
	"github.com/J-Stott/RegularReviewsBackEnd/internal/repository"
	"github.com/J-Stott/RegularReviewsBackEnd/pkg/database"
	apperrors "github.com/J-Stott/RegularReviewsBackEnd/pkg/errors"
)

const reviewColumns = `id, author_id, game_id, gameplay, visuals, audio, story, overall,
	title, content, reaction_id, discussion_id, created_at, edited_at`

// ReviewRepository implements repository.ReviewRepository using PostgreSQL.
type ReviewRepository struct {
	pool database.DBTX
}

// NewReviewRepository creates a new PostgreSQL-backed review repository.
func NewReviewRepository(pool database.DBTX) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

func scanReview(row pgx.Row) (*domain.Review, error) {
	var rv domain.Review
	err := row.Scan(
		&rv.ID, &rv.AuthorID, &rv.GameID,
		&rv.Ratings.Gameplay, &rv.Ratings.Visuals, &rv.Ratings.Audio, &rv.Ratings.Story, &rv.Ratings.Overall,
		&rv.Title, &rv.Content, &rv.ReactionID, &rv.DiscussionID, &rv.CreatedAt, &rv.EditedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rv, nil
}

// Create inserts a review.
func (r *ReviewRepository) Create(ctx context.Context, rv *domain.Review) (err error) {
	query := `
		INSERT INTO reviews (` + reviewColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	ctx, end := database.TraceQuery(ctx, "CreateReview", query)
	defer func() { end(err) }()

	_, err = r.pool.Exec(ctx, query,
		rv.ID, rv.AuthorID, rv.GameID,
		rv.Ratings.Gameplay, rv.Ratings.Visuals, rv.Ratings.Audio, rv.Ratings.Story, rv.Ratings.Overall,
		rv.Title, rv.Content, rv.ReactionID, rv.DiscussionID, rv.CreatedAt, rv.EditedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err, "reviews_author_game_key") {
			return apperrors.ErrAlreadyExists
		}
		return fmt.Errorf("create review: %w", err)
	}
	return nil
}

// GetByID retrieves a review by id.
func (r *ReviewRepository) GetByID(ctx context.Context, id string) (*domain.Review, error) {
	rv, err := scanReview(r.pool.QueryRow(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "get review")
	}
	return rv, nil
}

// GetByAuthorAndGame retrieves the author's review of a game.
func (r *ReviewRepository) GetByAuthorAndGame(ctx context.Context, authorID, gameID string) (*domain.Review, error) {
	rv, err := scanReview(r.pool.QueryRow(ctx,
		`SELECT `+reviewColumns+` FROM reviews WHERE author_id = $1 AND game_id = $2`, authorID, gameID))
	if err != nil {
		return nil, notFound(err, "get review by author and game")
	}
	return rv, nil
}

// Update persists ratings, text and the edit timestamp.
func (r *ReviewRepository) Update(ctx context.Context, rv *domain.Review) (err error) {
	query := `
		UPDATE reviews
		SET gameplay = $2, visuals = $3, audio = $4, story = $5, overall = $6,
			title = $7, content = $8, edited_at = $9
		WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "UpdateReview", query)
	defer func() { end(err) }()

	tag, err := r.pool.Exec(ctx, query,
		rv.ID,
		rv.Ratings.Gameplay, rv.Ratings.Visuals, rv.Ratings.Audio, rv.Ratings.Story, rv.Ratings.Overall,
		rv.Title, rv.Content, rv.EditedAt,
	)
	if err != nil {
		return fmt.Errorf("update review: %w", err)
	}
	return expectOne(tag.RowsAffected())
}

// Delete removes a review.
func (r *ReviewRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	return expectOne(tag.RowsAffected())
}

// List returns reviews newest first with the total match count.
func (r *ReviewRepository) List(ctx context.Context, filter repository.ReviewFilter, limit, offset int) ([]domain.Review, int, error) {
	var (
		conds []string
		args  []any
	)
	if filter.GameID != "" {
		args = append(args, filter.GameID)
		conds = append(conds, fmt.Sprintf("game_id = $%d", len(args)))
	}
	if filter.AuthorID != "" {
		args = append(args, filter.AuthorID)
		conds = append(conds, fmt.Sprintf("author_id = $%d", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}
	args = append(args, limit, offset)

	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total_count
		FROM reviews
		%s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d`, reviewColumns, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var (
		reviews []domain.Review
		total   int
	)
	for rows.Next() {
		var rv domain.Review
		if err := rows.Scan(
			&rv.ID, &rv.AuthorID, &rv.GameID,
			&rv.Ratings.Gameplay, &rv.Ratings.Visuals, &rv.Ratings.Audio, &rv.Ratings.Story, &rv.Ratings.Overall,
			&rv.Title, &rv.Content, &rv.ReactionID, &rv.DiscussionID, &rv.CreatedAt, &rv.EditedAt,
			&total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate reviews: %w", err)
	}
	return reviews, total, nil
}

// RatingsForGame returns the rating vectors of every review of a game.
func (r *ReviewRepository) RatingsForGame(ctx context.Context, gameID string) ([]domain.RatingVector, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT gameplay, visuals, audio, story, overall FROM reviews WHERE game_id = $1`, gameID)
	if err != nil {
		return nil, fmt.Errorf("list game ratings: %w", err)
	}
	defer rows.Close()

	var out []domain.RatingVector
	for rows.Next() {
		var v domain.RatingVector
		if err := rows.Scan(&v.Gameplay, &v.Visuals, &v.Audio, &v.Story, &v.Overall); err != nil {
			return nil, fmt.Errorf("scan rating: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// CountByAuthor counts a user's reviews.
func (r *ReviewRepository) CountByAuthor(ctx context.Context, authorID string) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM reviews WHERE author_id = $1`, authorID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count reviews by author: %w", err)
	}
	return n, nil
}

// ListIDsByAuthor returns the ids of a user's reviews.
func (r *ReviewRepository) ListIDsByAuthor(ctx context.Context, authorID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM reviews WHERE author_id = $1 ORDER BY id`, authorID)
	if err != nil {
		return nil, fmt.Errorf("list review ids by author: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan review id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
