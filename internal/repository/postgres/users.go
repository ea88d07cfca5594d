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

// UserStatsRepository implements repository.UserStatsRepository using PostgreSQL.
type UserStatsRepository struct {
	pool database.DBTX
}

// NewUserStatsRepository creates a new PostgreSQL-backed user stats repository.
func NewUserStatsRepository(pool database.DBTX) *UserStatsRepository {
	return &UserStatsRepository{pool: pool}
}

// Get returns the user's counters, zeroed when no row exists.
func (r *UserStatsRepository) Get(ctx context.Context, userID string) (*domain.UserStats, error) {
	stats := &domain.UserStats{UserID: userID}
	err := r.pool.QueryRow(ctx, `SELECT num_reviews FROM user_stats WHERE user_id = $1`, userID).Scan(&stats.NumReviews)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get user stats: %w", err)
	}
	return stats, nil
}

// Save upserts the user's counters.
func (r *UserStatsRepository) Save(ctx context.Context, stats *domain.UserStats) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO user_stats (user_id, num_reviews) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET num_reviews = EXCLUDED.num_reviews`,
		stats.UserID, stats.NumReviews)
	if err != nil {
		if database.IsCheckViolation(err) {
			return apperrors.InvariantViolation("num_reviews must not be negative")
		}
		return fmt.Errorf("save user stats: %w", err)
	}
	return nil
}

// ListUserIDs returns users with counters or reviews.
func (r *UserStatsRepository) ListUserIDs(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT user_id FROM user_stats
		UNION
		SELECT DISTINCT author_id FROM reviews
		ORDER BY 1`)
	if err != nil {
		return nil, fmt.Errorf("list user ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

const draftColumns = `id, author_id, game_id, gameplay, visuals, audio, story, overall,
	title, content, created_at, updated_at`

// DraftRepository implements repository.DraftRepository using PostgreSQL.
type DraftRepository struct {
	pool database.DBTX
}

// NewDraftRepository creates a new PostgreSQL-backed draft repository.
func NewDraftRepository(pool database.DBTX) *DraftRepository {
	return &DraftRepository{pool: pool}
}

func (r *DraftRepository) Create(ctx context.Context, d *domain.Draft) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO drafts (`+draftColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		d.ID, d.AuthorID, d.GameID,
		d.Ratings.Gameplay, d.Ratings.Visuals, d.Ratings.Audio, d.Ratings.Story, d.Ratings.Overall,
		d.Title, d.Content, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create draft: %w", err)
	}
	return nil
}

func (r *DraftRepository) GetByID(ctx context.Context, id string) (*domain.Draft, error) {
	var d domain.Draft
	err := r.pool.QueryRow(ctx, `SELECT `+draftColumns+` FROM drafts WHERE id = $1`, id).Scan(
		&d.ID, &d.AuthorID, &d.GameID,
		&d.Ratings.Gameplay, &d.Ratings.Visuals, &d.Ratings.Audio, &d.Ratings.Story, &d.Ratings.Overall,
		&d.Title, &d.Content, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err, "get draft")
	}
	return &d, nil
}

func (r *DraftRepository) Update(ctx context.Context, d *domain.Draft) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE drafts
		SET game_id = $2, gameplay = $3, visuals = $4, audio = $5, story = $6, overall = $7,
			title = $8, content = $9, updated_at = $10
		WHERE id = $1`,
		d.ID, d.GameID,
		d.Ratings.Gameplay, d.Ratings.Visuals, d.Ratings.Audio, d.Ratings.Story, d.Ratings.Overall,
		d.Title, d.Content, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update draft: %w", err)
	}
	return expectOne(tag.RowsAffected())
}

func (r *DraftRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM drafts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	return expectOne(tag.RowsAffected())
}

func (r *DraftRepository) ListByAuthor(ctx context.Context, authorID string) ([]domain.Draft, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+draftColumns+` FROM drafts WHERE author_id = $1 ORDER BY updated_at DESC`, authorID)
	if err != nil {
		return nil, fmt.Errorf("list drafts: %w", err)
	}
	defer rows.Close()

	var drafts []domain.Draft
	for rows.Next() {
		var d domain.Draft
		if err := rows.Scan(
			&d.ID, &d.AuthorID, &d.GameID,
			&d.Ratings.Gameplay, &d.Ratings.Visuals, &d.Ratings.Audio, &d.Ratings.Story, &d.Ratings.Overall,
			&d.Title, &d.Content, &d.CreatedAt, &d.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan draft: %w", err)
		}
		drafts = append(drafts, d)
	}
	return drafts, rows.Err()
}
