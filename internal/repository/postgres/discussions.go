package postgres

import (
	"context"
	"fmt"

	"github.com/J-Stott/RegularReviewsBackEnd/internal/domain"
	"github.com/J-Stott/RegularReviewsBackEnd/pkg/database"
)

// DiscussionRepository implements repository.DiscussionRepository using PostgreSQL.
type DiscussionRepository struct {
	pool database.DBTX
}

// NewDiscussionRepository creates a new PostgreSQL-backed discussion repository.
func NewDiscussionRepository(pool database.DBTX) *DiscussionRepository {
	return &DiscussionRepository{pool: pool}
}

func (r *DiscussionRepository) Create(ctx context.Context, d *domain.Discussion) error {
	var reviewID *string
	if d.ReviewID != "" {
		reviewID = &d.ReviewID
	}
	if _, err := r.pool.Exec(ctx, `INSERT INTO discussions (id, review_id) VALUES ($1, $2)`, d.ID, reviewID); err != nil {
		return fmt.Errorf("create discussion: %w", err)
	}
	return nil
}

func (r *DiscussionRepository) GetByID(ctx context.Context, id string) (*domain.Discussion, error) {
	var (
		d        domain.Discussion
		reviewID *string
	)
	if err := r.pool.QueryRow(ctx, `SELECT id, review_id FROM discussions WHERE id = $1`, id).Scan(&d.ID, &reviewID); err != nil {
		return nil, notFound(err, "get discussion")
	}
	if reviewID != nil {
		d.ReviewID = *reviewID
	}
	return &d, nil
}

func (r *DiscussionRepository) LinkReview(ctx context.Context, id, reviewID string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE discussions SET review_id = $2 WHERE id = $1`, id, reviewID)
	if err != nil {
		return fmt.Errorf("link discussion: %w", err)
	}
	return expectOne(tag.RowsAffected())
}

// Delete removes the discussion; comments cascade.
func (r *DiscussionRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM discussions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete discussion: %w", err)
	}
	return expectOne(tag.RowsAffected())
}

func (r *DiscussionRepository) AddComment(ctx context.Context, c *domain.Comment) error {
	roles := c.AuthorRoles
	if roles == nil {
		roles = []string{}
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO comments (id, discussion_id, author_id, author_roles, text, created_at, edited_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.DiscussionID, c.AuthorID, roles, c.Text, c.CreatedAt, c.EditedAt)
	if err != nil {
		return fmt.Errorf("add comment: %w", err)
	}
	return nil
}

func (r *DiscussionRepository) GetComment(ctx context.Context, id string) (*domain.Comment, error) {
	var c domain.Comment
	err := r.pool.QueryRow(ctx, `
		SELECT id, discussion_id, author_id, author_roles, text, created_at, edited_at
		FROM comments WHERE id = $1`, id,
	).Scan(&c.ID, &c.DiscussionID, &c.AuthorID, &c.AuthorRoles, &c.Text, &c.CreatedAt, &c.EditedAt)
	if err != nil {
		return nil, notFound(err, "get comment")
	}
	return &c, nil
}

func (r *DiscussionRepository) UpdateComment(ctx context.Context, c *domain.Comment) error {
	tag, err := r.pool.Exec(ctx, `UPDATE comments SET text = $2, edited_at = $3 WHERE id = $1`, c.ID, c.Text, c.EditedAt)
	if err != nil {
		return fmt.Errorf("update comment: %w", err)
	}
	return expectOne(tag.RowsAffected())
}

func (r *DiscussionRepository) DeleteComment(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	return expectOne(tag.RowsAffected())
}

// ListComments returns a page of comments in the order they were added.
func (r *DiscussionRepository) ListComments(ctx context.Context, discussionID string, limit, offset int) ([]domain.Comment, int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, discussion_id, author_id, author_roles, text, created_at, edited_at, count(*) OVER() AS total_count
		FROM comments
		WHERE discussion_id = $1
		ORDER BY seq ASC
		LIMIT $2 OFFSET $3`, discussionID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	var (
		comments []domain.Comment
		total    int
	)
	for rows.Next() {
		var c domain.Comment
		if err := rows.Scan(&c.ID, &c.DiscussionID, &c.AuthorID, &c.AuthorRoles, &c.Text, &c.CreatedAt, &c.EditedAt, &total); err != nil {
			return nil, 0, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate comments: %w", err)
	}
	return comments, total, nil
}
