package postgres

import (
	"context"
	"fmt"

	"github.com/J-Stott/RegularReviewsBackEnd/internal/domain"
	"github.com/J-Stott/RegularReviewsBackEnd/pkg/database"
	apperrors "github.com/J-Stott/RegularReviewsBackEnd/pkg/errors"
)

const gameColumns = `id, igdb_id, name, link_name, summary, image, release_date, num_reviews,
	avg_gameplay, avg_visuals, avg_audio, avg_story, avg_overall, created_at, updated_at`

// GameRepository implements repository.GameRepository using PostgreSQL.
type GameRepository struct {
	pool database.DBTX
}

// NewGameRepository creates a new PostgreSQL-backed game repository.
func NewGameRepository(pool database.DBTX) *GameRepository {
	return &GameRepository{pool: pool}
}

// GetByID retrieves a game by id.
func (r *GameRepository) GetByID(ctx context.Context, id string) (*domain.Game, error) {
	return r.scanOne(ctx, `SELECT `+gameColumns+` FROM games WHERE id = $1`, id)
}

// GetByIGDBID retrieves a game by catalog id.
func (r *GameRepository) GetByIGDBID(ctx context.Context, igdbID int64) (*domain.Game, error) {
	return r.scanOne(ctx, `SELECT `+gameColumns+` FROM games WHERE igdb_id = $1`, igdbID)
}

// GetByLinkName retrieves a game by link name.
func (r *GameRepository) GetByLinkName(ctx context.Context, linkName string) (*domain.Game, error) {
	return r.scanOne(ctx, `SELECT `+gameColumns+` FROM games WHERE link_name = $1`, linkName)
}

func (r *GameRepository) scanOne(ctx context.Context, query string, arg any) (*domain.Game, error) {
	var g domain.Game
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&g.ID, &g.IGDBID, &g.Name, &g.LinkName, &g.Summary, &g.Image, &g.ReleaseDate, &g.NumReviews,
		&g.Averages.Gameplay, &g.Averages.Visuals, &g.Averages.Audio, &g.Averages.Story, &g.Averages.Overall,
		&g.CreatedAt, &g.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err, "get game")
	}
	return &g, nil
}

// Create inserts a new game.
func (r *GameRepository) Create(ctx context.Context, g *domain.Game) (err error) {
	query := `
		INSERT INTO games (` + gameColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	ctx, end := database.TraceQuery(ctx, "CreateGame", query)
	defer func() { end(err) }()

	_, err = r.pool.Exec(ctx, query,
		g.ID, g.IGDBID, g.Name, g.LinkName, g.Summary, g.Image, g.ReleaseDate, g.NumReviews,
		g.Averages.Gameplay, g.Averages.Visuals, g.Averages.Audio, g.Averages.Story, g.Averages.Overall,
		g.CreatedAt, g.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err, "") {
			return apperrors.ErrAlreadyExists
		}
		return fmt.Errorf("create game: %w", err)
	}
	return nil
}

// UpdateAggregates persists the review count and averages.
func (r *GameRepository) UpdateAggregates(ctx context.Context, g *domain.Game) (err error) {
	query := `
		UPDATE games
		SET num_reviews = $2, avg_gameplay = $3, avg_visuals = $4, avg_audio = $5,
			avg_story = $6, avg_overall = $7, updated_at = $8
		WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "UpdateGameAggregates", query)
	defer func() { end(err) }()

	tag, err := r.pool.Exec(ctx, query,
		g.ID, g.NumReviews,
		g.Averages.Gameplay, g.Averages.Visuals, g.Averages.Audio, g.Averages.Story, g.Averages.Overall,
		g.UpdatedAt,
	)
	if err != nil {
		if database.IsCheckViolation(err) {
			return apperrors.InvariantViolation("num_reviews must not be negative")
		}
		return fmt.Errorf("update game aggregates: %w", err)
	}
	return expectOne(tag.RowsAffected())
}

// ListIDs returns every game id.
func (r *GameRepository) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM games ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list game ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan game id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
