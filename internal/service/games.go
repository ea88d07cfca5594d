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

// Catalog looks games up in the external game catalog.
type Catalog interface {
	// LookupGame returns the catalog entry or an error wrapping ErrNotFound.
	LookupGame(ctx context.Context, igdbID int64) (*domain.CatalogGame, error)
}

// GameService manages game entries.
type GameService struct {
	store   repository.Store
	catalog Catalog
	locks   *keylock.Mutex
	logger  *slog.Logger
	opts    Options
}

// NewGameService creates a new game service.
func NewGameService(store repository.Store, catalog Catalog, locks *keylock.Mutex, logger *slog.Logger, opts Options) *GameService {
	return &GameService{store: store, catalog: catalog, locks: locks, logger: logger, opts: opts.withDefaults()}
}

// FindOrCreate returns the game for a catalog id, creating it from the
// catalog on first use. Concurrent first lookups of the same id create one row.
func (s *GameService) FindOrCreate(ctx context.Context, igdbID int64) (*domain.Game, error) {
	if igdbID <= 0 {
		return nil, apperrors.InvalidInput("igdb_id must be positive")
	}

	// Fast path without the lock for games we already know.
	game, err := s.store.Games().GetByIGDBID(ctx, igdbID)
	if err == nil {
		return game, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, persistErr("get game", err)
	}

	err = withLock(ctx, s.locks, catalogKey(igdbID), func(ctx context.Context) error {
		game, err = s.store.Games().GetByIGDBID(ctx, igdbID)
		if err == nil {
			return nil
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			return persistErr("get game", err)
		}

		entry, err := s.catalog.LookupGame(ctx, igdbID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return apperrors.NotFound("catalog game", fmt.Sprint(igdbID))
			}
			return fmt.Errorf("lookup catalog game: %w", err)
		}

		game = domain.NewGame(uuid.New().String(), entry, s.opts.Now())
		if err := s.store.Games().Create(ctx, game); err != nil {
			if errors.Is(err, apperrors.ErrAlreadyExists) {
				// Another process inserted it first.
				game, err = s.store.Games().GetByIGDBID(ctx, igdbID)
				return persistErr("get game", err)
			}
			return persistErr("create game", err)
		}

		s.logger.InfoContext(ctx, "game entry created",
			slog.String("game_id", game.ID),
			slog.Int64("igdb_id", igdbID),
			slog.String("link_name", game.LinkName),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return game, nil
}

// GetByLinkName retrieves a game by its link name.
func (s *GameService) GetByLinkName(ctx context.Context, linkName string) (*domain.Game, error) {
	if linkName == "" {
		return nil, apperrors.InvalidInput("link name is required")
	}
	game, err := s.store.Games().GetByLinkName(ctx, linkName)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("game", linkName)
		}
		return nil, persistErr("get game", err)
	}
	return game, nil
}

// ListReviews returns a page of a game's reviews, newest first.
func (s *GameService) ListReviews(ctx context.Context, linkName string, page int) (*pagination.Result[domain.Review], error) {
	game, err := s.GetByLinkName(ctx, linkName)
	if err != nil {
		return nil, err
	}
	params := pagination.New(page, s.opts.ReviewsPageSize)
	reviews, total, err := s.store.Reviews().List(ctx, repository.ReviewFilter{GameID: game.ID}, params.PerPage, params.Offset)
	if err != nil {
		return nil, persistErr("list game reviews", err)
	}
	res := pagination.NewResult(reviews, total, params)
	return &res, nil
}
