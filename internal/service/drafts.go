package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/J-Stott/RegularReviewsBackEnd/internal/domain"
	"github.com/J-Stott/RegularReviewsBackEnd/internal/repository"
	apperrors "github.com/J-Stott/RegularReviewsBackEnd/pkg/errors"
)

// DraftInput holds the fields of an unpublished review. Text may be
// incomplete; only the length limits apply.
type DraftInput struct {
	IGDBID  int64              `json:"igdb_id"`
	Ratings domain.RatingInput `json:"ratings"`
	Title   string             `json:"title"`
	Content string             `json:"content"`
}

func (in *DraftInput) normalize() (domain.RatingVector, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
	if len(in.Title) > domain.MaxTitleLength {
		return domain.RatingVector{}, apperrors.InvalidInput("title is too long")
	}
	if len(in.Content) > domain.MaxContentLength {
		return domain.RatingVector{}, apperrors.InvalidInput("content is too long")
	}
	return in.Ratings.Normalize()
}

// DraftService manages a user's review drafts.
type DraftService struct {
	store repository.Store
	games *GameService
	opts  Options
}

// NewDraftService creates a new draft service.
func NewDraftService(store repository.Store, games *GameService, opts Options) *DraftService {
	return &DraftService{store: store, games: games, opts: opts.withDefaults()}
}

// Save stores a new draft for the caller.
func (s *DraftService) Save(ctx context.Context, p *domain.Principal, in DraftInput) (*domain.Draft, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	ratings, err := in.normalize()
	if err != nil {
		return nil, err
	}
	game, err := s.games.FindOrCreate(ctx, in.IGDBID)
	if err != nil {
		return nil, err
	}

	now := s.opts.Now()
	draft := &domain.Draft{
		ID:        uuid.New().String(),
		AuthorID:  p.UserID,
		GameID:    game.ID,
		Ratings:   ratings,
		Title:     in.Title,
		Content:   in.Content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Drafts().Create(ctx, draft); err != nil {
		return nil, persistErr("create draft", err)
	}
	return draft, nil
}

// Update replaces a draft's ratings and text. The game cannot change.
func (s *DraftService) Update(ctx context.Context, p *domain.Principal, id string, in DraftInput) (*domain.Draft, error) {
	draft, err := s.Get(ctx, p, id)
	if err != nil {
		return nil, err
	}
	ratings, err := in.normalize()
	if err != nil {
		return nil, err
	}
	draft.Ratings = ratings
	draft.Title = in.Title
	draft.Content = in.Content
	draft.UpdatedAt = s.opts.Now()
	if err := s.store.Drafts().Update(ctx, draft); err != nil {
		return nil, persistErr("update draft", err)
	}
	return draft, nil
}

// Get returns one of the caller's drafts.
func (s *DraftService) Get(ctx context.Context, p *domain.Principal, id string) (*domain.Draft, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	draft, err := s.store.Drafts().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("draft", id)
		}
		return nil, persistErr("get draft", err)
	}
	if draft.AuthorID != p.UserID {
		// Other users' drafts are invisible rather than forbidden.
		return nil, apperrors.NotFound("draft", id)
	}
	return draft, nil
}

// List returns the caller's drafts, most recently updated first.
func (s *DraftService) List(ctx context.Context, p *domain.Principal) ([]domain.Draft, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	drafts, err := s.store.Drafts().ListByAuthor(ctx, p.UserID)
	if err != nil {
		return nil, persistErr("list drafts", err)
	}
	if drafts == nil {
		drafts = []domain.Draft{}
	}
	return drafts, nil
}

// Delete removes one of the caller's drafts.
func (s *DraftService) Delete(ctx context.Context, p *domain.Principal, id string) error {
	if _, err := s.Get(ctx, p, id); err != nil {
		return err
	}
	if err := s.store.Drafts().Delete(ctx, id); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NotFound("draft", id)
		}
		return persistErr("delete draft", err)
	}
	return nil
}
