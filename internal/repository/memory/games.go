package memory

import (
	"context"
	"sort"

	"github.com/J-Stott/RegularReviewsBackEnd/internal/domain"
	apperrors "github.com/J-Stott/RegularReviewsBackEnd/pkg/errors"
)

type gameRepo struct{ s *Store }

func (r *gameRepo) GetByID(_ context.Context, id string) (*domain.Game, error) {
	var out *domain.Game
	err := r.s.view("games.get", func(st *state) error {
		g, ok := st.games[id]
		if !ok {
			return apperrors.ErrNotFound
		}
		out = &g
		return nil
	})
	return out, err
}

func (r *gameRepo) GetByIGDBID(_ context.Context, igdbID int64) (*domain.Game, error) {
	return r.find(func(g *domain.Game) bool { return g.IGDBID == igdbID })
}

func (r *gameRepo) GetByLinkName(_ context.Context, linkName string) (*domain.Game, error) {
	return r.find(func(g *domain.Game) bool { return g.LinkName == linkName })
}

func (r *gameRepo) find(match func(*domain.Game) bool) (*domain.Game, error) {
	var out *domain.Game
	err := r.s.view("games.get", func(st *state) error {
		for _, g := range st.games {
			if match(&g) {
				out = &g
				return nil
			}
		}
		return apperrors.ErrNotFound
	})
	return out, err
}

func (r *gameRepo) Create(_ context.Context, game *domain.Game) error {
	g := *game
	return r.s.update(OpGameCreate, func(st *state) error {
		if _, ok := st.games[g.ID]; ok {
			return apperrors.ErrAlreadyExists
		}
		for _, existing := range st.games {
			if existing.IGDBID == g.IGDBID || existing.LinkName == g.LinkName {
				return apperrors.ErrAlreadyExists
			}
		}
		st.games[g.ID] = g
		return nil
	})
}

func (r *gameRepo) UpdateAggregates(_ context.Context, game *domain.Game) error {
	id, n, avgs, at := game.ID, game.NumReviews, game.Averages, game.UpdatedAt
	return r.s.update(OpGameUpdateAggregates, func(st *state) error {
		g, ok := st.games[id]
		if !ok {
			return apperrors.ErrNotFound
		}
		if n < 0 {
			return apperrors.InvariantViolation("num_reviews must not be negative")
		}
		g.NumReviews, g.Averages, g.UpdatedAt = n, avgs, at
		st.games[id] = g
		return nil
	})
}

func (r *gameRepo) ListIDs(context.Context) ([]string, error) {
	var ids []string
	err := r.s.view("games.list", func(st *state) error {
		for id := range st.games {
			ids = append(ids, id)
		}
		return nil
	})
	sort.Strings(ids)
	return ids, err
}
