package memory

import (
	"context"
	"sort"

	"github.com/J-Stott/RegularReviewsBackEnd/internal/domain"
	"github.com/J-Stott/RegularReviewsBackEnd/internal/repository"
	apperrors "github.com/J-Stott/RegularReviewsBackEnd/pkg/errors"
)

type reviewRepo struct{ s *Store }

func (r *reviewRepo) Create(_ context.Context, review *domain.Review) error {
	rv := *review
	return r.s.update(OpReviewCreate, func(st *state) error {
		if _, ok := st.reviews[rv.ID]; ok {
			return apperrors.ErrAlreadyExists
		}
		for _, existing := range st.reviews {
			if existing.AuthorID == rv.AuthorID && existing.GameID == rv.GameID {
				return apperrors.ErrAlreadyExists
			}
		}
		st.reviews[rv.ID] = rv
		return nil
	})
}

func (r *reviewRepo) GetByID(_ context.Context, id string) (*domain.Review, error) {
	var out *domain.Review
	err := r.s.view("reviews.get", func(st *state) error {
		rv, ok := st.reviews[id]
		if !ok {
			return apperrors.ErrNotFound
		}
		out = &rv
		return nil
	})
	return out, err
}

func (r *reviewRepo) GetByAuthorAndGame(_ context.Context, authorID, gameID string) (*domain.Review, error) {
	var out *domain.Review
	err := r.s.view("reviews.get", func(st *state) error {
		for _, rv := range st.reviews {
			if rv.AuthorID == authorID && rv.GameID == gameID {
				out = &rv
				return nil
			}
		}
		return apperrors.ErrNotFound
	})
	return out, err
}

func (r *reviewRepo) Update(_ context.Context, review *domain.Review) error {
	rv := *review
	return r.s.update(OpReviewUpdate, func(st *state) error {
		existing, ok := st.reviews[rv.ID]
		if !ok {
			return apperrors.ErrNotFound
		}
		existing.Ratings = rv.Ratings
		existing.Title = rv.Title
		existing.Content = rv.Content
		existing.EditedAt = rv.EditedAt
		st.reviews[rv.ID] = existing
		return nil
	})
}

func (r *reviewRepo) Delete(_ context.Context, id string) error {
	return r.s.update(OpReviewDelete, func(st *state) error {
		if _, ok := st.reviews[id]; !ok {
			return apperrors.ErrNotFound
		}
		delete(st.reviews, id)
		return nil
	})
}

func (r *reviewRepo) List(_ context.Context, filter repository.ReviewFilter, limit, offset int) ([]domain.Review, int, error) {
	var matched []domain.Review
	err := r.s.view("reviews.list", func(st *state) error {
		for _, rv := range st.reviews {
			if filter.GameID != "" && rv.GameID != filter.GameID {
				continue
			}
			if filter.AuthorID != "" && rv.AuthorID != filter.AuthorID {
				continue
			}
			matched = append(matched, rv)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return page(matched, limit, offset), len(matched), nil
}

func (r *reviewRepo) RatingsForGame(_ context.Context, gameID string) ([]domain.RatingVector, error) {
	var out []domain.RatingVector
	err := r.s.view("reviews.ratings", func(st *state) error {
		for _, rv := range st.reviews {
			if rv.GameID == gameID {
				out = append(out, rv.Ratings)
			}
		}
		return nil
	})
	return out, err
}

func (r *reviewRepo) CountByAuthor(ctx context.Context, authorID string) (int, error) {
	ids, err := r.ListIDsByAuthor(ctx, authorID)
	return len(ids), err
}

func (r *reviewRepo) ListIDsByAuthor(_ context.Context, authorID string) ([]string, error) {
	var ids []string
	err := r.s.view("reviews.list", func(st *state) error {
		for id, rv := range st.reviews {
			if rv.AuthorID == authorID {
				ids = append(ids, id)
			}
		}
		return nil
	})
	sort.Strings(ids)
	return ids, err
}
