package memory

import (
	"context"
	"sort"

	"github.com/J-Stott/RegularReviewsBackEnd/internal/domain"
	apperrors "github.com/J-Stott/RegularReviewsBackEnd/pkg/errors"
)

type userStatsRepo struct{ s *Store }

func (r *userStatsRepo) Get(_ context.Context, userID string) (*domain.UserStats, error) {
	out := &domain.UserStats{UserID: userID}
	err := r.s.view("user_stats.get", func(st *state) error {
		if u, ok := st.users[userID]; ok {
			*out = u
		}
		return nil
	})
	return out, err
}

func (r *userStatsRepo) Save(_ context.Context, stats *domain.UserStats) error {
	u := *stats
	return r.s.update(OpUserStatsSave, func(st *state) error {
		if u.NumReviews < 0 {
			return apperrors.InvariantViolation("num_reviews must not be negative")
		}
		st.users[u.UserID] = u
		return nil
	})
}

func (r *userStatsRepo) ListUserIDs(context.Context) ([]string, error) {
	var ids []string
	err := r.s.view("user_stats.list", func(st *state) error {
		seen := make(map[string]struct{})
		for id := range st.users {
			seen[id] = struct{}{}
		}
		for _, rv := range st.reviews {
			seen[rv.AuthorID] = struct{}{}
		}
		for id := range seen {
			ids = append(ids, id)
		}
		return nil
	})
	sort.Strings(ids)
	return ids, err
}

type draftRepo struct{ s *Store }

func (r *draftRepo) Create(_ context.Context, draft *domain.Draft) error {
	d := *draft
	return r.s.update("drafts.create", func(st *state) error {
		if _, ok := st.drafts[d.ID]; ok {
			return apperrors.ErrAlreadyExists
		}
		st.drafts[d.ID] = d
		return nil
	})
}

func (r *draftRepo) GetByID(_ context.Context, id string) (*domain.Draft, error) {
	var out *domain.Draft
	err := r.s.view("drafts.get", func(st *state) error {
		d, ok := st.drafts[id]
		if !ok {
			return apperrors.ErrNotFound
		}
		out = &d
		return nil
	})
	return out, err
}

func (r *draftRepo) Update(_ context.Context, draft *domain.Draft) error {
	d := *draft
	return r.s.update("drafts.update", func(st *state) error {
		if _, ok := st.drafts[d.ID]; !ok {
			return apperrors.ErrNotFound
		}
		st.drafts[d.ID] = d
		return nil
	})
}

func (r *draftRepo) Delete(_ context.Context, id string) error {
	return r.s.update(OpDraftDelete, func(st *state) error {
		if _, ok := st.drafts[id]; !ok {
			return apperrors.ErrNotFound
		}
		delete(st.drafts, id)
		return nil
	})
}

func (r *draftRepo) ListByAuthor(_ context.Context, authorID string) ([]domain.Draft, error) {
	var out []domain.Draft
	err := r.s.view("drafts.list", func(st *state) error {
		for _, d := range st.drafts {
			if d.AuthorID == authorID {
				out = append(out, d)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, err
}
