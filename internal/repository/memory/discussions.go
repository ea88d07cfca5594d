package memory

import (
	"context"
	"slices"
	"sort"

	"github.com/J-Stott/RegularReviewsBackEnd/internal/domain"
	apperrors "github.com/J-Stott/RegularReviewsBackEnd/pkg/errors"
)

type discussionRepo struct{ s *Store }

func (r *discussionRepo) Create(_ context.Context, discussion *domain.Discussion) error {
	d := *discussion
	return r.s.update(OpDiscussionCreate, func(st *state) error {
		if _, ok := st.discussions[d.ID]; ok {
			return apperrors.ErrAlreadyExists
		}
		st.discussions[d.ID] = d
		return nil
	})
}

func (r *discussionRepo) GetByID(_ context.Context, id string) (*domain.Discussion, error) {
	var out *domain.Discussion
	err := r.s.view("discussions.get", func(st *state) error {
		d, ok := st.discussions[id]
		if !ok {
			return apperrors.ErrNotFound
		}
		out = &d
		return nil
	})
	return out, err
}

func (r *discussionRepo) LinkReview(_ context.Context, id, reviewID string) error {
	return r.s.update(OpDiscussionLink, func(st *state) error {
		d, ok := st.discussions[id]
		if !ok {
			return apperrors.ErrNotFound
		}
		d.ReviewID = reviewID
		st.discussions[id] = d
		return nil
	})
}

func (r *discussionRepo) Delete(_ context.Context, id string) error {
	return r.s.update(OpDiscussionDelete, func(st *state) error {
		if _, ok := st.discussions[id]; !ok {
			return apperrors.ErrNotFound
		}
		delete(st.discussions, id)
		for cid, c := range st.comments {
			if c.DiscussionID == id {
				delete(st.comments, cid)
				delete(st.commentSeq, cid)
			}
		}
		return nil
	})
}

func (r *discussionRepo) AddComment(_ context.Context, comment *domain.Comment) error {
	c := *comment
	c.AuthorRoles = slices.Clone(c.AuthorRoles)
	return r.s.update(OpCommentAdd, func(st *state) error {
		if _, ok := st.discussions[c.DiscussionID]; !ok {
			return apperrors.ErrNotFound
		}
		st.nextSeq++
		st.comments[c.ID] = c
		st.commentSeq[c.ID] = st.nextSeq
		return nil
	})
}

func (r *discussionRepo) GetComment(_ context.Context, id string) (*domain.Comment, error) {
	var out *domain.Comment
	err := r.s.view("comments.get", func(st *state) error {
		c, ok := st.comments[id]
		if !ok {
			return apperrors.ErrNotFound
		}
		out = &c
		return nil
	})
	return out, err
}

func (r *discussionRepo) UpdateComment(_ context.Context, comment *domain.Comment) error {
	c := *comment
	return r.s.update("comments.update", func(st *state) error {
		existing, ok := st.comments[c.ID]
		if !ok {
			return apperrors.ErrNotFound
		}
		existing.Text = c.Text
		existing.EditedAt = c.EditedAt
		st.comments[c.ID] = existing
		return nil
	})
}

func (r *discussionRepo) DeleteComment(_ context.Context, id string) error {
	return r.s.update("comments.delete", func(st *state) error {
		if _, ok := st.comments[id]; !ok {
			return apperrors.ErrNotFound
		}
		delete(st.comments, id)
		delete(st.commentSeq, id)
		return nil
	})
}

func (r *discussionRepo) ListComments(_ context.Context, discussionID string, limit, offset int) ([]domain.Comment, int, error) {
	var (
		matched []domain.Comment
		seq     = make(map[string]int64)
	)
	err := r.s.view("comments.list", func(st *state) error {
		for _, c := range st.comments {
			if c.DiscussionID == discussionID {
				matched = append(matched, c)
				seq[c.ID] = st.commentSeq[c.ID]
			}
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	sort.Slice(matched, func(i, j int) bool {
		return seq[matched[i].ID] < seq[matched[j].ID]
	})
	return page(matched, limit, offset), len(matched), nil
}
