package memory

import (
	"context"
	"maps"

	"github.com/J-Stott/RegularReviewsBackEnd/internal/domain"
	apperrors "github.com/J-Stott/RegularReviewsBackEnd/pkg/errors"
)

type reactionRepo struct{ s *Store }

func (r *reactionRepo) Create(_ context.Context, reaction *domain.Reaction) error {
	rc := *reaction
	return r.s.update(OpReactionCreate, func(st *state) error {
		if _, ok := st.reactions[rc.ID]; ok {
			return apperrors.ErrAlreadyExists
		}
		st.reactions[rc.ID] = rc
		return nil
	})
}

func (r *reactionRepo) GetByID(_ context.Context, id string) (*domain.Reaction, error) {
	var out *domain.Reaction
	err := r.s.view("reactions.get", func(st *state) error {
		rc, ok := st.reactions[id]
		if !ok {
			return apperrors.ErrNotFound
		}
		out = &rc
		return nil
	})
	return out, err
}

func (r *reactionRepo) LinkReview(_ context.Context, id, reviewID string) error {
	return r.s.update(OpReactionLink, func(st *state) error {
		rc, ok := st.reactions[id]
		if !ok {
			return apperrors.ErrNotFound
		}
		rc.ReviewID = reviewID
		st.reactions[id] = rc
		return nil
	})
}

func (r *reactionRepo) UpdateTally(_ context.Context, id string, tally domain.Tally) error {
	return r.s.update(OpReactionUpdateTally, func(st *state) error {
		rc, ok := st.reactions[id]
		if !ok {
			return apperrors.ErrNotFound
		}
		if tally.Up < 0 || tally.Down < 0 || tally.Funny < 0 {
			return apperrors.InvariantViolation("reaction tally must not be negative")
		}
		rc.Tally = tally
		st.reactions[id] = rc
		return nil
	})
}

func (r *reactionRepo) GetUserReaction(_ context.Context, reactionID, userID string) (domain.UserReaction, error) {
	var out domain.UserReaction
	err := r.s.view("reactions.get_user", func(st *state) error {
		if _, ok := st.reactions[reactionID]; !ok {
			return apperrors.ErrNotFound
		}
		out = st.userReactions[reactionID][userID]
		return nil
	})
	return out, err
}

func (r *reactionRepo) PutUserReaction(_ context.Context, reactionID, userID string, ur domain.UserReaction) error {
	return r.s.update(OpReactionPutUser, func(st *state) error {
		if _, ok := st.reactions[reactionID]; !ok {
			return apperrors.ErrNotFound
		}
		if ur.Up && ur.Down {
			return apperrors.InvariantViolation("user reaction cannot be both up and down")
		}
		users := maps.Clone(st.userReactions[reactionID])
		if users == nil {
			users = make(map[string]domain.UserReaction)
		}
		if ur.IsEmpty() {
			delete(users, userID)
		} else {
			users[userID] = ur
		}
		st.userReactions[reactionID] = users
		return nil
	})
}

func (r *reactionRepo) Delete(_ context.Context, id string) error {
	return r.s.update(OpReactionDelete, func(st *state) error {
		if _, ok := st.reactions[id]; !ok {
			return apperrors.ErrNotFound
		}
		delete(st.reactions, id)
		delete(st.userReactions, id)
		return nil
	})
}
