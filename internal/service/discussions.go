package service

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"github.com/google/uuid"

	"github.com/J-Stott/RegularReviewsBackEnd/internal/domain"
	"github.com/J-Stott/RegularReviewsBackEnd/internal/repository"
	apperrors "github.com/J-Stott/RegularReviewsBackEnd/pkg/errors"
	"github.com/J-Stott/RegularReviewsBackEnd/pkg/keylock"
	"github.com/J-Stott/RegularReviewsBackEnd/pkg/pagination"
)

// DiscussionService manages the comment thread of a review. Mutations hold the
// review's lock so they serialize with the review's deletion.
type DiscussionService struct {
	store  repository.Store
	locks  *keylock.Mutex
	events EventPublisher
	logger *slog.Logger
	opts   Options
}

// NewDiscussionService creates a new discussion service. A nil publisher disables events.
func NewDiscussionService(store repository.Store, locks *keylock.Mutex, events EventPublisher, logger *slog.Logger, opts Options) *DiscussionService {
	if events == nil {
		events = NopPublisher{}
	}
	return &DiscussionService{store: store, locks: locks, events: events, logger: logger, opts: opts.withDefaults()}
}

// discussionOf returns the review's discussion id, or NotFound when the
// review does not exist or has no discussion.
func (s *DiscussionService) discussionOf(ctx context.Context, reviewID string) (string, error) {
	if reviewID == "" {
		return "", apperrors.InvalidInput("review id is required")
	}
	review, err := s.store.Reviews().GetByID(ctx, reviewID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return "", apperrors.NotFound("review", reviewID)
		}
		return "", persistErr("get review", err)
	}
	if !review.HasDiscussion() {
		return "", apperrors.NotFound("discussion", reviewID)
	}
	return *review.DiscussionID, nil
}

// ListComments returns the index-th page of a discussion, oldest first.
func (s *DiscussionService) ListComments(ctx context.Context, reviewID string, index int, viewer *domain.Principal) (*pagination.Result[domain.CommentView], error) {
	discussionID, err := s.discussionOf(ctx, reviewID)
	if err != nil {
		return nil, err
	}

	params := pagination.FromIndex(index, s.opts.CommentsPageSize)
	comments, total, err := s.store.Discussions().ListComments(ctx, discussionID, params.PerPage, params.Offset)
	if err != nil {
		return nil, persistErr("list comments", err)
	}

	views := make([]domain.CommentView, len(comments))
	for i := range comments {
		views[i] = domain.CommentView{Comment: comments[i], CanModerate: comments[i].ShowsModeration(viewer)}
	}
	res := pagination.NewResult(views, total, params)
	return &res, nil
}

// AddComment appends a comment to the review's discussion.
func (s *DiscussionService) AddComment(ctx context.Context, p *domain.Principal, reviewID, text string) (*domain.Comment, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	text, err := domain.NormalizeCommentText(text)
	if err != nil {
		return nil, err
	}

	var comment *domain.Comment
	err = withLock(ctx, s.locks, reviewKey(reviewID), func(ctx context.Context) error {
		discussionID, err := s.discussionOf(ctx, reviewID)
		if err != nil {
			return err
		}
		comment = &domain.Comment{
			ID:           uuid.New().String(),
			DiscussionID: discussionID,
			AuthorID:     p.UserID,
			AuthorRoles:  slices.Clone(p.Roles),
			Text:         text,
			CreatedAt:    s.opts.Now(),
		}
		return persistErr("add comment", s.store.Discussions().AddComment(ctx, comment))
	})
	if err != nil {
		return nil, err
	}

	if err := s.events.PublishCommentAdded(ctx, reviewID, comment); err != nil {
		s.logger.WarnContext(ctx, "failed to publish comment event",
			slog.String("review_id", reviewID),
			slog.String("error", err.Error()),
		)
	}
	return comment, nil
}

// EditComment replaces a comment's text. The comment's author or an admin may edit it.
func (s *DiscussionService) EditComment(ctx context.Context, p *domain.Principal, reviewID, commentID, text string) (*domain.Comment, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	text, err := domain.NormalizeCommentText(text)
	if err != nil {
		return nil, err
	}

	var comment *domain.Comment
	err = withLock(ctx, s.locks, reviewKey(reviewID), func(ctx context.Context) error {
		comment, err = s.moderatedComment(ctx, p, reviewID, commentID)
		if err != nil {
			return err
		}
		now := s.opts.Now()
		comment.Text = text
		comment.EditedAt = &now
		return persistErr("update comment", s.store.Discussions().UpdateComment(ctx, comment))
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

// DeleteComment removes a comment. The comment's author or an admin may delete it.
func (s *DiscussionService) DeleteComment(ctx context.Context, p *domain.Principal, reviewID, commentID string) error {
	if err := requirePrincipal(p); err != nil {
		return err
	}
	return withLock(ctx, s.locks, reviewKey(reviewID), func(ctx context.Context) error {
		comment, err := s.moderatedComment(ctx, p, reviewID, commentID)
		if err != nil {
			return err
		}
		if err := s.store.Discussions().DeleteComment(ctx, comment.ID); err != nil {
			return persistErr("delete comment", err)
		}
		s.logger.InfoContext(ctx, "comment deleted",
			slog.String("review_id", reviewID),
			slog.String("comment_id", commentID),
			slog.String("deleted_by", p.UserID),
		)
		return nil
	})
}

func (s *DiscussionService) moderatedComment(ctx context.Context, p *domain.Principal, reviewID, commentID string) (*domain.Comment, error) {
	discussionID, err := s.discussionOf(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	comment, err := s.store.Discussions().GetComment(ctx, commentID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("comment", commentID)
		}
		return nil, persistErr("get comment", err)
	}
	if comment.DiscussionID != discussionID {
		return nil, apperrors.NotFound("comment", commentID)
	}
	if !comment.CanModerate(p) {
		return nil, apperrors.Forbidden("only the comment author or an admin may change a comment")
	}
	return comment, nil
}
