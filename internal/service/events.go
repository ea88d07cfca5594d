package service

import (
	"context"

	"github.com/J-Stott/RegularReviewsBackEnd/internal/domain"
)

// EventPublisher publishes domain events once the corresponding writes have
// committed. Failures are logged by the caller and never fail the request.
type EventPublisher interface {
	PublishReviewCreated(ctx context.Context, review *domain.Review, game *domain.Game) error
	PublishReviewUpdated(ctx context.Context, review *domain.Review, game *domain.Game) error
	PublishReviewDeleted(ctx context.Context, review *domain.Review, game *domain.Game) error
	PublishReactionToggled(ctx context.Context, reviewID, userID string, result domain.ToggleResult) error
	PublishCommentAdded(ctx context.Context, reviewID string, comment *domain.Comment) error
}

// NopPublisher discards every event. It is used when Kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) PublishReviewCreated(context.Context, *domain.Review, *domain.Game) error {
	return nil
}

func (NopPublisher) PublishReviewUpdated(context.Context, *domain.Review, *domain.Game) error {
	return nil
}

func (NopPublisher) PublishReviewDeleted(context.Context, *domain.Review, *domain.Game) error {
	return nil
}

func (NopPublisher) PublishReactionToggled(context.Context, string, string, domain.ToggleResult) error {
	return nil
}

func (NopPublisher) PublishCommentAdded(context.Context, string, *domain.Comment) error {
	return nil
}
