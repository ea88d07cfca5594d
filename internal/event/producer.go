// Package event publishes review domain events to Kafka and consumes the
// account events the service reacts to.
package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/J-Stott/RegularReviewsBackEnd/internal/domain"
	pkgkafka "github.com/J-Stott/RegularReviewsBackEnd/pkg/kafka"
	"github.com/J-Stott/RegularReviewsBackEnd/pkg/logger"
)

// Topics published by the review service.
var (
	TopicReviewCreated   = pkgkafka.Topic("reviews", "review", "created")
	TopicReviewUpdated   = pkgkafka.Topic("reviews", "review", "updated")
	TopicReviewDeleted   = pkgkafka.Topic("reviews", "review", "deleted")
	TopicReactionToggled = pkgkafka.Topic("reviews", "reaction", "toggled")
	TopicCommentAdded    = pkgkafka.Topic("reviews", "comment", "added")
)

const (
	aggregateReview = "review"
	sourceReviews   = "review-service"
)

// ReviewData is the payload of review.created, review.updated and
// review.deleted. The game averages are the values after the change.
type ReviewData struct {
	ReviewID       string              `json:"review_id"`
	AuthorID       string              `json:"author_id"`
	GameID         string              `json:"game_id"`
	GameLinkName   string              `json:"game_link_name"`
	Title          string              `json:"title"`
	Ratings        domain.RatingVector `json:"ratings"`
	GameNumReviews int                 `json:"game_num_reviews"`
	GameAverages   domain.RatingVector `json:"game_averages"`
	OccurredAt     time.Time           `json:"occurred_at"`
}

// ReactionToggledData is the payload of reaction.toggled.
type ReactionToggledData struct {
	ReviewID  string              `json:"review_id"`
	UserID    string              `json:"user_id"`
	Tally     domain.Tally        `json:"tally"`
	UserState domain.UserReaction `json:"user_state"`
}

// CommentAddedData is the payload of comment.added.
type CommentAddedData struct {
	ReviewID     string    `json:"review_id"`
	DiscussionID string    `json:"discussion_id"`
	CommentID    string    `json:"comment_id"`
	AuthorID     string    `json:"author_id"`
	CreatedAt    time.Time `json:"created_at"`
}

type publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer implements service.EventPublisher on top of Kafka.
type Producer struct {
	kafka  publisher
	logger *slog.Logger
	now    func() time.Time
}

// NewProducer creates a producer publishing through kafka.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{kafka: kafka, logger: logger, now: time.Now}
}

func (p *Producer) publish(ctx context.Context, topic, eventType, aggregateID string, data any) error {
	event, err := pkgkafka.NewEvent(eventType, aggregateID, aggregateReview, sourceReviews, data)
	if err != nil {
		return fmt.Errorf("build %s event: %w", eventType, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		event.WithCorrelationID(id)
	}
	return p.kafka.Publish(ctx, topic, event)
}

func (p *Producer) reviewData(review *domain.Review, game *domain.Game) ReviewData {
	return ReviewData{
		ReviewID:       review.ID,
		AuthorID:       review.AuthorID,
		GameID:         game.ID,
		GameLinkName:   game.LinkName,
		Title:          review.Title,
		Ratings:        review.Ratings,
		GameNumReviews: game.NumReviews,
		GameAverages:   game.Averages,
		OccurredAt:     p.now().UTC(),
	}
}

// PublishReviewCreated publishes review.created.
func (p *Producer) PublishReviewCreated(ctx context.Context, review *domain.Review, game *domain.Game) error {
	return p.publish(ctx, TopicReviewCreated, "review.created", review.ID, p.reviewData(review, game))
}

// PublishReviewUpdated publishes review.updated.
func (p *Producer) PublishReviewUpdated(ctx context.Context, review *domain.Review, game *domain.Game) error {
	return p.publish(ctx, TopicReviewUpdated, "review.updated", review.ID, p.reviewData(review, game))
}

// PublishReviewDeleted publishes review.deleted.
func (p *Producer) PublishReviewDeleted(ctx context.Context, review *domain.Review, game *domain.Game) error {
	return p.publish(ctx, TopicReviewDeleted, "review.deleted", review.ID, p.reviewData(review, game))
}

// PublishReactionToggled publishes reaction.toggled.
func (p *Producer) PublishReactionToggled(ctx context.Context, reviewID, userID string, result domain.ToggleResult) error {
	return p.publish(ctx, TopicReactionToggled, "reaction.toggled", reviewID, ReactionToggledData{
		ReviewID:  reviewID,
		UserID:    userID,
		Tally:     result.Tally,
		UserState: result.UserState,
	})
}

// PublishCommentAdded publishes comment.added.
func (p *Producer) PublishCommentAdded(ctx context.Context, reviewID string, comment *domain.Comment) error {
	return p.publish(ctx, TopicCommentAdded, "comment.added", reviewID, CommentAddedData{
		ReviewID:     reviewID,
		DiscussionID: comment.DiscussionID,
		CommentID:    comment.ID,
		AuthorID:     comment.AuthorID,
		CreatedAt:    comment.CreatedAt,
	})
}
