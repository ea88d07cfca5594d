package event

import (
	"context"
	"fmt"
	"log/slog"

	pkgkafka "github.com/J-Stott/RegularReviewsBackEnd/pkg/kafka"
)

// TopicUserDeleted is published by the account service when a user is removed.
var TopicUserDeleted = pkgkafka.Topic("users", "user", "deleted")

// UserDeletedData is the payload of user.deleted.
type UserDeletedData struct {
	UserID string `json:"user_id"`
}

// ContentRemover deletes everything a user authored.
type ContentRemover interface {
	DeleteUserContent(ctx context.Context, userID string) (int, error)
}

// Consumer handles account events.
type Consumer struct {
	reviews ContentRemover
	logger  *slog.Logger
}

// NewConsumer creates a consumer that cascades account removals to reviews.
func NewConsumer(reviews ContentRemover, logger *slog.Logger) *Consumer {
	return &Consumer{reviews: reviews, logger: logger}
}

// HandleUserDeleted removes the deleted user's reviews and drafts. Replays
// are harmless: reviews already gone are skipped.
func (c *Consumer) HandleUserDeleted(ctx context.Context, event *pkgkafka.Event) error {
	var data UserDeletedData
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}
	if data.UserID == "" {
		data.UserID = event.AggregateID
	}
	if data.UserID == "" {
		c.logger.WarnContext(ctx, "ignoring user.deleted event without user id",
			slog.String("event_id", event.EventID),
		)
		return nil
	}

	c.logger.InfoContext(ctx, "processing user.deleted event",
		slog.String("event_id", event.EventID),
		slog.String("user_id", data.UserID),
	)

	removed, err := c.reviews.DeleteUserContent(ctx, data.UserID)
	if err != nil {
		return fmt.Errorf("remove content of user %s: %w", data.UserID, err)
	}

	c.logger.InfoContext(ctx, "removed deleted user's reviews",
		slog.String("user_id", data.UserID),
		slog.Int("reviews", removed),
	)
	return nil
}
