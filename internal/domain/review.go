package domain

import (
	"strings"
	"time"

	apperrors "github.com/J-Stott/RegularReviewsBackEnd/pkg/errors"
)

// Text limits for reviews and comments.
const (
	MaxTitleLength   = 200
	MaxContentLength = 20000
	MaxCommentLength = 2000
)

// Review is a user's rated write-up of a game. At most one exists per
// (author, game) pair.
type Review struct {
	ID           string       `json:"id"`
	AuthorID     string       `json:"author_id"`
	GameID       string       `json:"game_id"`
	Ratings      RatingVector `json:"ratings"`
	Title        string       `json:"title"`
	Content      string       `json:"content"`
	ReactionID   string       `json:"reaction_id"`
	DiscussionID *string      `json:"discussion_id,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	EditedAt     *time.Time   `json:"edited_at,omitempty"`
}

// HasDiscussion reports whether the author opted into a comment thread.
func (r *Review) HasDiscussion() bool {
	return r.DiscussionID != nil && *r.DiscussionID != ""
}

// Admin status values attached to a review for the viewing user.
const (
	AdminStatusAuthor = "author"
	AdminStatusAdmin  = "admin"
)

// ReviewView is a review as presented to a particular viewer.
type ReviewView struct {
	Review
	AdminStatus string `json:"admin_status,omitempty"`
}

// AdminStatusFor returns how viewer may manage review.
func AdminStatusFor(review *Review, viewer *Principal) string {
	switch {
	case viewer == nil:
		return ""
	case viewer.UserID == review.AuthorID:
		return AdminStatusAuthor
	case viewer.IsAdmin():
		return AdminStatusAdmin
	default:
		return ""
	}
}

// ReviewText is the free-text part of a review.
type ReviewText struct {
	Title   string
	Content string
}

// Validate trims and bounds the text fields.
func (t *ReviewText) Validate() error {
	t.Title = strings.TrimSpace(t.Title)
	t.Content = strings.TrimSpace(t.Content)
	if t.Title == "" {
		return apperrors.InvalidInput("title is required")
	}
	if len(t.Title) > MaxTitleLength {
		return apperrors.InvalidInput("title is too long")
	}
	if t.Content == "" {
		return apperrors.InvalidInput("content is required")
	}
	if len(t.Content) > MaxContentLength {
		return apperrors.InvalidInput("content is too long")
	}
	return nil
}
