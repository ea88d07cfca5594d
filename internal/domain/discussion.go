package domain

import (
	"strings"
	"time"

	apperrors "github.com/J-Stott/RegularReviewsBackEnd/pkg/errors"
)

// Discussion is the optional comment thread attached to a review.
type Discussion struct {
	ID       string `json:"id"`
	ReviewID string `json:"review_id,omitempty"`
}

// Comment is a single entry in a discussion.
type Comment struct {
	ID           string `json:"id"`
	DiscussionID string `json:"discussion_id"`
	AuthorID     string `json:"author_id"`
	// AuthorRoles are the author's roles when the comment was written.
	AuthorRoles []string   `json:"-"`
	Text        string     `json:"text"`
	CreatedAt   time.Time  `json:"created_at"`
	EditedAt    *time.Time `json:"edited_at,omitempty"`
}

// CommentView is a comment annotated for the viewing user.
type CommentView struct {
	Comment
	CanModerate bool `json:"can_moderate"`
}

// CanModerate reports whether viewer may edit or delete the comment.
func (c *Comment) CanModerate(viewer *Principal) bool {
	if viewer == nil {
		return false
	}
	return viewer.UserID == c.AuthorID || viewer.IsAdmin()
}

// ShowsModeration reports whether the viewer is offered moderation controls
// on the comment. Admins are not offered them on comments by peers of equal
// or higher rank, although CanModerate still lets them act.
func (c *Comment) ShowsModeration(viewer *Principal) bool {
	if viewer == nil {
		return false
	}
	author := &Principal{UserID: c.AuthorID, Roles: c.AuthorRoles}
	switch {
	case viewer.UserID == c.AuthorID:
		return true
	case viewer.HasRole(RoleSuperAdmin):
		return !author.HasRole(RoleSuperAdmin)
	case viewer.HasRole(RoleAdmin):
		return !author.HasRole(RoleAdmin) && !author.HasRole(RoleSuperAdmin)
	}
	return false
}

// NormalizeCommentText trims and bounds comment text.
func NormalizeCommentText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", apperrors.InvalidInput("comment is required")
	}
	if len(text) > MaxCommentLength {
		return "", apperrors.InvalidInput("comment is too long")
	}
	return text, nil
}
