package http

import (
	"log/slog"
	"net/http"

	"github.com/J-Stott/RegularReviewsBackEnd/internal/service"
	"github.com/J-Stott/RegularReviewsBackEnd/pkg/httputil"
	"github.com/J-Stott/RegularReviewsBackEnd/pkg/pagination"
	"github.com/J-Stott/RegularReviewsBackEnd/pkg/validator"
)

// CommentHandler handles HTTP requests for review discussions.
type CommentHandler struct {
	service *service.DiscussionService
	logger  *slog.Logger
}

// NewCommentHandler creates a new comment HTTP handler.
func NewCommentHandler(svc *service.DiscussionService, logger *slog.Logger) *CommentHandler {
	return &CommentHandler{service: svc, logger: logger}
}

// CommentRequest is the JSON request body for adding or editing a comment.
type CommentRequest struct {
	Text string `json:"text" validate:"notblank,max=2000"`
}

// List handles GET /api/v1/reviews/{reviewID}/comments?index=
func (h *CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	reviewID, err := httputil.PathUUID(r, "reviewID")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	page, err := h.service.ListComments(r.Context(), reviewID, pagination.IndexFromRequest(r), principalFrom(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, page)
}

// Add handles POST /api/v1/reviews/{reviewID}/comments
func (h *CommentHandler) Add(w http.ResponseWriter, r *http.Request) {
	reviewID, err := httputil.PathUUID(r, "reviewID")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	var req CommentRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	comment, err := h.service.AddComment(r.Context(), principalFrom(r), reviewID, req.Text)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, comment)
}

// Edit handles PATCH /api/v1/reviews/{reviewID}/comments/{commentID}
func (h *CommentHandler) Edit(w http.ResponseWriter, r *http.Request) {
	reviewID, commentID, err := commentPath(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	var req CommentRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	comment, err := h.service.EditComment(r.Context(), principalFrom(r), reviewID, commentID, req.Text)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, comment)
}

// Delete handles DELETE /api/v1/reviews/{reviewID}/comments/{commentID}
func (h *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	reviewID, commentID, err := commentPath(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if err := h.service.DeleteComment(r.Context(), principalFrom(r), reviewID, commentID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteNoContent(w)
}

func commentPath(r *http.Request) (reviewID, commentID string, err error) {
	if reviewID, err = httputil.PathUUID(r, "reviewID"); err != nil {
		return "", "", err
	}
	if commentID, err = httputil.PathUUID(r, "commentID"); err != nil {
		return "", "", err
	}
	return reviewID, commentID, nil
}
