package http

import (
	"log/slog"
	"net/http"

	"github.com/J-Stott/RegularReviewsBackEnd/internal/domain"
	"github.com/J-Stott/RegularReviewsBackEnd/internal/service"
	"github.com/J-Stott/RegularReviewsBackEnd/pkg/httputil"
	"github.com/J-Stott/RegularReviewsBackEnd/pkg/pagination"
	"github.com/J-Stott/RegularReviewsBackEnd/pkg/validator"
)

// ReviewHandler handles HTTP requests for review endpoints.
type ReviewHandler struct {
	service *service.ReviewService
	logger  *slog.Logger
}

// NewReviewHandler creates a new review HTTP handler.
func NewReviewHandler(svc *service.ReviewService, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{service: svc, logger: logger}
}

// --- Request DTOs ---

// RatingsRequest is a partially filled rating vector. Absent dimensions
// count as zero.
type RatingsRequest struct {
	Gameplay *float64 `json:"gameplay,omitempty" validate:"omitempty,gte=0,lte=10"`
	Visuals  *float64 `json:"visuals,omitempty" validate:"omitempty,gte=0,lte=10"`
	Audio    *float64 `json:"audio,omitempty" validate:"omitempty,gte=0,lte=10"`
	Story    *float64 `json:"story,omitempty" validate:"omitempty,gte=0,lte=10"`
	Overall  *float64 `json:"overall,omitempty" validate:"omitempty,gte=0,lte=10"`
}

func (r RatingsRequest) input() domain.RatingInput {
	return domain.RatingInput(r)
}

// CreateReviewRequest is the JSON request body for creating a review. The
// game is named by internal id or catalog id.
type CreateReviewRequest struct {
	GameID          string         `json:"game_id" validate:"required_without=IGDBID,omitempty,uuid"`
	IGDBID          int64          `json:"igdb_id" validate:"required_without=GameID,omitempty,gt=0"`
	Ratings         RatingsRequest `json:"ratings"`
	Title           string         `json:"title" validate:"notblank,max=200"`
	Content         string         `json:"content" validate:"notblank,max=20000"`
	WantsDiscussion bool           `json:"wants_discussion"`
	DraftID         string         `json:"draft_id" validate:"omitempty,uuid"`
}

// UpdateReviewRequest is the JSON request body for editing a review.
type UpdateReviewRequest struct {
	Ratings RatingsRequest `json:"ratings"`
	Title   string         `json:"title" validate:"notblank,max=200"`
	Content string         `json:"content" validate:"notblank,max=20000"`
}

// --- Handlers ---

// ListLatest handles GET /api/v1/reviews?page=
func (h *ReviewHandler) ListLatest(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.ListLatest(r.Context(), pagination.PageFromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, result)
}

// Get handles GET /api/v1/reviews/{reviewID}
func (h *ReviewHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathUUID(r, "reviewID")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	view, err := h.service.Get(r.Context(), id, principalFrom(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, view)
}

// Create handles POST /api/v1/reviews
func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateReviewRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	review, err := h.service.Create(r.Context(), principalFrom(r), service.CreateReviewInput{
		GameID:          req.GameID,
		IGDBID:          req.IGDBID,
		Ratings:         req.Ratings.input(),
		Title:           req.Title,
		Content:         req.Content,
		WantsDiscussion: req.WantsDiscussion,
		DraftID:         req.DraftID,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, review)
}

// Update handles PATCH /api/v1/reviews/{reviewID}
func (h *ReviewHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathUUID(r, "reviewID")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	var req UpdateReviewRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	review, err := h.service.Update(r.Context(), principalFrom(r), id, service.UpdateReviewInput{
		Ratings: req.Ratings.input(),
		Title:   req.Title,
		Content: req.Content,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, review)
}

// Delete handles DELETE /api/v1/reviews/{reviewID}
func (h *ReviewHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathUUID(r, "reviewID")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if err := h.service.Delete(r.Context(), principalFrom(r), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteNoContent(w)
}
