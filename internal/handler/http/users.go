package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/J-Stott/RegularReviewsBackEnd/internal/service"
	"github.com/J-Stott/RegularReviewsBackEnd/pkg/httputil"
	"github.com/J-Stott/RegularReviewsBackEnd/pkg/pagination"
)

// UserHandler serves per-user review listings and counters.
type UserHandler struct {
	reviews    *service.ReviewService
	aggregates *service.AggregateMaintainer
	logger     *slog.Logger
}

// NewUserHandler creates a new user HTTP handler.
func NewUserHandler(reviews *service.ReviewService, aggregates *service.AggregateMaintainer, logger *slog.Logger) *UserHandler {
	return &UserHandler{reviews: reviews, aggregates: aggregates, logger: logger}
}

// Stats handles GET /api/v1/users/{userID}/stats
func (h *UserHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.aggregates.GetUserStats(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, stats)
}

// Reviews handles GET /api/v1/users/{userID}/reviews?page=
func (h *UserHandler) Reviews(w http.ResponseWriter, r *http.Request) {
	result, err := h.reviews.ListByUser(r.Context(), chi.URLParam(r, "userID"), pagination.PageFromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, result)
}
