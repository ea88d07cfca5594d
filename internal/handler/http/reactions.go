package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/J-Stott/RegularReviewsBackEnd/internal/service"
	"github.com/J-Stott/RegularReviewsBackEnd/pkg/httputil"
)

// ReactionHandler handles HTTP requests for review reactions.
type ReactionHandler struct {
	service *service.ReactionService
	logger  *slog.Logger
}

// NewReactionHandler creates a new reaction HTTP handler.
func NewReactionHandler(svc *service.ReactionService, logger *slog.Logger) *ReactionHandler {
	return &ReactionHandler{service: svc, logger: logger}
}

// Get handles GET /api/v1/reviews/{reviewID}/reactions. The caller's own
// reaction state is null for anonymous requests.
func (h *ReactionHandler) Get(w http.ResponseWriter, r *http.Request) {
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

// Toggle handles POST /api/v1/reviews/{reviewID}/reactions/{kind}
func (h *ReactionHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathUUID(r, "reviewID")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	result, err := h.service.Toggle(r.Context(), principalFrom(r), id, chi.URLParam(r, "kind"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, result)
}
