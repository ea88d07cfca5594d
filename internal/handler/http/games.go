package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/J-Stott/RegularReviewsBackEnd/internal/service"
	"github.com/J-Stott/RegularReviewsBackEnd/pkg/httputil"
	"github.com/J-Stott/RegularReviewsBackEnd/pkg/pagination"
	"github.com/J-Stott/RegularReviewsBackEnd/pkg/validator"
)

// GameHandler handles HTTP requests for game endpoints.
type GameHandler struct {
	service *service.GameService
	logger  *slog.Logger
}

// NewGameHandler creates a new game HTTP handler.
func NewGameHandler(svc *service.GameService, logger *slog.Logger) *GameHandler {
	return &GameHandler{service: svc, logger: logger}
}

// CreateGameRequest is the JSON request body for registering a catalog game.
type CreateGameRequest struct {
	IGDBID int64 `json:"igdb_id" validate:"required,gt=0"`
}

// GetGame handles GET /api/v1/games/{linkName}
func (h *GameHandler) GetGame(w http.ResponseWriter, r *http.Request) {
	game, err := h.service.GetByLinkName(r.Context(), chi.URLParam(r, "linkName"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, game)
}

// ListReviews handles GET /api/v1/games/{linkName}/reviews?page=
func (h *GameHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.ListReviews(r.Context(), chi.URLParam(r, "linkName"), pagination.PageFromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, result)
}

// CreateGame handles POST /api/v1/games. It returns the existing game when
// the catalog id is already known.
func (h *GameHandler) CreateGame(w http.ResponseWriter, r *http.Request) {
	var req CreateGameRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	game, err := h.service.FindOrCreate(r.Context(), req.IGDBID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, game)
}
