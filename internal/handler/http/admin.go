package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/J-Stott/RegularReviewsBackEnd/internal/service"
	"github.com/J-Stott/RegularReviewsBackEnd/pkg/httputil"
)

// AdminHandler exposes aggregate repair to administrators.
type AdminHandler struct {
	aggregates *service.AggregateMaintainer
	logger     *slog.Logger
}

// NewAdminHandler creates a new admin HTTP handler.
func NewAdminHandler(aggregates *service.AggregateMaintainer, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{aggregates: aggregates, logger: logger}
}

// RecomputeGame handles POST /api/v1/admin/recompute/games/{gameID}
func (h *AdminHandler) RecomputeGame(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathUUID(r, "gameID")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	game, err := h.aggregates.RecomputeGame(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, game)
}

// RecomputeUser handles POST /api/v1/admin/recompute/users/{userID}
func (h *AdminHandler) RecomputeUser(w http.ResponseWriter, r *http.Request) {
	stats, err := h.aggregates.RecomputeUser(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, stats)
}

// RecomputeAll handles POST /api/v1/admin/recompute/all
func (h *AdminHandler) RecomputeAll(w http.ResponseWriter, r *http.Request) {
	res, err := h.aggregates.RecomputeAll(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	h.logger.InfoContext(r.Context(), "aggregates recomputed",
		slog.Int("games", res.Games),
		slog.Int("users", res.Users),
	)
	httputil.WriteData(w, http.StatusOK, res)
}
