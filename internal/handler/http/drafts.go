package http

import (
	"log/slog"
	"net/http"

	"github.com/J-Stott/RegularReviewsBackEnd/internal/service"
	"github.com/J-Stott/RegularReviewsBackEnd/pkg/httputil"
	"github.com/J-Stott/RegularReviewsBackEnd/pkg/validator"
)

// DraftHandler handles HTTP requests for the caller's review drafts.
type DraftHandler struct {
	service *service.DraftService
	logger  *slog.Logger
}

// NewDraftHandler creates a new draft HTTP handler.
func NewDraftHandler(svc *service.DraftService, logger *slog.Logger) *DraftHandler {
	return &DraftHandler{service: svc, logger: logger}
}

// DraftRequest is the JSON request body for saving a draft. Text fields
// may be empty while the review is being written.
type DraftRequest struct {
	IGDBID  int64          `json:"igdb_id" validate:"required,gt=0"`
	Ratings RatingsRequest `json:"ratings"`
	Title   string         `json:"title" validate:"max=200"`
	Content string         `json:"content" validate:"max=20000"`
}

func (req DraftRequest) input() service.DraftInput {
	return service.DraftInput{
		IGDBID:  req.IGDBID,
		Ratings: req.Ratings.input(),
		Title:   req.Title,
		Content: req.Content,
	}
}

// List handles GET /api/v1/drafts
func (h *DraftHandler) List(w http.ResponseWriter, r *http.Request) {
	drafts, err := h.service.List(r.Context(), principalFrom(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, drafts)
}

// Save handles POST /api/v1/drafts
func (h *DraftHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req DraftRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	draft, err := h.service.Save(r.Context(), principalFrom(r), req.input())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, draft)
}

// Get handles GET /api/v1/drafts/{draftID}
func (h *DraftHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathUUID(r, "draftID")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	draft, err := h.service.Get(r.Context(), principalFrom(r), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, draft)
}

// Update handles PUT /api/v1/drafts/{draftID}
func (h *DraftHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathUUID(r, "draftID")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	var req DraftRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	draft, err := h.service.Update(r.Context(), principalFrom(r), id, req.input())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, draft)
}

// Delete handles DELETE /api/v1/drafts/{draftID}
func (h *DraftHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathUUID(r, "draftID")
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
