// Package httputil writes the JSON envelope shared by every endpoint.
package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	apperrors "github.com/J-Stott/RegularReviewsBackEnd/pkg/errors"
	"github.com/J-Stott/RegularReviewsBackEnd/pkg/logger"
	"github.com/J-Stott/RegularReviewsBackEnd/pkg/validator"
)

// Response is the envelope of every JSON body: exactly one of Data or Error
// is set.
type Response struct {
	Data  any            `json:"data,omitempty"`
	Error *ErrorResponse `json:"error,omitempty"`
}

// ErrorResponse describes a failed request.
type ErrorResponse struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// WriteJSON encodes v with the given status. Encoding errors are dropped
// because the status line has already been sent.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteData writes data inside the envelope.
func WriteData(w http.ResponseWriter, status int, data any) {
	WriteJSON(w, status, Response{Data: data})
}

// WriteNoContent answers 204.
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// WriteError maps err onto a status and error code. Validation failures
// carry per-field messages. Server-side failures are logged with the
// request-scoped logger, falling back to fallback, and their details are
// never sent to the client.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	ctx := r.Context()
	body := &ErrorResponse{RequestID: logger.CorrelationIDFromContext(ctx)}
	status := apperrors.HTTPStatus(err)

	var (
		verr   *validator.ValidationError
		appErr *apperrors.AppError
	)
	switch {
	case errors.As(err, &verr):
		status = http.StatusBadRequest
		body.Code = "VALIDATION_ERROR"
		body.Message = "request validation failed"
		body.Fields = verr.Fields()
	case errors.As(err, &appErr):
		body.Code = appErr.Code
		body.Message = appErr.Message
	default:
		body.Code, body.Message = fallbackCode(status)
	}

	if status >= http.StatusInternalServerError {
		l := logger.FromContext(ctx)
		if l == slog.Default() && fallback != nil {
			l = fallback
		}
		l.ErrorContext(ctx, "request failed",
			slog.String("code", body.Code),
			slog.String("error", err.Error()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
	}
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "1")
	}
	WriteJSON(w, status, Response{Error: body})
}

func fallbackCode(status int) (string, string) {
	switch status {
	case http.StatusNotFound:
		return "NOT_FOUND", "resource not found"
	case http.StatusConflict:
		return "CONFLICT", "request conflicts with current state"
	case http.StatusBadRequest:
		return "INVALID_INPUT", "invalid input"
	case http.StatusUnauthorized:
		return "UNAUTHORIZED", "authentication required"
	case http.StatusForbidden:
		return "FORBIDDEN", "not allowed"
	case http.StatusUnprocessableEntity:
		return "UNPROCESSABLE", "request cannot be processed yet"
	case http.StatusServiceUnavailable:
		return "SERVICE_UNAVAILABLE", "service temporarily unavailable"
	default:
		return "INTERNAL_ERROR", "an internal error occurred"
	}
}

// PathUUID returns the named chi URL parameter when it is a valid UUID.
func PathUUID(r *http.Request, name string) (string, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", apperrors.InvalidInput("invalid " + name + ": " + raw)
	}
	return id.String(), nil
}
