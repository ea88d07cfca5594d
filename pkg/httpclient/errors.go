package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	apperrors "github.com/J-Stott/RegularReviewsBackEnd/pkg/errors"
)

// upstreamError covers the error bodies of the OAuth token endpoint
// ({"status":400,"message":"..."}) and the catalog API
// ([{"title":"...","status":400,"cause":"..."}]) and of this service's own
// envelope ({"error":{"code":"...","message":"..."}}).
type upstreamError struct {
	Status   int    `json:"status"`
	Message  string `json:"message"`
	Title    string `json:"title"`
	Cause    string `json:"cause"`
	Envelope *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (e upstreamError) text() string {
	fields := []string{e.Message, e.Title, e.Cause}
	if e.Envelope != nil {
		fields = append(fields, e.Envelope.Message)
	}
	parts := make([]string, 0, 2)
	for _, s := range fields {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ": ")
}

// ParseResponseError reads the body of a non-2xx response from upstream and
// translates it into an AppError. The body is fully consumed and closed.
func ParseResponseError(resp *http.Response, upstream string) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s returned status %d (failed to read body: %w)", upstream, resp.StatusCode, err)
	}

	message := strings.TrimSpace(string(body))
	var single upstreamError
	var list []upstreamError
	switch {
	case json.Unmarshal(body, &single) == nil && single.text() != "":
		message = single.text()
	case json.Unmarshal(body, &list) == nil && len(list) > 0 && list[0].text() != "":
		message = list[0].text()
	}
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}

	return mapUpstreamError(resp.StatusCode, message, upstream)
}

func mapUpstreamError(status int, message, upstream string) error {
	qualified := fmt.Sprintf("%s: %s", upstream, message)

	switch {
	case status == http.StatusNotFound:
		return apperrors.NotFound(upstream, message)
	case status == http.StatusBadRequest:
		return apperrors.InvalidInput(qualified)
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return apperrors.Unauthorized(qualified)
	case status == http.StatusTooManyRequests, status == http.StatusServiceUnavailable:
		return apperrors.ServiceUnavailable(qualified)
	case status >= 500:
		return fmt.Errorf("%s server error (%d): %s", upstream, status, message)
	default:
		return &apperrors.AppError{
			Code:    "UPSTREAM_ERROR",
			Message: qualified,
			Status:  http.StatusBadGateway,
		}
	}
}

// IsClientError returns true if the HTTP status code is a 4xx client error.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}
