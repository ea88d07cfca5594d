package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func fakeValidator(token string) (*Claims, error) {
	switch token {
	case "user-token":
		return &Claims{UserID: "u1", Roles: []string{"user"}}, nil
	case "admin-token":
		return &Claims{UserID: "a1", Roles: []string{"user", "admin"}}, nil
	default:
		return nil, errors.New("bad token")
	}
}

func echoUser() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(UserIDFromContext(r.Context())))
	})
}

func serve(h http.Handler, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestAuth(t *testing.T) {
	h := Auth(fakeValidator)(echoUser())

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"valid token", "Bearer user-token", http.StatusOK, "u1"},
		{"lowercase scheme", "bearer user-token", http.StatusOK, "u1"},
		{"missing header", "", http.StatusUnauthorized, "missing authorization header"},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, "invalid authorization header format"},
		{"no token", "Bearer", http.StatusUnauthorized, "invalid authorization header format"},
		{"invalid token", "Bearer nope", http.StatusUnauthorized, "invalid or expired token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(h, tt.header)
			assert.Equal(t, tt.status, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.body)
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	h := OptionalAuth(fakeValidator)(echoUser())

	rr := serve(h, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, rr.Body.String())

	rr = serve(h, "Bearer user-token")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "u1", rr.Body.String())

	rr = serve(h, "Bearer expired")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRequireRole(t *testing.T) {
	h := Auth(fakeValidator)(RequireRole("admin", "super_admin")(echoUser()))

	rr := serve(h, "Bearer admin-token")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = serve(h, "Bearer user-token")
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Contains(t, rr.Body.String(), "FORBIDDEN")
}

func TestClaimsFromContext_Anonymous(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Nil(t, ClaimsFromContext(req.Context()))
	assert.Empty(t, UserIDFromContext(req.Context()))
	assert.False(t, ClaimsFromContext(req.Context()).HasAnyRole("admin"))
}

func TestRequireAuth_AfterOptionalAuth(t *testing.T) {
	h := OptionalAuth(fakeValidator)(RequireAuth(echoUser()))

	rr := serve(h, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), "authentication required")

	rr = serve(h, "Bearer admin-token")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "a1", rr.Body.String())
}
