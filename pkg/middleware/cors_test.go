package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func corsRequest(cfg CORSConfig, method, origin string) *httptest.ResponseRecorder {
	reached := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	req := httptest.NewRequest(method, "/api/v1/reviews", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	rr := httptest.NewRecorder()
	CORS(cfg)(reached).ServeHTTP(rr, req)
	return rr
}

func TestCORS_AllowOrigin(t *testing.T) {
	frontEnd := []string{"https://regularreviews.example", "https://admin.regularreviews.example"}

	tests := []struct {
		name   string
		cfg    CORSConfig
		origin string
		want   string
		vary   bool
	}{
		{"development allows any origin", CORSConfig{Environment: "development"}, "https://elsewhere.example", "*", false},
		{"development without origin", CORSConfig{Environment: "development"}, "", "*", false},
		{"wildcard in list", CORSConfig{AllowedOrigins: []string{"https://a.example", "*"}, Environment: "production"}, "https://b.example", "*", false},
		{"listed origin echoed", CORSConfig{AllowedOrigins: frontEnd, Environment: "production"}, frontEnd[0], frontEnd[0], true},
		{"second listed origin", CORSConfig{AllowedOrigins: frontEnd, Environment: "production"}, frontEnd[1], frontEnd[1], true},
		{"unlisted origin", CORSConfig{AllowedOrigins: frontEnd, Environment: "production"}, "https://elsewhere.example", "", false},
		{"no origin in production", CORSConfig{AllowedOrigins: frontEnd, Environment: "production"}, "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := corsRequest(tt.cfg, http.MethodGet, tt.origin)
			assert.Equal(t, http.StatusTeapot, rr.Code)
			assert.Equal(t, tt.want, rr.Header().Get("Access-Control-Allow-Origin"))
			if tt.vary {
				assert.Equal(t, "Origin", rr.Header().Get("Vary"))
			} else {
				assert.Empty(t, rr.Header().Get("Vary"))
			}
		})
	}
}

func TestCORS_PreflightStopsChain(t *testing.T) {
	rr := corsRequest(DefaultCORSConfig(), http.MethodOptions, "https://regularreviews.example")

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "GET, POST, PUT, PATCH, DELETE, OPTIONS", rr.Header().Get("Access-Control-Allow-Methods"))
	assert.Contains(t, rr.Header().Get("Access-Control-Allow-Headers"), "Authorization")
	assert.Contains(t, rr.Header().Get("Access-Control-Allow-Headers"), CorrelationIDHeader)
	assert.Equal(t, CorrelationIDHeader, rr.Header().Get("Access-Control-Expose-Headers"))
	assert.Equal(t, "3600", rr.Header().Get("Access-Control-Max-Age"))
}

func TestCORS_ExplicitSettings(t *testing.T) {
	rr := corsRequest(CORSConfig{
		AllowedOrigins:   []string{"https://regularreviews.example"},
		AllowedMethods:   []string{"GET"},
		AllowedHeaders:   []string{"Authorization"},
		MaxAge:           60,
		AllowCredentials: true,
	}, http.MethodGet, "https://regularreviews.example")

	h := rr.Header()
	assert.Equal(t, "GET", h.Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Authorization", h.Get("Access-Control-Allow-Headers"))
	assert.Empty(t, h.Get("Access-Control-Expose-Headers"))
	assert.Equal(t, "60", h.Get("Access-Control-Max-Age"))
	assert.Equal(t, "true", h.Get("Access-Control-Allow-Credentials"))
}

func TestCORS_CredentialsOffByDefault(t *testing.T) {
	rr := corsRequest(DefaultCORSConfig(), http.MethodGet, "")
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Credentials"))
}
