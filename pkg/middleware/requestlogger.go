package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/J-Stott/RegularReviewsBackEnd/pkg/logger"
)

// RequestLogger stores a request-scoped logger carrying correlation_id,
// trace_id and span_id in the context. Mount it after RequestLogging and
// Tracing. Auth adds user_id to the stored logger once the caller is known.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func withUserLogger(ctx context.Context, userID string) context.Context {
	ctx = logger.WithUserID(ctx, userID)
	return logger.NewContext(ctx, logger.FromContext(ctx).With(slog.String("user_id", userID)))
}
