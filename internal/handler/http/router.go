package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/J-Stott/RegularReviewsBackEnd/internal/domain"
	"github.com/J-Stott/RegularReviewsBackEnd/internal/service"
	"github.com/J-Stott/RegularReviewsBackEnd/pkg/health"
	"github.com/J-Stott/RegularReviewsBackEnd/pkg/middleware"
)

// Services bundles the application services exposed over HTTP.
type Services struct {
	Games       *service.GameService
	Reviews     *service.ReviewService
	Reactions   *service.ReactionService
	Discussions *service.DiscussionService
	Drafts      *service.DraftService
	Aggregates  *service.AggregateMaintainer
}

// RouterConfig holds the cross-cutting HTTP settings.
type RouterConfig struct {
	ServiceName string
	// Validator resolves bearer tokens. Required.
	Validator middleware.TokenValidator
	// RateLimiter throttles mutating routes when set.
	RateLimiter *middleware.RateLimiter
	CORS        middleware.CORSConfig
	// PprofCIDRs enables /debug/pprof for the listed networks.
	PprofCIDRs []string
	// PublicCacheMaxAge is the max-age of anonymous, viewer-independent reads.
	PublicCacheMaxAge time.Duration
}

// NewRouter creates a chi router with all review service routes registered.
func NewRouter(svc Services, healthHandler *health.Handler, cfg RouterConfig, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.PrometheusMetrics(cfg.ServiceName))

	// Health and metrics endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())
	middleware.MountPprof(r, cfg.PprofCIDRs, logger)

	games := NewGameHandler(svc.Games, logger)
	reviews := NewReviewHandler(svc.Reviews, logger)
	reactions := NewReactionHandler(svc.Reactions, logger)
	comments := NewCommentHandler(svc.Discussions, logger)
	users := NewUserHandler(svc.Reviews, svc.Aggregates, logger)
	drafts := NewDraftHandler(svc.Drafts, logger)
	admin := NewAdminHandler(svc.Aggregates, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.OptionalAuth(cfg.Validator))

		// Reads that look the same to every anonymous caller.
		r.Group(func(r chi.Router) {
			r.Use(middleware.CacheControl(cfg.PublicCacheMaxAge))

			r.Get("/games/{linkName}", games.GetGame)
			r.Get("/games/{linkName}/reviews", games.ListReviews)
			r.Get("/reviews", reviews.ListLatest)
			r.Get("/users/{userID}/stats", users.Stats)
			r.Get("/users/{userID}/reviews", users.Reviews)
		})

		// Reads annotated for the viewer.
		r.Get("/reviews/{reviewID}", reviews.Get)
		r.Get("/reviews/{reviewID}/reactions", reactions.Get)
		r.Get("/reviews/{reviewID}/comments", comments.List)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			if cfg.RateLimiter != nil {
				r.Use(cfg.RateLimiter.Handler)
			}

			r.Post("/games", games.CreateGame)

			r.Post("/reviews", reviews.Create)
			r.Patch("/reviews/{reviewID}", reviews.Update)
			r.Delete("/reviews/{reviewID}", reviews.Delete)

			r.Post("/reviews/{reviewID}/reactions/{kind}", reactions.Toggle)

			r.Post("/reviews/{reviewID}/comments", comments.Add)
			r.Patch("/reviews/{reviewID}/comments/{commentID}", comments.Edit)
			r.Delete("/reviews/{reviewID}/comments/{commentID}", comments.Delete)

			r.Route("/drafts", func(r chi.Router) {
				r.Get("/", drafts.List)
				r.Post("/", drafts.Save)
				r.Get("/{draftID}", drafts.Get)
				r.Put("/{draftID}", drafts.Update)
				r.Delete("/{draftID}", drafts.Delete)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Use(middleware.RequireRole(domain.RoleAdmin, domain.RoleSuperAdmin))

			r.Post("/recompute/games/{gameID}", admin.RecomputeGame)
			r.Post("/recompute/users/{userID}", admin.RecomputeUser)
			r.Post("/recompute/all", admin.RecomputeAll)
		})
	})

	return r
}

// principalFrom returns the authenticated caller, or nil for anonymous requests.
func principalFrom(r *http.Request) *domain.Principal {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		return nil
	}
	return &domain.Principal{UserID: claims.UserID, Roles: claims.Roles}
}
