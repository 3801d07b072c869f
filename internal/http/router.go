package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"dsanotes/internal/auth"
	"dsanotes/internal/config"
	"dsanotes/internal/users"
)

// AuthURLBuilder builds the provider consent URL.
type AuthURLBuilder interface {
	AuthURL(state string) string
}

// LoginCompleter runs the callback stages for an authorization code.
type LoginCompleter interface {
	Complete(ctx context.Context, code string) (auth.LoginResult, error)
}

// SessionValidator re-verifies a presented access token.
type SessionValidator interface {
	Validate(ctx context.Context, accessToken, subjectHint string) (auth.Profile, error)
}

// UserFinder reads local user records.
type UserFinder interface {
	FindBySubject(ctx context.Context, subjectID string) (users.User, error)
}

// Metrics receives request-level measurements.
type Metrics interface {
	RecordHTTPStatus(statusCode int)
	RecordSessionValidation(outcome string)
}

type noopMetrics struct{}

func (noopMetrics) RecordHTTPStatus(int)           {}
func (noopMetrics) RecordSessionValidation(string) {}

// Dependencies are the collaborators behind the HTTP surface. Metrics,
// MetricsHandler and RateLimiter are optional.
type Dependencies struct {
	Google         AuthURLBuilder
	Login          LoginCompleter
	Validator      SessionValidator
	Users          UserFinder
	Metrics        Metrics
	MetricsHandler http.Handler
	RateLimiter    *RateLimiter
	Logger         *slog.Logger
}

// NewRouter wires application routes and middleware using chi.
func NewRouter(cfg config.Config, deps Dependencies) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(newSecurityHeadersMiddleware(cfg.Environment))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(newSlogMiddleware(logger, metrics))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":      "ok",
			"environment": cfg.Environment,
		})
	})
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	sessions := NewSessionHandler(!cfg.IsDevelopment())
	oauth := NewOAuthHandler(deps.Google, deps.Login, sessions, cfg.FrontendURL, logger)
	profiles := NewProfileHandler(deps.Users, logger)
	requireSession := newAuthMiddleware(deps.Validator, metrics, logger)

	r.Route("/auth", func(r chi.Router) {
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.Middleware)
		}
		r.Get("/google", oauth.InitiateGoogle)
		r.Get("/google/callback", oauth.CallbackGoogle)
		r.Post("/logout", sessions.Logout)
		r.With(requireSession).Get("/user/profile", profiles.Current)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(requireSession)
		r.Get("/users/me", profiles.Me)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})

	return r
}
