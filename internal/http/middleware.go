package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"dsanotes/internal/auth"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func newSlogMiddleware(logger *slog.Logger, metrics Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r)
			metrics.RecordHTTPStatus(recorder.status)
			logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", recorder.status,
				"duration", time.Since(start).String(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

type contextKey string

const profileContextKey contextKey = "profile"

// ProfileFromContext returns the provider profile validated by the auth middleware.
func ProfileFromContext(ctx context.Context) (auth.Profile, bool) {
	profile, ok := ctx.Value(profileContextKey).(auth.Profile)
	return profile, ok
}

// SubjectFromContext returns the validated subject id, or "" outside the auth middleware.
func SubjectFromContext(ctx context.Context) string {
	profile, _ := ProfileFromContext(ctx)
	return profile.SubjectID
}

// newAuthMiddleware re-verifies the presented session with the provider on
// every request and fails closed.
func newAuthMiddleware(validator SessionValidator, metrics Metrics, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, subjectHint := sessionFromRequest(r)
			if token == "" {
				metrics.RecordSessionValidation("missing")
				unauthorized(w)
				return
			}

			profile, err := validator.Validate(r.Context(), token, subjectHint)
			switch {
			case err == nil:
			case errors.Is(err, auth.ErrUnauthorized):
				metrics.RecordSessionValidation("unauthorized")
				unauthorized(w)
				return
			default:
				metrics.RecordSessionValidation("error")
				logger.Error("session validation failed", "error", err)
				writeError(w, http.StatusInternalServerError, "failed to verify session")
				return
			}

			metrics.RecordSessionValidation("ok")
			ctx := context.WithValue(r.Context(), profileContextKey, profile)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeError(w, http.StatusUnauthorized, "authentication required")
}

func newSecurityHeadersMiddleware(environment string) func(http.Handler) http.Handler {
	isDev := strings.EqualFold(environment, "development")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			w.Header().Set("Cache-Control", "no-store")

			if !isDev {
				w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			next.ServeHTTP(w, r)
		})
	}
}
