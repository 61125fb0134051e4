package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"dailymission/internal/models"
	"dailymission/internal/security"
	"dailymission/internal/service"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	SessionContextKey ContextKey = "session"
	UserContextKey    ContextKey = "user"
)

// Middleware holds dependencies for middleware functions
type Middleware struct {
	authService *service.AuthService
	rateLimiter *security.RateLimiter
	logger      *slog.Logger
}

// NewMiddleware creates a new middleware instance. rateLimiter may be nil.
func NewMiddleware(authService *service.AuthService, rateLimiter *security.RateLimiter, logger *slog.Logger) *Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return &Middleware{
		authService: authService,
		rateLimiter: rateLimiter,
		logger:      logger,
	}
}

// RequireSession is middleware that requires a valid bearer session token
func (m *Middleware) RequireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			respondWithError(w, http.StatusUnauthorized, ErrUnauthorized, "", nil)
			return
		}

		session, err := m.authService.ValidateSession(r.Context(), token)
		if err != nil {
			if errors.Is(err, service.ErrSessionExpired) {
				respondWithError(w, http.StatusUnauthorized, "Session expired", "", nil)
				return
			}
			if errors.Is(err, service.ErrSessionNotFound) {
				respondWithError(w, http.StatusUnauthorized, ErrUnauthorized, "", nil)
				return
			}
			respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Failed to validate session", err)
			return
		}

		next(w, r.WithContext(context.WithValue(r.Context(), SessionContextKey, session)))
	}
}

// RequireProfile is middleware that requires the session's identity to have
// a profile. It must run inside RequireSession.
func (m *Middleware) RequireProfile(next http.HandlerFunc) http.HandlerFunc {
	return m.RequireSession(func(w http.ResponseWriter, r *http.Request) {
		session := GetSessionFromContext(r.Context())

		user, err := m.authService.GetProfile(r.Context(), session.AuthSubject)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Failed to load profile", err)
			return
		}
		if user == nil {
			respondWithError(w, http.StatusForbidden, ErrProfileRequired, "", nil)
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, user)
		next(w, r.WithContext(ctx))
	})
}

// RateLimit is middleware that limits requests per client IP
func (m *Middleware) RateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if m.rateLimiter != nil && !m.rateLimiter.Allow(security.GetClientIP(r)) {
			respondWithError(w, http.StatusTooManyRequests, ErrTooManyRequests, "", nil)
			return
		}
		next(w, r)
	}
}

// statusRecorder captures the response status for logging
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Logging middleware logs HTTP requests
func Logging(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		logger.Info("HTTP request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("duration", time.Since(start)))
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// GetSessionFromContext retrieves the session from the request context
func GetSessionFromContext(ctx context.Context) *models.Session {
	session, ok := ctx.Value(SessionContextKey).(*models.Session)
	if !ok {
		return nil
	}
	return session
}

// GetUserFromContext retrieves the user from the request context
func GetUserFromContext(ctx context.Context) *models.User {
	user, ok := ctx.Value(UserContextKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}
