package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/V4T54L/safelog/internal/domain"
)

const (
	APIKeyHeader = "X-API-Key"
	bearerPrefix = "Bearer "
)

// SecurityEventLogger receives rejected intake attempts.
type SecurityEventLogger interface {
	LogSecurityEvent(event string, metadata map[string]any)
}

type authFailure struct {
	status int
	event  string
	reason string
}

var (
	errKeyMissing = authFailure{http.StatusUnauthorized, "api_key_missing", "Unauthorized: API key required"}
	errKeyInvalid = authFailure{http.StatusUnauthorized, "api_key_invalid", "Unauthorized: Invalid API key"}
)

// Auth guards intake endpoints with an API key taken from X-API-Key or an
// "Authorization: Bearer" header. Rejected keys are recorded as security
// events when events is non-nil. A nil repository disables the check.
func Auth(repo domain.APIKeyRepository, events SecurityEventLogger, logger *slog.Logger) func(http.Handler) http.Handler {
	logger = logger.With("component", "auth")
	return func(next http.Handler) http.Handler {
		if repo == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := apiKey(r)
			if key == "" {
				reject(w, r, errKeyMissing, events, logger)
				return
			}

			valid, err := repo.IsValid(r.Context(), key)
			if err != nil {
				logger.Error("failed to validate API key", "error", err, "request_id", r.Header.Get(RequestIDHeader))
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			if !valid {
				reject(w, r, errKeyInvalid, events, logger)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// apiKey prefers the dedicated header over a bearer token.
func apiKey(r *http.Request) string {
	if key := strings.TrimSpace(r.Header.Get(APIKeyHeader)); key != "" {
		return key
	}
	auth := r.Header.Get("Authorization")
	if len(auth) > len(bearerPrefix) && strings.EqualFold(auth[:len(bearerPrefix)], bearerPrefix) {
		return strings.TrimSpace(auth[len(bearerPrefix):])
	}
	return ""
}

func reject(w http.ResponseWriter, r *http.Request, f authFailure, events SecurityEventLogger, logger *slog.Logger) {
	requestID := r.Header.Get(RequestIDHeader)
	logger.Warn("rejected intake request", "reason", f.event, "remote_addr", r.RemoteAddr, "path", r.URL.Path, "request_id", requestID)
	if events != nil {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}
		// The key itself is never recorded.
		events.LogSecurityEvent(f.event, map[string]any{
			"ip":         ip,
			"path":       r.URL.Path,
			"request_id": requestID,
			"userAgent":  r.UserAgent(),
		})
	}
	http.Error(w, f.reason, f.status)
}
