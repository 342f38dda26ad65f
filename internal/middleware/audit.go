package middleware

import (
	"net/http"

	logpkg "github.com/taskquest/taskquest/internal/logger"
	"github.com/taskquest/taskquest/internal/request"
	"go.uber.org/zap"
)

// Audit emits a security log line for rejected requests: failed
// authentication or authorization, and rate limit violations. Everything
// else passes through silently; the regular request log covers it.
func Audit(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			var event string
			switch wrapped.statusCode {
			case http.StatusUnauthorized, http.StatusForbidden:
				event = "security_event"
			case http.StatusTooManyRequests:
				event = "rate_limit_violation"
			default:
				return
			}

			logger.Warn(event,
				zap.Int("status_code", wrapped.statusCode),
				zap.String("method", r.Method),
				zap.String("path", logpkg.SanitizePath(r.URL.Path)),
				zap.String("ip", logpkg.SanitizeString(request.ClientIP(r), 0)),
			)
		})
	}
}
