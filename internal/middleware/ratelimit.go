package middleware

import (
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/sakif/alert-dashboard/internal/auth"
	"github.com/sakif/alert-dashboard/internal/ratelimit"
)

// RateLimit rejects callers that exceed the limiter with 429. It must run
// after auth.RequireInitData: the key is the verified Telegram user id, so a
// user cannot dodge the limit by changing IP.
//
// If the limiter itself fails (Redis down) the request is let through and the
// failure logged; losing the limit is better than losing the dashboard.
func RateLimit(limiter ratelimit.Limiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := auth.IdentityFromContext(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			allowed, err := limiter.Allow(r.Context(), strconv.FormatInt(id.UserID, 10))
			if err != nil {
				logger.WarnContext(r.Context(), "rate limiter unavailable",
					slog.Int64("user_id", id.UserID),
					slog.String("error", err.Error()),
				)
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				logger.InfoContext(r.Context(), "rate limited",
					slog.Int64("user_id", id.UserID),
					slog.String("path", r.URL.Path),
				)
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", retryAfterSeconds(limiter.RetryAfter()))
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"error":   "rate_limited",
					"kind":    "rate-limited",
					"message": "too many requests, slow down",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// retryAfterSeconds formats d for the Retry-After header, which only carries
// whole seconds. It never goes below 1.
func retryAfterSeconds(d time.Duration) string {
	secs := int64(math.Ceil(d.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return strconv.FormatInt(secs, 10)
}
