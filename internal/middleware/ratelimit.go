package middleware

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskflow-api/internal/ratelimit"
	"github.com/BuzzLyutic/taskflow-api/pkg/respond"
)

// RateLimit keys buckets on the raw Authorization header. Callers without
// one share the anonymous bucket. Quota headers are set on every response.
func RateLimit(limiter *ratelimit.Limiter, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("Authorization")
			if key == "" {
				key = ratelimit.AnonymousKey
			}

			res := limiter.Allow(key)
			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetUnix(), 10))

			if !res.Allowed {
				h.Set("Retry-After", strconv.FormatInt(res.RetryAfterSeconds(), 10))
				logger.Warn("rate limit exceeded",
					zap.String("request_id", GetReqID(r)),
					zap.String("path", r.URL.Path),
					zap.Int64("retry_after", res.RetryAfterSeconds()),
				)
				respond.Error(w, r, http.StatusTooManyRequests, respond.CodeRateLimited, "Too many requests. Please retry later.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
