package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	redis_rate "github.com/go-redis/redis_rate/v10"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/constants"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/infrastructure/logger"
	"github.com/r29878448-pixel/Rk-shortner-sub000/pkg/httputils"
	"go.uber.org/zap"
)

type RateLimiter interface {
	Allow(ctx context.Context, key string) (*redis_rate.Result, error)
	Limit() redis_rate.Limit
}

// LimitedFunc writes the response for a rejected request.
type LimitedFunc func(w http.ResponseWriter, r *http.Request, res *redis_rate.Result)

// WriteLimitedJSON is the default rejection for JSON endpoints.
func WriteLimitedJSON(w http.ResponseWriter, r *http.Request, _ *redis_rate.Result) {
	httputils.WriteAPIError(w, r, constants.ErrRateLimited)
}

func RateLimitMiddleware(limiter RateLimiter, scope string, onLimited LimitedFunc) func(http.Handler) http.Handler {
	if onLimited == nil {
		onLimited = WriteLimitedJSON
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := fmt.Sprintf("ratelimit:%s:%s", scope, rateLimitKey(r))
			ctx, cancel := context.WithTimeout(r.Context(), 200*time.Millisecond)
			defer cancel()

			res, err := limiter.Allow(ctx, key)
			if err != nil {
				// Fail open: limiting must not take the write path down.
				logger.Warn("rate limiter error, failing open", zap.Error(err), zap.String("key", key))
				next.ServeHTTP(w, r)
				return
			}

			setRateLimitHeaders(w, res, limiter.Limit())
			if res.Allowed == 0 {
				retryAfter := int(res.RetryAfter.Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				onLimited(w, r, res)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func setRateLimitHeaders(w http.ResponseWriter, res *redis_rate.Result, limit redis_rate.Limit) {
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(limit.Rate))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(res.ResetAfter).Unix(), 10))
}

// rateLimitKey uses the authenticated user, else the client IP. Credentials
// the request merely carries are unverified here and never pick the bucket,
// so rotating made-up tokens does not earn fresh quota.
func rateLimitKey(r *http.Request) string {
	if u, ok := UserFromContext(r.Context()); ok {
		return "user:" + u.ID
	}
	return "ip:" + clientIP(r)
}
