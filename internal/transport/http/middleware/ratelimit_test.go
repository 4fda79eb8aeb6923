package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	redis_rate "github.com/go-redis/redis_rate/v10"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/model"
)

type stubLimiter struct {
	res  *redis_rate.Result
	err  error
	keys []string
}

func (s *stubLimiter) Allow(_ context.Context, key string) (*redis_rate.Result, error) {
	s.keys = append(s.keys, key)
	return s.res, s.err
}

func (s *stubLimiter) Limit() redis_rate.Limit {
	return redis_rate.PerMinute(10)
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
}

func TestRateLimitMiddleware_Allows(t *testing.T) {
	lim := &stubLimiter{res: &redis_rate.Result{Allowed: 1, Remaining: 9, ResetAfter: time.Second}}
	handler := RateLimitMiddleware(lim, "create", nil)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/links", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("X-RateLimit-Limit"); got != "10" {
		t.Errorf("X-RateLimit-Limit = %q, want 10", got)
	}
	if got := rec.Header().Get("X-RateLimit-Remaining"); got != "9" {
		t.Errorf("X-RateLimit-Remaining = %q, want 9", got)
	}
}

func TestRateLimitMiddleware_Rejects(t *testing.T) {
	lim := &stubLimiter{res: &redis_rate.Result{Allowed: 0, RetryAfter: 2500 * time.Millisecond}}

	var called bool
	onLimited := func(w http.ResponseWriter, r *http.Request, _ *redis_rate.Result) {
		called = true
		w.WriteHeader(http.StatusTooManyRequests)
	}
	handler := RateLimitMiddleware(lim, "gateway", onLimited)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api?api=tok", nil))

	if rec.Code != http.StatusTooManyRequests || !called {
		t.Fatalf("status %d called %v, want 429 via custom writer", rec.Code, called)
	}
	if got := rec.Header().Get("Retry-After"); got != "2" {
		t.Errorf("Retry-After = %q, want 2", got)
	}
	if len(lim.keys) != 1 || lim.keys[0] != "ratelimit:gateway:ip:192.0.2.1" {
		t.Errorf("keys = %v", lim.keys)
	}
}

func TestRateLimitMiddleware_FailsOpen(t *testing.T) {
	lim := &stubLimiter{err: errors.New("redis down")}
	handler := RateLimitMiddleware(lim, "create", nil)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/links", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status %d, want 200", rec.Code)
	}
}

func TestRateLimitKey(t *testing.T) {
	tests := []struct {
		name  string
		setup func(r *http.Request) *http.Request
		want  string
	}{
		{
			"unverified api key header",
			func(r *http.Request) *http.Request {
				r.Header.Set(APIKeyHeader, "k1")
				r.RemoteAddr = "203.0.113.7:5555"
				return r
			},
			"ip:203.0.113.7",
		},
		{
			"unverified gateway token",
			func(r *http.Request) *http.Request {
				r.URL.RawQuery = "api=made-up&url=https://x.example"
				r.RemoteAddr = "203.0.113.7:5555"
				return r
			},
			"ip:203.0.113.7",
		},
		{
			"context user",
			func(r *http.Request) *http.Request {
				return r.WithContext(WithUser(r.Context(), &model.User{ID: "u-9"}))
			},
			"user:u-9",
		},
		{
			"remote ip",
			func(r *http.Request) *http.Request { r.RemoteAddr = "203.0.113.7:5555"; return r },
			"ip:203.0.113.7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tt.setup(httptest.NewRequest(http.MethodPost, "/api/links", nil))
			if got := rateLimitKey(r); got != tt.want {
				t.Errorf("rateLimitKey = %q, want %q", got, tt.want)
			}
		})
	}
}
