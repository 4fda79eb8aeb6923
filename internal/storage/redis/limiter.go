package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	redis_rate "github.com/go-redis/redis_rate/v10"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

const (
	cleanupInterval = 5 * time.Minute
	entryTTL        = 10 * time.Minute
)

// Limiter applies a GCRA limit shared through redis. When redis is absent or
// failing it falls back to a per-process token bucket.
type Limiter struct {
	limiter  *redis_rate.Limiter
	fallback *localLimiter
	limit    redis_rate.Limit
}

func NewLimiter(client goredis.UniversalClient, limit redis_rate.Limit) *Limiter {
	l := &Limiter{fallback: newLocalLimiter(), limit: limit}
	if client != nil {
		l.limiter = redis_rate.NewLimiter(client)
	}
	return l
}

func PerMinute(n, burst int) redis_rate.Limit {
	if burst <= 0 {
		burst = n
	}
	return redis_rate.Limit{Rate: n, Burst: burst, Period: time.Minute}
}

func (l *Limiter) Limit() redis_rate.Limit {
	return l.limit
}

func (l *Limiter) Allow(ctx context.Context, key string) (*redis_rate.Result, error) {
	if l.limiter != nil {
		res, err := l.limiter.Allow(ctx, key, l.limit)
		if err == nil {
			return res, nil
		}
	}
	return l.fallback.allow(key, l.limit)
}

type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

type localLimiter struct {
	mu        sync.Mutex
	entries   map[string]*limiterEntry
	lastSweep time.Time
	now       func() time.Time
}

func newLocalLimiter() *localLimiter {
	return &localLimiter{entries: make(map[string]*limiterEntry), now: time.Now}
}

func (l *localLimiter) allow(key string, limit redis_rate.Limit) (*redis_rate.Result, error) {
	if limit.Rate <= 0 || limit.Period <= 0 {
		return nil, fmt.Errorf("invalid limit %+v", limit)
	}
	ratePerSec := float64(limit.Rate) / limit.Period.Seconds()

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) > cleanupInterval {
		for k, e := range l.entries {
			if now.Sub(e.lastAccess) > entryTTL {
				delete(l.entries, k)
			}
		}
		l.lastSweep = now
	}

	entry, ok := l.entries[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(rate.Limit(ratePerSec), limit.Burst)}
		l.entries[key] = entry
	}
	entry.lastAccess = now

	allowed := entry.limiter.AllowN(now, 1)
	remaining := int(entry.limiter.TokensAt(now))
	if remaining < 0 {
		remaining = 0
	}

	res := &redis_rate.Result{
		Limit:      limit,
		Remaining:  remaining,
		RetryAfter: -1,
		ResetAfter: time.Duration(float64(time.Second) / ratePerSec),
	}
	if allowed {
		res.Allowed = 1
	} else {
		res.RetryAfter = time.Duration(float64(time.Second) / ratePerSec)
	}
	return res, nil
}
