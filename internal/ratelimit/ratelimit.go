// Package ratelimit limits how often one Telegram user can call the API.
//
// Two implementations share the Limiter interface:
//   - Local keeps a token bucket per key in process memory (single instance)
//   - Redis counts requests per fixed window in Redis (several instances
//     behind a load balancer share one budget)
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter decides whether the caller identified by key may proceed.
// RetryAfter is how long a denied caller should wait before trying again.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	RetryAfter() time.Duration
}

// idleAfter is how long an unused bucket is kept before it is swept.
const idleAfter = 10 * time.Minute

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Local is an in-memory token bucket per key.
type Local struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	limit     rate.Limit
	burst     int
	lastSweep time.Time
	now       func() time.Time
}

var _ Limiter = (*Local)(nil)

// NewLocal allows rps requests per second per key with bursts up to burst.
func NewLocal(rps float64, burst int) *Local {
	return &Local{
		buckets:   make(map[string]*bucket),
		limit:     rate.Limit(rps),
		burst:     burst,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

func (l *Local) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) > idleAfter {
		l.sweep(now)
	}

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1), nil
}

// RetryAfter is the time one token takes to refill.
func (l *Local) RetryAfter() time.Duration {
	if l.limit <= 0 {
		return idleAfter
	}
	return time.Duration(float64(time.Second) / float64(l.limit))
}

// sweep drops buckets nobody used recently. Caller holds mu.
func (l *Local) sweep(now time.Time) {
	for k, b := range l.buckets {
		if now.Sub(b.lastSeen) > idleAfter {
			delete(l.buckets, k)
		}
	}
	l.lastSweep = now
}
