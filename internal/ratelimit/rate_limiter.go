// rate_limiter.go - Per-provider rate limiting to stay under provider API limits

package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter hands out one token bucket per provider name
type Limiter struct {
	requestsPerMinute int
	burst             int
	limiters          map[string]*rate.Limiter
	mu                sync.Mutex
}

// NewLimiter creates a limiter allowing requestsPerMinute calls per provider.
// requestsPerMinute <= 0 disables limiting.
func NewLimiter(requestsPerMinute int) *Limiter {
	// Allow a short burst so a single comparison is never throttled
	burst := requestsPerMinute / 6
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		requestsPerMinute: requestsPerMinute,
		burst:             burst,
		limiters:          make(map[string]*rate.Limiter),
	}
}

// Wait blocks until provider may make another request or ctx is done
func (l *Limiter) Wait(ctx context.Context, provider string) error {
	if l == nil || l.requestsPerMinute <= 0 {
		return nil
	}
	return l.limiterFor(provider).Wait(ctx)
}

// Allow reports whether provider may make a request right now, consuming a token if so
func (l *Limiter) Allow(provider string) bool {
	if l == nil || l.requestsPerMinute <= 0 {
		return true
	}
	return l.limiterFor(provider).Allow()
}

func (l *Limiter) limiterFor(provider string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.limiters[provider]
	if !ok {
		interval := time.Minute / time.Duration(l.requestsPerMinute)
		limiter = rate.NewLimiter(rate.Every(interval), l.burst)
		l.limiters[provider] = limiter
	}
	return limiter
}
