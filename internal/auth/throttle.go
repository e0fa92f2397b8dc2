package auth

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

// Throttle limits login attempts per client key.
type Throttle struct {
	mu    sync.Mutex
	limit rate.Limit
	burst int
	lru   *expirable.LRU[string, *rate.Limiter]
}

// NewThrottle allows perMinute attempts per client with the given burst.
// Limiters idle for ten minutes are forgotten.
func NewThrottle(perMinute float64, burst int) *Throttle {
	if burst <= 0 {
		burst = 1
	}
	return &Throttle{
		limit: rate.Limit(perMinute / 60),
		burst: burst,
		lru:   expirable.NewLRU[string, *rate.Limiter](4096, nil, 10*time.Minute),
	}
}

// Allow consumes one attempt for key.
func (t *Throttle) Allow(key string) bool {
	t.mu.Lock()
	limiter, ok := t.lru.Get(key)
	if !ok {
		limiter = rate.NewLimiter(t.limit, t.burst)
		t.lru.Add(key, limiter)
	}
	t.mu.Unlock()
	return limiter.Allow()
}

// Reset forgets key, e.g. after a successful login.
func (t *Throttle) Reset(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lru.Remove(key)
}
