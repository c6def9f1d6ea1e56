package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/loglive/telemetry-backend-go/pkg/response"
)

// RateLimiter enforces a sliding-window request budget per client IP.
// Sync and processing triggers are expensive runs against the vendor
// feed, so the API keeps a single limiter in front of the whole v1
// surface.
type RateLimiter struct {
	mu      sync.Mutex
	seen    map[string][]time.Time
	limit   int
	window  time.Duration
	stop    chan struct{}
	stopped sync.Once

	now func() time.Time // injectable for tests
}

// NewRateLimiter creates a limiter allowing limit requests per window
// for each client. Call Stop when the limiter is no longer routed to,
// otherwise its eviction loop keeps running.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		seen:   make(map[string][]time.Time),
		limit:  limit,
		window: window,
		stop:   make(chan struct{}),
		now:    time.Now,
	}
	go rl.evictLoop()
	return rl
}

// Stop terminates the background eviction loop. Safe to call more than
// once.
func (rl *RateLimiter) Stop() {
	rl.stopped.Do(func() { close(rl.stop) })
}

// evictLoop drops clients whose entire history has aged out, so idle
// IPs do not accumulate in the map between requests.
func (rl *RateLimiter) evictLoop() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.mu.Lock()
			cutoff := rl.now().Add(-rl.window)
			for ip, hits := range rl.seen {
				if live := trimBefore(hits, cutoff); len(live) == 0 {
					delete(rl.seen, ip)
				} else {
					rl.seen[ip] = live
				}
			}
			rl.mu.Unlock()
		}
	}
}

// Allow records a request from ip and reports whether it fits the
// window budget.
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	hits := trimBefore(rl.seen[ip], now.Add(-rl.window))
	if len(hits) >= rl.limit {
		rl.seen[ip] = hits
		return false
	}
	rl.seen[ip] = append(hits, now)
	return true
}

// trimBefore returns the hits at or after cutoff. Hits are appended in
// time order, so the survivors are a suffix.
func trimBefore(hits []time.Time, cutoff time.Time) []time.Time {
	for i, h := range hits {
		if !h.Before(cutoff) {
			return hits[i:]
		}
	}
	return nil
}

// RateLimit middleware limits requests per client IP.
func RateLimit(limit int, window time.Duration) gin.HandlerFunc {
	limiter := NewRateLimiter(limit, window)

	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			response.Error(c, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
			c.Abort()
			return
		}
		c.Next()
	}
}
