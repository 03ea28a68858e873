package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// DefaultIdleTTL is how long an unused bucket survives a Sweep.
const DefaultIdleTTL = 10 * time.Minute

// KeyFunc picks the bucket a request is charged to.
type KeyFunc func(c *gin.Context) string

// ByClientIP charges the caller's address.
func ByClientIP(c *gin.Context) string { return "ip:" + c.ClientIP() }

// BySession charges the session authorised by SessionAuth, falling back
// to the client address on unauthenticated routes.
func BySession(c *gin.Context) string {
	if id := GetSessionID(c); id != "" {
		return "session:" + id
	}
	return ByClientIP(c)
}

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// RateLimiter hands out one token bucket per key.
type RateLimiter struct {
	limit   rate.Limit
	burst   int
	idleTTL time.Duration

	mu      sync.Mutex
	buckets map[string]*bucket
}

// NewRateLimiter refills each bucket at r tokens per second up to burst.
func NewRateLimiter(r rate.Limit, burst int) *RateLimiter {
	return &RateLimiter{
		limit:   r,
		burst:   burst,
		idleTTL: DefaultIdleTTL,
		buckets: make(map[string]*bucket),
	}
}

// Allow takes one token from key's bucket.
func (l *RateLimiter) Allow(key string, now time.Time) bool {
	l.mu.Lock()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	l.mu.Unlock()
	return b.lim.AllowN(now, 1)
}

// Sweep forgets buckets idle for longer than the TTL and returns how many
// were dropped. It is registered as a scheduler task.
func (l *RateLimiter) Sweep(now time.Time) int {
	cutoff := now.Add(-l.idleTTL)
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for k, b := range l.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(l.buckets, k)
			n++
		}
	}
	return n
}

// Len is the number of live buckets.
func (l *RateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// RateLimit rejects requests with 429 once their bucket is empty.
func RateLimit(l *RateLimiter, key KeyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(key(c), time.Now()) {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
