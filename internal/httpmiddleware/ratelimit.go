// Package httpmiddleware holds the gin middleware of the station intake.
package httpmiddleware

import (
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// pruneAbove is the client count past which idle buckets are dropped.
const pruneAbove = 1024

// TokenBucket is an in-memory per-client rate limiter. Tokens refill
// continuously at the configured rate up to capacity.
type TokenBucket struct {
	capacity float64
	perSec   float64
	now      func() time.Time

	mu      sync.Mutex
	clients map[string]*bucket
}

type bucket struct {
	tokens float64
	seen   time.Time
}

// NewTokenBucket creates a limiter with capacity tokens refilled at perMinute.
// A non-positive perMinute disables limiting.
func NewTokenBucket(capacity, perMinute int) *TokenBucket {
	if capacity <= 0 {
		capacity = perMinute
	}
	return &TokenBucket{
		capacity: float64(capacity),
		perSec:   float64(perMinute) / 60,
		now:      time.Now,
		clients:  make(map[string]*bucket),
	}
}

// GinMiddleware returns a gin handler enforcing per-IP limits.
func (l *TokenBucket) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" {
			ip = "unknown"
		}
		if !l.Allow(ip) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many scans, slow down"})
			return
		}
		c.Next()
	}
}

// Allow takes one token from key's bucket.
func (l *TokenBucket) Allow(key string) bool {
	if l.perSec <= 0 {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.clients[key]
	if !ok {
		if len(l.clients) >= pruneAbove {
			l.pruneLocked(now)
		}
		b = &bucket{tokens: l.capacity, seen: now}
		l.clients[key] = b
	}
	b.tokens = math.Min(l.capacity, b.tokens+now.Sub(b.seen).Seconds()*l.perSec)
	b.seen = now
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// Clients returns how many buckets are tracked.
func (l *TokenBucket) Clients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// pruneLocked drops buckets that have refilled completely; forgetting them
// changes nothing for their clients.
func (l *TokenBucket) pruneLocked(now time.Time) {
	full := time.Duration(l.capacity / l.perSec * float64(time.Second))
	for key, b := range l.clients {
		if now.Sub(b.seen) >= full {
			delete(l.clients, key)
		}
	}
}
