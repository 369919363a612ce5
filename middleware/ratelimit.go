package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"kaiwa/pkg/cache"
)

type bucket struct {
	tokens     int
	lastRefill time.Time
}

// RateLimiter is a token-bucket limiter keyed by client IP.
type RateLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	window   time.Duration
	capacity int
}

func NewRateLimiter(window time.Duration, capacity int) *RateLimiter {
	if capacity <= 0 {
		capacity = 5
	}
	if window <= 0 {
		window = 10 * time.Second
	}
	return &RateLimiter{buckets: map[string]*bucket{}, window: window, capacity: capacity}
}

func ClientIP(c *gin.Context) string {
	ip := strings.TrimSpace(c.ClientIP())
	if ip == "" {
		host, _, _ := net.SplitHostPort(strings.TrimSpace(c.Request.RemoteAddr))
		ip = host
	}
	return ip
}

// Handler returns the gin middleware enforcing the limit.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := ClientIP(c)
		now := time.Now()

		rl.mu.Lock()
		b := rl.buckets[key]
		if b == nil {
			b = &bucket{tokens: rl.capacity, lastRefill: now}
			rl.buckets[key] = b
		}
		elapsed := now.Sub(b.lastRefill)
		if elapsed > 0 {
			add := int(float64(rl.capacity) * (float64(elapsed) / float64(rl.window)))
			if add > 0 {
				b.tokens += add
				if b.tokens > rl.capacity {
					b.tokens = rl.capacity
				}
				b.lastRefill = now
			}
		}
		if b.tokens <= 0 {
			rl.mu.Unlock()
			c.Header("Retry-After", strconv.Itoa(int(rl.window.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		b.tokens--
		rl.mu.Unlock()

		c.Next()
	}
}

// DuplicateGuard suppresses the same trimmed text resubmitted by the same
// client within a window. Backed by the shared TTL cache.
type DuplicateGuard struct {
	cache *cache.Cache
	ttl   time.Duration
}

func NewDuplicateGuard(c *cache.Cache, ttl time.Duration) *DuplicateGuard {
	if ttl <= 0 {
		ttl = 45 * time.Second
	}
	return &DuplicateGuard{cache: c, ttl: ttl}
}

// Allow records (sender, text) and reports whether the submission should
// proceed. The second identical submission within the TTL is rejected.
func (g *DuplicateGuard) Allow(sender, text string) bool {
	k := cache.KeyFromStrings("dup", sender, strings.TrimSpace(text))
	if _, seen := g.cache.Get(k); seen {
		return false
	}
	g.cache.Set(k, struct{}{}, g.ttl)
	return true
}
