package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/MichelMeloG/JurChat/pkg/logger"
)

// RateLimiter keeps one token bucket per client. A client may burst up to
// the full allowance and then refills evenly over the window.
type RateLimiter struct {
	mu       sync.Mutex
	clients  map[string]*clientLimiter
	limit    rate.Limit
	burst    int
	idleTTL  time.Duration
	lastScan time.Time
	now      func() time.Time
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows requests per window for each client
func NewRateLimiter(requests int, window time.Duration) *RateLimiter {
	if requests < 1 {
		requests = 1
	}
	return &RateLimiter{
		clients: make(map[string]*clientLimiter),
		limit:   rate.Limit(float64(requests) / window.Seconds()),
		burst:   requests,
		idleTTL: window,
		now:     time.Now,
	}
}

// Allow reports whether the client may proceed, and if not how long it
// should wait before retrying.
func (l *RateLimiter) Allow(client string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.evictIdle(now)

	cl, ok := l.clients[client]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[client] = cl
	}
	cl.lastSeen = now

	reservation := cl.limiter.ReserveN(now, 1)
	if delay := reservation.DelayFrom(now); delay > 0 {
		reservation.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// evictIdle forgets clients that have been quiet for a full window; their
// buckets would be full again anyway. Must be called with lock held.
func (l *RateLimiter) evictIdle(now time.Time) {
	if now.Sub(l.lastScan) < l.idleTTL {
		return
	}
	l.lastScan = now
	for client, cl := range l.clients {
		if now.Sub(cl.lastSeen) >= l.idleTTL {
			delete(l.clients, client)
		}
	}
}

// RateLimit middleware limits requests per IP
func RateLimit(requests int, window time.Duration) gin.HandlerFunc {
	limiter := NewRateLimiter(requests, window)

	return func(c *gin.Context) {
		clientIP := c.ClientIP()

		if ok, retryAfter := limiter.Allow(clientIP); !ok {
			logger.Warn(c.Request.Context(), "rate limit exceeded",
				"client_ip", clientIP,
				"retry_after_ms", retryAfter.Milliseconds(),
			)

			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Rate limit exceeded. Please try again later.",
			})
			return
		}

		c.Next()
	}
}
