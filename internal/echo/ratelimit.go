package echo

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimitConfig defines per-client rate limiting for the HTTP server.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
	// IdleTimeout evicts limiters of clients not seen for this long
	IdleTimeout time.Duration
}

// WithRateLimit limits POST /exchange per client IP. Exceeding requests get
// 429 and the websocket upgrade is refused the same way.
func WithRateLimit(cfg RateLimitConfig) Option {
	return func(o *options) {
		if cfg.RequestsPerSecond <= 0 {
			return
		}
		if cfg.Burst < 1 {
			cfg.Burst = 1
		}
		if cfg.IdleTimeout <= 0 {
			cfg.IdleTimeout = time.Minute
		}
		o.rateLimit = &cfg
	}
}

// rateLimit creates a per-IP rate limiting middleware.
func rateLimit(cfg RateLimitConfig, now func() time.Time) gin.HandlerFunc {
	type client struct {
		limiter  *rate.Limiter
		lastSeen time.Time
	}

	var (
		mu      sync.Mutex
		clients = make(map[string]*client)
	)

	return func(c *gin.Context) {
		ip := c.ClientIP()
		t := now()

		mu.Lock()
		for key, cl := range clients {
			if t.Sub(cl.lastSeen) > cfg.IdleTimeout {
				delete(clients, key)
			}
		}
		cl, exists := clients[ip]
		if !exists {
			cl = &client{limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)}
			clients[ip] = cl
		}
		cl.lastSeen = t
		allowed := cl.limiter.AllowN(t, 1)
		mu.Unlock()

		if !allowed {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
