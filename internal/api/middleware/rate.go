package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/GriffinCanCode/termplex/internal/infrastructure/config"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimitConfig defines rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int
	Burst             int
	// IdleTTL is how long an address may stay silent before its limiter is dropped
	IdleTTL time.Duration
	// Unlimited makes every limiter allow all events
	Unlimited bool
}

// DefaultRateLimitConfig returns the default rate limit configuration.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 100,
		Burst:             200,
		IdleTTL:           5 * time.Minute,
	}
}

// RateLimitFrom converts the application rate limit section. A disabled
// section yields unlimited limiters.
func RateLimitFrom(cfg config.RateLimitConfig) RateLimitConfig {
	out := DefaultRateLimitConfig()
	out.Unlimited = !cfg.Enabled
	if cfg.RequestsPerSecond > 0 {
		out.RequestsPerSecond = cfg.RequestsPerSecond
	}
	if cfg.Burst > 0 {
		out.Burst = cfg.Burst
	}
	return out
}

// NewLimiter creates a single token bucket with the configured rate.
func (cfg RateLimitConfig) NewLimiter() *rate.Limiter {
	if cfg.Unlimited {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// visitors holds one limiter per client address and forgets idle ones.
type visitors struct {
	cfg       RateLimitConfig
	now       func() time.Time
	mu        sync.Mutex
	clients   map[string]*visitor
	lastSweep time.Time
}

func newVisitors(cfg RateLimitConfig, now func() time.Time) *visitors {
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = DefaultRateLimitConfig().IdleTTL
	}
	return &visitors{
		cfg:       cfg,
		now:       now,
		clients:   make(map[string]*visitor),
		lastSweep: now(),
	}
}

func (v *visitors) limiter(ip string) *rate.Limiter {
	v.mu.Lock()
	defer v.mu.Unlock()

	now := v.now()
	if now.Sub(v.lastSweep) >= v.cfg.IdleTTL {
		for addr, c := range v.clients {
			if now.Sub(c.lastSeen) >= v.cfg.IdleTTL {
				delete(v.clients, addr)
			}
		}
		v.lastSweep = now
	}

	c, ok := v.clients[ip]
	if !ok {
		c = &visitor{limiter: v.cfg.NewLimiter()}
		v.clients[ip] = c
	}
	c.lastSeen = now
	return c.limiter
}

func (v *visitors) len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.clients)
}

// RateLimit creates a per-IP rate limiting middleware.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	return rateLimit(newVisitors(cfg, time.Now))
}

func rateLimit(v *visitors) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !v.limiter(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
				"code":  "rate_limited",
			})
			return
		}
		c.Next()
	}
}
