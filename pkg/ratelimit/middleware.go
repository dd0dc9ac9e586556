package ratelimit

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"
	"github.com/tendant/loginapp/pkg/errors"
	"github.com/tendant/loginapp/pkg/utils"
)

// Config holds rate limiting configuration
type Config struct {
	PerIPCapacity   int
	PerIPRefillRate float64 // requests per second

	// BucketTTL is how long inactive buckets stay in memory
	BucketTTL time.Duration

	RetryAfter time.Duration
}

// PerMinute builds a Config allowing capacity requests in a burst and
// perMinute requests per minute afterwards.
func PerMinute(capacity int, perMinute float64, ttl time.Duration) Config {
	return Config{
		PerIPCapacity:   capacity,
		PerIPRefillRate: perMinute / 60.0,
		BucketTTL:       ttl,
		RetryAfter:      time.Minute,
	}
}

// Middleware limits requests per client IP.
type Middleware struct {
	config  Config
	limiter *RateLimiter
}

func NewMiddleware(config Config) *Middleware {
	return &Middleware{
		config:  config,
		limiter: NewRateLimiter(config.PerIPCapacity, config.PerIPRefillRate, config.BucketTTL),
	}
}

func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := utils.ClientIP(r)
		key := ip + ":" + r.Method + " " + r.URL.Path
		if !m.limiter.Allow(key) {
			m.rateLimitExceeded(w, r, ip)
			return
		}

		w.Header().Set("X-RateLimit-Limit-IP", fmt.Sprintf("%d", m.config.PerIPCapacity))
		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) rateLimitExceeded(w http.ResponseWriter, r *http.Request, ip string) {
	slog.Warn("Rate limit exceeded", "ip", ip, "path", r.URL.Path, "method", r.Method)

	retryAfter := fmt.Sprintf("%d", int(m.config.RetryAfter.Seconds()))
	err := errors.RateLimitExceeded(retryAfter)

	w.Header().Set("Retry-After", retryAfter)
	render.Status(r, err.HTTPStatusCode())
	render.JSON(w, r, map[string]interface{}{
		"error":   err.Code,
		"message": "Too many requests. Please try again later.",
	})
}

// Stop ends the bucket cleanup loop.
func (m *Middleware) Stop() {
	m.limiter.Stop()
}
