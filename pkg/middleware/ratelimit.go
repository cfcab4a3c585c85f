package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/Suhaibinator/SApp/pkg/app"
	"go.uber.org/ratelimit"
	"go.uber.org/zap"
)

// RateLimitConfig defines configuration for rate limiting
type RateLimitConfig struct {
	// Unique identifier for this rate limit bucket.
	// Handlers sharing the same BucketName share the same rate limit.
	BucketName string

	// Maximum number of requests allowed in the time window
	Limit int

	// Time window for the rate limit (e.g., 1 minute, 1 hour)
	Window time.Duration

	// Custom key extractor. If nil, the client IP is used, which honors
	// the coordinator's trust-proxy setting.
	KeyExtractor func(c *app.Context) (string, error)
}

// RateLimiter defines the interface for rate limiting algorithms
type RateLimiter interface {
	// Allow checks if a request is allowed based on the key and rate limit config.
	// Returns true if the request is allowed, false otherwise.
	// Also returns the number of remaining requests and time until reset.
	Allow(key string, limit int, window time.Duration) (bool, int, time.Duration)
}

// UberRateLimiter implements RateLimiter using Uber's ratelimit library,
// pairing its leaky bucket with a per-window counter so bursts above the
// configured limit are rejected rather than only smoothed.
type UberRateLimiter struct {
	limiters sync.Map // map[string]ratelimit.Limiter
	mu       sync.Mutex
	windows  sync.Map // map[string]*rateWindow
}

// rateWindow tracks the request count for one bucket's current window.
type rateWindow struct {
	mu    sync.Mutex
	start time.Time
	count int
}

// NewUberRateLimiter creates a new rate limiter using Uber's ratelimit library
func NewUberRateLimiter() *UberRateLimiter {
	return &UberRateLimiter{}
}

// getLimiter gets or creates a limiter for the given key and rate
func (u *UberRateLimiter) getLimiter(key string, rps int) ratelimit.Limiter {
	if limiter, ok := u.limiters.Load(key); ok {
		return limiter.(ratelimit.Limiter)
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	// Double-check after acquiring lock
	if limiter, ok := u.limiters.Load(key); ok {
		return limiter.(ratelimit.Limiter)
	}

	limiter := ratelimit.New(rps)
	u.limiters.Store(key, limiter)
	return limiter
}

// Allow checks if a request is allowed based on the key and rate limit config
func (u *UberRateLimiter) Allow(key string, limit int, window time.Duration) (bool, int, time.Duration) {
	effectiveWindow := window
	if effectiveWindow <= 0 {
		effectiveWindow = time.Second
	}
	effectiveLimit := limit
	if effectiveLimit <= 0 {
		effectiveLimit = 1
	}

	// Convert limit and window to RPS for the leaky bucket
	rps := int(float64(effectiveLimit) / effectiveWindow.Seconds())
	if rps < 1 {
		rps = 1
	}
	u.getLimiter(key, rps).Take()

	// Count requests within the current window
	wv, _ := u.windows.LoadOrStore(key, &rateWindow{start: time.Now()})
	w := wv.(*rateWindow)

	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	if now.Sub(w.start) > effectiveWindow {
		// New window
		w.start = now
		w.count = 0
	}
	w.count++

	if w.count > effectiveLimit {
		return false, 0, effectiveWindow - now.Sub(w.start)
	}
	return true, effectiveLimit - w.count, effectiveWindow - now.Sub(w.start)
}

// RateLimit creates a handler that enforces rate limits. Exceeding the limit
// produces a 429 fault with a Retry-After header; the fault is expose-safe
// so the default fault handler does not log it.
func RateLimit(config *RateLimitConfig, limiter RateLimiter, logger *zap.Logger) app.Handler {
	return func(c *app.Context, next app.Next) error {
		// Skip rate limiting if config is nil
		if config == nil {
			return next()
		}

		// Extract the client key
		var key string
		if config.KeyExtractor != nil {
			var err error
			key, err = config.KeyExtractor(c)
			if err != nil {
				logger.Error("Failed to extract rate limit key",
					zap.Error(err),
					zap.String("method", c.Request.Method()),
					zap.String("path", c.Request.Path()),
				)
				return app.NewHTTPError(500, "Internal Server Error")
			}
		} else {
			key = c.Request.IP()
		}

		// Combine bucket name and key to create a unique identifier
		bucketKey := config.BucketName + ":" + key

		allowed, remaining, reset := limiter.Allow(bucketKey, config.Limit, config.Window)

		// Set rate limit headers
		h := c.Response.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(config.Limit))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(reset).Unix(), 10))

		if !allowed {
			h.Set("Retry-After", strconv.FormatInt(int64(reset.Seconds()), 10))

			logger.Warn("Rate limit exceeded",
				zap.String("method", c.Request.Method()),
				zap.String("path", c.Request.Path()),
				zap.String("key", key),
				zap.Int("limit", config.Limit),
			)

			return app.NewHTTPError(429, "Too Many Requests")
		}

		return next()
	}
}
