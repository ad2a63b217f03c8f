package server

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/erauner12/smartsheet-mcp/internal/mcpserver/config"
	"github.com/rs/zerolog/log"
)

// TokenBucket implements a token bucket rate limiter.
// Bursts up to capacity are allowed; tokens refill continuously at refillRate.
type TokenBucket struct {
	tokens     float64
	capacity   float64
	refillRate float64 // tokens per second
	lastRefill time.Time
	mu         sync.Mutex
}

// NewTokenBucket creates a full bucket with the given capacity and refill rate
func NewTokenBucket(capacity int, refillRate float64) *TokenBucket {
	return &TokenBucket{
		tokens:     float64(capacity),
		capacity:   float64(capacity),
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

// Allow consumes a token if one is available.
// Returns (allowed, tokensRemaining, nextTokenTime)
// - nextTokenTime: when the next token will be available (use for Retry-After)
func (tb *TokenBucket) Allow() (bool, int, time.Time) {
	return tb.allowAt(time.Now())
}

func (tb *TokenBucket) allowAt(now time.Time) (bool, int, time.Time) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	elapsed := now.Sub(tb.lastRefill).Seconds()
	if elapsed > 0 {
		tb.tokens += elapsed * tb.refillRate
		if tb.tokens > tb.capacity {
			tb.tokens = tb.capacity
		}
		tb.lastRefill = now
	}

	if tb.tokens >= 1.0 {
		tb.tokens -= 1.0
		return true, int(tb.tokens), now
	}

	secondsUntilNext := (1.0 - tb.tokens) / tb.refillRate
	return false, 0, now.Add(time.Duration(secondsUntilNext * float64(time.Second)))
}

// RateLimiter manages per-user token buckets.
// Buckets live in memory; idle ones are dropped after an hour.
type RateLimiter struct {
	buckets map[string]*TokenBucket
	config  config.RateLimitConfig
	mu      sync.RWMutex
	stop    chan struct{}
	once    sync.Once
}

// NewRateLimiter creates a rate limiter and starts its cleanup loop
func NewRateLimiter(cfg config.RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		buckets: make(map[string]*TokenBucket),
		config:  cfg,
		stop:    make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

func (rl *RateLimiter) getBucket(userID string) *TokenBucket {
	rl.mu.RLock()
	bucket, exists := rl.buckets[userID]
	rl.mu.RUnlock()

	if exists {
		return bucket
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	// Double-check after acquiring write lock
	if bucket, exists := rl.buckets[userID]; exists {
		return bucket
	}

	bucket = NewTokenBucket(rl.config.Burst, float64(rl.config.PerMinute)/60.0)
	rl.buckets[userID] = bucket
	return bucket
}

// Allow checks whether userID may make another request
func (rl *RateLimiter) Allow(userID string) (bool, int, time.Time) {
	return rl.getBucket(userID).Allow()
}

// Close stops the cleanup loop
func (rl *RateLimiter) Close() {
	rl.once.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case now := <-ticker.C:
			rl.removeIdle(now, time.Hour)
		}
	}
}

// removeIdle drops buckets that have not been used within idle
func (rl *RateLimiter) removeIdle(now time.Time, idle time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	removed := 0
	for userID, bucket := range rl.buckets {
		bucket.mu.Lock()
		if now.Sub(bucket.lastRefill) > idle {
			delete(rl.buckets, userID)
			removed++
		}
		bucket.mu.Unlock()
	}
	return removed
}

// Middleware enforces the per-user limit on authenticated requests and
// answers 429 with Retry-After once the bucket is empty
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := UserID(r.Context())
		if userID == "" {
			next.ServeHTTP(w, r)
			return
		}

		allowed, remaining, nextTokenTime := rl.Allow(userID)

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.config.PerMinute))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Burst", strconv.Itoa(rl.config.Burst))

		if !allowed {
			retryAfter := int(time.Until(nextTokenTime).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))

			log.Ctx(r.Context()).Warn().
				Str("path", r.URL.Path).
				Int("retryAfter", retryAfter).
				Msg("Rate limit exceeded")

			data := mustMarshal(map[string]any{"code": "RATE_LIMIT", "retryAfter": retryAfter})
			writeResponse(w, http.StatusTooManyRequests,
				newError(nil, InternalError, "Rate limit exceeded. Please retry after "+strconv.Itoa(retryAfter)+" seconds.", data))
			return
		}

		next.ServeHTTP(w, r)
	})
}
