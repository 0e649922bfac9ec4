package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/KeyGap-Intelligence/internal/infrastructure/ratelimit"
	"github.com/turtacn/KeyGap-Intelligence/pkg/errors"
)

// RateLimiter decides whether the caller identified by key may proceed.
type RateLimiter interface {
	Allow(key string) bool
	Limit() int
}

// RateLimitConfig holds configuration for the rate limit middleware.
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
	// KeyFunc extracts the limiter key. Defaults to the client IP.
	KeyFunc         func(c *gin.Context) string
	SkipPaths       []string
	CleanupInterval time.Duration
}

func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 5,
		BurstSize:         10,
		SkipPaths:         []string{"/healthz", "/readyz", "/metrics"},
		CleanupInterval:   5 * time.Minute,
	}
}

func clientIPKey(c *gin.Context) string {
	return c.ClientIP()
}

type keyedBucket struct {
	bucket   *ratelimit.TokenBucket
	lastSeen time.Time
}

// KeyedLimiter keeps one token bucket per key and forgets keys idle for
// longer than the cleanup interval.
type KeyedLimiter struct {
	rate            float64
	burst           int
	clock           ratelimit.Clock
	mu              sync.Mutex
	buckets         map[string]*keyedBucket
	cleanupInterval time.Duration
	stop            chan struct{}
	stopOnce        sync.Once
}

func NewKeyedLimiter(rate float64, burst int, cleanupInterval time.Duration, clock ratelimit.Clock) (*KeyedLimiter, error) {
	if clock == nil {
		clock = ratelimit.SystemClock()
	}
	if _, err := ratelimit.NewTokenBucket(rate, burst); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeValidation, "invalid http rate limit")
	}
	l := &KeyedLimiter{
		rate:            rate,
		burst:           burst,
		clock:           clock,
		buckets:         make(map[string]*keyedBucket),
		cleanupInterval: cleanupInterval,
		stop:            make(chan struct{}),
	}
	if cleanupInterval > 0 {
		go l.cleanupLoop()
	}
	return l, nil
}

func (l *KeyedLimiter) Allow(key string) bool {
	l.mu.Lock()
	kb, ok := l.buckets[key]
	if !ok {
		b, _ := ratelimit.NewTokenBucket(l.rate, l.burst, ratelimit.WithClock(l.clock))
		kb = &keyedBucket{bucket: b}
		l.buckets[key] = kb
	}
	kb.lastSeen = l.clock.Now()
	l.mu.Unlock()

	return kb.bucket.Allow()
}

func (l *KeyedLimiter) Limit() int { return l.burst }

func (l *KeyedLimiter) cleanupLoop() {
	ticker := time.NewTicker(l.cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.cleanup()
		case <-l.stop:
			return
		}
	}
}

func (l *KeyedLimiter) cleanup() {
	threshold := l.clock.Now().Add(-l.cleanupInterval)
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, kb := range l.buckets {
		if kb.lastSeen.Before(threshold) {
			delete(l.buckets, key)
		}
	}
}

// Stop ends the cleanup goroutine.
func (l *KeyedLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// BucketCount returns the number of tracked keys.
func (l *KeyedLimiter) BucketCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// RateLimit rejects callers over their budget with 429.
func RateLimit(limiter RateLimiter, config RateLimitConfig) gin.HandlerFunc {
	skipSet := make(map[string]bool, len(config.SkipPaths))
	for _, p := range config.SkipPaths {
		skipSet[p] = true
	}
	keyFunc := config.KeyFunc
	if keyFunc == nil {
		keyFunc = clientIPKey
	}
	retryAfter := 1
	if config.RequestsPerSecond > 0 && config.RequestsPerSecond < 1 {
		retryAfter = int(1/config.RequestsPerSecond + 0.5)
	}

	return func(c *gin.Context) {
		if skipSet[c.Request.URL.Path] {
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.Limit()))
		if !limiter.Allow(keyFunc(c)) {
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":    "RATE_LIMITED",
				"message": "rate limit exceeded, please retry later",
			})
			return
		}
		c.Next()
	}
}

//Personal.AI order the ending
