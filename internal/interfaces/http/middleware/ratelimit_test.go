package middleware

import (
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/KeyGap-Intelligence/pkg/errors"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) After(d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- c.Now().Add(d)
	return ch
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func TestNewKeyedLimiter_Invalid(t *testing.T) {
	_, err := NewKeyedLimiter(0, 1, 0, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))

	_, err = NewKeyedLimiter(1, 0, 0, nil)
	require.Error(t, err)
}

func TestKeyedLimiter_PerKeyBudgets(t *testing.T) {
	clock := newManualClock()
	l, err := NewKeyedLimiter(1, 2, 0, clock)
	require.NoError(t, err)

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"), "keys do not share a bucket")

	clock.Advance(time.Second)
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.Equal(t, 2, l.BucketCount())
}

func TestKeyedLimiter_Cleanup(t *testing.T) {
	clock := newManualClock()
	l, err := NewKeyedLimiter(1, 1, 0, clock)
	require.NoError(t, err)
	l.cleanupInterval = time.Minute

	l.Allow("idle")
	clock.Advance(30 * time.Second)
	l.Allow("busy")
	clock.Advance(45 * time.Second)

	l.cleanup()
	assert.Equal(t, 1, l.BucketCount())
	l.Stop()
	l.Stop()
}

func TestRateLimit_Middleware(t *testing.T) {
	l, err := NewKeyedLimiter(0.5, 1, 0, newManualClock())
	require.NoError(t, err)
	cfg := DefaultRateLimitConfig()
	cfg.RequestsPerSecond = 0.5
	cfg.KeyFunc = func(c *gin.Context) string { return c.GetHeader("X-Client") }
	r := newEngine(RateLimit(l, cfg))

	first := serve(r, http.MethodPost, "/api/v1/analyses", map[string]string{"X-Client": "c1"})
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Limit"))

	second := serve(r, http.MethodPost, "/api/v1/analyses", map[string]string{"X-Client": "c1"})
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "2", second.Header().Get("Retry-After"))
	assert.Contains(t, second.Body.String(), "RATE_LIMITED")

	other := serve(r, http.MethodPost, "/api/v1/analyses", map[string]string{"X-Client": "c2"})
	assert.Equal(t, http.StatusOK, other.Code)

	for i := 0; i < 3; i++ {
		health := serve(r, http.MethodGet, "/healthz", map[string]string{"X-Client": "c1"})
		assert.Equal(t, http.StatusOK, health.Code, "skip paths bypass the limiter")
	}
}

//Personal.AI order the ending
