package github

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"githarvest/internal/pkg/limiter"
)

type exhaustedLimiter struct {
	retryAfter time.Duration
}

func (l exhaustedLimiter) Allow(ctx context.Context, key string, limit redis_rate.Limit) error {
	return &limiter.RateLimitedError{RetryAfter: l.retryAfter}
}

func TestGet_ExhaustedBudgetIsTypedRateLimit(t *testing.T) {
	c := NewClient("", exhaustedLimiter{retryAfter: 90 * time.Second})

	_, err := c.Profile(context.Background(), "octocat")
	require.Error(t, err)

	var rateLimited *RateLimitError
	require.True(t, errors.As(err, &rateLimited))
	assert.Equal(t, 90*time.Second, rateLimited.Wait)
}

func TestGet_ExhaustedBudgetWithoutRetryAfter(t *testing.T) {
	c := NewClient("", exhaustedLimiter{retryAfter: 0})

	_, err := c.Profile(context.Background(), "octocat")

	var rateLimited *RateLimitError
	require.True(t, errors.As(err, &rateLimited))
	assert.Equal(t, time.Minute, rateLimited.Wait)
}

func TestWaitFromReset(t *testing.T) {
	now := time.Unix(1700000000, 0)

	assert.Equal(t, 90*time.Second, waitFromReset("1700000090", now))
	assert.Equal(t, time.Duration(0), waitFromReset("1699999000", now))
}

func TestWaitFromReset_MalformedHeader(t *testing.T) {
	assert.Equal(t, time.Minute, waitFromReset("", time.Now()))
	assert.Equal(t, time.Minute, waitFromReset("soon", time.Now()))
}

func TestBackoff_QuotaRemaining(t *testing.T) {
	c := NewClient("", nil)

	h := http.Header{}
	h.Set("X-RateLimit-Remaining", "4200")
	h.Set("X-RateLimit-Reset", "1700000090")
	c.observeHeaders(h)

	assert.Equal(t, time.Duration(0), c.Backoff())
}

func TestBackoff_QuotaExhausted(t *testing.T) {
	c := NewClient("", nil)

	h := http.Header{}
	h.Set("X-RateLimit-Remaining", "0")
	h.Set("X-RateLimit-Reset", "2700000000")
	c.observeHeaders(h)

	assert.Greater(t, c.Backoff(), time.Duration(0))
}

func TestBackoff_NoHeadersSeen(t *testing.T) {
	c := NewClient("", nil)
	assert.Equal(t, time.Duration(0), c.Backoff())
}

func TestRateLimitError_Message(t *testing.T) {
	err := &RateLimitError{Wait: 90 * time.Second}
	assert.Contains(t, err.Error(), "1m30s")
}
