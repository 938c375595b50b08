package services

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"githarvest/internal/github"

	"github.com/stretchr/testify/assert"
)

func TestNextRunAt_Success(t *testing.T) {
	now := time.Unix(1700000000, 0)
	assert.Equal(t, now.Add(SUCCESS_INTERVAL), nextRunAt(now, 0, nil))
}

func TestNextRunAt_Failure(t *testing.T) {
	now := time.Unix(1700000000, 0)
	assert.Equal(t, now.Add(FAILURE_INTERVAL), nextRunAt(now, 0, errors.New("fetch profile: 502")))
}

func TestNextRunAt_RateLimitWinsOverFailure(t *testing.T) {
	now := time.Unix(1700000000, 0)
	runErr := fmt.Errorf("count commits octocat: %w", &github.RateLimitError{Wait: 90 * time.Second})

	assert.Equal(t, now.Add(90*time.Second), nextRunAt(now, 0, runErr))
}

func TestNextRunAt_BackoffOnSuccessfulRun(t *testing.T) {
	// the run finished but burned the quota, the next one waits for the reset
	now := time.Unix(1700000000, 0)
	assert.Equal(t, now.Add(20*time.Minute), nextRunAt(now, 20*time.Minute, nil))
}

func TestNextRunAt_RateLimitWinsOverBackoff(t *testing.T) {
	now := time.Unix(1700000000, 0)
	runErr := fmt.Errorf("wrapped: %w", &github.RateLimitError{Wait: 45 * time.Minute})

	assert.Equal(t, now.Add(45*time.Minute), nextRunAt(now, 5*time.Minute, runErr))
}
