package atlassian

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/workspace-spider/internal/core/domain"
)

// TestRateLimiter_Burst tests that a fresh bucket allows exactly C
// immediate acquisitions before applying backpressure
func TestRateLimiter_Burst(t *testing.T) {
	limiter := NewRateLimiter(domain.SystemConfluence, 3, 0.001)

	for i := 0; i < 3; i++ {
		assert.True(t, limiter.Allow(), "token %d should be available", i)
	}
	assert.False(t, limiter.Allow(), "bucket should be exhausted after C tokens")
}

// TestRateLimiter_Defaults tests fallback to product defaults
func TestRateLimiter_Defaults(t *testing.T) {
	limiter := NewRateLimiter(domain.SystemJira, 0, 0)

	cfg := DefaultRateLimits[domain.SystemJira]
	for i := 0; i < cfg.BurstSize; i++ {
		require.True(t, limiter.Allow())
	}
	assert.False(t, limiter.Allow())
}

// TestRateLimiter_Wait tests blocking acquisition under a live refill
func TestRateLimiter_Wait(t *testing.T) {
	// 1 token capacity, 50 tokens/second: the second Wait must block
	// roughly 20ms for the refill.
	limiter := NewRateLimiter(domain.SystemConfluence, 1, 50)

	ctx := context.Background()
	require.NoError(t, limiter.Wait(ctx))

	start := time.Now()
	require.NoError(t, limiter.Wait(ctx))
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}

// TestRateLimiter_WaitCancelled tests that a cancelled context unblocks
func TestRateLimiter_WaitCancelled(t *testing.T) {
	limiter := NewRateLimiter(domain.SystemConfluence, 1, 0.001)
	require.NoError(t, limiter.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, limiter.Wait(ctx))
}

// TestRateLimiter_RecordRateLimitError tests the pushed not-before
// window from a 429 hint
func TestRateLimiter_RecordRateLimitError(t *testing.T) {
	limiter := NewRateLimiter(domain.SystemJira, 10, 10)
	require.True(t, limiter.Allow())

	limiter.RecordRateLimitError(time.Second)
	assert.False(t, limiter.Allow(), "window must suppress acquisitions")
}

// TestRateLimiter_IndependentBuckets tests that products do not share
// tokens
func TestRateLimiter_IndependentBuckets(t *testing.T) {
	confluence := NewRateLimiter(domain.SystemConfluence, 1, 0.001)
	jira := NewRateLimiter(domain.SystemJira, 1, 0.001)

	require.True(t, confluence.Allow())
	assert.False(t, confluence.Allow())
	assert.True(t, jira.Allow(), "draining confluence must not affect jira")
}
