package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestLimiter(t *testing.T, now *time.Time) *RateLimiter {
	t.Helper()
	rl := NewRateLimiter(RateLimitConfig{
		MaxAttempts:     3,
		WindowDuration:  time.Minute,
		LockoutDuration: 10 * time.Minute,
		CleanupInterval: time.Hour,
	})
	rl.now = func() time.Time { return *now }
	t.Cleanup(rl.Stop)
	return rl
}

func TestRateLimiter_LocksOutAfterMaxAttempts(t *testing.T) {
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	rl := newTestLimiter(t, &now)

	for i := 0; i < 2; i++ {
		allowed, _ := rl.Allow("10.0.0.1", "alice")
		assert.True(t, allowed)
		assert.False(t, rl.RecordFailure("10.0.0.1", "alice"))
	}
	assert.True(t, rl.RecordFailure("10.0.0.1", "ALICE"), "names compare case-insensitively")

	allowed, retry := rl.Allow("10.0.0.1", "alice")
	assert.False(t, allowed)
	assert.Equal(t, 10*time.Minute, retry)

	allowed, _ = rl.Allow("10.0.0.2", "alice")
	assert.True(t, allowed, "other addresses are not affected")

	now = now.Add(11 * time.Minute)
	allowed, _ = rl.Allow("10.0.0.1", "alice")
	assert.True(t, allowed)
}

func TestRateLimiter_SuccessClearsFailures(t *testing.T) {
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	rl := newTestLimiter(t, &now)

	rl.RecordFailure("10.0.0.1", "alice")
	rl.RecordFailure("10.0.0.1", "alice")
	rl.RecordSuccess("10.0.0.1", "alice")

	assert.False(t, rl.RecordFailure("10.0.0.1", "alice"))
	assert.False(t, rl.RecordFailure("10.0.0.1", "alice"))
}

func TestRateLimiter_WindowExpiryResetsCount(t *testing.T) {
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	rl := newTestLimiter(t, &now)

	rl.RecordFailure("10.0.0.1", "alice")
	rl.RecordFailure("10.0.0.1", "alice")
	now = now.Add(2 * time.Minute)

	assert.False(t, rl.RecordFailure("10.0.0.1", "alice"))
	rl.cleanup()
	assert.Len(t, rl.attempts, 1)

	now = now.Add(2 * time.Minute)
	rl.cleanup()
	assert.Empty(t, rl.attempts)
}

func TestRateLimiter_StopIsIdempotent(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{})
	rl.Stop()
	assert.NotPanics(t, rl.Stop)
}
