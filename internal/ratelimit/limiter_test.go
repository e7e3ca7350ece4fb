package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiter_Allow(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	newClockedLimiter := func(limit int, window time.Duration) (*Limiter, *time.Time) {
		current := base
		l := NewLimiter(limit, window)
		l.now = func() time.Time { return current }
		return l, &current
	}

	t.Run("AllowsUpToLimit", func(t *testing.T) {
		l, _ := newClockedLimiter(3, time.Minute)

		for i := 0; i < 3; i++ {
			allowed, _ := l.Allow("10.0.0.1")
			assert.True(t, allowed, "attempt %d should be allowed", i+1)
		}

		allowed, retryAfter := l.Allow("10.0.0.1")
		assert.False(t, allowed)
		assert.Equal(t, time.Minute, retryAfter)
	})

	t.Run("RetryAfterShrinksAsWindowAges", func(t *testing.T) {
		l, clock := newClockedLimiter(1, time.Minute)

		allowed, _ := l.Allow("10.0.0.1")
		assert.True(t, allowed)

		*clock = base.Add(40 * time.Second)
		allowed, retryAfter := l.Allow("10.0.0.1")
		assert.False(t, allowed)
		assert.Equal(t, 20*time.Second, retryAfter)
	})

	t.Run("WindowExpiryResetsCount", func(t *testing.T) {
		l, clock := newClockedLimiter(1, time.Minute)

		allowed, _ := l.Allow("10.0.0.1")
		assert.True(t, allowed)
		allowed, _ = l.Allow("10.0.0.1")
		assert.False(t, allowed)

		*clock = base.Add(time.Minute)
		allowed, _ = l.Allow("10.0.0.1")
		assert.True(t, allowed)
	})

	t.Run("KeysAreIndependent", func(t *testing.T) {
		l, _ := newClockedLimiter(1, time.Minute)

		allowed, _ := l.Allow("10.0.0.1")
		assert.True(t, allowed)
		allowed, _ = l.Allow("10.0.0.2")
		assert.True(t, allowed)
		allowed, _ = l.Allow("10.0.0.1")
		assert.False(t, allowed)
	})

	t.Run("SweepDropsExpiredBuckets", func(t *testing.T) {
		l, clock := newClockedLimiter(1, time.Minute)

		l.Allow("10.0.0.1")
		l.Allow("10.0.0.2")
		assert.Len(t, l.buckets, 2)

		*clock = base.Add(2 * time.Minute)
		l.Allow("10.0.0.3")
		// Only the fresh bucket survives the sweep.
		assert.Len(t, l.buckets, 1)
	})
}
