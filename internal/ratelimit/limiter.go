package ratelimit

import (
	"sync"
	"time"
)

// Limiter is a fixed-window counter keyed by caller identity (client
// IP). Exceeding the limit yields a denial with the seconds remaining
// in the current window, never a silent failure.
type Limiter struct {
	mu       sync.Mutex
	limit    int
	window   time.Duration
	buckets  map[string]*bucket
	lastSwep time.Time
	now      func() time.Time
}

type bucket struct {
	windowStart time.Time
	count       int
}

func NewLimiter(limit int, window time.Duration) *Limiter {
	return &Limiter{
		limit:   limit,
		window:  window,
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// Allow records an attempt for key and reports whether it is within the
// limit. When denied, retryAfter is how long until the window resets.
func (l *Limiter) Allow(key string) (allowed bool, retryAfter time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	b, ok := l.buckets[key]
	if !ok || now.Sub(b.windowStart) >= l.window {
		l.buckets[key] = &bucket{windowStart: now, count: 1}
		return true, 0
	}

	if b.count >= l.limit {
		return false, b.windowStart.Add(l.window).Sub(now)
	}
	b.count++
	return true, 0
}

// sweep drops expired buckets so the map does not grow unbounded.
// Runs at most once per window.
func (l *Limiter) sweep(now time.Time) {
	if now.Sub(l.lastSwep) < l.window {
		return
	}
	l.lastSwep = now
	for key, b := range l.buckets {
		if now.Sub(b.windowStart) >= l.window {
			delete(l.buckets, key)
		}
	}
}
