package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSlidingWindowLimit(t *testing.T) {
	limiter := NewSlidingWindow(3)
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

	assert.True(t, limiter.Allow("key", now))
	assert.True(t, limiter.Allow("key", now.Add(1*time.Second)))
	assert.True(t, limiter.Allow("key", now.Add(2*time.Second)))
	assert.False(t, limiter.Allow("key", now.Add(3*time.Second)), "fourth submission within the window must be rejected")
}

func TestSlidingWindowSlides(t *testing.T) {
	limiter := NewSlidingWindow(2)
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

	assert.True(t, limiter.Allow("key", now))
	assert.True(t, limiter.Allow("key", now.Add(30*time.Second)))
	assert.False(t, limiter.Allow("key", now.Add(45*time.Second)))

	// The first submission expires 60s after it happened; only the
	// 30s one still counts.
	assert.True(t, limiter.Allow("key", now.Add(61*time.Second)))
	assert.False(t, limiter.Allow("key", now.Add(62*time.Second)))
}

func TestSlidingWindowKeysAreIndependent(t *testing.T) {
	limiter := NewSlidingWindow(1)
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

	assert.True(t, limiter.Allow("a", now))
	assert.False(t, limiter.Allow("a", now))
	assert.True(t, limiter.Allow("b", now), "a saturated key must not affect other keys")
}

func TestSlidingWindowRejectionDoesNotCount(t *testing.T) {
	limiter := NewSlidingWindow(1)
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

	assert.True(t, limiter.Allow("key", now))
	for i := 1; i <= 30; i++ {
		assert.False(t, limiter.Allow("key", now.Add(time.Duration(i)*time.Second)))
	}

	// Rejected attempts left no trace, so the key frees up exactly
	// when the one admitted submission leaves the window.
	assert.True(t, limiter.Allow("key", now.Add(61*time.Second)))
}
