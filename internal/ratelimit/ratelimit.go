package ratelimit

import (
	"sync"
	"time"
)

// Window is the span a credential's submissions are counted over.
const Window = 60 * time.Second

// SlidingWindow counts submissions per credential over the last
// Window. Expired timestamps are pruned on every check, so a key's
// history never grows past the configured limit.
//
// State is process-local; horizontally scaled instances each enforce
// the limit independently.
type SlidingWindow struct {
	mu    sync.Mutex
	limit int
	seen  map[string][]time.Time
}

// NewSlidingWindow creates a limiter admitting at most limit
// submissions per credential per Window.
func NewSlidingWindow(limit int) *SlidingWindow {
	return &SlidingWindow{
		limit: limit,
		seen:  make(map[string][]time.Time),
	}
}

// Allow reports whether a submission under key is admitted at now,
// recording it if so.
func (s *SlidingWindow) Allow(key string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now.Add(-Window)
	history := s.seen[key]

	kept := history[:0]
	for _, t := range history {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= s.limit {
		s.seen[key] = kept
		return false
	}

	s.seen[key] = append(kept, now)
	return true
}
