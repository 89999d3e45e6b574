package server

import (
	"math"
	"sync"
	"time"
)

// rateLimiter is a sliding-window request counter keyed by client id.
type rateLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	now     func() time.Time
	history map[string][]time.Time
}

func newRateLimiter(limit int, window time.Duration, now func() time.Time) *rateLimiter {
	return &rateLimiter{
		limit:   limit,
		window:  window,
		now:     now,
		history: make(map[string][]time.Time),
	}
}

// Allow records a request for the client when under the limit. When over,
// it returns the whole seconds until the oldest in-window request expires,
// at least 1.
func (l *rateLimiter) Allow(client string) (bool, int) {
	if l.limit <= 0 {
		return true, 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)
	kept := l.history[client][:0]
	for _, ts := range l.history[client] {
		if !ts.Before(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= l.limit {
		l.history[client] = kept
		retry := int(math.Ceil(l.window.Seconds() - now.Sub(kept[0]).Seconds()))
		return false, max(retry, 1)
	}

	l.history[client] = append(kept, now)
	return true, 0
}
