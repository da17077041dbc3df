package api

import (
	"sync"
	"time"
)

// dispatchLimiter caps how many dispatches one client may start per window.
// A single request can build twenty workbooks, so a runaway frontend retry
// loop would otherwise queue that work dozens of times over.
type dispatchLimiter struct {
	mu      sync.Mutex
	entries map[string]limiterEntry
	limit   int
	window  time.Duration
}

type limiterEntry struct {
	count       int
	windowStart time.Time
}

func newDispatchLimiter(limit int, window time.Duration) *dispatchLimiter {
	return &dispatchLimiter{
		entries: make(map[string]limiterEntry),
		limit:   limit,
		window:  window,
	}
}

func (l *dispatchLimiter) allow(key string) bool {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	entry, exists := l.entries[key]
	if !exists || now.Sub(entry.windowStart) >= l.window {
		l.prune(now)
		l.entries[key] = limiterEntry{count: 1, windowStart: now}
		return true
	}
	if entry.count >= l.limit {
		return false
	}
	entry.count++
	l.entries[key] = entry
	return true
}

// prune drops expired windows so the map does not grow with client churn.
// Called with the mutex held.
func (l *dispatchLimiter) prune(now time.Time) {
	for key, entry := range l.entries {
		if now.Sub(entry.windowStart) >= l.window {
			delete(l.entries, key)
		}
	}
}
