package chat

import (
	"sync"
	"time"
)

const (
	// DefaultRateLimit is the maximum number of admitted submissions per
	// client key per window when no explicit limit is configured.
	DefaultRateLimit = 60

	// defaultRateLimitWindow is the sliding window duration.
	defaultRateLimitWindow = time.Minute
)

// RateLimiter enforces a per-client sliding-window admission limit on chat
// submissions.
//
// Internally it holds the call timestamps for each client within the current
// window and prunes stale entries on every Allow call. This keeps memory
// bounded to O(limit) entries per active client. Eligibility returns as
// wall-clock time crosses the window boundary, independent of other clients.
//
// RateLimiter is safe for concurrent use from multiple goroutines.
type RateLimiter struct {
	mu       sync.Mutex
	limit    int
	window   time.Duration
	counters map[string][]time.Time // clientKey → call timestamps in window
}

// NewRateLimiter returns a RateLimiter that admits at most limit calls per
// client within window.
//
// If limit ≤ 0 it defaults to DefaultRateLimit.
// If window ≤ 0 it defaults to one minute.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = DefaultRateLimit
	}
	if window <= 0 {
		window = defaultRateLimitWindow
	}
	return &RateLimiter{
		limit:    limit,
		window:   window,
		counters: make(map[string][]time.Time),
	}
}

// Allow returns true when the client is permitted another submission and
// records the current timestamp. Returns false when the client has
// exhausted its quota for the current window.
func (r *RateLimiter) Allow(clientKey string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-r.window)

	// Prune timestamps that have fallen outside the window.
	existing := r.counters[clientKey]
	valid := existing[:0] // reuse backing array
	for _, t := range existing {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}

	if len(valid) >= r.limit {
		r.counters[clientKey] = valid
		return false
	}

	r.counters[clientKey] = append(valid, now)
	return true
}

// Remaining returns the number of submissions the client can still make
// within the current window. A return value of 0 means the next Allow call
// will return false.
func (r *RateLimiter) Remaining(clientKey string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().Add(-r.window)
	count := 0
	for _, t := range r.counters[clientKey] {
		if t.After(cutoff) {
			count++
		}
	}
	rem := r.limit - count
	if rem < 0 {
		return 0
	}
	return rem
}

// RetryAfter returns how long a denied client must wait until its oldest
// in-window timestamp expires. Used to populate the Retry-After hint on 429
// responses. Returns 0 when the client is currently admissible.
func (r *RateLimiter) RetryAfter(clientKey string) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-r.window)

	var inWindow []time.Time
	for _, t := range r.counters[clientKey] {
		if t.After(cutoff) {
			inWindow = append(inWindow, t)
		}
	}
	if len(inWindow) < r.limit {
		return 0
	}
	return inWindow[0].Add(r.window).Sub(now)
}
