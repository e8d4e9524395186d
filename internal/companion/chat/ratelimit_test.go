package chat_test

import (
	"testing"
	"time"

	"github.com/companion-labs/companion/internal/companion/chat"
)

func TestRateLimiter_AllowsUpToLimit(t *testing.T) {
	const limit = 5
	rl := chat.NewRateLimiter(limit, time.Minute)

	for i := 0; i < limit; i++ {
		if !rl.Allow("10.0.0.1") {
			t.Fatalf("Allow returned false on call %d/%d (expected true)", i+1, limit)
		}
	}
}

func TestRateLimiter_RejectsWhenLimitExceeded(t *testing.T) {
	const limit = 3
	rl := chat.NewRateLimiter(limit, time.Minute)

	for i := 0; i < limit; i++ {
		rl.Allow("10.0.0.2")
	}

	if rl.Allow("10.0.0.2") {
		t.Error("Allow returned true after limit was exhausted; expected false")
	}
}

func TestRateLimiter_IndependentPerClient(t *testing.T) {
	const limit = 2
	rl := chat.NewRateLimiter(limit, time.Minute)

	// Exhaust the first client's quota.
	rl.Allow("10.0.0.1")
	rl.Allow("10.0.0.1")
	if rl.Allow("10.0.0.1") {
		t.Error("first client should be rate-limited")
	}

	// A different client is independent and keeps its own quota.
	if !rl.Allow("10.0.0.9") {
		t.Error("second client should not be rate-limited (independent key)")
	}
}

func TestRateLimiter_WindowExpiry(t *testing.T) {
	// Use a very short window so the test can verify expiry without sleeping
	// for a full minute.
	const limit = 1
	window := 50 * time.Millisecond
	rl := chat.NewRateLimiter(limit, window)

	if !rl.Allow("10.0.0.3") {
		t.Fatal("first call should be allowed")
	}
	if rl.Allow("10.0.0.3") {
		t.Fatal("second call within window should be rejected")
	}

	// Wait for the window to expire.
	time.Sleep(window + 10*time.Millisecond)

	if !rl.Allow("10.0.0.3") {
		t.Error("call after window expiry should be allowed again")
	}
}

func TestRateLimiter_DefaultLimit(t *testing.T) {
	// Zero values → defaults should apply (DefaultRateLimit = 60, 1 minute).
	rl := chat.NewRateLimiter(0, 0)

	for i := 0; i < chat.DefaultRateLimit; i++ {
		if !rl.Allow("10.0.0.4") {
			t.Fatalf("Allow returned false on call %d (default limit %d)", i+1, chat.DefaultRateLimit)
		}
	}
	if rl.Allow("10.0.0.4") {
		t.Errorf("Allow returned true after default limit (%d) was exhausted", chat.DefaultRateLimit)
	}
}

func TestRateLimiter_Remaining(t *testing.T) {
	const limit = 5
	rl := chat.NewRateLimiter(limit, time.Minute)

	if got := rl.Remaining("10.0.0.5"); got != limit {
		t.Errorf("Remaining before any calls: got %d, want %d", got, limit)
	}

	rl.Allow("10.0.0.5")
	rl.Allow("10.0.0.5")

	if got := rl.Remaining("10.0.0.5"); got != limit-2 {
		t.Errorf("Remaining after 2 calls: got %d, want %d", got, limit-2)
	}
}

func TestRateLimiter_RetryAfter(t *testing.T) {
	const limit = 2
	window := time.Minute
	rl := chat.NewRateLimiter(limit, window)

	if got := rl.RetryAfter("10.0.0.6"); got != 0 {
		t.Errorf("RetryAfter while admissible: got %v, want 0", got)
	}

	rl.Allow("10.0.0.6")
	rl.Allow("10.0.0.6")

	got := rl.RetryAfter("10.0.0.6")
	if got <= 0 || got > window {
		t.Errorf("RetryAfter when exhausted: got %v, want within (0, %v]", got, window)
	}
}

func TestRateLimiter_ConcurrentSafety(t *testing.T) {
	// Hammer the rate limiter from multiple goroutines to detect data races
	// when run with -race.
	const limit = 100
	rl := chat.NewRateLimiter(limit, time.Minute)

	done := make(chan struct{})
	for i := 0; i < 20; i++ {
		go func() {
			for j := 0; j < 20; j++ {
				rl.Allow("10.0.0.7")
			}
			done <- struct{}{}
		}()
	}
	for i := 0; i < 20; i++ {
		<-done
	}

	if got := rl.Remaining("10.0.0.7"); got != 0 {
		t.Errorf("Remaining after 400 concurrent calls with limit %d: got %d, want 0", limit, got)
	}
}
