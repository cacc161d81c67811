package ratelimit

import (
	"sync"
	"time"
)

// Limiter paces outgoing scrape requests.
type Limiter interface {
	// Allow reports whether a request may proceed right now.
	Allow() bool
	// Wait blocks until a request may proceed.
	Wait()
	// Reset restores the limiter to its initial state.
	Reset()
}

// TokenBucket grants up to capacity requests per refill period. The scrape
// strategies use it so a batch lookup does not hammer the upstream site
// into throttling us.
type TokenBucket struct {
	mu         sync.Mutex
	capacity   int
	tokens     int
	period     time.Duration
	lastRefill time.Time
}

// NewTokenBucket returns a full bucket granting capacity requests per period.
func NewTokenBucket(capacity int, period time.Duration) *TokenBucket {
	return &TokenBucket{
		capacity:   capacity,
		tokens:     capacity,
		period:     period,
		lastRefill: time.Now(),
	}
}

func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	if time.Since(tb.lastRefill) >= tb.period {
		tb.tokens = tb.capacity
		tb.lastRefill = time.Now()
	}
	if tb.tokens == 0 {
		return false
	}
	tb.tokens--
	return true
}

func (tb *TokenBucket) Wait() {
	for !tb.Allow() {
		tb.mu.Lock()
		remaining := tb.period - time.Since(tb.lastRefill)
		tb.mu.Unlock()

		if remaining < 10*time.Millisecond {
			remaining = 10 * time.Millisecond
		}
		time.Sleep(remaining)
	}
}

func (tb *TokenBucket) Reset() {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.tokens = tb.capacity
	tb.lastRefill = time.Now()
}

// Unlimited never blocks, for tests and the proxy API strategy whose
// quota is enforced upstream.
type Unlimited struct{}

func (Unlimited) Allow() bool { return true }
func (Unlimited) Wait()       {}
func (Unlimited) Reset()      {}
