package retry

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// BackoffStrategy computes the wait before a retry. Attempt numbers are
// 1-based; non-positive attempts yield no delay.
type BackoffStrategy interface {
	NextDelay(attempt int) time.Duration
}

// LinearBackoff waits BaseDelay * attempt, so consecutive waits grow by a
// constant step. This mirrors what the upstream providers expect after a
// throttling response.
type LinearBackoff struct {
	BaseDelay time.Duration
	// MaxDelay caps the computed delay; 0 means uncapped.
	MaxDelay time.Duration
}

// DefaultLinearBackoff spaces attempts 10s, 20s, 30s... capped at 5m.
func DefaultLinearBackoff() *LinearBackoff {
	return &LinearBackoff{BaseDelay: 10 * time.Second, MaxDelay: 5 * time.Minute}
}

func (lb *LinearBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	delay := lb.BaseDelay * time.Duration(attempt)
	if lb.MaxDelay > 0 && delay > lb.MaxDelay {
		return lb.MaxDelay
	}
	return delay
}

// ExponentialBackoff multiplies the delay each attempt, with optional
// jitter to spread out concurrent retriers.
type ExponentialBackoff struct {
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
	// JitterFactor in [0,1] randomizes the delay by up to that fraction
	// in either direction.
	JitterFactor float64
}

// DefaultExponentialBackoff doubles from 1s up to a minute with 10% jitter.
func DefaultExponentialBackoff() *ExponentialBackoff {
	return &ExponentialBackoff{
		BaseDelay:    time.Second,
		MaxDelay:     time.Minute,
		Multiplier:   2.0,
		JitterFactor: 0.1,
	}
}

func (eb *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	delay := float64(eb.BaseDelay) * math.Pow(eb.Multiplier, float64(attempt-1))
	delay = math.Min(delay, float64(eb.MaxDelay))
	if eb.JitterFactor > 0 {
		spread := delay * eb.JitterFactor
		delay += rand.Float64()*2*spread - spread
	}
	return time.Duration(math.Max(delay, 0))
}

// ConstantBackoff waits the same delay between all attempts.
type ConstantBackoff struct {
	Delay time.Duration
}

func (cb *ConstantBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return cb.Delay
}

// Wait sleeps for delay or returns the context's error if it is
// cancelled first.
func Wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
