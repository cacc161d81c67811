package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTokenBucketAllowsUpToCapacity(t *testing.T) {
	tb := NewTokenBucket(3, time.Minute)

	assert.True(t, tb.Allow())
	assert.True(t, tb.Allow())
	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow(), "bucket exhausted")
}

func TestTokenBucketRefills(t *testing.T) {
	tb := NewTokenBucket(1, 50*time.Millisecond)

	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow())

	time.Sleep(80 * time.Millisecond)
	assert.True(t, tb.Allow(), "tokens replenished after the refill period")
}

func TestTokenBucketReset(t *testing.T) {
	tb := NewTokenBucket(2, time.Minute)
	tb.Allow()
	tb.Allow()
	assert.False(t, tb.Allow())

	tb.Reset()
	assert.True(t, tb.Allow())
}

func TestTokenBucketWaitBlocksUntilToken(t *testing.T) {
	tb := NewTokenBucket(1, 50*time.Millisecond)
	tb.Allow()

	start := time.Now()
	tb.Wait()
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestUnlimited(t *testing.T) {
	var limiter Limiter = Unlimited{}

	for i := 0; i < 100; i++ {
		assert.True(t, limiter.Allow())
	}

	start := time.Now()
	limiter.Wait()
	assert.Less(t, time.Since(start), 10*time.Millisecond)
}
