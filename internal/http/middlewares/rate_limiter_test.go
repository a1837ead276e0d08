package middlewares

import (
	"testing"
	"time"

	"github.com/zeebo/assert"
)

func TestRateLimiterBurstThenRefill(t *testing.T) {
	now := time.Unix(1000, 0)
	rl := NewRateLimiter(2, 3)
	rl.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		assert.True(t, rl.allow("1.2.3.4"))
	}
	assert.False(t, rl.allow("1.2.3.4"))

	// a different client has its own bucket
	assert.True(t, rl.allow("5.6.7.8"))

	// one second refills rate tokens
	now = now.Add(time.Second)
	assert.True(t, rl.allow("1.2.3.4"))
	assert.True(t, rl.allow("1.2.3.4"))
	assert.False(t, rl.allow("1.2.3.4"))
}

func TestRateLimiterSweepsStaleBuckets(t *testing.T) {
	now := time.Unix(1000, 0)
	rl := NewRateLimiter(1, 1)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.allow("1.2.3.4"))
	assert.Equal(t, 1, len(rl.buckets))

	now = now.Add(staleAfter + time.Minute)
	assert.True(t, rl.allow("5.6.7.8"))

	_, ok := rl.buckets["1.2.3.4"]
	assert.False(t, ok)
}
