package ratelimit

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/rs/xid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal_BurstThenDeny(t *testing.T) {
	l := NewLocal(1, 3)
	now := time.Unix(1700000000, 0)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, "42")
		require.NoError(t, err)
		assert.True(t, ok, "request %d within burst", i)
	}

	ok, err := l.Allow(ctx, "42")
	require.NoError(t, err)
	assert.False(t, ok, "fourth request in the same instant must be denied")

	// Another user has their own bucket.
	ok, err = l.Allow(ctx, "43")
	require.NoError(t, err)
	assert.True(t, ok)

	// One second later one token has been refilled.
	now = now.Add(time.Second)
	ok, err = l.Allow(ctx, "42")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLocal_SweepsIdleBuckets(t *testing.T) {
	l := NewLocal(1, 1)
	now := time.Unix(1700000000, 0)
	l.now = func() time.Time { return now }
	l.lastSweep = now
	ctx := context.Background()

	_, _ = l.Allow(ctx, "old")
	now = now.Add(idleAfter + time.Minute)
	_, _ = l.Allow(ctx, "new")

	assert.NotContains(t, l.buckets, "old")
	assert.Contains(t, l.buckets, "new")
}

func TestLocal_RetryAfterIsOneToken(t *testing.T) {
	assert.Equal(t, 2*time.Second, NewLocal(0.5, 1).RetryAfter())
	assert.Equal(t, 200*time.Millisecond, NewLocal(5, 20).RetryAfter())
}

func TestRedis_RetryAfterIsRestOfWindow(t *testing.T) {
	windowStart := time.Unix(1700000040, 0) // a multiple of 60s
	r := &Redis{window: time.Minute, now: func() time.Time { return windowStart.Add(10 * time.Second) }}

	assert.Equal(t, 50*time.Second, r.RetryAfter())
}

func TestRedis_FixedWindow(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	ctx := context.Background()

	r, err := NewRedis(ctx, RedisConfig{
		URL:    url,
		Limit:  2,
		Window: time.Hour,
		Prefix: "test:" + xid.New().String() + ":",
	})
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })

	for i := 0; i < 2; i++ {
		ok, err := r.Allow(ctx, "42")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := r.Allow(ctx, "42")
	require.NoError(t, err)
	assert.False(t, ok)
}
