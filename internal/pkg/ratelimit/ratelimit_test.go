package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_AllowsBurstThenBlocks(t *testing.T) {
	m := newMemory(Policy{Name: "otp", Limit: 3, Window: time.Minute})
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, _, err := m.Allow(ctx, "+14165551234")
		require.NoError(t, err)
		assert.True(t, ok, "request %d", i+1)
	}
	ok, wait, err := m.Allow(ctx, "+14165551234")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.InDelta(t, (20 * time.Second).Seconds(), wait.Seconds(), 0.5)

	// Other keys have their own budget.
	ok, _, _ = m.Allow(ctx, "+14165550000")
	assert.True(t, ok)

	now = now.Add(20 * time.Second)
	ok, _, _ = m.Allow(ctx, "+14165551234")
	assert.True(t, ok)
}

func TestMemory_RemoveIdle(t *testing.T) {
	m := newMemory(Policy{Limit: 1, Window: time.Minute})
	now := time.Now()
	m.now = func() time.Time { return now }
	_, _, _ = m.Allow(context.Background(), "a")

	now = now.Add(11 * time.Minute)
	m.removeIdle()
	assert.Empty(t, m.entries)
}

func newMiniredis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedis_FixedWindow(t *testing.T) {
	mr, client := newMiniredis(t)
	l := NewRedis(client, Policy{Name: "verify", Limit: 2, Window: 15 * time.Minute})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, _, err := l.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, wait, err := l.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Greater(t, wait, time.Duration(0))
	assert.LessOrEqual(t, wait, 15*time.Minute)
	assert.True(t, mr.Exists("ratelimit:verify:10.0.0.1"))

	mr.FastForward(15*time.Minute + time.Second)
	ok, _, err = l.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedis_Unreachable(t *testing.T) {
	mr, client := newMiniredis(t)
	mr.Close()
	_, _, err := NewRedis(client, Policy{Name: "x", Limit: 1, Window: time.Minute}).Allow(context.Background(), "k")
	assert.Error(t, err)
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)
	c, err := NewRedisClient(context.Background(), mr.Addr())
	require.NoError(t, err)
	_ = c.Close()
}
