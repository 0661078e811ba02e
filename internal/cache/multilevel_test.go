package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache_TTL(t *testing.T) {
	m := NewMemoryCache()
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	m.Set("a", 1, time.Minute)
	m.Set("b", 2, 0)

	v, ok := m.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	now = now.Add(2 * time.Minute)
	_, ok = m.Get("a")
	assert.False(t, ok, "expired entry should miss")

	_, ok = m.Get("b")
	assert.True(t, ok, "entry without ttl never expires")
	assert.Equal(t, 1, m.Len())
}

func TestMemoryCache_Sweep(t *testing.T) {
	m := NewMemoryCache()
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	m.Set("short", 1, time.Second)
	m.Set("long", 2, time.Hour)
	m.Set("forever", 3, 0)

	now = now.Add(time.Minute)
	assert.Equal(t, 1, m.Sweep())
	assert.Equal(t, 2, m.Len())
	assert.Zero(t, m.Sweep())
}

func TestMemoryCache_DeletePattern(t *testing.T) {
	m := NewMemoryCache()
	m.Set("stats:u1", 1, 0)
	m.Set("stats:u2", 2, 0)
	m.Set("tasks:u1", 3, 0)

	assert.Equal(t, 2, m.DeletePattern("stats:*"))
	assert.Equal(t, 1, m.Len())
}

func TestMultiLevelCache_L1Only(t *testing.T) {
	c := NewMultiLevelCache(nil)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "stats:u1", statsPayload{OwnerID: "u1", XP: 20}, time.Minute))
	assert.False(t, c.HasL2())

	var got statsPayload
	require.NoError(t, c.Get(ctx, "stats:u1", &got))
	assert.Equal(t, int64(20), got.XP)

	err := c.Get(ctx, "stats:u2", &got)
	assert.True(t, errors.Is(err, ErrCacheMiss))

	stats := c.Metrics().GetStats()
	assert.Equal(t, int64(1), stats.L1Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestMultiLevelCache_CopiesValues(t *testing.T) {
	c := NewMultiLevelCache(nil)
	ctx := context.Background()

	original := &statsPayload{OwnerID: "u1", XP: 5}
	require.NoError(t, c.Set(ctx, "k", original, time.Minute))

	var got statsPayload
	require.NoError(t, c.Get(ctx, "k", &got))
	got.XP = 999

	var again statsPayload
	require.NoError(t, c.Get(ctx, "k", &again))
	assert.Equal(t, int64(5), again.XP)
}

func TestMultiLevelCache_PromotesFromL2(t *testing.T) {
	redisCache, _ := setupTestRedis(t)
	ctx := context.Background()

	c := NewMultiLevelCache(nil)
	require.NoError(t, c.AttachL2(ctx, redisCache))
	assert.True(t, c.HasL2())

	require.NoError(t, redisCache.Set(ctx, "stats:u1", statsPayload{OwnerID: "u1", XP: 30}, time.Minute))

	var got statsPayload
	require.NoError(t, c.Get(ctx, "stats:u1", &got))
	assert.Equal(t, int64(30), got.XP)
	assert.Equal(t, int64(1), c.Metrics().GetStats().L2Hits)

	var again statsPayload
	require.NoError(t, c.Get(ctx, "stats:u1", &again))
	assert.Equal(t, int64(1), c.Metrics().GetStats().L1Hits)
}

func TestMultiLevelCache_AttachL2Failure(t *testing.T) {
	redisCache, mr := setupTestRedis(t)
	mr.Close()

	c := NewMultiLevelCache(nil)
	err := c.AttachL2(context.Background(), redisCache)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCacheDown))
	assert.False(t, c.HasL2())
	assert.Equal(t, int64(1), c.Metrics().GetStats().Degraded)

	require.NoError(t, c.Set(context.Background(), "k", statsPayload{XP: 1}, time.Minute))
}

func TestMultiLevelCache_BreakerOpensOnDeadL2(t *testing.T) {
	redisCache, mr := setupTestRedis(t)
	ctx := context.Background()

	breaker := NewBreaker(BreakerConfig{Threshold: 1, Cooldown: time.Hour})
	c := NewMultiLevelCache(breaker)
	require.NoError(t, c.AttachL2(ctx, redisCache))

	mr.Close()

	assert.Error(t, c.Set(ctx, "k", statsPayload{XP: 1}, time.Minute))
	assert.Equal(t, BreakerOpen, breaker.State())

	assert.NoError(t, c.Set(ctx, "k2", statsPayload{XP: 2}, time.Minute), "open breaker degrades to L1")

	var got statsPayload
	require.NoError(t, c.Get(ctx, "k2", &got))
	assert.Equal(t, int64(2), got.XP)
}
