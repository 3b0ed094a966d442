package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/takumayoshiokadotcom/kyonomi/internal/cache"
	"github.com/takumayoshiokadotcom/kyonomi/internal/config"
)

func setupCache(t *testing.T) (*cache.RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(func() { mr.Close() })

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()
	c := cache.NewRedisCache(cfg)
	t.Cleanup(func() { c.Close() })
	return c, mr
}

func TestUnreadCount(t *testing.T) {
	ctx := context.Background()
	c, mr := setupCache(t)

	_, ok, err := c.GetUnreadCount(ctx, "user1")
	require.NoError(t, err)
	assert.False(t, ok, "empty cache is a miss")

	require.NoError(t, c.SetUnreadCount(ctx, "user1", 3))
	n, ok, err := c.GetUnreadCount(ctx, "user1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, cache.UnreadTTL, mr.TTL("notifications:unread:user1"))

	// TTL is refreshed on access
	mr.FastForward(30 * time.Minute)
	_, _, _ = c.GetUnreadCount(ctx, "user1")
	assert.Equal(t, cache.UnreadTTL, mr.TTL("notifications:unread:user1"))

	require.NoError(t, c.InvalidateUnreadCount(ctx, "user1"))
	_, ok, _ = c.GetUnreadCount(ctx, "user1")
	assert.False(t, ok)
}

func TestUnreadCountGarbageIsMiss(t *testing.T) {
	ctx := context.Background()
	c, mr := setupCache(t)

	require.NoError(t, mr.Set("notifications:unread:user1", "lots"))
	_, ok, err := c.GetUnreadCount(ctx, "user1")
	require.NoError(t, err)
	assert.False(t, ok)
}
