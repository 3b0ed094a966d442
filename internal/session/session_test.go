package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/takumayoshiokadotcom/kyonomi/internal/cache"
	"github.com/takumayoshiokadotcom/kyonomi/internal/config"
	"github.com/takumayoshiokadotcom/kyonomi/internal/db"
	"github.com/takumayoshiokadotcom/kyonomi/internal/session"
)

func setupStore(t *testing.T) (*session.RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(func() { mr.Close() })

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()
	return session.NewRedisStore(cache.NewRedisCache(cfg), time.Hour), mr
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	st, mr := setupStore(t)

	s := session.New(db.User{ID: "user1", Username: "tanaka", PasswordHash: "secret"}, time.Now())
	assert.NotEmpty(t, s.Token)
	assert.Empty(t, s.User.PasswordHash, "credential must not be cached")

	require.NoError(t, st.Save(ctx, s))
	assert.True(t, mr.Exists("session:"+s.Token))

	loaded, err := st.Load(ctx, s.Token)
	require.NoError(t, err)
	assert.Equal(t, "user1", loaded.UserID)
	assert.Equal(t, "tanaka", loaded.User.Username)

	// mutation is persisted by re-saving
	u := loaded.User
	u.Bio = "updated"
	loaded.SetUser(u)
	require.NoError(t, st.Save(ctx, loaded))
	again, err := st.Load(ctx, s.Token)
	require.NoError(t, err)
	assert.Equal(t, "updated", again.User.Bio)

	require.NoError(t, st.Delete(ctx, s.Token))
	_, err = st.Load(ctx, s.Token)
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func TestSessionExpires(t *testing.T) {
	ctx := context.Background()
	st, mr := setupStore(t)

	s := session.New(db.User{ID: "user1"}, time.Now())
	require.NoError(t, st.Save(ctx, s))

	mr.FastForward(2 * time.Hour)
	_, err := st.Load(ctx, s.Token)
	assert.ErrorIs(t, err, session.ErrNoSession)

	_, err = st.Load(ctx, "")
	assert.ErrorIs(t, err, session.ErrNoSession)
}
