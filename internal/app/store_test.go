package app_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/takumayoshiokadotcom/kyonomi/internal/app"
	"github.com/takumayoshiokadotcom/kyonomi/internal/config"
	"github.com/takumayoshiokadotcom/kyonomi/internal/db"
	"github.com/takumayoshiokadotcom/kyonomi/internal/logger"
	"github.com/takumayoshiokadotcom/kyonomi/internal/store"
)

func openMirror(t *testing.T) *gorm.DB {
	t.Helper()
	local, err := db.OpenLocal("file:" + t.Name() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	sqlDB, err := local.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return local
}

func testConfig(baseURL string) *config.Config {
	cfg := &config.Config{}
	cfg.Tables.BaseURL = baseURL
	cfg.Tables.Timeout = time.Second
	cfg.Auth.BcryptCost = bcrypt.MinCost
	return cfg
}

func TestNewStoreMirrorOnlySeedsSampleUsers(t *testing.T) {
	ctx := context.Background()
	st, err := app.NewStore(testConfig(""), openMirror(t), logger.Discard())
	require.NoError(t, err)

	users, err := st.Users.List(ctx, store.Filter{})
	require.NoError(t, err)
	assert.Len(t, users, 4)
}

func TestNewStoreFallsBackWhenTableServerFails(t *testing.T) {
	ctx := context.Background()
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(down.Close)

	local := openMirror(t)
	st, err := app.NewStore(testConfig(down.URL), local, logger.Discard())
	require.NoError(t, err)

	u, err := st.Users.Get(ctx, "user1")
	require.NoError(t, err)
	assert.Equal(t, "tanaka@example.com", u.Email)

	created, err := st.Follows.Create(ctx, db.Follow{FollowerID: "user2", FollowingID: "user4", Status: db.FollowPending})
	require.NoError(t, err)

	var mirrored db.Follow
	require.NoError(t, local.First(&mirrored, "id = ?", created.ID).Error)
	assert.Equal(t, "user4", mirrored.FollowingID)
}
