package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/takumayoshiokadotcom/kyonomi/internal/db"
	"github.com/takumayoshiokadotcom/kyonomi/internal/repository"
	"github.com/takumayoshiokadotcom/kyonomi/internal/store"
)

// setup in-memory DB
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	database, err := db.OpenLocal("file:" + t.Name() + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := database.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return database
}

func TestCreateAssignsIDAndGet(t *testing.T) {
	ctx := context.Background()
	users, err := repository.NewTable[db.User](setupTestDB(t))
	require.NoError(t, err)

	created, err := users.Create(ctx, db.User{Email: "a@test.com", Username: "a", PasswordHash: "x"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := users.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@test.com", got.Email)

	_, err = users.Get(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCreateDuplicateEmailConflicts(t *testing.T) {
	ctx := context.Background()
	users, err := repository.NewTable[db.User](setupTestDB(t))
	require.NoError(t, err)

	_, err = users.Create(ctx, db.User{Email: "dup@test.com", Username: "a", PasswordHash: "x"})
	require.NoError(t, err)
	_, err = users.Create(ctx, db.User{Email: "dup@test.com", Username: "b", PasswordHash: "x"})
	assert.ErrorIs(t, err, store.ErrConflict)
}

func TestListFiltersAndOrder(t *testing.T) {
	ctx := context.Background()
	follows, err := repository.NewTable[db.Follow](setupTestDB(t))
	require.NoError(t, err)

	base := time.Now().UTC().Add(-time.Hour)
	for i, f := range []db.Follow{
		{ID: "f1", FollowerID: "u2", FollowingID: "u1", Status: db.FollowPending},
		{ID: "f2", FollowerID: "u3", FollowingID: "u1", Status: db.FollowAccepted},
		{ID: "f3", FollowerID: "u4", FollowingID: "u1", Status: db.FollowPending},
		{ID: "f4", FollowerID: "u1", FollowingID: "u2", Status: db.FollowPending},
	} {
		f.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		f.RequestedAt = f.CreatedAt
		_, err := follows.Create(ctx, f)
		require.NoError(t, err)
	}

	pending, err := follows.List(ctx, store.Eq("following_id", "u1", "status", db.FollowPending))
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "f1", pending[0].ID)
	assert.Equal(t, "f3", pending[1].ID)

	page, err := follows.List(ctx, store.Filter{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "f2", page[0].ID)

	n, err := follows.Count(ctx, store.Eq("following_id", "u1"))
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	_, err = follows.List(ctx, store.Eq("nope", "x"))
	assert.ErrorIs(t, err, store.ErrInvalid)

	_, err = follows.List(ctx, store.Filter{Search: "u1"})
	assert.ErrorIs(t, err, store.ErrInvalid)
}

func TestListCoercesQueryStrings(t *testing.T) {
	ctx := context.Background()
	likes, err := repository.NewTable[db.Like](setupTestDB(t))
	require.NoError(t, err)

	_, err = likes.Create(ctx, db.Like{LikerID: "a", LikedID: "b", Date: "2026-10-17", IsActive: true})
	require.NoError(t, err)
	_, err = likes.Create(ctx, db.Like{LikerID: "a", LikedID: "c", Date: "2026-10-17", IsActive: false})
	require.NoError(t, err)

	active, err := likes.List(ctx, store.Eq("liker_id", "a", "is_active", "true"))
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "b", active[0].LikedID)

	_, err = likes.List(ctx, store.Eq("is_active", "maybe"))
	assert.ErrorIs(t, err, store.ErrInvalid)
}

func TestSearchUsers(t *testing.T) {
	ctx := context.Background()
	users, err := repository.NewTable[db.User](setupTestDB(t))
	require.NoError(t, err)

	for _, u := range []db.User{
		{Email: "tanaka@example.com", Username: "Tanaka", PasswordHash: "x"},
		{Email: "sato@example.com", Username: "Sato", PasswordHash: "x", Bio: "beer lover"},
	} {
		_, err := users.Create(ctx, u)
		require.NoError(t, err)
	}

	found, err := users.List(ctx, store.Filter{Search: "tana"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Tanaka", found[0].Username)

	found, err = users.List(ctx, store.Filter{Search: "BEER"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Sato", found[0].Username)
}

func TestUpdatePartialAndNull(t *testing.T) {
	ctx := context.Background()
	users, err := repository.NewTable[db.User](setupTestDB(t))
	require.NoError(t, err)

	today := "2026-10-17"
	u, err := users.Create(ctx, db.User{Email: "a@test.com", Username: "a", PasswordHash: "x", IsDrinkingToday: true, LastDrinkingDate: &today})
	require.NoError(t, err)

	updated, err := users.Update(ctx, u.ID, store.Fields{"is_drinking_today": false, "last_drinking_date": nil})
	require.NoError(t, err)
	assert.False(t, updated.IsDrinkingToday)
	assert.Nil(t, updated.LastDrinkingDate)
	assert.Equal(t, "a", updated.Username)

	_, err = users.Update(ctx, u.ID, store.Fields{"karma": 3})
	assert.ErrorIs(t, err, store.ErrInvalid)

	_, err = users.Update(ctx, "missing", store.Fields{"bio": "x"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpdateParsesTimestamps(t *testing.T) {
	ctx := context.Background()
	follows, err := repository.NewTable[db.Follow](setupTestDB(t))
	require.NoError(t, err)

	f, err := follows.Create(ctx, db.Follow{FollowerID: "a", FollowingID: "b", Status: db.FollowPending, RequestedAt: time.Now().UTC()})
	require.NoError(t, err)

	at := time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)
	updated, err := follows.Update(ctx, f.ID, store.Fields{"status": "accepted", "responded_at": at.Format(time.RFC3339Nano)})
	require.NoError(t, err)
	assert.Equal(t, db.FollowAccepted, updated.Status)
	require.NotNil(t, updated.RespondedAt)
	assert.True(t, at.Equal(*updated.RespondedAt))
}

func TestReplaceKeepsIDAndCreatedAt(t *testing.T) {
	ctx := context.Background()
	users, err := repository.NewTable[db.User](setupTestDB(t))
	require.NoError(t, err)

	u, err := users.Create(ctx, db.User{Email: "a@test.com", Username: "a", PasswordHash: "x", Bio: "old"})
	require.NoError(t, err)

	replaced, err := users.Replace(ctx, u.ID, db.User{ID: "ignored", Email: "a@test.com", Username: "renamed", PasswordHash: "x"})
	require.NoError(t, err)
	assert.Equal(t, u.ID, replaced.ID)
	assert.Equal(t, "renamed", replaced.Username)
	assert.Equal(t, "", replaced.Bio)
	assert.WithinDuration(t, u.CreatedAt, replaced.CreatedAt, time.Second)

	_, err = users.Replace(ctx, "missing", db.User{})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	follows, err := repository.NewTable[db.Follow](setupTestDB(t))
	require.NoError(t, err)

	f, err := follows.Create(ctx, db.Follow{FollowerID: "a", FollowingID: "b", Status: db.FollowAccepted, RequestedAt: time.Now()})
	require.NoError(t, err)

	require.NoError(t, follows.Delete(ctx, f.ID))
	assert.ErrorIs(t, follows.Delete(ctx, f.ID), store.ErrNotFound)
}
