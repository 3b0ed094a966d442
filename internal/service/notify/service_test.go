package notify_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/takumayoshiokadotcom/kyonomi/internal/app/apptest"
	"github.com/takumayoshiokadotcom/kyonomi/internal/db"
	svcErr "github.com/takumayoshiokadotcom/kyonomi/internal/errors"
	"github.com/takumayoshiokadotcom/kyonomi/internal/service/notify"
)

func setupService(t *testing.T) (*notify.Service, *apptest.Env) {
	t.Helper()
	env := apptest.New(t)
	return notify.NewService(env.App), env
}

func TestEmitAndListNewestFirst(t *testing.T) {
	ctx := context.Background()
	svc, env := setupService(t)

	first, err := svc.Emit(ctx, "user1", db.NotifyFollowRequest, "user4", "鈴木美咲さんからフォローリクエストが届きました")
	require.NoError(t, err)
	env.Advance(time.Minute)
	second, err := svc.Emit(ctx, "user1", db.NotifyLikeReceived, "user2", "佐藤花子さんがいいねしました")
	require.NoError(t, err)
	_, err = svc.Emit(ctx, "user2", db.NotifyLikeReceived, "user1", "other inbox")
	require.NoError(t, err)

	inbox, err := svc.ListFor(ctx, "user1")
	require.NoError(t, err)
	require.Len(t, inbox.Items, 2)
	assert.Equal(t, second.ID, inbox.Items[0].ID)
	assert.Equal(t, first.ID, inbox.Items[1].ID)
	assert.Equal(t, int64(2), inbox.Unread)
	assert.False(t, inbox.Items[0].IsRead)
}

func TestListTieBreaksOnID(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	// same clock reading for both
	a, err := svc.Emit(ctx, "user1", db.NotifyMatchMade, "user2", "a")
	require.NoError(t, err)
	b, err := svc.Emit(ctx, "user1", db.NotifyMatchMade, "user2", "b")
	require.NoError(t, err)

	inbox, err := svc.ListFor(ctx, "user1")
	require.NoError(t, err)
	require.Len(t, inbox.Items, 2)

	hi, lo := a.ID, b.ID
	if lo > hi {
		hi, lo = lo, hi
	}
	assert.Equal(t, hi, inbox.Items[0].ID)
	assert.Equal(t, lo, inbox.Items[1].ID)
}

func TestEmitDoesNotDeduplicate(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	for i := 0; i < 3; i++ {
		_, err := svc.Emit(ctx, "user1", db.NotifyLikeReceived, "user2", "same")
		require.NoError(t, err)
	}
	inbox, err := svc.ListFor(ctx, "user1")
	require.NoError(t, err)
	assert.Len(t, inbox.Items, 3)
}

func TestListPage(t *testing.T) {
	ctx := context.Background()
	svc, env := setupService(t)

	var ids []string
	for i := 0; i < 5; i++ {
		n, err := svc.Emit(ctx, "user1", db.NotifyLikeReceived, "user2", "like")
		require.NoError(t, err)
		ids = append([]string{n.ID}, ids...)
		env.Advance(time.Second)
	}

	page, err := svc.ListPage(ctx, "user1", nil, 2)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.NotNil(t, page.NextToken)
	assert.Equal(t, ids[0], page.Items[0].ID)
	assert.Equal(t, int64(5), page.Unread)

	var seen []string
	for _, n := range page.Items {
		seen = append(seen, n.ID)
	}
	for page.NextToken != nil {
		page, err = svc.ListPage(ctx, "user1", page.NextToken, 2)
		require.NoError(t, err)
		for _, n := range page.Items {
			seen = append(seen, n.ID)
		}
	}
	assert.Equal(t, ids, seen)

	first, err := svc.ListPage(ctx, "user1", nil, 2)
	require.NoError(t, err)
	_, err = svc.ListPage(ctx, "user2", first.NextToken, 2)
	assert.Error(t, err, "a token only pages its own inbox")

	bad := "not-a-token"
	_, err = svc.ListPage(ctx, "user1", &bad, 2)
	assert.Error(t, err)
}

func TestMarkReadAndUnreadCount(t *testing.T) {
	ctx := context.Background()
	svc, env := setupService(t)
	sess := env.Session(t, "user1")

	n1, err := svc.Emit(ctx, "user1", db.NotifyFollowRequest, "user4", "req")
	require.NoError(t, err)
	_, err = svc.Emit(ctx, "user1", db.NotifyLikeReceived, "user2", "like")
	require.NoError(t, err)

	count, err := svc.UnreadCount(ctx, "user1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	assert.True(t, env.Redis.Exists("notifications:unread:user1"))

	read, err := svc.MarkRead(ctx, sess, n1.ID)
	require.NoError(t, err)
	assert.True(t, read.IsRead)
	assert.False(t, env.Redis.Exists("notifications:unread:user1"), "read must drop the cached count")

	count, err = svc.UnreadCount(ctx, "user1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	marked, err := svc.MarkAllRead(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, 1, marked)

	count, err = svc.UnreadCount(ctx, "user1")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestUnreadCountServedFromCache(t *testing.T) {
	ctx := context.Background()
	svc, env := setupService(t)

	require.NoError(t, env.App.RedisCache.SetUnreadCount(ctx, "user3", 7))
	count, err := svc.UnreadCount(ctx, "user3")
	require.NoError(t, err)
	assert.Equal(t, int64(7), count)

	_, err = svc.Emit(ctx, "user3", db.NotifyMatchMade, "user1", "match")
	require.NoError(t, err)
	count, err = svc.UnreadCount(ctx, "user3")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestUnreadCountWithRedisDown(t *testing.T) {
	ctx := context.Background()
	env := apptest.New(t)
	var logs bytes.Buffer
	env.App.Logger = slog.New(slog.NewTextHandler(&logs, nil))
	svc := notify.NewService(env.App)

	_, err := svc.Emit(ctx, "user3", db.NotifyMatchMade, "user1", "match")
	require.NoError(t, err)

	env.Redis.SetError("LOADING redis is loading")
	count, err := svc.UnreadCount(ctx, "user3")
	require.NoError(t, err, "the store still answers")
	assert.Positive(t, count)
	assert.Contains(t, logs.String(), "failed to cache unread count")
}

func TestMarkReadForeignNotification(t *testing.T) {
	ctx := context.Background()
	svc, env := setupService(t)

	n, err := svc.Emit(ctx, "user2", db.NotifyLikeReceived, "user1", "like")
	require.NoError(t, err)

	_, err = svc.MarkRead(ctx, env.Session(t, "user1"), n.ID)
	assert.ErrorIs(t, err, svcErr.ErrNotificationGone)

	_, err = svc.MarkRead(ctx, env.Session(t, "user1"), "missing")
	assert.ErrorIs(t, err, svcErr.ErrNotificationGone)
}
