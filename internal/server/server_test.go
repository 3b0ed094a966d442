package server_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/takumayoshiokadotcom/kyonomi/internal/app/apptest"
	"github.com/takumayoshiokadotcom/kyonomi/internal/command"
	"github.com/takumayoshiokadotcom/kyonomi/internal/db"
	"github.com/takumayoshiokadotcom/kyonomi/internal/server"
	"github.com/takumayoshiokadotcom/kyonomi/internal/service/account"
	"github.com/takumayoshiokadotcom/kyonomi/internal/service/matching"
)

// startServer serves the command service over an in-memory listener.
func startServer(t *testing.T) (*grpc.ClientConn, *apptest.Env) {
	t.Helper()
	env := apptest.New(t)

	lis := bufconn.Listen(1 << 20)
	srv := server.NewGRPCServer(env.App.Logger, server.NewCommandRegistrar(env.App))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn, env
}

func login(t *testing.T, conn *grpc.ClientConn, email string) *command.Client {
	t.Helper()
	c := command.NewClient(conn)
	var view account.SessionView
	require.NoError(t, c.Invoke(context.Background(), "account.login", map[string]string{
		"email":    email,
		"password": db.DefaultPassword,
	}, &view))
	require.NotEmpty(t, view.Token)
	c.Token = view.Token
	return c
}

func TestCommandsRequireSession(t *testing.T) {
	conn, _ := startServer(t)
	c := command.NewClient(conn)

	err := c.Invoke(context.Background(), "account.me", nil, nil)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	c.Token = "bogus"
	err = c.Invoke(context.Background(), "notifications.list", nil, nil)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestEveryCommandIsRegistered(t *testing.T) {
	_, env := startServer(t)
	r := server.NewCommandRegistry(env.App)
	assert.Equal(t, []string{
		"account.login",
		"account.logout",
		"account.me",
		"account.register",
		"account.search",
		"account.set_drinking",
		"account.update_profile",
		"matching.candidates",
		"matching.contact",
		"matching.send_like",
		"notifications.list",
		"notifications.mark_all_read",
		"notifications.mark_read",
		"notifications.unread_count",
		"social.followers",
		"social.following",
		"social.mutual",
		"social.pending",
		"social.request_follow",
		"social.respond",
		"social.unfollow",
	}, r.Names())
}

func TestRegisterDuplicateEmail(t *testing.T) {
	conn, _ := startServer(t)
	c := command.NewClient(conn)

	err := c.Invoke(context.Background(), "account.register", account.RegisterInput{
		Email:    "sato@example.com",
		Username: "dup",
		Password: "pw",
	}, nil)
	assert.Equal(t, codes.AlreadyExists, status.Code(err))
}

func TestStaleStatusResetOnSessionStart(t *testing.T) {
	ctx := context.Background()
	conn, env := startServer(t)

	// a session saved yesterday still holds the old flag
	sess := env.Session(t, "user3")
	c := command.NewClient(conn)
	c.Token = sess.Token

	var me db.Profile
	require.NoError(t, c.Invoke(ctx, "account.me", nil, &me))
	assert.False(t, me.IsDrinkingToday)
	assert.Nil(t, me.LastDrinkingDate)
	assert.False(t, env.User(t, "user3").IsDrinkingToday)
}

func TestStaleStatusSeenFromAnotherSession(t *testing.T) {
	ctx := context.Background()
	conn, env := startServer(t)

	first := login(t, conn, "tanaka@example.com")
	second := login(t, conn, "tanaka@example.com")

	var me db.Profile
	require.NoError(t, first.Invoke(ctx, "account.set_drinking", map[string]bool{"value": true}, &me))
	require.True(t, me.IsDrinkingToday)

	env.Advance(24 * time.Hour)
	require.NoError(t, second.Invoke(ctx, "account.me", nil, &me))
	assert.False(t, me.IsDrinkingToday)
	assert.Nil(t, me.LastDrinkingDate)

	stored := env.User(t, "user1")
	assert.False(t, stored.IsDrinkingToday)
	assert.Nil(t, stored.LastDrinkingDate)
}

func TestDrinkingMatchFlow(t *testing.T) {
	ctx := context.Background()
	conn, _ := startServer(t)

	tanaka := login(t, conn, "tanaka@example.com")
	sato := login(t, conn, "sato@example.com")

	var me db.Profile
	require.NoError(t, tanaka.Invoke(ctx, "account.set_drinking", map[string]bool{"value": true}, &me))
	assert.True(t, me.IsDrinkingToday)
	require.NoError(t, sato.Invoke(ctx, "account.set_drinking", nil, &me))
	assert.True(t, me.IsDrinkingToday, "nil value toggles the reset status on")

	var candidates []matching.Candidate
	require.NoError(t, tanaka.Invoke(ctx, "matching.candidates", nil, &candidates))
	require.Len(t, candidates, 1)
	assert.Equal(t, "user2", candidates[0].ID)

	var res matching.LikeResult
	require.NoError(t, tanaka.Invoke(ctx, "matching.send_like", map[string]string{"user_id": "user2"}, &res))
	assert.False(t, res.Matched)

	err := tanaka.Invoke(ctx, "matching.send_like", map[string]string{"user_id": "user2"}, nil)
	assert.Equal(t, codes.AlreadyExists, status.Code(err))

	require.NoError(t, sato.Invoke(ctx, "matching.send_like", map[string]string{"user_id": "user1"}, &res))
	assert.True(t, res.Matched)
	require.NotNil(t, res.Contact)
	assert.Equal(t, "tanaka@example.com", res.Contact.Email)

	var contact db.Contact
	require.NoError(t, tanaka.Invoke(ctx, "matching.contact", map[string]string{"user_id": "user2"}, &contact))
	assert.Equal(t, "080-9876-5432", contact.Phone)

	var unread map[string]int64
	require.NoError(t, tanaka.Invoke(ctx, "notifications.unread_count", nil, &unread))
	assert.Equal(t, int64(1), unread["unread"])

	var marked map[string]int
	require.NoError(t, tanaka.Invoke(ctx, "notifications.mark_all_read", nil, &marked))
	assert.Equal(t, 1, marked["marked"])

	require.NoError(t, tanaka.Invoke(ctx, "notifications.unread_count", nil, &unread))
	assert.Zero(t, unread["unread"])
}

func TestFollowFlowAndLogout(t *testing.T) {
	ctx := context.Background()
	conn, _ := startServer(t)

	suzuki := login(t, conn, "suzuki@example.com")
	yamada := login(t, conn, "yamada@example.com")

	var f db.Follow
	require.NoError(t, suzuki.Invoke(ctx, "social.request_follow", map[string]string{"user_id": "user3"}, &f))
	assert.Equal(t, db.FollowPending, f.Status)

	var pending []db.Follow
	require.NoError(t, yamada.Invoke(ctx, "social.pending", nil, &pending))
	require.Len(t, pending, 1)

	require.NoError(t, yamada.Invoke(ctx, "social.respond", map[string]string{
		"follow_id": pending[0].ID,
		"decision":  "accepted",
	}, &f))
	assert.Equal(t, db.FollowAccepted, f.Status)

	var following []db.PublicUser
	require.NoError(t, suzuki.Invoke(ctx, "social.following", nil, &following))
	require.Len(t, following, 1)
	assert.Equal(t, "user3", following[0].ID)

	err := suzuki.Invoke(ctx, "social.request_follow", map[string]string{"user_id": "user4"}, nil)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	require.NoError(t, suzuki.Invoke(ctx, "account.logout", nil, nil))
	err = suzuki.Invoke(ctx, "account.me", nil, nil)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}
