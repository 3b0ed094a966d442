// Package apptest wires an AppContext for service tests: an in-memory SQLite
// store seeded with the sample data, a miniredis cache and a settable clock.
package apptest

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/takumayoshiokadotcom/kyonomi/internal/app"
	"github.com/takumayoshiokadotcom/kyonomi/internal/cache"
	"github.com/takumayoshiokadotcom/kyonomi/internal/clock"
	"github.com/takumayoshiokadotcom/kyonomi/internal/config"
	"github.com/takumayoshiokadotcom/kyonomi/internal/db"
	"github.com/takumayoshiokadotcom/kyonomi/internal/logger"
	"github.com/takumayoshiokadotcom/kyonomi/internal/repository"
	"github.com/takumayoshiokadotcom/kyonomi/internal/session"
)

// JST is the zone the sample data lives in.
var JST = time.FixedZone("JST", 9*60*60)

// Env is one isolated test environment.
type Env struct {
	App   *app.AppContext
	DB    *gorm.DB
	Redis *miniredis.Miniredis

	mu  sync.Mutex
	now time.Time
}

// New opens a fresh environment. The clock starts at 2025-08-29 20:00 JST,
// one day after the sample users last set their drinking status.
func New(t testing.TB) *Env {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	gdb, err := db.OpenLocal("file:" + name + "?mode=memory&cache=shared")
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.SeedTestData(gdb, bcrypt.MinCost))

	st, err := repository.NewStore(gdb)
	require.NoError(t, err)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()
	redisCache := cache.NewRedisCache(cfg)
	t.Cleanup(func() { redisCache.Close() })

	env := &Env{
		DB:    gdb,
		Redis: mr,
		now:   time.Date(2025, 8, 29, 20, 0, 0, 0, JST),
	}

	env.App = app.New(
		st,
		redisCache,
		session.NewRedisStore(redisCache, time.Hour),
		logger.Discard(),
		clock.Func(env.Now),
		bcrypt.MinCost,
	)
	return env
}

func (e *Env) Now() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.now
}

// Advance moves the clock forward by d.
func (e *Env) Advance(d time.Duration) {
	e.mu.Lock()
	e.now = e.now.Add(d)
	e.mu.Unlock()
}

// Today is the clock's current date.
func (e *Env) Today() string {
	return clock.Today(clock.Func(e.Now))
}

// User loads a stored user directly from the database.
func (e *Env) User(t testing.TB, id string) db.User {
	t.Helper()
	var u db.User
	require.NoError(t, e.DB.First(&u, "id = ?", id).Error)
	return u
}

// Session returns a saved session for the stored user id.
func (e *Env) Session(t testing.TB, id string) *session.Session {
	t.Helper()
	s := session.New(e.User(t, id), e.Now())
	require.NoError(t, e.App.Sessions.Save(t.Context(), s))
	return s
}
