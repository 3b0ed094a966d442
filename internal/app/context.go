package app

import (
	"log/slog"

	"github.com/takumayoshiokadotcom/kyonomi/internal/cache"
	"github.com/takumayoshiokadotcom/kyonomi/internal/clock"
	"github.com/takumayoshiokadotcom/kyonomi/internal/session"
	"github.com/takumayoshiokadotcom/kyonomi/internal/store"
)

// AppContext holds shared dependencies (Store, Redis, Sessions, Logger, etc.)
type AppContext struct {
	Store      *store.Store
	RedisCache *cache.RedisCache
	Sessions   session.Store
	Logger     *slog.Logger
	Clock      clock.Clock
	BcryptCost int
}

// New creates a new AppContext
func New(st *store.Store, rdb *cache.RedisCache, sessions session.Store, logger *slog.Logger, clk clock.Clock, bcryptCost int) *AppContext {
	return &AppContext{
		Store:      st,
		RedisCache: rdb,
		Sessions:   sessions,
		Logger:     logger,
		Clock:      clk,
		BcryptCost: bcryptCost,
	}
}
