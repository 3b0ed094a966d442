package app

import (
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/takumayoshiokadotcom/kyonomi/internal/config"
	"github.com/takumayoshiokadotcom/kyonomi/internal/db"
	"github.com/takumayoshiokadotcom/kyonomi/internal/repository"
	"github.com/takumayoshiokadotcom/kyonomi/internal/store"
	"github.com/takumayoshiokadotcom/kyonomi/internal/store/remote"
)

// NewStore builds the record store client: the remote table server with the
// local mirror behind it. Without a TABLES_BASE_URL the mirror serves alone.
// The mirror is seeded with the sample users on first use.
func NewStore(cfg *config.Config, local *gorm.DB, logger *slog.Logger) (*store.Store, error) {
	seeded, err := db.EnsureDefaultUsers(local, cfg.Auth.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("seed local mirror: %w", err)
	}
	if seeded {
		logger.Info("seeded local mirror with sample users")
	}

	mirror, err := repository.NewStore(local)
	if err != nil {
		return nil, err
	}
	if cfg.Tables.BaseURL == "" {
		logger.Warn("no table server configured, serving from local mirror only")
		return mirror, nil
	}

	up := remote.NewStore(remote.NewClient(cfg.Tables.BaseURL, cfg.Tables.Timeout))
	return Pair(up, mirror, logger), nil
}

// Pair wraps every collection of up in a fallback onto mirror.
func Pair(up, mirror *store.Store, logger *slog.Logger) *store.Store {
	return &store.Store{
		Users:         store.NewFallback(up.Users, mirror.Users, logger),
		Follows:       store.NewFallback(up.Follows, mirror.Follows, logger),
		Likes:         store.NewFallback(up.Likes, mirror.Likes, logger),
		Notifications: store.NewFallback(up.Notifications, mirror.Notifications, logger),
	}
}
