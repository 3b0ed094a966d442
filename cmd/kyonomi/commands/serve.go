package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/takumayoshiokadotcom/kyonomi/internal/app"
	"github.com/takumayoshiokadotcom/kyonomi/internal/cache"
	"github.com/takumayoshiokadotcom/kyonomi/internal/clock"
	"github.com/takumayoshiokadotcom/kyonomi/internal/db"
	"github.com/takumayoshiokadotcom/kyonomi/internal/logger"
	"github.com/takumayoshiokadotcom/kyonomi/internal/server"
	"github.com/takumayoshiokadotcom/kyonomi/internal/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gRPC command service",
	Long: `Run kyonomi.v1.CommandService.

Records are read and written through the table server at TABLES_BASE_URL;
when it cannot be reached the local SQLite mirror at LOCAL_DB_PATH takes over.
The two are never reconciled.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runServe(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(ctx context.Context) error {
	log := logger.Component("serve")

	local, err := db.OpenLocal(cfg.Local.Path)
	if err != nil {
		return fmt.Errorf("failed to open local mirror: %w", err)
	}
	if sqlDB, err := local.DB(); err == nil {
		defer sqlDB.Close()
	}

	st, err := app.NewStore(cfg, local, logger.Component("store"))
	if err != nil {
		return err
	}

	// Init Redis
	redisCache := cache.NewRedisCache(cfg)
	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer redisCache.Close()

	appCtx := app.New(
		st,
		redisCache,
		session.NewRedisStore(redisCache, cfg.Session.TTL),
		logger.L(),
		clock.System{Loc: cfg.Location()},
		cfg.Auth.BcryptCost,
	)

	registrars := []server.Registrar{
		server.NewCommandRegistrar(appCtx),
	}

	log.Info("starting command service", "tables", cfg.Tables.BaseURL, "mirror", cfg.Local.Path)
	return server.StartGRPCServer(ctx, cfg, logger.Component("grpc"), registrars...)
}
