package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/takumayoshiokadotcom/kyonomi/internal/db"
	"github.com/takumayoshiokadotcom/kyonomi/internal/logger"
	"github.com/takumayoshiokadotcom/kyonomi/internal/tables"
)

var tablesSeed bool

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "Run the /tables resource server",
	Long: `Serve the users, follows, likes and notifications collections over HTTP.

Examples:
  kyonomi tables                 # MySQL from DB_* / MYSQL_DSN
  DB_DRIVER=sqlite kyonomi tables --seed`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runTables(ctx)
	},
}

func init() {
	tablesCmd.Flags().BoolVar(&tablesSeed, "seed", false, "Reset the database with sample data before serving")
	rootCmd.AddCommand(tablesCmd)
}

func runTables(ctx context.Context) error {
	log := logger.Component("tables")

	database, err := db.NewDB(cfg)
	if err != nil {
		return err
	}
	if sqlDB, err := database.DB(); err == nil {
		defer sqlDB.Close()
	}
	switch {
	case tablesSeed:
		if err := db.SeedTestData(database, cfg.Auth.BcryptCost); err != nil {
			return fmt.Errorf("failed to seed: %w", err)
		}
	case cfg.App.ENV == "development":
		if _, err := db.EnsureDefaultUsers(database, cfg.Auth.BcryptCost); err != nil {
			log.Error("failed to seed", "err", err)
		}
	}

	if cfg.App.ENV != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	h, err := tables.NewHandler(database, logger.Component("http"))
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.HTTP.Host + ":" + cfg.HTTP.Port,
		Handler:           tables.NewRouter(h, cfg.HTTP.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("table server listening", "addr", srv.Addr, "driver", cfg.DB.Driver)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
