package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/takumayoshiokadotcom/kyonomi/internal/db"
	"github.com/takumayoshiokadotcom/kyonomi/internal/logger"
)

var seedLocal bool

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Reset a database with the sample users and follows",
	Long: `Clear every collection and insert the four sample users
(password "password123") with a small follow graph.

Examples:
  kyonomi seed            # the table server database
  kyonomi seed --local    # the local mirror`,
	RunE: func(cmd *cobra.Command, args []string) error {
		open := func() (*gorm.DB, error) { return db.NewDB(cfg) }
		if seedLocal {
			open = func() (*gorm.DB, error) { return db.OpenLocal(cfg.Local.Path) }
		}
		database, err := open()
		if err != nil {
			return fmt.Errorf("failed to init db: %w", err)
		}
		if sqlDB, err := database.DB(); err == nil {
			defer sqlDB.Close()
		}

		if err := db.SeedTestData(database, cfg.Auth.BcryptCost); err != nil {
			return fmt.Errorf("failed to seed: %w", err)
		}
		logger.Info("Seeding completed.")
		return nil
	},
}

func init() {
	seedCmd.Flags().BoolVar(&seedLocal, "local", false, "Seed the local mirror instead of the table database")
	rootCmd.AddCommand(seedCmd)
}
