package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/takumayoshiokadotcom/kyonomi/internal/config"
	"github.com/takumayoshiokadotcom/kyonomi/internal/logger"
)

var cfg *config.Config

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "kyonomi",
	Short: "Kyonomi - find friends who are drinking tonight",
	Long: `Kyonomi matches mutual followers who have switched on today's drinking
status and like each other on the same day.

Commands:
  serve   - run the gRPC command service
  tables  - run the /tables resource server
  seed    - reset the table database with the sample users
  call    - invoke a command against a running service`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = config.New()
		if cmd == callCmd {
			// stdout carries the command result
			cfg.Log.Output = "stderr"
		}
		// Init logger (global singleton)
		logger.InitFromConfig(cfg)
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
