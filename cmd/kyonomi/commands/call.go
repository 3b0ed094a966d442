package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/takumayoshiokadotcom/kyonomi/internal/command"
)

var (
	callAddr  string
	callToken string
)

var callCmd = &cobra.Command{
	Use:   "call COMMAND [ARGS_JSON]",
	Short: "Invoke a command on a running service",
	Long: `Send one command to kyonomi.v1.CommandService and print the result as JSON.

Examples:
  kyonomi call account.login '{"email":"tanaka@example.com","password":"password123"}'
  kyonomi call --token TOKEN matching.candidates
  kyonomi call --token TOKEN social.request_follow '{"user_id":"user4"}'`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var payload any
		if len(args) == 2 {
			if err := json.Unmarshal([]byte(args[1]), &payload); err != nil {
				return fmt.Errorf("args must be JSON: %w", err)
			}
		}

		addr := callAddr
		if addr == "" {
			addr = cfg.GRPC.Host + ":" + cfg.GRPC.Port
		}
		conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return err
		}
		defer conn.Close()

		client := command.NewClient(conn)
		client.Token = callToken

		var out any
		if err := client.Invoke(cmd.Context(), args[0], payload, &out); err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	callCmd.Flags().StringVar(&callAddr, "addr", "", "Service address (defaults to GRPC_HOST:GRPC_PORT)")
	callCmd.Flags().StringVar(&callToken, "token", os.Getenv("KYONOMI_TOKEN"), "Session token from account.login")
	rootCmd.AddCommand(callCmd)
}
