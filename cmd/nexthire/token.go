package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/nexthire/internal/config"
	"github.com/jonathan/nexthire/internal/server"
)

var tokenCmd = &cobra.Command{
	Use:   "token <user-id>",
	Short: "Issue a session token for local testing",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.NewJWTConfig()
		if err != nil {
			return err
		}
		tokens, err := server.NewJWTService(*cfg)
		if err != nil {
			return err
		}
		token, err := tokens.GenerateToken(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
}
