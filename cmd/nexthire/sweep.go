package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/nexthire/internal/scheduler"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run job maintenance once",
	Long:  `Expire jobs past their deadline and delete jobs whose company no longer exists.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		database, err := openDatabase(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		r, err := scheduler.Sweep(cmd.Context(), database, time.Now())
		fmt.Fprintf(cmd.OutOrStdout(), "expired=%d orphaned=%d\n", r.Expired, r.Orphaned)
		return err
	},
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}
