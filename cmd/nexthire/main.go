// Package main provides the entry point for the Next Hire job board API.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "nexthire",
	Short: "Next Hire job board API",
	Long:  "Next Hire serves the job board REST API: job postings, company registration, applications with resume scoring, and admin moderation.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
