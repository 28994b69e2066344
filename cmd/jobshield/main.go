// Package main provides the entry point for the jobshield fraud analysis CLI and API server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/marek/jobshield/internal/observability"
)

var rootCmd = &cobra.Command{
	Use:   "jobshield",
	Short: "Job posting fraud analysis",
	Long: "Jobshield analyzes job-posting pages for fraud indicators using a domain\n" +
		"blacklist, weighted pattern scoring, and a page-type classifier, via CLI or REST API.",
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return observability.InitLogger(os.Getenv("JOBSHIELD_ENV"))
	},
}

var configPath string

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to JSON config file")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	err := rootCmd.Execute()
	observability.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
