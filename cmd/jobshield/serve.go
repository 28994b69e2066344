package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marek/jobshield/internal/config"
	"github.com/marek/jobshield/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  "Start an HTTP server exposing the analysis pipeline, classification pre-filter,\nfeedback intake, and community reports.",
	RunE:  runServe,
}

var servePort int

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort != 0 {
		cfg.Port = servePort
	}
	if cfg.Port == 0 {
		cfg.Port = config.DefaultPort
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	p, err := buildPipeline(ctx, cfg, cfg.UseBrowser)
	if err != nil {
		return err
	}

	srv, err := server.New(server.Deps{
		Analyzer:   p.analyzer,
		Classifier: p.classifier,
		Checker:    p.checker,
		Ledger:     p.ledger,
		Library:    p.library,
		Source:     p.source,
		Archive:    p.archive,
	}, server.Config{
		Port:   cfg.Port,
		APIKey: os.Getenv("JOBSHIELD_API_KEY"),
	})
	if err != nil {
		p.close()
		return fmt.Errorf("failed to create server: %w", err)
	}

	// Server shutdown closes the ledger and archive; the remaining closers
	// (Fact Store client) are released afterward.
	return srv.Start()
}
