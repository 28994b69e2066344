package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marek/jobshield/internal/observability"
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify a page as job posting or landing page",
	Long: "Run only the page-type pre-filter: compute structural, textual, and URL\n" +
		"features for a page and report whether it should be analyzed at all.",
	RunE: runClassify,
}

var (
	classifyURL      string
	classifyHTMLFile string
	classifyJSON     bool
)

func init() {
	classifyCmd.Flags().StringVarP(&classifyURL, "url", "u", "", "URL of the page to classify")
	classifyCmd.Flags().StringVar(&classifyHTMLFile, "html-file", "", "Path to a saved HTML file")
	classifyCmd.Flags().BoolVar(&classifyJSON, "json", false, "Emit the classification as JSON")

	rootCmd.AddCommand(classifyCmd)
}

func runClassify(cmd *cobra.Command, _ []string) error {
	if classifyURL == "" && classifyHTMLFile == "" {
		return fmt.Errorf("either --url or --html-file is required")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	p, err := buildPipeline(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer p.close()

	html := ""
	if classifyHTMLFile != "" {
		data, err := os.ReadFile(classifyHTMLFile)
		if err != nil {
			return fmt.Errorf("failed to read HTML file: %w", err)
		}
		html = string(data)
	} else {
		fetched, err := p.fetcher.Fetch(ctx, classifyURL)
		if err != nil {
			return fmt.Errorf("failed to fetch page: %w", err)
		}
		html = fetched.HTML
	}

	classification, err := p.classifier.ClassifyHTML(classifyURL, html)
	if err != nil {
		return fmt.Errorf("classification failed: %w", err)
	}

	if classifyJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(classification)
	}

	observability.NewPrinter(os.Stdout).PrintClassification(&classification)
	return nil
}
