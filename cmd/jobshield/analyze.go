package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marek/jobshield/internal/analysis"
	"github.com/marek/jobshield/internal/observability"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a job-posting page for fraud indicators",
	Long: "Analyze a page by URL, saved HTML file, or plain posting text. The pipeline\n" +
		"checks the domain blacklist, classifies the page type, extracts postings, and\n" +
		"scores each one against the weighted pattern tables.",
	RunE: runAnalyze,
}

var (
	analyzeURL      string
	analyzeHTMLFile string
	analyzeTextFile string
	analyzeJSON     bool
	analyzeVerbose  bool
	analyzeBrowser  bool
	analyzeRefresh  bool
)

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeURL, "url", "u", "", "URL of the page to analyze")
	analyzeCmd.Flags().StringVar(&analyzeHTMLFile, "html-file", "", "Path to a saved HTML file")
	analyzeCmd.Flags().StringVarP(&analyzeTextFile, "text-file", "t", "", "Path to a plain-text posting")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Emit the full result as JSON")
	analyzeCmd.Flags().BoolVarP(&analyzeVerbose, "verbose", "v", false, "Print per-stage trace")
	analyzeCmd.Flags().BoolVar(&analyzeBrowser, "use-browser", false, "Allow the headless-browser fetch fallback")
	analyzeCmd.Flags().BoolVar(&analyzeRefresh, "force-refresh", false, "Bypass the result cache")

	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	if analyzeURL == "" && analyzeHTMLFile == "" && analyzeTextFile == "" {
		return fmt.Errorf("one of --url, --html-file, or --text-file is required")
	}

	req := analysis.Request{PageURL: analyzeURL, ForceRefresh: analyzeRefresh}
	if analyzeHTMLFile != "" {
		data, err := os.ReadFile(analyzeHTMLFile)
		if err != nil {
			return fmt.Errorf("failed to read HTML file: %w", err)
		}
		req.HTML = string(data)
	}
	if analyzeTextFile != "" {
		data, err := os.ReadFile(analyzeTextFile)
		if err != nil {
			return fmt.Errorf("failed to read text file: %w", err)
		}
		req.Postings = []string{string(data)}
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	p, err := buildPipeline(ctx, cfg, analyzeBrowser)
	if err != nil {
		return err
	}
	defer p.close()

	printer := observability.NewPrinter(os.Stdout)

	result, err := p.analyzer.Analyze(ctx, req)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	if analyzeJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	printer.PrintResult(result)
	if analyzeVerbose {
		printer.PrintSteps(result.AnalysisSteps)
	}
	return nil
}
