// Package observability provides logging and formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/marek/jobshield/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintClassification outputs a human-readable summary of the page-type decision.
func (p *Printer) PrintClassification(c *types.Classification) {
	if c == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Page type:   %s\n", c.PageType))
	sb.WriteString(fmt.Sprintf("Score:       %.3f\n", c.Score))
	sb.WriteString(fmt.Sprintf("Confidence:  %.2f\n", c.Confidence))
	sb.WriteString(fmt.Sprintf("Analyze:     %t", c.ShouldAnalyze))
	if c.FromCache {
		sb.WriteString("  (cached)")
	}
	sb.WriteString("\n")

	if len(c.Breakdown) > 0 {
		sb.WriteString("\nFeature contributions:\n")
		for _, name := range []string{
			"content_density", "job_indicators", "navigation",
			"url", "semantic", "structure", "landing_page",
		} {
			if v, ok := c.Breakdown[name]; ok {
				sb.WriteString(fmt.Sprintf("  %-16s %+.3f\n", name, v))
			}
		}
	}

	p.printBox("PAGE CLASSIFICATION", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintResult outputs the final verdict for one analyzed page.
func (p *Printer) PrintResult(result *types.PageResult) {
	if result == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Verdict:     %s\n", result.Verdict))
	sb.WriteString(fmt.Sprintf("Fraud:       %t\n", result.IsFraud))
	sb.WriteString(fmt.Sprintf("Risk:        %s\n", result.RiskLevel))
	sb.WriteString(fmt.Sprintf("Confidence:  %.2f\n", result.Confidence))
	sb.WriteString(fmt.Sprintf("Method:      %s\n", result.Method))
	if result.PostingCount > 0 {
		sb.WriteString(fmt.Sprintf("Postings:    %d scored, %d flagged (%.0f%%)\n",
			result.PostingCount, result.FraudCount, result.FraudPercentage))
	}
	if result.NeedsManualReview {
		sb.WriteString("⚠ Needs manual review\n")
	}

	if len(result.Reasons) > 0 {
		sb.WriteString("\nReasons:\n")
		count := min(len(result.Reasons), maxItemsToShow)
		for i := 0; i < count; i++ {
			reason := result.Reasons[i]
			if len(reason) > 50 {
				reason = reason[:47] + "..."
			}
			sb.WriteString(fmt.Sprintf("  • %s\n", reason))
		}
		if len(result.Reasons) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(result.Reasons)-maxItemsToShow))
		}
	}

	p.printBox("ANALYSIS RESULT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintSteps outputs the per-stage trace of an analysis run.
func (p *Printer) PrintSteps(steps []types.StepRecord) {
	if len(steps) == 0 {
		return
	}

	var sb strings.Builder
	for i, step := range steps {
		marker := "✓"
		switch step.Status {
		case types.StepFailed, types.StepTimedOut:
			marker = "✗"
		case types.StepDegraded:
			marker = "~"
		case types.StepSkipped:
			marker = "-"
		}
		sb.WriteString(fmt.Sprintf("%s %-20s %-9s %4dms", marker, step.Stage, step.Status, step.ElapsedMs))
		if step.Detail != "" {
			detail := step.Detail
			if len(detail) > 24 {
				detail = detail[:21] + "..."
			}
			sb.WriteString("  " + detail)
		}
		if i < len(steps)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox("PIPELINE STAGES", sb.String())
}

// PrintDomainCheck outputs the blacklist check outcome.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintDomainCheck(domain string, fraudulent, fallbackUsed bool) {
	if !fraudulent && !fallbackUsed {
		fmt.Fprintf(p.out, "┌%s┐\n", strings.Repeat("─", boxWidth-2))
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, fmt.Sprintf("✅ DOMAIN CLEAR: %s", domain))
		fmt.Fprintf(p.out, "└%s┘\n", strings.Repeat("─", boxWidth-2))
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Domain:      %s\n", domain))
	sb.WriteString(fmt.Sprintf("Blacklisted: %t\n", fraudulent))
	if fallbackUsed {
		sb.WriteString("⚠ Blacklist unavailable, using fallback")
	}
	p.printBox("DOMAIN REPUTATION", strings.TrimSuffix(sb.String(), "\n"))
}
