package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/marek/jobshield/internal/patterns"
)

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "List the builtin fraud and legitimacy pattern sets",
	RunE:  runPatterns,
}

var patternsJSON bool

func init() {
	patternsCmd.Flags().BoolVar(&patternsJSON, "json", false, "Emit the pattern sets as JSON")

	rootCmd.AddCommand(patternsCmd)
}

func runPatterns(_ *cobra.Command, _ []string) error {
	library, err := patterns.NewLibrary()
	if err != nil {
		return fmt.Errorf("failed to compile pattern library: %w", err)
	}

	rules := library.Rules()
	if patternsJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"fraud_sets": rules.FraudSets(),
			"legit_sets": rules.LegitSets(),
		})
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SET\tCATEGORY\tKEYWORDS\tREGEXES\tWEIGHT")
	for _, set := range rules.FraudSets() {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%+.2f\n",
			set.Name, set.Category, len(set.Keywords), len(set.Regexes), set.Weight)
	}
	for _, set := range rules.LegitSets() {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%+.2f\n",
			set.Name, set.Category, len(set.Keywords), len(set.Regexes), -set.Weight)
	}
	return w.Flush()
}
