package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jurimetrics/sentenza/internal/citation"
	"github.com/jurimetrics/sentenza/internal/model"
)

var metadataTimeout time.Duration

// metadataCmd represents the metadata command
var metadataCmd = &cobra.Command{
	Use:   "metadata <citation>",
	Short: "Parse a neutral citation without fetching the judgment",
	Long: `Metadata parses a neutral citation or compact case id and prints the
court, level, and jurisdiction it resolves to. With --resolve, the CanLII
API fills in the docket number, decision date, and citation graph.

Example:
  sentenza metadata "2023 SKQB 41"
  sentenza metadata "R. v. Sutherland, 2023 SKQB 41"
  sentenza metadata 2023skqb41 --resolve`,
	Args: cobra.MinimumNArgs(1),
	RunE: runMetadata,
}

func init() {
	rootCmd.AddCommand(metadataCmd)

	metadataCmd.Flags().BoolVar(&resolveMeta, "resolve", false, "enrich through the CanLII API (needs CANLII_API_KEY)")
	metadataCmd.Flags().DurationVar(&metadataTimeout, "timeout", 30*time.Second, "timeout for API lookups")
}

func runMetadata(cmd *cobra.Command, args []string) error {
	raw := strings.Join(args, " ")

	meta, err := citation.Parse(raw)
	if err != nil {
		// Compact ids like "2023skqb41" arrive without spaces
		if expanded := citation.ExpandCompact(raw); expanded != "" {
			meta, err = citation.Parse(expanded)
		}
	}
	if err != nil {
		return fmt.Errorf("parse citation: %w", err)
	}

	if resolveMeta {
		cfg := loadConfig()
		cfg.Resolver.Enabled = true
		if err := resolveAPIKeys(cfg); err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), metadataTimeout)
		defer cancel()

		resolver := citation.NewResolver(cfg.Resolver, nil)
		if err := resolver.Enrich(ctx, &meta); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: citator lookup failed: %v\n", err)
		}

		rel, err := resolver.Relations(ctx, meta.CaseID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: citation graph lookup failed: %v\n", err)
		}

		printMetadata(meta)
		if !rel.Empty() {
			fmt.Println()
			fmt.Printf("Citing cases:      %d\n", len(rel.CitingCases))
			fmt.Printf("Cited cases:       %d\n", len(rel.CitedCases))
			fmt.Printf("Cited legislation: %d\n", len(rel.CitedLegislation))
		}
		return nil
	}

	printMetadata(meta)
	return nil
}

func printMetadata(meta model.CaseMetadata) {
	fmt.Printf("Citation:     %s\n", meta.Citation)
	fmt.Printf("Case ID:      %s\n", meta.CaseID)
	if meta.StyleOfCause != "" {
		fmt.Printf("Style:        %s\n", meta.StyleOfCause)
	}
	if meta.CourtName != "" {
		fmt.Printf("Court:        %s (%s)\n", meta.CourtName, meta.Court)
	} else {
		fmt.Printf("Court:        %s\n", meta.Court)
	}
	if meta.CourtLevel != "" {
		fmt.Printf("Level:        %s\n", meta.CourtLevel)
	}
	if meta.Jurisdiction != "" {
		fmt.Printf("Jurisdiction: %s\n", meta.Jurisdiction)
	}
	fmt.Printf("Year:         %d\n", meta.Year)
	if meta.Docket != "" {
		fmt.Printf("Docket:       %s\n", meta.Docket)
	}
	if meta.DecisionDate != "" {
		fmt.Printf("Decided:      %s\n", meta.DecisionDate)
	}
	if len(meta.Keywords) > 0 {
		fmt.Printf("Keywords:     %s\n", strings.Join(meta.Keywords, ", "))
	}
}
