package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jurimetrics/sentenza/internal/storage"
)

var reviewLimit int

// reviewCmd represents the review command
var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "List stored records held for human review",
	Long: `Review lists persisted sentencing records that failed validation and
are waiting for a human call. Each line shows the record identity and
the violations that held it back.

Example:
  sentenza review --db "postgres://localhost/sentenza"
  sentenza review --limit 50`,
	Args: cobra.NoArgs,
	RunE: runReview,
}

func init() {
	rootCmd.AddCommand(reviewCmd)

	reviewCmd.Flags().StringVar(&dbDSN, "db", "", "Postgres DSN (overrides config)")
	reviewCmd.Flags().IntVar(&reviewLimit, "limit", 20, "max records to list")
}

func runReview(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	if cmd.Flags().Changed("db") {
		cfg.Storage.DSN = dbDSN
	}
	if cfg.Storage.DSN == "" {
		return fmt.Errorf("no storage configured (set --db or storage.dsn)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()

	records, err := store.PendingReview(ctx, reviewLimit)
	if err != nil {
		return fmt.Errorf("list pending records: %w", err)
	}

	if len(records) == 0 {
		fmt.Println("No records pending review.")
		return nil
	}

	for _, rec := range records {
		fmt.Printf("%s\n", rec.Key())
		if rec.OffenceName != "" {
			fmt.Printf("    offence: %s\n", rec.OffenceName)
		}
		for _, v := range rec.Violations {
			fmt.Printf("    %s: %s (%s)\n", v.Code, v.Detail, v.Field)
		}
	}
	fmt.Printf("\n%d records pending review.\n", len(records))
	return nil
}
