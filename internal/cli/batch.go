package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/jurimetrics/sentenza/internal/citation"
	"github.com/jurimetrics/sentenza/internal/logging"
	"github.com/jurimetrics/sentenza/internal/pipeline"
	"github.com/jurimetrics/sentenza/internal/storage"
	"github.com/jurimetrics/sentenza/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
	fetchTimeout time.Duration
	httpProxy    string
	httpsProxy   string
	domainRate   float64
	domainDelay  time.Duration
	forceRerun   bool
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Analyze multiple judgments from a URL file in parallel",
	Long: `Batch processes a list of judgment URLs concurrently:
- Read URLs from the input file (one per line, # comments allowed)
- Skip cases already persisted, unless --force is given
- Pace requests per court website so no host gets hammered
- Write one JSON artifact per judgment

Example:
  sentenza batch urls.txt
  sentenza batch urls.txt --concurrency 8 --output-dir ./artifacts
  sentenza batch urls.txt --rate 0.5 --delay 2s
  sentenza batch urls.txt --db "postgres://localhost/sentenza" --force`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	// Concurrency flags
	batchCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of concurrent workers")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./sentenza-artifacts", "output directory for artifacts")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")

	// Politeness flags
	batchCmd.Flags().Float64Var(&domainRate, "rate", 1.0, "max requests per second per court website")
	batchCmd.Flags().DurationVar(&domainDelay, "delay", 0, "extra delay before each fetch")

	// HTTP flags
	batchCmd.Flags().DurationVar(&fetchTimeout, "fetch-timeout", 30*time.Second, "timeout for individual fetches")
	batchCmd.Flags().StringVar(&userAgent, "ua", "sentenza/0.2 (+https://github.com/jurimetrics/sentenza)", "HTTP User-Agent")
	batchCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable cache (force fresh fetch)")
	batchCmd.Flags().StringVar(&httpProxy, "http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	batchCmd.Flags().StringVar(&httpsProxy, "https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")

	// Extraction flags
	batchCmd.Flags().StringVar(&extractorName, "extractor", "rules", "extraction backend (rules, openai, anthropic, ollama)")
	batchCmd.Flags().StringVar(&modelName, "model", "", "model name for LLM backends")

	// Enrichment and persistence flags
	batchCmd.Flags().BoolVar(&resolveMeta, "resolve", false, "enrich metadata through the CanLII API (needs CANLII_API_KEY)")
	batchCmd.Flags().StringVar(&dbDSN, "db", "", "Postgres DSN for record persistence (overrides config)")
	batchCmd.Flags().BoolVar(&forceRerun, "force", false, "reprocess cases already in storage")
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	// Build configuration
	cfg := loadConfig()
	flags := cmd.Flags()
	if flags.Changed("fetch-timeout") {
		cfg.HTTP.Timeout = fetchTimeout
	}
	if flags.Changed("ua") {
		cfg.HTTP.UserAgent = userAgent
	}
	if flags.Changed("http-proxy") {
		cfg.HTTP.HTTPProxy = httpProxy
	}
	if flags.Changed("https-proxy") {
		cfg.HTTP.HTTPSProxy = httpsProxy
	}
	if flags.Changed("extractor") {
		cfg.Extractor.Provider = extractorName
	}
	if flags.Changed("model") {
		cfg.Extractor.Model = modelName
	}
	if flags.Changed("db") {
		cfg.Storage.DSN = dbDSN
	}
	if noCache {
		cfg.Cache.Enabled = false
	}
	if resolveMeta {
		cfg.Resolver.Enabled = true
	}
	if flags.Changed("concurrency") {
		cfg.Concurrency.Workers = concurrency
	} else if cfg.Concurrency.Workers > 0 {
		concurrency = cfg.Concurrency.Workers
	}
	if err := resolveAPIKeys(cfg); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Sentenza Batch Analysis\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", concurrency)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(os.Stderr, "  Extractor:    %s\n", cfg.Extractor.Provider)
	fmt.Fprintf(os.Stderr, "\n")

	// Create output directory
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	// Create pipeline
	p, err := pipeline.New(cfg, logging.New(logLevel()))
	if err != nil {
		return fmt.Errorf("create pipeline: %w", err)
	}

	// Attach storage if configured
	var store *storage.Postgres
	if cfg.Storage.DSN != "" {
		store, err = storage.Open(ctx, cfg.Storage)
		if err != nil {
			return fmt.Errorf("open storage: %w", err)
		}
		defer store.Close()
		p.AttachStore(store)
	}

	// Read URLs
	fmt.Fprintf(os.Stderr, "⚙️  Reading URLs from file...\n")
	urls, err := worker.ReadURLsFromFile(file)
	if err != nil {
		return fmt.Errorf("read url file: %w", err)
	}
	fmt.Fprintf(os.Stderr, "✓ Loaded %d URLs\n", len(urls))

	// Skip cases the store already holds
	skipped := 0
	if store != nil && !forceRerun {
		urls, skipped, err = filterProcessed(ctx, store, urls)
		if err != nil {
			return fmt.Errorf("check processed cases: %w", err)
		}
		if skipped > 0 {
			fmt.Fprintf(os.Stderr, "✓ Skipping %d already-stored cases\n", skipped)
		}
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "⚙️  Analyzing %d judgments with %d workers...\n", len(urls), concurrency)
	fmt.Fprintf(os.Stderr, "\n")

	// Process URLs
	processor := worker.NewBatchProcessor(p, concurrency, domainRate, domainDelay)
	results := processor.ProcessURLs(ctx, urls)

	// Render results
	successCount := 0
	failureCount := 0
	for _, result := range results {
		if result.Error != nil {
			failureCount++
			mark := ""
			if result.Retryable() {
				mark = " (retryable)"
			}
			fmt.Fprintf(os.Stderr, "✗ %s: %v%s\n", result.URL, result.Error, mark)
			continue
		}

		path := filepath.Join(outputDir, pipeline.ArtifactName(result.Analysis))
		if err := p.Renderer().RenderJSON(result.Analysis, path); err != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write artifact: %v\n", result.URL, err)
			continue
		}

		successCount++
		fmt.Fprintf(os.Stderr, "✓ %s (%d records)\n", result.Analysis.Metadata.CaseID, len(result.Analysis.Records))
	}

	// Summary
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d URLs\n", len(urls)+skipped)
	fmt.Fprintf(os.Stderr, "  Analyzed:  %d\n", successCount)
	fmt.Fprintf(os.Stderr, "  Skipped:   %d\n", skipped)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failureCount)
	fmt.Fprintf(os.Stderr, "  Output:    %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "\n")

	return nil
}

// filterProcessed drops URLs whose case id is already persisted. URLs
// without a recognizable case id are kept and analyzed normally.
func filterProcessed(ctx context.Context, store *storage.Postgres, urls []string) ([]string, int, error) {
	ids := make([]string, 0, len(urls))
	for _, u := range urls {
		if id := citation.CaseIDFromURL(u); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return urls, 0, nil
	}

	processed, err := store.Processed(ctx, ids)
	if err != nil {
		return nil, 0, err
	}

	kept := urls[:0]
	skipped := 0
	for _, u := range urls {
		id := citation.CaseIDFromURL(u)
		if id != "" && processed[id] {
			skipped++
			continue
		}
		kept = append(kept, u)
	}
	return kept, skipped, nil
}
