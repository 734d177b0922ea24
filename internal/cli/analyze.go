package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jurimetrics/sentenza/internal/logging"
	"github.com/jurimetrics/sentenza/internal/model"
	"github.com/jurimetrics/sentenza/internal/pipeline"
	"github.com/jurimetrics/sentenza/internal/storage"
)

var (
	outPath       string
	toStdout      bool
	citationHint  string
	timeout       time.Duration
	userAgent     string
	maxBytes      int64
	noCache       bool
	insecureTLS   bool
	noRobots      bool
	ratePerHost   float64
	extractorName string
	modelName     string
	resolveMeta   bool
	dbDSN         string
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze <url-or-file>",
	Short: "Analyze a single judgment into sentencing records",
	Long: `Analyze fetches one published judgment (or reads a local HTML file,
or stdin when the argument is -), classifies its posture, extracts
sentencing records with paragraph citations, validates them, and writes
a JSON artifact.

Example:
  sentenza analyze https://www.canlii.org/en/sk/skqb/doc/2023/2023skqb41/2023skqb41.html
  sentenza analyze decision.html --citation "R. v. Sutherland, 2023 SKQB 41"
  cat decision.html | sentenza analyze - --citation "R. v. Sutherland, 2023 SKQB 41"
  sentenza analyze https://example.org/case.html --extractor openai --model gpt-4o-mini
  sentenza analyze https://example.org/case.html --db "postgres://localhost/sentenza"`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	// Output flags
	analyzeCmd.Flags().StringVar(&outPath, "out", "", "output JSON path (default: <case-id>.json)")
	analyzeCmd.Flags().BoolVar(&toStdout, "stdout", false, "write the artifact to stdout instead of a file")

	// Input flags
	analyzeCmd.Flags().StringVar(&citationHint, "citation", "", "citation hint for local files without front matter")

	// HTTP flags
	analyzeCmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall analysis timeout")
	analyzeCmd.Flags().StringVar(&userAgent, "ua", "sentenza/0.2 (+https://github.com/jurimetrics/sentenza)", "HTTP User-Agent")
	analyzeCmd.Flags().Int64Var(&maxBytes, "max-bytes", 4_000_000, "max response bytes to read")
	analyzeCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable cache (force fresh fetch)")
	analyzeCmd.Flags().BoolVar(&insecureTLS, "insecure", false, "skip TLS certificate verification (use for self-signed certs)")
	analyzeCmd.Flags().BoolVar(&noRobots, "no-robots", false, "ignore robots.txt (use only on mirrors you operate)")
	analyzeCmd.Flags().Float64Var(&ratePerHost, "rate", 0, "max requests per second per host (0: config value)")

	// Extraction flags
	analyzeCmd.Flags().StringVar(&extractorName, "extractor", "rules", "extraction backend (rules, openai, anthropic, ollama)")
	analyzeCmd.Flags().StringVar(&modelName, "model", "", "model name for LLM backends")

	// Enrichment and persistence flags
	analyzeCmd.Flags().BoolVar(&resolveMeta, "resolve", false, "enrich metadata through the CanLII API (needs CANLII_API_KEY)")
	analyzeCmd.Flags().StringVar(&dbDSN, "db", "", "Postgres DSN for record persistence (overrides config)")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	target := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Analyzing: %s\n", target)
		fmt.Fprintf(os.Stderr, "Timeout: %v\n", timeout)
		fmt.Fprintf(os.Stderr, "Extractor: %s\n", cfg.Extractor.Provider)
		fmt.Fprintf(os.Stderr, "Cache: %v\n", cfg.Cache.Enabled)
		fmt.Fprintln(os.Stderr)
	}

	// Create pipeline
	p, err := pipeline.New(cfg, logging.New(logLevel()))
	if err != nil {
		return fmt.Errorf("create pipeline: %w", err)
	}

	// Attach storage if configured
	if cfg.Storage.DSN != "" {
		store, err := storage.Open(ctx, cfg.Storage)
		if err != nil {
			return fmt.Errorf("open storage: %w", err)
		}
		defer store.Close()
		p.AttachStore(store)
	}

	// Analyze
	if verbose {
		fmt.Fprintf(os.Stderr, "⚙️  Fetching judgment...\n")
	}

	var analysis *model.Analysis
	switch {
	case target == "-":
		data, rerr := io.ReadAll(os.Stdin)
		if rerr != nil {
			return fmt.Errorf("read stdin: %w", rerr)
		}
		analysis, err = p.Analyze(ctx, pipeline.Input{HTML: string(data), CitationHint: citationHint})
	case isURL(target):
		analysis, err = p.AnalyzeURL(ctx, target)
	default:
		analysis, err = p.AnalyzeFile(ctx, target, citationHint)
	}
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "✓ Parsed citation: %s\n", analysis.Metadata.CaseID)
		fmt.Fprintf(os.Stderr, "✓ Extracted %d sentencing records\n", len(analysis.Records))
		fmt.Fprintf(os.Stderr, "✓ Cited fields: %d (%d uncited)\n", analysis.Coverage.CitedFields, analysis.Coverage.UncitedFields)
		fmt.Fprintln(os.Stderr)
	}

	// Render output
	if toStdout {
		if err := p.Renderer().WriteJSON(os.Stdout, analysis); err != nil {
			return fmt.Errorf("render failed: %w", err)
		}
		p.Renderer().RenderSummary(os.Stderr, analysis)
		return nil
	}

	path := outPath
	if path == "" {
		path = pipeline.ArtifactName(analysis)
	}
	if err := p.Renderer().RenderJSON(analysis, path); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}

	p.Renderer().RenderSummary(os.Stderr, analysis)
	fmt.Fprintf(os.Stderr, "✓ Wrote %s\n", path)
	return nil
}

// buildConfig overlays command flags on the loaded configuration. Only
// flags the user actually set override file and environment values.
func buildConfig(cmd *cobra.Command) (*model.Config, error) {
	cfg := loadConfig()
	flags := cmd.Flags()

	if flags.Changed("timeout") {
		cfg.HTTP.Timeout = timeout
	}
	if flags.Changed("ua") {
		cfg.HTTP.UserAgent = userAgent
	}
	if flags.Changed("max-bytes") {
		cfg.HTTP.MaxBodyBytes = maxBytes
	}
	if flags.Changed("rate") {
		cfg.HTTP.RatePerHost = ratePerHost
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
	if insecureTLS {
		cfg.HTTP.InsecureTLS = true
	}
	if noRobots {
		cfg.HTTP.RespectRobots = false
	}
	if resolveMeta {
		cfg.Resolver.Enabled = true
	}

	if err := resolveAPIKeys(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolveAPIKeys fills credentials from the environment. Keys never come
// from flags so they cannot leak into shell history.
func resolveAPIKeys(cfg *model.Config) error {
	if cfg.Resolver.Enabled && cfg.Resolver.APIKey == "" {
		cfg.Resolver.APIKey = os.Getenv("CANLII_API_KEY")
		if cfg.Resolver.APIKey == "" {
			return fmt.Errorf("CANLII_API_KEY environment variable not set")
		}
	}

	switch strings.ToLower(cfg.Extractor.Provider) {
	case "openai":
		if cfg.Extractor.APIKey == "" {
			cfg.Extractor.APIKey = os.Getenv("OPENAI_API_KEY")
		}
		if cfg.Extractor.APIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
	case "anthropic", "claude":
		if cfg.Extractor.APIKey == "" {
			cfg.Extractor.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if cfg.Extractor.APIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
		}
	case "ollama":
		// Ollama doesn't need an API key
		baseURL := os.Getenv("OLLAMA_BASE_URL")
		if baseURL != "" {
			cfg.Extractor.BaseURL = baseURL
		}
	}
	return nil
}

// isURL reports whether the analysis target is remote
func isURL(target string) bool {
	return strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://")
}
