package model

import "time"

// Config holds all runtime configuration for the analysis pipeline
type Config struct {
	HTTP        HTTPConfig        `mapstructure:"http" yaml:"http"`
	Cache       CacheConfig       `mapstructure:"cache" yaml:"cache"`
	Resolver    ResolverConfig    `mapstructure:"resolver" yaml:"resolver"`
	Extractor   ExtractorConfig   `mapstructure:"extractor" yaml:"extractor"`
	Classifier  ClassifierConfig  `mapstructure:"classifier" yaml:"classifier"`
	Storage     StorageConfig     `mapstructure:"storage" yaml:"storage"`
	Concurrency ConcurrencyConfig `mapstructure:"concurrency" yaml:"concurrency"`
	Output      OutputConfig      `mapstructure:"output" yaml:"output"`
}

// HTTPConfig controls outbound HTTP behavior for judgment fetching
type HTTPConfig struct {
	Timeout       time.Duration `mapstructure:"timeout" yaml:"timeout"`
	UserAgent     string        `mapstructure:"user_agent" yaml:"user_agent"`
	MaxBodyBytes  int64         `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`
	InsecureTLS   bool          `mapstructure:"insecure_tls" yaml:"insecure_tls"`
	HTTPProxy     string        `mapstructure:"http_proxy" yaml:"http_proxy"`
	HTTPSProxy    string        `mapstructure:"https_proxy" yaml:"https_proxy"`
	NoProxy       string        `mapstructure:"no_proxy" yaml:"no_proxy"`
	RespectRobots bool          `mapstructure:"respect_robots" yaml:"respect_robots"`
	RatePerHost   float64       `mapstructure:"rate_per_host" yaml:"rate_per_host"` // Requests per second per host
}

// CacheConfig controls the fetch and citator caches
type CacheConfig struct {
	Enabled  bool          `mapstructure:"enabled" yaml:"enabled"`
	Dir      string        `mapstructure:"dir" yaml:"dir"` // Defaults to ~/.sentenza/cache
	TTL      time.Duration `mapstructure:"ttl" yaml:"ttl"`
	MaxItems int           `mapstructure:"max_items" yaml:"max_items"`
}

// ResolverConfig controls the CanLII citator lookups. The resolver is
// best-effort: it never blocks or fails an analysis.
type ResolverConfig struct {
	Enabled bool          `mapstructure:"enabled" yaml:"enabled"`
	BaseURL string        `mapstructure:"base_url" yaml:"base_url"`
	APIKey  string        `mapstructure:"api_key" yaml:"api_key"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Rate    float64       `mapstructure:"rate" yaml:"rate"` // Requests per second
}

// ExtractorConfig selects and tunes the record extraction backend
type ExtractorConfig struct {
	Provider        string  `mapstructure:"provider" yaml:"provider"` // rules, openai, anthropic, ollama
	Model           string  `mapstructure:"model" yaml:"model"`
	APIKey          string  `mapstructure:"api_key" yaml:"api_key"`
	BaseURL         string  `mapstructure:"base_url" yaml:"base_url"`
	Temperature     float64 `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens       int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	Timeout         int     `mapstructure:"timeout" yaml:"timeout"` // Seconds
	StrictCitations bool    `mapstructure:"strict_citations" yaml:"strict_citations"`
	HTTPProxy       string  `mapstructure:"http_proxy" yaml:"http_proxy"`
	HTTPSProxy      string  `mapstructure:"https_proxy" yaml:"https_proxy"`
	NoProxy         string  `mapstructure:"no_proxy" yaml:"no_proxy"`
}

// ClassifierConfig tunes the sentencing and appeal gates
type ClassifierConfig struct {
	ScanParagraphs int      `mapstructure:"scan_paragraphs" yaml:"scan_paragraphs"` // How many opening paragraphs to scan for posture markers
	AppealMarkers  []string `mapstructure:"appeal_markers" yaml:"appeal_markers"`   // Overrides the built-in appellate markers
	TrialMarkers   []string `mapstructure:"trial_markers" yaml:"trial_markers"`     // Overrides the built-in first-instance markers
}

// StorageConfig points at the Postgres sink. An empty DSN disables storage.
type StorageConfig struct {
	DSN         string `mapstructure:"dsn" yaml:"dsn"`
	Table       string `mapstructure:"table" yaml:"table"`
	AutoMigrate bool   `mapstructure:"auto_migrate" yaml:"auto_migrate"`
}

// ConcurrencyConfig bounds the worker pools
type ConcurrencyConfig struct {
	Workers         int `mapstructure:"workers" yaml:"workers"`                   // Batch analysis workers
	ResolverWorkers int `mapstructure:"resolver_workers" yaml:"resolver_workers"` // Concurrent citator lookups
}

// OutputConfig controls artifact rendering
type OutputConfig struct {
	Verbose bool   `mapstructure:"verbose" yaml:"verbose"`
	Dir     string `mapstructure:"dir" yaml:"dir"`       // Artifact output directory for batch runs
	Pretty  bool   `mapstructure:"pretty" yaml:"pretty"` // Indent JSON artifacts
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Timeout:       30 * time.Second,
			UserAgent:     "sentenza/0.2 (+https://github.com/jurimetrics/sentenza)",
			MaxBodyBytes:  4_000_000,
			RespectRobots: true,
			RatePerHost:   1.0,
		},
		Cache: CacheConfig{
			Enabled:  true,
			TTL:      720 * time.Hour,
			MaxItems: 4096,
		},
		Resolver: ResolverConfig{
			Enabled: false,
			BaseURL: "https://api.canlii.org/v1",
			Timeout: 10 * time.Second,
			Rate:    1.0,
		},
		Extractor: ExtractorConfig{
			Provider:        "rules",
			Temperature:     0,
			MaxTokens:       4096,
			Timeout:         120,
			StrictCitations: true,
		},
		Classifier: ClassifierConfig{
			ScanParagraphs: 12,
		},
		Storage: StorageConfig{
			Table:       "sentences",
			AutoMigrate: true,
		},
		Concurrency: ConcurrencyConfig{
			Workers:         4,
			ResolverWorkers: 2,
		},
		Output: OutputConfig{
			Pretty: true,
		},
	}
}
