package extract

import (
	"fmt"
	"strings"
	"time"

	"github.com/jurimetrics/sentenza/internal/model"
	"github.com/jurimetrics/sentenza/internal/vocab"
)

// New creates the extraction backend named in the configuration. The rule
// backend is the default and the only one with no external dependency.
func New(config model.ExtractorConfig, table *vocab.Table) (Extractor, error) {
	switch strings.ToLower(strings.TrimSpace(config.Provider)) {
	case "", "rules":
		return NewRuleExtractor(table), nil
	case "openai":
		return NewOpenAIExtractor(config)
	case "anthropic", "claude":
		return NewAnthropicExtractor(config)
	case "ollama":
		return NewOllamaExtractor(config)
	default:
		return nil, fmt.Errorf("unknown extraction provider: %s (supported: rules, openai, anthropic, ollama)", config.Provider)
	}
}

func extractTimeout(config model.ExtractorConfig) time.Duration {
	if config.Timeout <= 0 {
		return 120 * time.Second
	}
	return time.Duration(config.Timeout) * time.Second
}
