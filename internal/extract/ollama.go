package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/jurimetrics/sentenza/internal/model"
)

const defaultOllamaBaseURL = "http://localhost:11434"

// OllamaExtractor produces records through a local Ollama instance. There
// is no sensible default model, so one must be configured explicitly.
type OllamaExtractor struct {
	client  *http.Client
	config  model.ExtractorConfig
	baseURL string
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	System  string        `json:"system,omitempty"`
	Format  string        `json:"format,omitempty"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options,omitempty"`
}

type ollamaResponse struct {
	Model           string `json:"model"`
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

// NewOllamaExtractor creates an Ollama extraction backend
func NewOllamaExtractor(config model.ExtractorConfig) (*OllamaExtractor, error) {
	if config.Model == "" {
		return nil, fmt.Errorf("ollama model is required (e.g. llama3.1, mistral)")
	}

	baseURL := strings.TrimSuffix(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}

	return &OllamaExtractor{
		client:  &http.Client{Timeout: extractTimeout(config)},
		config:  config,
		baseURL: baseURL,
	}, nil
}

// Name returns the backend name
func (e *OllamaExtractor) Name() string {
	return "ollama"
}

// Extract sends the judgment to the local model in JSON mode
func (e *OllamaExtractor) Extract(ctx context.Context, req Request) (*Response, error) {
	payload, err := json.Marshal(ollamaRequest{
		Model:  e.config.Model,
		Prompt: BuildPrompt(req),
		System: extractionSystemPrompt,
		Format: "json",
		Stream: false,
		Options: ollamaOptions{
			Temperature: e.config.Temperature,
			NumPredict:  e.config.MaxTokens,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal ollama request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create ollama request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: ollama request failed (is ollama running?): %v",
			model.ErrCapabilityUnavailable, err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read ollama response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: ollama API returned status %d: %s",
			model.ErrCapabilityUnavailable, httpResp.StatusCode, strings.TrimSpace(string(body)))
	}

	var resp ollamaResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode ollama response: %w", err)
	}

	records, err := parseRecords(resp.Response)
	if err != nil {
		return nil, fmt.Errorf("ollama response: %w", err)
	}

	return &Response{
		Records:    finishRecords(records, req, e.config.StrictCitations),
		Model:      resp.Model,
		TokensUsed: resp.PromptEvalCount + resp.EvalCount,
	}, nil
}

// IsAvailable checks whether the Ollama server answers
func (e *OllamaExtractor) IsAvailable(ctx context.Context) bool {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	httpResp, err := e.client.Do(httpReq)
	if err != nil {
		return false
	}
	defer httpResp.Body.Close()
	return httpResp.StatusCode == http.StatusOK
}
