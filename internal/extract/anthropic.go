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
	"github.com/jurimetrics/sentenza/internal/util"
)

const (
	defaultAnthropicBaseURL = "https://api.anthropic.com/v1"
	defaultAnthropicModel   = "claude-3-5-sonnet-20241022"
	anthropicProbeModel     = "claude-3-5-haiku-20241022"
	anthropicVersion        = "2023-06-01"
)

// AnthropicExtractor produces records through the Anthropic messages API
type AnthropicExtractor struct {
	client  *http.Client
	config  model.ExtractorConfig
	baseURL string
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	Temperature float64            `json:"temperature,omitempty"`
}

type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type anthropicResponse struct {
	Model   string             `json:"model"`
	Content []anthropicContent `json:"content"`
	Usage   anthropicUsage     `json:"usage"`
}

type anthropicError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewAnthropicExtractor creates an Anthropic extraction backend
func NewAnthropicExtractor(config model.ExtractorConfig) (*AnthropicExtractor, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}
	if config.Model == "" {
		config.Model = defaultAnthropicModel
	}

	baseURL := strings.TrimSuffix(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultAnthropicBaseURL
	}

	return &AnthropicExtractor{
		client: &http.Client{
			Timeout: extractTimeout(config),
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc(config.HTTPProxy, config.HTTPSProxy, config.NoProxy),
			},
		},
		config:  config,
		baseURL: baseURL,
	}, nil
}

// Name returns the backend name
func (e *AnthropicExtractor) Name() string {
	return "anthropic"
}

// Extract sends the judgment to the model and decodes the returned records
func (e *AnthropicExtractor) Extract(ctx context.Context, req Request) (*Response, error) {
	resp, err := e.send(ctx, anthropicRequest{
		Model:       e.config.Model,
		MaxTokens:   e.config.MaxTokens,
		System:      extractionSystemPrompt,
		Messages:    []anthropicMessage{{Role: "user", Content: BuildPrompt(req)}},
		Temperature: e.config.Temperature,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Content) == 0 {
		return nil, fmt.Errorf("%w: anthropic returned no content", model.ErrCapabilityUnavailable)
	}

	records, err := parseRecords(resp.Content[0].Text)
	if err != nil {
		return nil, fmt.Errorf("anthropic response: %w", err)
	}

	return &Response{
		Records:    finishRecords(records, req, e.config.StrictCitations),
		Model:      resp.Model,
		TokensUsed: resp.Usage.InputTokens + resp.Usage.OutputTokens,
	}, nil
}

// IsAvailable probes the API with a minimal request on the cheapest model
func (e *AnthropicExtractor) IsAvailable(ctx context.Context) bool {
	_, err := e.send(ctx, anthropicRequest{
		Model:     anthropicProbeModel,
		MaxTokens: 1,
		Messages:  []anthropicMessage{{Role: "user", Content: "Hi"}},
	})
	return err == nil
}

func (e *AnthropicExtractor) send(ctx context.Context, reqBody anthropicRequest) (*anthropicResponse, error) {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal anthropic request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/messages", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create anthropic request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", e.config.APIKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	httpResp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: anthropic request failed: %v", model.ErrCapabilityUnavailable, err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read anthropic response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		var apiErr anthropicError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			return nil, fmt.Errorf("%w: anthropic API error (%s): %s",
				model.ErrCapabilityUnavailable, apiErr.Error.Type, apiErr.Error.Message)
		}
		return nil, fmt.Errorf("%w: anthropic API returned status %d",
			model.ErrCapabilityUnavailable, httpResp.StatusCode)
	}

	var resp anthropicResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode anthropic response: %w", err)
	}
	return &resp, nil
}
