package extract

import (
	"context"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/jurimetrics/sentenza/internal/model"
	"github.com/jurimetrics/sentenza/internal/util"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAIExtractor produces records through the OpenAI chat completions
// API. Any OpenAI-compatible endpoint works through the base URL override.
type OpenAIExtractor struct {
	client *openai.Client
	config model.ExtractorConfig
}

// NewOpenAIExtractor creates an OpenAI extraction backend
func NewOpenAIExtractor(config model.ExtractorConfig) (*OpenAIExtractor, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}
	if config.Model == "" {
		config.Model = defaultOpenAIModel
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	clientConfig.HTTPClient = &http.Client{
		Timeout: extractTimeout(config),
		Transport: &http.Transport{
			Proxy: util.NewProxyFunc(config.HTTPProxy, config.HTTPSProxy, config.NoProxy),
		},
	}

	return &OpenAIExtractor{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
	}, nil
}

// Name returns the backend name
func (e *OpenAIExtractor) Name() string {
	return "openai"
}

// Extract sends the judgment to the model and decodes the returned records
func (e *OpenAIExtractor) Extract(ctx context.Context, req Request) (*Response, error) {
	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: extractionSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: BuildPrompt(req)},
		},
		MaxTokens:   e.config.MaxTokens,
		Temperature: float32(e.config.Temperature),
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: openai request failed: %v", model.ErrCapabilityUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: openai returned no choices", model.ErrCapabilityUnavailable)
	}

	records, err := parseRecords(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, fmt.Errorf("openai response: %w", err)
	}

	return &Response{
		Records:    finishRecords(records, req, e.config.StrictCitations),
		Model:      resp.Model,
		TokensUsed: resp.Usage.TotalTokens,
	}, nil
}

// IsAvailable checks whether the API answers with the configured key
func (e *OpenAIExtractor) IsAvailable(ctx context.Context) bool {
	_, err := e.client.ListModels(ctx)
	return err == nil
}
