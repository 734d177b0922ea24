package extract

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jurimetrics/sentenza/internal/model"
)

func TestAnthropicExtractor_Extract(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages" {
			t.Errorf("Expected path /messages, got %s", r.URL.Path)
		}
		if key := r.Header.Get("x-api-key"); key != "test-key" {
			t.Errorf("Expected x-api-key header, got %q", key)
		}
		if version := r.Header.Get("anthropic-version"); version != "2023-06-01" {
			t.Errorf("Expected anthropic-version 2023-06-01, got %q", version)
		}

		var req anthropicRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Expected decodable request body, got %v", err)
		}
		if req.Model != defaultAnthropicModel {
			t.Errorf("Expected default model, got %q", req.Model)
		}
		if req.System == "" {
			t.Errorf("Expected system prompt to be set")
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"model":   defaultAnthropicModel,
			"content": []map[string]any{{"type": "text", "text": wireRecords}},
			"usage":   map[string]any{"input_tokens": 80, "output_tokens": 20},
		})
	}))
	defer server.Close()

	e, err := NewAnthropicExtractor(model.ExtractorConfig{
		APIKey:          "test-key",
		BaseURL:         server.URL,
		StrictCitations: true,
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	resp, err := e.Extract(context.Background(), extractRequest("2024skca79"))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(resp.Records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(resp.Records))
	}
	if resp.Records[0].OffenderName != "Sutherland" {
		t.Errorf("Expected offender Sutherland, got %q", resp.Records[0].OffenderName)
	}
	if resp.TokensUsed != 100 {
		t.Errorf("Expected 100 tokens used, got %d", resp.TokensUsed)
	}
}

func TestAnthropicExtractor_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"type": "authentication_error", "message": "invalid x-api-key"},
		})
	}))
	defer server.Close()

	e, err := NewAnthropicExtractor(model.ExtractorConfig{APIKey: "bad-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	_, err = e.Extract(context.Background(), extractRequest("2024skca79"))
	if err == nil {
		t.Fatalf("Expected error for rejected key")
	}
	if !errors.Is(err, model.ErrCapabilityUnavailable) {
		t.Errorf("Expected capability unavailable error, got %v", err)
	}
	if !strings.Contains(err.Error(), "invalid x-api-key") {
		t.Errorf("Expected API error message in %v", err)
	}
}

func TestAnthropicExtractor_RequiresKey(t *testing.T) {
	if _, err := NewAnthropicExtractor(model.ExtractorConfig{}); err == nil {
		t.Fatalf("Expected error for missing API key")
	}
}

func TestAnthropicExtractor_IsAvailable(t *testing.T) {
	var probeModel string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req anthropicRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			probeModel = req.Model
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"model":   anthropicProbeModel,
			"content": []map[string]any{{"type": "text", "text": "ok"}},
			"usage":   map[string]any{"input_tokens": 1, "output_tokens": 1},
		})
	}))
	defer server.Close()

	e, err := NewAnthropicExtractor(model.ExtractorConfig{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !e.IsAvailable(context.Background()) {
		t.Errorf("Expected backend to be available")
	}
	if probeModel != anthropicProbeModel {
		t.Errorf("Expected availability probe on %s, got %q", anthropicProbeModel, probeModel)
	}
}
