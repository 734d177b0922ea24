package extract

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jurimetrics/sentenza/internal/model"
)

const wireRecords = `{"records":[{"offender_name":"Sutherland","offence_code":"cc_266","sentence_imposed":[{"penalty":"imprisonment","raw":"two years"}],"citations":{"offender_name":{"paragraph":1,"quoted_text":"Sutherland"}}}]}`

func extractRequest(caseID string) Request {
	return Request{
		Metadata:       model.CaseMetadata{CaseID: caseID},
		Paragraphs:     numberedParagraphs("Mr. Sutherland was sentenced to two years' imprisonment."),
		Classification: model.Classification{Sentencing: true, Appeal: appealPtr(false)},
	}
}

func TestOpenAIExtractor_Extract(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Expected path /chat/completions, got %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("Expected bearer token auth, got %q", auth)
		}

		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Expected decodable request body, got %v", err)
		}
		if req["model"] != "gpt-4o-mini" {
			t.Errorf("Expected default model gpt-4o-mini, got %v", req["model"])
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  "gpt-4o-mini",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": wireRecords},
				"finish_reason": "stop",
			}},
			"usage": map[string]any{"prompt_tokens": 100, "completion_tokens": 40, "total_tokens": 140},
		})
	}))
	defer server.Close()

	e, err := NewOpenAIExtractor(model.ExtractorConfig{
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

	rec := resp.Records[0]
	if rec.CaseID != "2024skca79" {
		t.Errorf("Expected case id defaulted from metadata, got %q", rec.CaseID)
	}
	if rec.Count != 1 {
		t.Errorf("Expected count defaulted to 1, got %d", rec.Count)
	}
	if rec.Appeal.IsAppeal == nil || *rec.Appeal.IsAppeal {
		t.Errorf("Expected is_appeal false from classification, got %v", rec.Appeal.IsAppeal)
	}
	if _, ok := rec.Citations[model.CiteOffenderName]; !ok {
		t.Errorf("Expected verbatim citation to survive strict checking")
	}
	if resp.TokensUsed != 140 {
		t.Errorf("Expected 140 tokens used, got %d", resp.TokensUsed)
	}
	if resp.Model != "gpt-4o-mini" {
		t.Errorf("Expected model gpt-4o-mini, got %q", resp.Model)
	}
}

func TestOpenAIExtractor_RequiresKey(t *testing.T) {
	if _, err := NewOpenAIExtractor(model.ExtractorConfig{}); err == nil {
		t.Fatalf("Expected error for missing API key")
	}
}

func TestOpenAIExtractor_IsAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			t.Errorf("Expected path /models, got %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   []map[string]any{{"id": "gpt-4o-mini", "object": "model"}},
		})
	}))

	e, err := NewOpenAIExtractor(model.ExtractorConfig{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !e.IsAvailable(context.Background()) {
		t.Errorf("Expected backend to be available")
	}

	server.Close()
	if e.IsAvailable(context.Background()) {
		t.Errorf("Expected backend to be unavailable after server shutdown")
	}
}
