package extract

import (
	"testing"

	"github.com/jurimetrics/sentenza/internal/model"
)

func TestNew_SelectsBackend(t *testing.T) {
	tests := []struct {
		name     string
		config   model.ExtractorConfig
		wantName string
		wantErr  bool
	}{
		{"default is rules", model.ExtractorConfig{}, "rules", false},
		{"explicit rules", model.ExtractorConfig{Provider: "rules"}, "rules", false},
		{"openai", model.ExtractorConfig{Provider: "openai", APIKey: "k"}, "openai", false},
		{"anthropic", model.ExtractorConfig{Provider: "anthropic", APIKey: "k"}, "anthropic", false},
		{"claude alias", model.ExtractorConfig{Provider: "claude", APIKey: "k"}, "anthropic", false},
		{"ollama", model.ExtractorConfig{Provider: "ollama", Model: "llama3.1"}, "ollama", false},
		{"case folded", model.ExtractorConfig{Provider: "OpenAI", APIKey: "k"}, "openai", false},
		{"openai without key", model.ExtractorConfig{Provider: "openai"}, "", true},
		{"ollama without model", model.ExtractorConfig{Provider: "ollama"}, "", true},
		{"unknown provider", model.ExtractorConfig{Provider: "magic"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := New(tt.config, nil)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Expected error, got backend %v", e)
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if e.Name() != tt.wantName {
				t.Errorf("Expected backend %q, got %q", tt.wantName, e.Name())
			}
		})
	}
}
