package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		value string
		want  slog.Level
	}{
		{"error", slog.LevelError},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"info", slog.LevelInfo},
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"  Warn  ", slog.LevelWarn},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := levelFromString(tt.value); got != tt.want {
			t.Errorf("levelFromString(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestNewWriter_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriter(&buf, "warn")

	logger.Info("quiet", "case", "2023skqb41")
	logger.Warn("loud", "case", "2023skqb41")

	out := buf.String()
	if strings.Contains(out, "quiet") {
		t.Errorf("Expected info line filtered, got %q", out)
	}
	if !strings.Contains(out, "loud") {
		t.Errorf("Expected warn line present, got %q", out)
	}
}
