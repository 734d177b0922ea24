package markup

import (
	"strings"
	"testing"
)

func TestParseHeader_CitationLine(t *testing.T) {
	h := Header{Text: `# R. v. Sutherland, 2024 SKCA 79 (CanLII), <https://canlii.ca/t/k4xyz>`}
	parseHeader(&h)

	if h.Citation != "R. v. Sutherland, 2024 SKCA 79" {
		t.Errorf("Expected citation 'R. v. Sutherland, 2024 SKCA 79', got %q", h.Citation)
	}
}

func TestParseHeader_CitationWithoutCanLIIMark(t *testing.T) {
	h := Header{Text: `# R. v. Lacasse, 2015 SCC 64

Heard at Ottawa.`}
	parseHeader(&h)

	if h.Citation != "R. v. Lacasse, 2015 SCC 64" {
		t.Errorf("Expected fallback citation from heading, got %q", h.Citation)
	}
}

func TestParseHeader_Sections(t *testing.T) {
	h := Header{Text: `# R. v. Sutherland, 2024 SKCA 79 (CanLII)

**Legislation cited**

Criminal Code, RSC 1985, c C-46, s 344
Controlled Drugs and Substances Act, SC 1996, c 19, s 5

**Decisions cited**

R. v. Lacasse, 2015 SCC 64
R. v. Friesen, 2020 SCC 9`}
	parseHeader(&h)

	if len(h.Legislation) != 2 {
		t.Fatalf("Expected 2 legislation items, got %d: %v", len(h.Legislation), h.Legislation)
	}
	if !strings.Contains(h.Legislation[0], "Criminal Code") {
		t.Errorf("Expected Criminal Code first, got %q", h.Legislation[0])
	}

	if len(h.Decisions) != 2 {
		t.Fatalf("Expected 2 decisions, got %d: %v", len(h.Decisions), h.Decisions)
	}
	if !strings.Contains(h.Decisions[1], "Friesen") {
		t.Errorf("Expected Friesen second, got %q", h.Decisions[1])
	}
}

func TestParseHeader_SectionHeadingWithItemsBelow(t *testing.T) {
	// Heading and items can land in separate blocks
	h := Header{Text: `**Legislation cited**

Criminal Code, RSC 1985, c C-46, s 266`}
	parseHeader(&h)

	if len(h.Legislation) != 1 || !strings.Contains(h.Legislation[0], "s 266") {
		t.Errorf("Expected one legislation item from the following block, got %v", h.Legislation)
	}
}

func TestParseHeader_Keywords(t *testing.T) {
	h := Header{Text: `# R. v. Sutherland, 2024 SKCA 79 (CanLII)

Keywords: criminal law — sentencing — robbery — appeal`}
	parseHeader(&h)

	if len(h.Keywords) != 4 {
		t.Fatalf("Expected 4 keywords, got %d: %v", len(h.Keywords), h.Keywords)
	}
	if h.Keywords[0] != "criminal law" || h.Keywords[3] != "appeal" {
		t.Errorf("Expected keywords split on em dash, got %v", h.Keywords)
	}
}

func TestParseHeader_Summary(t *testing.T) {
	h := Header{Text: `# R. v. Example, 2023 ABKB 5 (CanLII)

Summary

The offender was convicted of fraud over $5,000 and sentenced to two years.`}
	parseHeader(&h)

	if !strings.Contains(h.Summary, "convicted of fraud") {
		t.Errorf("Expected summary text, got %q", h.Summary)
	}
}

func TestParseHeader_EmptyText(t *testing.T) {
	h := Header{}
	parseHeader(&h)

	if h.Citation != "" || h.Legislation != nil || h.Decisions != nil {
		t.Errorf("Expected untouched header for empty text, got %+v", h)
	}
}

func TestCleanHeaderLine(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"# R. v. Sutherland", "R. v. Sutherland"},
		{"**Legislation cited**", "Legislation cited"},
		{"* Criminal Code, s 344", "Criminal Code, s 344"},
		{"R. v. X, 2024 SKCA 1, <https://canlii.ca/t/abc>", "R. v. X, 2024 SKCA 1"},
		{"   ", ""},
	}

	for _, tt := range tests {
		if got := cleanHeaderLine(tt.input); got != tt.expected {
			t.Errorf("cleanHeaderLine(%q): expected %q, got %q", tt.input, tt.expected, got)
		}
	}
}
