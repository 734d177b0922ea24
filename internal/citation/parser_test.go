package citation

import (
	"errors"
	"testing"

	"github.com/jurimetrics/sentenza/internal/model"
)

func TestParse_WithStyleOfCause(t *testing.T) {
	meta, err := Parse("R. v. Sutherland, 2024 SKCA 79")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if meta.CaseID != "2024skca79" {
		t.Errorf("Expected case id 2024skca79, got %q", meta.CaseID)
	}
	if meta.StyleOfCause != "R. v. Sutherland" {
		t.Errorf("Expected style of cause R. v. Sutherland, got %q", meta.StyleOfCause)
	}
	if meta.Citation != "2024 SKCA 79" {
		t.Errorf("Expected citation 2024 SKCA 79, got %q", meta.Citation)
	}
	if meta.Year != 2024 {
		t.Errorf("Expected year 2024, got %d", meta.Year)
	}
	if meta.Court != "skca" {
		t.Errorf("Expected court skca, got %q", meta.Court)
	}
	if meta.CourtLevel != model.LevelAppeal {
		t.Errorf("Expected appeal level, got %q", meta.CourtLevel)
	}
	if meta.Jurisdiction != "sk" {
		t.Errorf("Expected jurisdiction sk, got %q", meta.Jurisdiction)
	}
	if meta.CourtName != "Court of Appeal for Saskatchewan" {
		t.Errorf("Unexpected court name %q", meta.CourtName)
	}
}

func TestParse_BareCitation(t *testing.T) {
	meta, err := Parse("2020 ABQB 123")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if meta.CaseID != "2020abqb123" {
		t.Errorf("Expected case id 2020abqb123, got %q", meta.CaseID)
	}
	if meta.StyleOfCause != "" {
		t.Errorf("Expected empty style of cause, got %q", meta.StyleOfCause)
	}
	if meta.CourtLevel != model.LevelSuperior {
		t.Errorf("Expected superior level, got %q", meta.CourtLevel)
	}
}

func TestParse_UnknownCourtStillParses(t *testing.T) {
	meta, err := Parse("Smith v. Jones, 2023 CanLII 4567")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if meta.CaseID != "2023canlii4567" {
		t.Errorf("Expected case id 2023canlii4567, got %q", meta.CaseID)
	}
	if meta.CourtLevel != model.LevelUnknown {
		t.Errorf("Expected unclassified level, got %q", meta.CourtLevel)
	}
	if meta.CourtName != "" {
		t.Errorf("Expected empty court name, got %q", meta.CourtName)
	}
}

func TestParse_NumericStyleOfCause(t *testing.T) {
	// A numbered-company style of cause must not be mistaken for the citation
	meta, err := Parse("R. v. 1234 Ontario Ltd, 2020 ONCA 5")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if meta.CaseID != "2020onca5" {
		t.Errorf("Expected case id 2020onca5, got %q", meta.CaseID)
	}
	if meta.StyleOfCause != "R. v. 1234 Ontario Ltd" {
		t.Errorf("Unexpected style of cause %q", meta.StyleOfCause)
	}
}

func TestParse_Unsupported(t *testing.T) {
	tests := []string{
		"",
		"   ",
		"R. v. Smith",
		"[2024] 1 S.C.R. 123",
		"R. v. Smith, [1999] 1 S.C.R. 330",
	}

	for _, raw := range tests {
		if _, err := Parse(raw); !errors.Is(err, model.ErrCitationUnsupported) {
			t.Errorf("Parse(%q): expected ErrCitationUnsupported, got %v", raw, err)
		}
	}
}

func TestLookupCourt_Levels(t *testing.T) {
	tests := []struct {
		code  string
		level model.CourtLevel
	}{
		{"scc", model.LevelSupreme},
		{"SKCA", model.LevelAppeal},
		{"fca", model.LevelAppeal},
		{"abqb", model.LevelSuperior},
		{"abkb", model.LevelSuperior},
		{"onsc", model.LevelSuperior},
		{"nucj", model.LevelSuperior},
		{"oncj", model.LevelProvincial},
		{"bcpc", model.LevelProvincial},
		{"abcj", model.LevelProvincial},
	}

	for _, tt := range tests {
		info, ok := LookupCourt(tt.code)
		if !ok {
			t.Errorf("LookupCourt(%q): expected registered court", tt.code)
			continue
		}
		if info.Level != tt.level {
			t.Errorf("LookupCourt(%q): expected level %q, got %q", tt.code, tt.level, info.Level)
		}
	}

	if _, ok := LookupCourt("xxzz"); ok {
		t.Error("Expected miss for unregistered court code")
	}
	if level := CourtLevel("xxzz"); level != model.LevelUnknown {
		t.Errorf("Expected unknown level, got %q", level)
	}
}

func TestCourtOfCaseID(t *testing.T) {
	tests := []struct {
		caseID string
		want   string
	}{
		{"2024skca79", "skca"},
		{"2020abqb123", "abqb"},
		{"1999scc1", "scc"},
		{"2023CanLII4567", "canlii"},
		{"skca79", ""},       // No leading year
		{"2024skca", ""},     // No decision number
		{"20245679", ""},     // No court code
		{"", ""},
	}

	for _, tt := range tests {
		if got := CourtOfCaseID(tt.caseID); got != tt.want {
			t.Errorf("CourtOfCaseID(%q): expected %q, got %q", tt.caseID, tt.want, got)
		}
	}
}

func TestExpandCompact(t *testing.T) {
	tests := []struct {
		caseID string
		want   string
	}{
		{"2023skqb41", "2023 skqb 41"},
		{"2024SKCA79", "2024 skca 79"},
		{"2012scc13", "2012 scc 13"},
		{"notacase", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := ExpandCompact(tt.caseID); got != tt.want {
			t.Errorf("ExpandCompact(%q): expected %q, got %q", tt.caseID, tt.want, got)
		}
	}
}

func TestCaseIDFromURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://www.canlii.org/en/sk/skqb/doc/2023/2023skqb41/2023skqb41.html", "2023skqb41"},
		{"https://www.canlii.org/en/sk/skca/doc/2024/2024skca79/2024SKCA79.html", "2024skca79"},
		{"https://www.canlii.org/en/ca/scc/doc/2012/2012scc13/2012scc13", "2012scc13"},
		{"https://www.canlii.org/en/sk/skqb/", ""},
		{"https://example.com/decisions/readme.html", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := CaseIDFromURL(tt.url); got != tt.want {
			t.Errorf("CaseIDFromURL(%q): expected %q, got %q", tt.url, tt.want, got)
		}
	}
}

func TestParseAppealRef(t *testing.T) {
	tests := []struct {
		raw     string
		caseID  string
		outcome model.AppealOutcome
	}{
		{"2024skca79_upheld", "2024skca79", model.OutcomeUpheld},
		{"2024skca79_dismissed", "2024skca79", model.OutcomeUpheld},
		{"2021onca456_varied", "2021onca456", model.OutcomeVaried},
		{"2019bcca12_overturned", "2019bcca12", model.OutcomeOverturned},
		{"2019bcca12_allowed", "2019bcca12", model.OutcomeOverturned},
		{"2024SKCA79_Upheld", "2024skca79", model.OutcomeUpheld},
		{"2024skca79", "2024skca79", ""},
		{"2024skca79_remitted", "2024skca79", model.AppealOutcome("remitted")},
		{"", "", ""},
	}

	for _, tt := range tests {
		ref := ParseAppealRef(tt.raw)
		if ref.CaseID != tt.caseID {
			t.Errorf("ParseAppealRef(%q): expected case id %q, got %q", tt.raw, tt.caseID, ref.CaseID)
		}
		if ref.Outcome != tt.outcome {
			t.Errorf("ParseAppealRef(%q): expected outcome %q, got %q", tt.raw, tt.outcome, ref.Outcome)
		}
	}
}
