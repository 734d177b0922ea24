package extract

import (
	"strings"
	"testing"

	"github.com/jurimetrics/sentenza/internal/markup"
	"github.com/jurimetrics/sentenza/internal/model"
)

func TestBuildPrompt(t *testing.T) {
	req := Request{
		Metadata: model.CaseMetadata{CaseID: "2024skca79"},
		Header: markup.Header{
			Citation: "R. v. Sutherland, 2024 SKCA 79",
			Text:     "SASKATCHEWAN COURT OF APPEAL\nCitation: R. v. Sutherland, 2024 SKCA 79",
		},
		Paragraphs: numberedParagraphs(
			"Daniel Sutherland pleaded guilty to assault.",
			"I sentence him to two years' imprisonment.",
		),
		Classification: model.Classification{Sentencing: true, Appeal: appealPtr(true)},
	}

	prompt := BuildPrompt(req)

	for _, want := range []string{
		"CASE: 2024skca79",
		"CITATION: R. v. Sutherland, 2024 SKCA 79",
		"HEADER:",
		"[1] Daniel Sutherland pleaded guilty to assault.",
		"[2] I sentence him to two years' imprisonment.",
		"this is an appeal",
		`"records"`,
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("Expected prompt to contain %q", want)
		}
	}
}

func TestBuildPrompt_AppealPosture(t *testing.T) {
	base := Request{Paragraphs: numberedParagraphs("Some text.")}

	unresolved := base
	prompt := BuildPrompt(unresolved)
	if !strings.Contains(prompt, "unresolved") {
		t.Errorf("Expected unresolved posture wording")
	}

	trial := base
	trial.Classification.Appeal = appealPtr(false)
	if !strings.Contains(BuildPrompt(trial), "first instance") {
		t.Errorf("Expected first instance posture wording")
	}
}

func TestParseRecords(t *testing.T) {
	payload := `{"records":[{"case_id":"2024skca79","offender_name":"Sutherland"}]}`

	tests := []struct {
		name string
		raw  string
	}{
		{"plain", payload},
		{"fenced", "```json\n" + payload + "\n```"},
		{"prose wrapped", "Here are the extracted records:\n" + payload + "\nLet me know if you need anything else."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := parseRecords(tt.raw)
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if len(records) != 1 {
				t.Fatalf("Expected 1 record, got %d", len(records))
			}
			if records[0].OffenderName != "Sutherland" {
				t.Errorf("Expected offender Sutherland, got %q", records[0].OffenderName)
			}
		})
	}
}

func TestParseRecords_Invalid(t *testing.T) {
	if _, err := parseRecords("the model refused to answer"); err == nil {
		t.Fatalf("Expected error for non-JSON reply")
	}
	records, err := parseRecords(`{"records": null}`)
	if err != nil {
		t.Fatalf("Expected no error for null records, got %v", err)
	}
	if len(records) != 0 {
		t.Errorf("Expected no records, got %d", len(records))
	}
}

func TestFinishRecords_Defaults(t *testing.T) {
	req := Request{
		Metadata:       model.CaseMetadata{CaseID: "2020abqb12"},
		Classification: model.Classification{Appeal: appealPtr(true)},
	}
	records := []model.SentencingRecord{{OffenderName: "Smith"}}

	out := finishRecords(records, req, false)
	if out[0].CaseID != "2020abqb12" {
		t.Errorf("Expected case id from metadata, got %q", out[0].CaseID)
	}
	if out[0].Count != 1 {
		t.Errorf("Expected count defaulted to 1, got %d", out[0].Count)
	}
	if out[0].Appeal.IsAppeal == nil || !*out[0].Appeal.IsAppeal {
		t.Errorf("Expected appeal posture carried from classification")
	}
}

func TestFinishRecords_SplitsCombinedLowerCourt(t *testing.T) {
	req := Request{Metadata: model.CaseMetadata{CaseID: "2024skca79"}}
	records := []model.SentencingRecord{{
		OffenderName: "Smith",
		Appeal:       model.AppealInfo{IsAppeal: appealPtr(true), LowerCourt: "2023skqb41_upheld"},
	}}

	out := finishRecords(records, req, false)
	if out[0].Appeal.LowerCourt != "2023skqb41" {
		t.Errorf("Expected lower court id split out, got %q", out[0].Appeal.LowerCourt)
	}
	if out[0].Appeal.Outcome != model.OutcomeUpheld {
		t.Errorf("Expected outcome %q, got %q", model.OutcomeUpheld, out[0].Appeal.Outcome)
	}
}

func TestFinishRecords_SplitsOffenceDateRange(t *testing.T) {
	req := Request{Metadata: model.CaseMetadata{CaseID: "2024skca79"}}
	records := []model.SentencingRecord{{
		OffenderName: "Smith",
		OffenceDate:  "2009-01-01&2009-06-30",
	}}

	out := finishRecords(records, req, false)
	if out[0].OffenceDate != "" {
		t.Errorf("Expected compound date cleared, got %q", out[0].OffenceDate)
	}
	if out[0].OffenceStart != "2009-01-01" || out[0].OffenceEnd != "2009-06-30" {
		t.Errorf("Expected range 2009-01-01..2009-06-30, got %q..%q", out[0].OffenceStart, out[0].OffenceEnd)
	}
}

func TestEnforceCitations(t *testing.T) {
	paras := numberedParagraphs("Mr. Sutherland was sentenced to two years.")
	records := []model.SentencingRecord{{
		CaseID:       "2024skca79",
		OffenderName: "Sutherland",
		OffenceCode:  "cc_266",
		OffenceName:  "assault",
		Sentence: []model.SentenceComponent{
			{Penalty: model.PenaltyImprisonment, Raw: "two years"},
		},
		Citations: model.CitationSet{
			model.CiteOffenderName:   {Paragraph: 1, Quote: "Sutherland"},
			model.CiteOffenceCode:    {Paragraph: 1, Quote: "section 266"},
			model.SentenceCiteKey(0): {Paragraph: 2, Quote: "two years"},
		},
	}}

	enforceCitations(records, paras)
	rec := records[0]

	if _, ok := rec.Citations[model.CiteOffenderName]; !ok {
		t.Errorf("Expected verbatim citation to survive")
	}
	if rec.OffenderName != "Sutherland" {
		t.Errorf("Expected offender name kept, got %q", rec.OffenderName)
	}

	if _, ok := rec.Citations[model.CiteOffenceCode]; ok {
		t.Errorf("Expected fabricated quote to be dropped")
	}
	if rec.OffenceCode != "" || rec.OffenceName != "" {
		t.Errorf("Expected offence fields nulled, got %q %q", rec.OffenceCode, rec.OffenceName)
	}

	if _, ok := rec.Citations[model.SentenceCiteKey(0)]; ok {
		t.Errorf("Expected citation to a missing paragraph to be dropped")
	}
	if len(rec.Sentence) != 1 {
		t.Errorf("Expected the sentence component to survive its bad anchor")
	}

	if len(rec.Violations) != 2 {
		t.Fatalf("Expected 2 violations, got %d: %+v", len(rec.Violations), rec.Violations)
	}
	fields := map[string]bool{}
	for _, v := range rec.Violations {
		if v.Code != "citation_unsupported" {
			t.Errorf("Expected code citation_unsupported, got %q", v.Code)
		}
		if v.Severity != model.SeverityWarning {
			t.Errorf("Expected warning severity, got %q", v.Severity)
		}
		fields[v.Field] = true
	}
	if !fields[model.CiteOffenceCode] || !fields[model.SentenceCiteKey(0)] {
		t.Errorf("Expected violations for offence_code and sentence_0, got %v", fields)
	}
}

func TestFinishRecords_StrictOff(t *testing.T) {
	req := Request{
		Metadata:   model.CaseMetadata{CaseID: "2024skca79"},
		Paragraphs: numberedParagraphs("Nothing matching here."),
	}
	records := []model.SentencingRecord{{
		OffenderName: "Sutherland",
		Citations: model.CitationSet{
			model.CiteOffenderName: {Paragraph: 1, Quote: "not in the text"},
		},
	}}

	out := finishRecords(records, req, false)
	if _, ok := out[0].Citations[model.CiteOffenderName]; !ok {
		t.Errorf("Expected citations left alone when strict checking is off")
	}
	if len(out[0].Violations) != 0 {
		t.Errorf("Expected no violations when strict checking is off")
	}
}
