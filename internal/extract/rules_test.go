package extract

import (
	"context"
	"strings"
	"testing"

	"github.com/jurimetrics/sentenza/internal/markup"
	"github.com/jurimetrics/sentenza/internal/model"
)

func numberedParagraphs(texts ...string) []markup.Paragraph {
	out := make([]markup.Paragraph, len(texts))
	for i, text := range texts {
		out[i] = markup.Paragraph{Number: i + 1, Text: text}
	}
	return out
}

func appealPtr(v bool) *bool { return &v }

// verifyCitations checks the backend's core guarantee: every quote is a
// verbatim slice of the paragraph it cites.
func verifyCitations(t *testing.T, rec model.SentencingRecord, paras []markup.Paragraph) {
	t.Helper()
	byNumber := make(map[int]string, len(paras))
	for _, p := range paras {
		byNumber[p.Number] = p.Text
	}
	for key, cite := range rec.Citations {
		text, ok := byNumber[cite.Paragraph]
		if !ok {
			t.Errorf("Citation %q points at missing paragraph %d", key, cite.Paragraph)
			continue
		}
		if cite.Quote == "" || !strings.Contains(text, cite.Quote) {
			t.Errorf("Citation %q quote %q not found in paragraph %d", key, cite.Quote, cite.Paragraph)
		}
	}
}

func TestRuleExtractor_TrialJudgment(t *testing.T) {
	paras := numberedParagraphs(
		"Daniel Sutherland pleaded guilty to one count of assault contrary to section 266 of the Criminal Code.",
		"The offence occurred on or about March 15, 2023, outside a bar in Saskatoon.",
		"Having considered the Gladue factors, I sentence Mr. Sutherland to two years' imprisonment followed by three years' probation.",
		"In addition, he must pay a fine of $2,000 and restitution in the amount of $1,500.",
	)
	req := Request{
		Metadata:       model.CaseMetadata{CaseID: "2024skca79", StyleOfCause: "R. v. Sutherland"},
		Paragraphs:     paras,
		Classification: model.Classification{Sentencing: true, Appeal: appealPtr(false)},
	}

	resp, err := NewRuleExtractor(nil).Extract(context.Background(), req)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(resp.Records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(resp.Records))
	}

	rec := resp.Records[0]
	if rec.CaseID != "2024skca79" {
		t.Errorf("Expected case id 2024skca79, got %q", rec.CaseID)
	}
	if rec.OffenderName != "Sutherland" {
		t.Errorf("Expected offender Sutherland, got %q", rec.OffenderName)
	}
	if rec.OffenceCode != "cc_266" {
		t.Errorf("Expected offence cc_266, got %q", rec.OffenceCode)
	}
	if rec.OffenceName != "assault" {
		t.Errorf("Expected offence name assault, got %q", rec.OffenceName)
	}
	if rec.Count != 1 {
		t.Errorf("Expected count 1, got %d", rec.Count)
	}
	if rec.OffenceDate != "2023-03-15" {
		t.Errorf("Expected offence date 2023-03-15, got %q", rec.OffenceDate)
	}
	if rec.Appeal.IsAppeal == nil || *rec.Appeal.IsAppeal {
		t.Errorf("Expected is_appeal false, got %v", rec.Appeal.IsAppeal)
	}

	if len(rec.Sentence) != 4 {
		t.Fatalf("Expected 4 sentence components, got %d: %+v", len(rec.Sentence), rec.Sentence)
	}
	wantPenalties := []model.PenaltyType{
		model.PenaltyImprisonment,
		model.PenaltyProbation,
		model.PenaltyFine,
		model.PenaltyRestitution,
	}
	wantRaw := []string{"two years", "three years", "$2,000", "$1,500"}
	for i, c := range rec.Sentence {
		if c.Penalty != wantPenalties[i] {
			t.Errorf("Component %d: expected penalty %s, got %s", i, wantPenalties[i], c.Penalty)
		}
		if c.Raw != wantRaw[i] {
			t.Errorf("Component %d: expected raw %q, got %q", i, wantRaw[i], c.Raw)
		}
	}

	if cite, ok := rec.Citations[model.CiteOffenceCode]; !ok || cite.Paragraph != 1 {
		t.Errorf("Expected offence code cited to paragraph 1, got %+v", cite)
	}
	if cite, ok := rec.Citations[model.CiteOffenceDate]; !ok || cite.Quote != "on or about March 15, 2023" {
		t.Errorf("Expected offence date citation, got %+v", cite)
	}
	if cite, ok := rec.Citations[model.CiteOffenderName]; !ok || cite.Paragraph != 1 {
		t.Errorf("Expected offender cited to paragraph 1, got %+v", cite)
	}
	for i := range rec.Sentence {
		if _, ok := rec.Citations[model.SentenceCiteKey(i)]; !ok {
			t.Errorf("Expected citation for sentence component %d", i)
		}
	}
	verifyCitations(t, rec, paras)
}

func TestRuleExtractor_AppealVariesSentence(t *testing.T) {
	paras := numberedParagraphs(
		"Mr. Sutherland appeals the sentence of four years' imprisonment imposed following his conviction for robbery under section 344 of the Criminal Code.",
		"The appeal is allowed in part and the sentence is varied to three years' imprisonment.",
	)
	req := Request{
		Metadata:       model.CaseMetadata{CaseID: "2024skca79", StyleOfCause: "R. v. Sutherland"},
		Paragraphs:     paras,
		Classification: model.Classification{Sentencing: true, Appeal: appealPtr(true)},
	}

	resp, err := NewRuleExtractor(nil).Extract(context.Background(), req)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(resp.Records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(resp.Records))
	}

	rec := resp.Records[0]
	if rec.OffenceCode != "cc_344" {
		t.Errorf("Expected offence cc_344, got %q", rec.OffenceCode)
	}
	if rec.Appeal.IsAppeal == nil || !*rec.Appeal.IsAppeal {
		t.Errorf("Expected is_appeal true, got %v", rec.Appeal.IsAppeal)
	}
	if rec.Appeal.Outcome != model.OutcomeVaried {
		t.Errorf("Expected outcome varied, got %q", rec.Appeal.Outcome)
	}
	if !rec.Appeal.HigherVaried {
		t.Errorf("Expected higher court varied flag set")
	}
	if rec.Appeal.Dissent {
		t.Errorf("Expected no dissent")
	}
	if cite, ok := rec.Citations[model.CiteAppealOutcome]; !ok || cite.Quote != "appeal is allowed in part" {
		t.Errorf("Expected appeal outcome citation, got %+v", cite)
	}
	if len(rec.Sentence) != 2 {
		t.Fatalf("Expected 2 sentence components, got %d", len(rec.Sentence))
	}
	for i, c := range rec.Sentence {
		if c.Penalty != model.PenaltyImprisonment {
			t.Errorf("Component %d: expected imprisonment, got %s", i, c.Penalty)
		}
	}
	verifyCitations(t, rec, paras)
}

func TestRuleExtractor_DissentRecorded(t *testing.T) {
	paras := numberedParagraphs(
		"The majority would dismiss the appeal from the sentence for assault under section 266 of the Criminal Code.",
		"Smith J.A., dissenting, would have allowed the appeal.",
		"The appeal is dismissed.",
	)
	req := Request{
		Metadata:       model.CaseMetadata{CaseID: "2024skca80"},
		Paragraphs:     paras,
		Classification: model.Classification{Sentencing: true, Appeal: appealPtr(true)},
	}

	resp, err := NewRuleExtractor(nil).Extract(context.Background(), req)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(resp.Records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(resp.Records))
	}

	rec := resp.Records[0]
	if rec.Appeal.Outcome != model.OutcomeUpheld {
		t.Errorf("Expected outcome upheld, got %q", rec.Appeal.Outcome)
	}
	if rec.Appeal.HigherVaried {
		t.Errorf("Expected higher court varied flag unset on a dismissal")
	}
	if !rec.Appeal.Dissent {
		t.Errorf("Expected dissent recorded")
	}
}

func TestRuleExtractor_NoFindings(t *testing.T) {
	req := Request{
		Metadata:   model.CaseMetadata{CaseID: "2023onsc100"},
		Paragraphs: numberedParagraphs("The trial is adjourned to a later date."),
	}

	resp, err := NewRuleExtractor(nil).Extract(context.Background(), req)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(resp.Records) != 0 {
		t.Errorf("Expected no records, got %d", len(resp.Records))
	}
}

func TestRuleExtractor_SentenceWithoutStatute(t *testing.T) {
	req := Request{
		Metadata:       model.CaseMetadata{CaseID: "2023onsc101"},
		Paragraphs:     numberedParagraphs("I impose a sentence of six months' imprisonment."),
		Classification: model.Classification{Sentencing: true, Appeal: appealPtr(false)},
	}

	resp, err := NewRuleExtractor(nil).Extract(context.Background(), req)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(resp.Records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(resp.Records))
	}

	rec := resp.Records[0]
	if rec.OffenceCode != "" {
		t.Errorf("Expected blank offence code, got %q", rec.OffenceCode)
	}
	if rec.CaseID != "2023onsc101" {
		t.Errorf("Expected case id carried from metadata, got %q", rec.CaseID)
	}
	if len(rec.Sentence) != 1 || rec.Sentence[0].Penalty != model.PenaltyImprisonment {
		t.Fatalf("Expected one imprisonment component, got %+v", rec.Sentence)
	}
	if rec.Sentence[0].Raw != "six months" {
		t.Errorf("Expected raw quantum six months, got %q", rec.Sentence[0].Raw)
	}
}

func TestRuleExtractor_DefaultTermSkipped(t *testing.T) {
	req := Request{
		Metadata:       model.CaseMetadata{CaseID: "2023abpc5"},
		Paragraphs:     numberedParagraphs("He is fined $1,000 and in default 14 days in jail."),
		Classification: model.Classification{Sentencing: true, Appeal: appealPtr(false)},
	}

	resp, err := NewRuleExtractor(nil).Extract(context.Background(), req)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(resp.Records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(resp.Records))
	}

	rec := resp.Records[0]
	if len(rec.Sentence) != 1 {
		t.Fatalf("Expected the default term to be skipped, got %+v", rec.Sentence)
	}
	if rec.Sentence[0].Penalty != model.PenaltyFine || rec.Sentence[0].Raw != "$1,000" {
		t.Errorf("Expected a $1,000 fine component, got %+v", rec.Sentence[0])
	}
}

func TestRuleExtractor_OffenderFallbackAndIntermittent(t *testing.T) {
	paras := numberedParagraphs(
		"The offender, Mr. Smith, pleaded guilty to theft under s. 334 of the Criminal Code and received an intermittent sentence of 90 days.",
	)
	req := Request{
		Metadata:       model.CaseMetadata{CaseID: "2022bcpc33"},
		Paragraphs:     paras,
		Classification: model.Classification{Sentencing: true, Appeal: appealPtr(false)},
	}

	resp, err := NewRuleExtractor(nil).Extract(context.Background(), req)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(resp.Records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(resp.Records))
	}

	rec := resp.Records[0]
	if rec.OffenderName != "Smith" {
		t.Errorf("Expected offender Smith, got %q", rec.OffenderName)
	}
	if cite, ok := rec.Citations[model.CiteOffenderName]; !ok || cite.Quote != "The offender, Mr. Smith" {
		t.Errorf("Expected offender citation with the matched phrase, got %+v", cite)
	}
	if rec.OffenceCode != "cc_334" {
		t.Errorf("Expected offence cc_334, got %q", rec.OffenceCode)
	}
	if len(rec.Sentence) != 1 || rec.Sentence[0].Penalty != model.PenaltyIntermittent {
		t.Fatalf("Expected one intermittent component, got %+v", rec.Sentence)
	}
	verifyCitations(t, rec, paras)
}

func TestRuleExtractor_DischargeWithProbation(t *testing.T) {
	req := Request{
		Metadata:       model.CaseMetadata{CaseID: "2022oncj7"},
		Paragraphs:     numberedParagraphs("Mr. Chen is discharged conditionally with one year of probation under section 730 of the Criminal Code."),
		Classification: model.Classification{Sentencing: true, Appeal: appealPtr(false)},
	}

	resp, err := NewRuleExtractor(nil).Extract(context.Background(), req)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(resp.Records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(resp.Records))
	}

	rec := resp.Records[0]
	got := make(map[model.PenaltyType]string, len(rec.Sentence))
	for _, c := range rec.Sentence {
		got[c.Penalty] = c.Raw
	}
	if raw, ok := got[model.PenaltyProbation]; !ok || raw != "one year" {
		t.Errorf("Expected one year probation component, got %+v", rec.Sentence)
	}
	if _, ok := got[model.PenaltyConditionalDischarge]; !ok {
		t.Errorf("Expected conditional discharge component, got %+v", rec.Sentence)
	}
}

func TestRuleExtractor_MultipleOffences(t *testing.T) {
	paras := numberedParagraphs(
		"Mr. Roy pleaded guilty to robbery contrary to section 344 of the Criminal Code.",
		"For the robbery I impose three years' imprisonment.",
		"He also pleaded guilty to trafficking contrary to section 5 of the Controlled Drugs and Substances Act.",
		"For the trafficking count I impose two years' imprisonment concurrent.",
	)
	req := Request{
		Metadata:       model.CaseMetadata{CaseID: "2021qccq19", StyleOfCause: "R. c. Roy"},
		Paragraphs:     paras,
		Classification: model.Classification{Sentencing: true, Appeal: appealPtr(false)},
	}

	resp, err := NewRuleExtractor(nil).Extract(context.Background(), req)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(resp.Records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(resp.Records))
	}

	first, second := resp.Records[0], resp.Records[1]
	if first.OffenceCode != "cc_344" || second.OffenceCode != "cdsa_5" {
		t.Fatalf("Expected cc_344 then cdsa_5, got %q and %q", first.OffenceCode, second.OffenceCode)
	}
	if len(first.Sentence) != 1 || first.Sentence[0].Raw != "three years" {
		t.Errorf("Expected three years on the robbery, got %+v", first.Sentence)
	}
	if len(second.Sentence) != 1 || second.Sentence[0].Raw != "two years" {
		t.Errorf("Expected two years on the trafficking, got %+v", second.Sentence)
	}
	if second.Sentence[0].Mode != model.ModeConcurrent {
		t.Errorf("Expected concurrent mode, got %q", second.Sentence[0].Mode)
	}
	for _, rec := range resp.Records {
		verifyCitations(t, rec, paras)
	}
}

func TestClassifyDuration(t *testing.T) {
	tests := []struct {
		name    string
		before  string
		after   string
		penalty model.PenaltyType
		ok      bool
	}{
		{"imprisonment after", "i sentence him to ", "' imprisonment for the assault", model.PenaltyImprisonment, true},
		{"probation after", "followed by ", "' probation", model.PenaltyProbation, true},
		{"probation beats earlier custody word", "years' imprisonment followed by ", "' probation.", model.PenaltyProbation, true},
		{"conditional sentence before", "a conditional sentence of ", ", to be served at home", model.PenaltyConditionalSentence, true},
		{"intermittent sentence before", "an intermittent sentence of ", ".", model.PenaltyIntermittent, true},
		{"parole ineligibility", "without eligibility for parole for ", ".", model.PenaltyParoleIneligibility, true},
		{"default term skipped", "a fine and in default ", " in jail", "", false},
		{"driving prohibition skipped", "prohibited from driving for ", ".", "", false},
		{"bare duration skipped", "the events spanned ", " between the robberies", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			penalty, ok := classifyDuration(tt.before, tt.after)
			if ok != tt.ok {
				t.Fatalf("Expected ok=%v, got %v", tt.ok, ok)
			}
			if penalty != tt.penalty {
				t.Errorf("Expected penalty %q, got %q", tt.penalty, penalty)
			}
		})
	}
}

func TestRuleExtractor_Availability(t *testing.T) {
	e := NewRuleExtractor(nil)
	if e.Name() != "rules" {
		t.Errorf("Expected name rules, got %q", e.Name())
	}
	if !e.IsAvailable(context.Background()) {
		t.Errorf("Expected rule backend to always be available")
	}
}
