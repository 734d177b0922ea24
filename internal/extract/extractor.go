package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jurimetrics/sentenza/internal/citation"
	"github.com/jurimetrics/sentenza/internal/markup"
	"github.com/jurimetrics/sentenza/internal/model"
)

// Extractor defines the interface for record extraction backends
type Extractor interface {
	// Name returns the backend name
	Name() string

	// Extract produces draft sentencing records from a normalized judgment
	Extract(ctx context.Context, req Request) (*Response, error)

	// IsAvailable checks if the backend is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// Request carries one normalized judgment and its classification context.
// The field set is fixed so any backend is interchangeable.
type Request struct {
	// Metadata identifies the decision under analysis
	Metadata model.CaseMetadata

	// Header is the judgment front matter
	Header markup.Header

	// Paragraphs are the numbered body paragraphs. Citations returned by a
	// backend must quote these verbatim.
	Paragraphs []markup.Paragraph

	// Classification carries the appeal posture decided before extraction
	Classification model.Classification
}

// Response contains the extraction output
type Response struct {
	// Records are draft sentencing records. Quantum resolution and
	// validation happen downstream.
	Records []model.SentencingRecord

	// Model is the model that produced the records, if any
	Model string

	// TokensUsed tracks token consumption for capability backends
	TokensUsed int
}

// extractionSystemPrompt enforces the no-unsupported-assertion contract
const extractionSystemPrompt = `You are a meticulous extractor of Canadian criminal sentencing data. You only assert facts you can quote verbatim from the judgment text. Every extracted field carries a citation naming the paragraph number and the exact supporting quote. When the text does not state a fact, leave the field null. Never guess, never paraphrase inside quoted_text. Respond with a single JSON object and nothing else.`

// BuildPrompt constructs the extraction prompt for capability backends.
// Paragraphs keep their printed numbers so the model can cite them.
func BuildPrompt(req Request) string {
	var sb strings.Builder

	sb.WriteString(`Extract every criminal sentence imposed in this judgment as structured records, one record per offender-offence-count triple.

Return JSON shaped exactly like:
{"records": [{
  "case_id": "",
  "offender_name": "",
  "offence_code": "",
  "offence_name": "",
  "count": 1,
  "offence_date": "",
  "sentence_imposed": [{"penalty": "", "quantum": 0, "quantum_type": "", "mode": "", "raw": ""}],
  "citations": {"offender_name": {"paragraph": 0, "quoted_text": ""}},
  "appeal": {"is_appeal": null, "dissent": false, "outcome": "", "lower_court_sentence_varied": false}
}]}

Rules:
- offence_code uses statute_section form: "cc_266" for Criminal Code s. 266, "cdsa_5" for CDSA s. 5.
- penalty is one of: imprisonment, intermittent, conditional_sentence, probation, fine, absolute_discharge, conditional_discharge, ltso, ircs, parole_ineligibility, restitution.
- quantum_type is one of: years, months, days, hours, dollars. Copy the quantum as stated; put the verbatim wording in "raw".
- mode is "consecutive" or "concurrent" only when the judgment says so.
- citations keys: offender_name, offence_code, offence_date, appeal_outcome, and sentence_0, sentence_1, ... for each component.
- quoted_text must be copied verbatim from the cited paragraph.
- Dates are ISO (YYYY-MM-DD).
- Omit records for offences with no sentence imposed in this judgment.
`)

	sb.WriteString("\nAppeal posture: ")
	switch {
	case req.Classification.Appeal == nil:
		sb.WriteString("unresolved; determine is_appeal from the text or leave it null.\n")
	case *req.Classification.Appeal:
		sb.WriteString("this is an appeal; fill appeal outcome fields.\n")
	default:
		sb.WriteString("first instance; is_appeal is false.\n")
	}

	if req.Metadata.CaseID != "" {
		sb.WriteString(fmt.Sprintf("\nCASE: %s", req.Metadata.CaseID))
	}
	if req.Header.Citation != "" {
		sb.WriteString(fmt.Sprintf("\nCITATION: %s", req.Header.Citation))
	}

	if header := strings.TrimSpace(req.Header.Text); header != "" {
		sb.WriteString("\n\nHEADER:\n")
		sb.WriteString(truncate(header, 4000))
	}

	sb.WriteString("\n\nPARAGRAPHS:\n")
	for _, p := range req.Paragraphs {
		sb.WriteString(fmt.Sprintf("[%d] %s\n", p.Number, p.Text))
	}

	return sb.String()
}

// wireResponse is the JSON envelope capability backends must emit
type wireResponse struct {
	Records []model.SentencingRecord `json:"records"`
}

// parseRecords decodes the backend's JSON reply. Markdown fences and any
// prose around the object are tolerated.
func parseRecords(raw string) ([]model.SentencingRecord, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	if i := strings.Index(cleaned, "{"); i > 0 {
		cleaned = cleaned[i:]
	}
	if i := strings.LastIndex(cleaned, "}"); i >= 0 && i < len(cleaned)-1 {
		cleaned = cleaned[:i+1]
	}

	var wire wireResponse
	if err := json.Unmarshal([]byte(cleaned), &wire); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	return wire.Records, nil
}

// finishRecords fills identity defaults and enforces the citation contract
// on backend output
func finishRecords(records []model.SentencingRecord, req Request, strict bool) []model.SentencingRecord {
	for i := range records {
		rec := &records[i]
		if rec.CaseID == "" {
			rec.CaseID = req.Metadata.CaseID
		}
		if rec.Count <= 0 {
			rec.Count = 1
		}
		if rec.Appeal.IsAppeal == nil && req.Classification.Appeal != nil {
			rec.Appeal.IsAppeal = req.Classification.Appeal
		}
		// Offences spanning a period arrive as "start&end" in offence_date
		if strings.Contains(rec.OffenceDate, "&") {
			rec.SetOffenceDate(rec.OffenceDate)
		}
		// Backends sometimes emit the combined "2024skca79_upheld" form
		// in lower_court; keep the id and the outcome apart
		if strings.Contains(rec.Appeal.LowerCourt, "_") {
			ref := citation.ParseAppealRef(rec.Appeal.LowerCourt)
			rec.Appeal.LowerCourt = ref.CaseID
			if rec.Appeal.Outcome == "" {
				rec.Appeal.Outcome = ref.Outcome
			}
		}
	}
	if strict {
		enforceCitations(records, req.Paragraphs)
	}
	return records
}

// enforceCitations drops any citation whose quoted text is not a verbatim
// substring of the named paragraph, and nulls the field it claimed to
// support. The record survives with a violation attached; only the
// unsupported assertion is removed.
func enforceCitations(records []model.SentencingRecord, paragraphs []markup.Paragraph) {
	byNumber := make(map[int]string, len(paragraphs))
	for _, p := range paragraphs {
		byNumber[p.Number] = p.Text
	}

	for i := range records {
		rec := &records[i]
		for key, cite := range rec.Citations {
			text, ok := byNumber[cite.Paragraph]
			if ok && cite.Quote != "" && strings.Contains(text, cite.Quote) {
				continue
			}

			delete(rec.Citations, key)
			nullCitedField(rec, key)
			rec.Violations = append(rec.Violations, model.Violation{
				Code:     "citation_unsupported",
				Field:    key,
				Severity: model.SeverityWarning,
				Detail:   fmt.Sprintf("quoted text not found verbatim in paragraph %d", cite.Paragraph),
			})
		}
	}
}

// nullCitedField clears the record field a rejected citation claimed to
// support. Sentence components are kept: the quantum wording itself is
// reviewable, only its anchor was wrong.
func nullCitedField(rec *model.SentencingRecord, key string) {
	switch key {
	case model.CiteOffenderName:
		rec.OffenderName = ""
	case model.CiteOffenceCode:
		rec.OffenceCode = ""
		rec.OffenceName = ""
	case model.CiteOffenceDate:
		rec.OffenceDate = ""
		rec.OffenceStart = ""
		rec.OffenceEnd = ""
	case model.CiteAppealOutcome:
		rec.Appeal.Outcome = ""
	case model.CiteLowerSentence:
		rec.Appeal.LowerSentence = nil
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "\n[truncated]"
}
