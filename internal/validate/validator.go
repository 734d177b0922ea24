// Package validate enforces record invariants before persistence. Findings
// never discard a record: they attach as violations and, where serious,
// route the record to human review. After Finalize a record is immutable.
package validate

import (
	"fmt"
	"strings"
	"time"

	"github.com/jurimetrics/sentenza/internal/markup"
	"github.com/jurimetrics/sentenza/internal/model"
	"github.com/jurimetrics/sentenza/internal/vocab"
)

// Violation codes emitted by the validator
const (
	CodeMissingCaseID    = "missing_case_id"
	CodeMissingOffender  = "missing_offender"
	CodeMissingOffence   = "missing_offence_code"
	CodeBadCount         = "bad_count"
	CodeEmptySentence    = "empty_sentence"
	CodeMissingPenalty   = "missing_penalty"
	CodeNegativeQuantum  = "negative_quantum"
	CodeQuantumPending   = "quantum_unresolved"
	CodeUncitedField     = "uncited_field"
	CodeCitationBroken   = "citation_mismatch"
	CodeOrphanCitation   = "orphan_citation"
	CodeAppealUnresolved = "appeal_unresolved"
	CodeAppealLeakage    = "appeal_fields_without_appeal"
	CodeMissingOutcome   = "missing_appeal_outcome"
	CodeUnknownOutcome   = "unknown_appeal_outcome"
	CodeBadDate          = "bad_date_format"
	CodeUnknownOffence   = "unknown_offence_code"
)

// Validator checks sentencing records against the dataset invariants
type Validator struct {
	offences *vocab.Table
}

// New creates a validator backed by the default offence vocabulary
func New() *Validator {
	return &Validator{offences: vocab.Default()}
}

// Validate returns every finding against the record. Paragraphs enable the
// verbatim re-check of citations; pass nil when the judgment text is no
// longer at hand and only structural checks apply.
func (v *Validator) Validate(rec *model.SentencingRecord, paragraphs []markup.Paragraph) []model.Violation {
	var violations []model.Violation
	violations = append(violations, v.checkIdentity(rec)...)
	violations = append(violations, v.checkVocabulary(rec)...)
	violations = append(violations, v.checkSentence(rec)...)
	violations = append(violations, v.checkCitations(rec, paragraphs)...)
	violations = append(violations, v.checkAppeal(rec)...)
	violations = append(violations, v.checkDates(rec)...)
	return violations
}

// Finalize validates the record, attaches the findings and assigns its
// status. This is the last write the record sees.
func (v *Validator) Finalize(rec *model.SentencingRecord, paragraphs []markup.Paragraph) {
	rec.Violations = append(rec.Violations, v.Validate(rec, paragraphs)...)
	rec.Status = status(rec)
}

// status routes records with serious findings or an unresolved appellate
// posture to human review. Nothing is dropped.
func status(rec *model.SentencingRecord) model.RecordStatus {
	if rec.Appeal.IsAppeal == nil {
		return model.StatusPendingReview
	}
	for _, viol := range rec.Violations {
		if viol.Severity == model.SeverityCritical {
			return model.StatusPendingReview
		}
		if viol.Code == CodeQuantumPending {
			return model.StatusPendingReview
		}
	}
	return model.StatusValidated
}

func (v *Validator) checkIdentity(rec *model.SentencingRecord) []model.Violation {
	var out []model.Violation
	if rec.CaseID == "" {
		out = append(out, critical(CodeMissingCaseID, "case_id", "record has no case identifier"))
	}
	if rec.OffenderName == "" {
		out = append(out, critical(CodeMissingOffender, "offender_name", "record has no offender name"))
	}
	if rec.OffenceCode == "" {
		out = append(out, critical(CodeMissingOffence, "offence_code", "record has no offence code"))
	}
	if rec.Count < 1 {
		out = append(out, warning(CodeBadCount, "count", fmt.Sprintf("count must be positive, got %d", rec.Count)))
	}
	return out
}

// checkVocabulary confirms the offence code sits in the controlled
// vocabulary, in any accepted variant spelling. Unknown codes persist as
// written with the mismatch recorded.
func (v *Validator) checkVocabulary(rec *model.SentencingRecord) []model.Violation {
	if rec.OffenceCode == "" || v.offences == nil {
		return nil
	}
	if _, ok := v.offences.Lookup(rec.OffenceCode); ok {
		return nil
	}
	return []model.Violation{warning(CodeUnknownOffence, "offence_code",
		fmt.Sprintf("code %q is not in the offence vocabulary", rec.OffenceCode))}
}

func (v *Validator) checkSentence(rec *model.SentencingRecord) []model.Violation {
	if len(rec.Sentence) == 0 {
		return []model.Violation{critical(CodeEmptySentence, "sentence_imposed", "record carries no sentence components")}
	}

	var out []model.Violation
	for i, c := range rec.Sentence {
		field := model.SentenceCiteKey(i)
		if c.Penalty == "" {
			out = append(out, warning(CodeMissingPenalty, field, "component has no penalty type"))
		}
		if c.Quantum < 0 {
			out = append(out, critical(CodeNegativeQuantum, field, fmt.Sprintf("quantum %v is negative", c.Quantum)))
		}
		switch {
		case durationPenalty(c.Penalty):
			if !c.Indeterminate && c.Days == nil {
				detail := fmt.Sprintf("duration %q not resolved to days", c.Raw)
				if c.Raw == "" {
					detail = "no duration stated"
				}
				out = append(out, warning(CodeQuantumPending, field, detail))
			}
		case moneyPenalty(c.Penalty):
			if c.Quantum <= 0 || c.Unit != model.UnitDollars {
				out = append(out, warning(CodeQuantumPending, field, fmt.Sprintf("amount %q not resolved to dollars", c.Raw)))
			}
		}
	}
	return out
}

// checkCitations verifies that populated fields carry citations, that no
// citation dangles, and, when the paragraphs are available, that every
// quote is still a verbatim slice of its paragraph.
func (v *Validator) checkCitations(rec *model.SentencingRecord, paragraphs []markup.Paragraph) []model.Violation {
	var out []model.Violation

	expected := map[string]bool{}
	if rec.OffenderName != "" {
		expected[model.CiteOffenderName] = true
	}
	if rec.OffenceCode != "" {
		expected[model.CiteOffenceCode] = true
	}
	if rec.OffenceDate != "" || rec.OffenceStart != "" {
		expected[model.CiteOffenceDate] = true
	}
	if rec.Appeal.Outcome != "" {
		expected[model.CiteAppealOutcome] = true
	}
	for i := range rec.Sentence {
		expected[model.SentenceCiteKey(i)] = true
	}

	for field := range expected {
		if _, ok := rec.Citations[field]; !ok {
			out = append(out, warning(CodeUncitedField, field, "populated field has no supporting citation"))
		}
	}

	known := map[string]bool{
		model.CiteOffenderName:  true,
		model.CiteOffenceCode:   true,
		model.CiteOffenceDate:   true,
		model.CiteAppealOutcome: true,
		model.CiteLowerSentence: true,
	}
	for i := range rec.Sentence {
		known[model.SentenceCiteKey(i)] = true
	}

	var byNumber map[int]string
	if len(paragraphs) > 0 {
		byNumber = make(map[int]string, len(paragraphs))
		for _, p := range paragraphs {
			byNumber[p.Number] = p.Text
		}
	}

	for key, cite := range rec.Citations {
		if !known[key] {
			out = append(out, warning(CodeOrphanCitation, key, "citation does not correspond to any record field"))
			continue
		}
		if byNumber == nil {
			continue
		}
		text, ok := byNumber[cite.Paragraph]
		if !ok {
			out = append(out, critical(CodeCitationBroken, key, fmt.Sprintf("cited paragraph %d not in judgment", cite.Paragraph)))
			continue
		}
		if cite.Quote == "" || !strings.Contains(text, cite.Quote) {
			out = append(out, critical(CodeCitationBroken, key, fmt.Sprintf("quote not found verbatim in paragraph %d", cite.Paragraph)))
		}
	}

	return out
}

// checkAppeal enforces the tri-state posture contract: sub-fields carry
// meaning only on an actual appeal.
func (v *Validator) checkAppeal(rec *model.SentencingRecord) []model.Violation {
	var out []model.Violation
	a := rec.Appeal

	switch {
	case a.IsAppeal == nil:
		out = append(out, warning(CodeAppealUnresolved, "is_appeal", "appellate posture could not be determined"))
	case !*a.IsAppeal:
		if a.Dissent || a.Outcome != "" || a.LowerVaried || a.HigherVaried || a.LowerCourt != "" || len(a.LowerSentence) > 0 {
			out = append(out, warning(CodeAppealLeakage, "appeal", "appeal sub-fields set on a first-instance record"))
		}
	default:
		if a.Outcome == "" {
			out = append(out, info(CodeMissingOutcome, "outcome", "appeal record without a stated outcome"))
		}
	}

	switch a.Outcome {
	case "", model.OutcomeUpheld, model.OutcomeVaried, model.OutcomeOverturned:
	default:
		out = append(out, warning(CodeUnknownOutcome, "outcome", fmt.Sprintf("outcome %q is not a recognized disposition", a.Outcome)))
	}

	return out
}

func (v *Validator) checkDates(rec *model.SentencingRecord) []model.Violation {
	var out []model.Violation
	for field, value := range map[string]string{
		"offence_date":       rec.OffenceDate,
		"offence_start_date": rec.OffenceStart,
		"offence_end_date":   rec.OffenceEnd,
	} {
		if value == "" {
			continue
		}
		if _, err := time.Parse("2006-01-02", value); err != nil {
			out = append(out, warning(CodeBadDate, field, fmt.Sprintf("%q is not an ISO date", value)))
		}
	}
	return out
}

// durationPenalty reports whether the penalty is measured in time
func durationPenalty(p model.PenaltyType) bool {
	switch p {
	case model.PenaltyImprisonment, model.PenaltyIntermittent, model.PenaltyConditionalSentence,
		model.PenaltyProbation, model.PenaltyLongTermSupervision, model.PenaltyIRCS,
		model.PenaltyParoleIneligibility:
		return true
	default:
		return false
	}
}

// moneyPenalty reports whether the penalty is measured in dollars
func moneyPenalty(p model.PenaltyType) bool {
	return p == model.PenaltyFine || p == model.PenaltyRestitution
}

func critical(code, field, detail string) model.Violation {
	return model.Violation{Code: code, Field: field, Severity: model.SeverityCritical, Detail: detail}
}

func warning(code, field, detail string) model.Violation {
	return model.Violation{Code: code, Field: field, Severity: model.SeverityWarning, Detail: detail}
}

func info(code, field, detail string) model.Violation {
	return model.Violation{Code: code, Field: field, Severity: model.SeverityInfo, Detail: detail}
}
