package model

import (
	"fmt"
	"strings"
	"time"
)

// PenaltyType identifies the kind of penalty imposed for a single offence
type PenaltyType string

const (
	PenaltyImprisonment         PenaltyType = "imprisonment"          // Custodial jail term
	PenaltyIntermittent         PenaltyType = "intermittent"          // Jail served intermittently
	PenaltyConditionalSentence  PenaltyType = "conditional_sentence"  // Custody served in the community (CSO)
	PenaltyProbation            PenaltyType = "probation"             // Probation order
	PenaltyFine                 PenaltyType = "fine"                  // Monetary penalty
	PenaltyAbsoluteDischarge    PenaltyType = "absolute_discharge"    // Discharge without conditions
	PenaltyConditionalDischarge PenaltyType = "conditional_discharge" // Discharge with probation conditions
	PenaltyLongTermSupervision  PenaltyType = "ltso"                  // Long-term supervision order
	PenaltyIRCS                 PenaltyType = "ircs"                  // Intensive rehabilitative custody and supervision (youth)
	PenaltyParoleIneligibility  PenaltyType = "parole_ineligibility"  // Period before parole eligibility
	PenaltyRestitution          PenaltyType = "restitution"           // Restitution order
)

// QuantumUnit is the unit a sentence quantum is expressed in
type QuantumUnit string

const (
	UnitYears   QuantumUnit = "years"
	UnitMonths  QuantumUnit = "months"
	UnitDays    QuantumUnit = "days"
	UnitHours   QuantumUnit = "hours"   // Community service
	UnitDollars QuantumUnit = "dollars" // Fines and restitution
)

// SentenceMode states how a custodial term runs relative to other counts
type SentenceMode string

const (
	ModeConcurrent  SentenceMode = "concurrent"
	ModeConsecutive SentenceMode = "consecutive"
)

// SentenceComponent is one element of the sentence imposed for an offence.
// A single count often carries several components (jail plus probation,
// fine plus victim surcharge), each recorded separately.
type SentenceComponent struct {
	Penalty       PenaltyType  `json:"penalty"`
	Quantum       float64      `json:"quantum,omitempty"`       // Numeric quantum expressed in Unit
	Unit          QuantumUnit  `json:"quantum_type,omitempty"`  // years, months, days, hours, dollars
	Days          *int         `json:"quantum_days,omitempty"`  // Canonical duration in days; nil for money or indeterminate
	Mode          SentenceMode `json:"mode,omitempty"`          // concurrent or consecutive; empty when not stated
	Indeterminate bool         `json:"indeterminate,omitempty"` // Indeterminate detention (dangerous offender)
	Raw           string       `json:"raw,omitempty"`           // Verbatim quantum wording from the judgment
}

// IsCustodial reports whether the component describes time in custody
func (c SentenceComponent) IsCustodial() bool {
	switch c.Penalty {
	case PenaltyImprisonment, PenaltyIntermittent, PenaltyConditionalSentence, PenaltyIRCS:
		return true
	default:
		return false
	}
}

// Citation anchors an extracted field to a numbered paragraph of the judgment
type Citation struct {
	Paragraph int    `json:"paragraph"`   // Paragraph number as printed in the decision (1-based)
	Quote     string `json:"quoted_text"` // Verbatim excerpt from that paragraph
}

// CitationSet maps record field keys to their supporting citations
type CitationSet map[string]Citation

// Citation field keys
const (
	CiteOffenderName  = "offender_name"
	CiteOffenceCode   = "offence_code"
	CiteOffenceDate   = "offence_date"
	CiteAppealOutcome = "appeal_outcome"
	CiteLowerSentence = "lower_court_sentence"
)

// SentenceCiteKey returns the citation key for the i-th sentence component
func SentenceCiteKey(i int) string {
	return fmt.Sprintf("sentence_%d", i)
}

// AppealOutcome classifies the result of a sentence appeal
type AppealOutcome string

const (
	OutcomeUpheld     AppealOutcome = "upheld"
	OutcomeVaried     AppealOutcome = "varied"
	OutcomeOverturned AppealOutcome = "overturned"
)

// AppealInfo records the appellate posture of a decision.
// The sub-fields carry meaning only when IsAppeal points at true; a nil
// IsAppeal means the posture could not be resolved and the record is held
// for human review.
type AppealInfo struct {
	IsAppeal      *bool               `json:"is_appeal"`                              // nil = unresolved
	Dissent       bool                `json:"dissent,omitempty"`                      // A judge dissented on sentence
	Outcome       AppealOutcome       `json:"outcome,omitempty"`                      // upheld, varied, overturned
	LowerCourt    string              `json:"lower_court,omitempty"`                  // Case id of the decision under appeal
	LowerVaried   bool                `json:"lower_court_sentence_varied,omitempty"`  // The court below had itself varied the sentence
	HigherVaried  bool                `json:"higher_court_varied_sentence,omitempty"` // This court varied the sentence under appeal
	LowerSentence []SentenceComponent `json:"lower_court_sentence,omitempty"`         // Sentence imposed below
}

// Resolved reports whether the appellate posture was determined
func (a AppealInfo) Resolved() bool {
	return a.IsAppeal != nil
}

// RecordStatus tracks where a record sits in the review lifecycle
type RecordStatus string

const (
	StatusValidated     RecordStatus = "validated"      // All invariants hold
	StatusPendingReview RecordStatus = "pending_review" // Held for human review
	StatusFailedRetry   RecordStatus = "failed_retry"   // Transient failure, safe to reprocess
)

// Severity indicates how serious a validation finding is
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Violation describes a single validation finding against a record
type Violation struct {
	Code     string   `json:"code"`            // Stable identifier, e.g. "citation_mismatch"
	Field    string   `json:"field,omitempty"` // Record field the finding applies to
	Severity Severity `json:"severity"`
	Detail   string   `json:"detail,omitempty"`
}

// SentencingRecord is one offender-offence sentencing outcome extracted
// from a single decision. A decision sentencing two offenders on three
// counts each yields six records.
type SentencingRecord struct {
	CaseID       string `json:"case_id"`
	OffenderName string `json:"offender_name"`
	OffenceCode  string `json:"offence_code"`           // Canonical form, e.g. "cc_266"
	OffenceName  string `json:"offence_name,omitempty"` // Human-readable offence name
	Count        int    `json:"count,omitempty"`        // Distinguishes repeat charges under the same code

	OffenceDate  string `json:"offence_date,omitempty"`       // ISO date when the offence occurred
	OffenceStart string `json:"offence_start_date,omitempty"` // Range start for offences spanning a period
	OffenceEnd   string `json:"offence_end_date,omitempty"`   // Range end

	Sentence  []SentenceComponent `json:"sentence_imposed"`
	Citations CitationSet         `json:"citations"`
	Appeal    AppealInfo          `json:"appeal"`

	TimeStarted time.Time `json:"time_analysis_started"`
	TimeStopped time.Time `json:"time_analysis_stopped"`

	HumanVerified bool `json:"human_verified"`
	HumanModified bool `json:"human_modified"`

	Status     RecordStatus `json:"status,omitempty"`
	Violations []Violation  `json:"violations,omitempty"`
}

// Key returns the composite identity used for de-duplication and upserts
func (r *SentencingRecord) Key() string {
	return fmt.Sprintf("%s|%s|%s|%d", r.CaseID, r.OffenderName, r.OffenceCode, r.Count)
}

// SetOffenceDate records when the offence occurred. A compound
// "start&end" value describes an offence spanning a period and lands in
// the range fields, leaving the single date empty.
func (r *SentencingRecord) SetOffenceDate(date string) {
	start, end, ok := strings.Cut(date, "&")
	if !ok {
		r.OffenceDate = strings.TrimSpace(date)
		return
	}
	r.OffenceDate = ""
	r.OffenceStart = strings.TrimSpace(start)
	r.OffenceEnd = strings.TrimSpace(end)
}

// NeedsReview reports whether the record must be held for human review
func (r *SentencingRecord) NeedsReview() bool {
	return r.Status == StatusPendingReview || !r.Appeal.Resolved()
}

// CustodialDays sums the resolved custodial components in days.
// Returns nil when no custodial component carries a resolved duration.
func (r *SentencingRecord) CustodialDays() *int {
	var total int
	found := false
	for _, c := range r.Sentence {
		if !c.IsCustodial() || c.Days == nil {
			continue
		}
		total += *c.Days
		found = true
	}
	if !found {
		return nil
	}
	return &total
}
