package model

import "fmt"

// CourtLevel places a court in the Canadian judicial hierarchy
type CourtLevel string

const (
	LevelUnknown    CourtLevel = ""           // Not yet classified
	LevelProvincial CourtLevel = "provincial" // Provincial and territorial courts
	LevelSuperior   CourtLevel = "superior"   // Superior trial courts, including the Federal Court
	LevelAppeal     CourtLevel = "appeal"     // Courts of appeal, including the FCA and CMAC
	LevelSupreme    CourtLevel = "supreme"    // Supreme Court of Canada
)

// CaseMetadata describes a decision as identified by its neutral citation
type CaseMetadata struct {
	CaseID       string     `json:"case_id"`                  // Compact lowercase id, e.g. "2024skca79"
	UID          string     `json:"uid,omitempty"`            // Composite case_docket_count_defendant identity
	StyleOfCause string     `json:"style_of_cause,omitempty"` // e.g. "R. v. Sutherland"
	Citation     string     `json:"citation,omitempty"`       // Neutral citation as printed, e.g. "2024 SKCA 79"
	Year         int        `json:"year,omitempty"`
	Court        string     `json:"court,omitempty"` // Court code, e.g. "skca"
	CourtName    string     `json:"court_name,omitempty"`
	CourtLevel   CourtLevel `json:"court_level,omitempty"`
	Jurisdiction string     `json:"jurisdiction,omitempty"` // Two-letter province code, or "ca" for federal courts
	Docket       string     `json:"docket,omitempty"`
	DecisionDate string     `json:"decision_date,omitempty"` // ISO date
	Language     string     `json:"language,omitempty"`      // "en" or "fr"
	Keywords     []string   `json:"keywords,omitempty"`
}

// CaseUID builds the composite identity for one defendant in one case.
// Defendant defaults to "a" so single-defendant cases stay stable.
func CaseUID(caseID, docket string, count int, defendant string) string {
	if defendant == "" {
		defendant = "a"
	}
	return fmt.Sprintf("%s_%s_%d_%s", caseID, docket, count, defendant)
}

// CaseRef identifies a decision related to the one under analysis
type CaseRef struct {
	Database string `json:"database_id,omitempty"` // Citator database code, e.g. "skca"
	CaseID   string `json:"case_id"`
	Title    string `json:"title,omitempty"`
	Citation string `json:"citation,omitempty"`
}

// LegislationRef identifies a statute or regulation cited by a decision
type LegislationRef struct {
	Database      string `json:"database_id,omitempty"`
	LegislationID string `json:"legislation_id"`
	Title         string `json:"title,omitempty"`
	Citation      string `json:"citation,omitempty"`
	Type          string `json:"type,omitempty"` // STATUTE or REGULATION
}

// CaseRelations aggregates the citator view of a decision. Lookups are
// best-effort: a failed or disabled citator leaves every slice empty.
type CaseRelations struct {
	CitingCases      []CaseRef        `json:"citing_cases,omitempty"`
	CitedCases       []CaseRef        `json:"cited_cases,omitempty"`
	CitedLegislation []LegislationRef `json:"cited_legislation,omitempty"`
}

// Empty reports whether the citator returned nothing at all
func (r *CaseRelations) Empty() bool {
	return r == nil || (len(r.CitingCases) == 0 && len(r.CitedCases) == 0 && len(r.CitedLegislation) == 0)
}
