package citation

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/jurimetrics/sentenza/internal/model"
)

// neutralRe matches a Canadian neutral citation: year, court code, decision
// number. Bracketed reporter years ("[2024] 1 S.C.R. 123") do not match
// because the closing bracket follows the year.
var neutralRe = regexp.MustCompile(`\b([12]\d{3})\s+([A-Za-z]{2,8})\s+(\d+)\b`)

// Parse extracts case metadata from a citation line. It accepts a bare
// neutral citation ("2024 SKCA 79") or one preceded by a style of cause
// ("R. v. Sutherland, 2024 SKCA 79"). Court name, level and jurisdiction are
// filled from the registry when the court code is known; unknown codes still
// parse with an unclassified level. Returns ErrCitationUnsupported when no
// neutral citation is present.
func Parse(raw string) (model.CaseMetadata, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return model.CaseMetadata{}, fmt.Errorf("%w: empty citation", model.ErrCitationUnsupported)
	}

	loc := neutralRe.FindStringSubmatchIndex(trimmed)
	if loc == nil {
		return model.CaseMetadata{}, fmt.Errorf("%w: %q", model.ErrCitationUnsupported, raw)
	}

	yearStr := trimmed[loc[2]:loc[3]]
	courtStr := trimmed[loc[4]:loc[5]]
	numberStr := trimmed[loc[6]:loc[7]]

	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return model.CaseMetadata{}, fmt.Errorf("%w: %q", model.ErrCitationUnsupported, raw)
	}

	court := strings.ToLower(courtStr)

	meta := model.CaseMetadata{
		CaseID:   yearStr + court + numberStr,
		Citation: trimmed[loc[0]:loc[1]],
		Year:     year,
		Court:    court,
	}

	// Anything before the citation is the style of cause
	if style := strings.TrimRight(strings.TrimSpace(trimmed[:loc[0]]), ", "); style != "" {
		meta.StyleOfCause = style
	}

	if info, ok := LookupCourt(court); ok {
		meta.CourtName = info.Name
		meta.CourtLevel = info.Level
		meta.Jurisdiction = info.Jurisdiction
	}

	return meta, nil
}

// ExpandCompact rewrites a compact case id ("2024skca79") as the spaced
// neutral citation Parse accepts ("2024 skca 79"). Returns "" when the id
// does not follow the year-court-number shape.
func ExpandCompact(caseID string) string {
	court := CourtOfCaseID(caseID)
	if court == "" {
		return ""
	}
	s := strings.ToLower(strings.TrimSpace(caseID))
	return s[:4] + " " + court + " " + s[4+len(court):]
}

// CaseIDFromURL extracts the compact case id from a decision URL. CanLII
// ends decision paths with the case id ("…/2023/2023skqb41/2023skqb41.html").
// Returns "" when the last path segment does not look like a case id.
func CaseIDFromURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	path := strings.Trim(parsed.Path, "/")
	if path == "" {
		return ""
	}
	segments := strings.Split(path, "/")
	last := segments[len(segments)-1]
	if idx := strings.LastIndex(last, "."); idx > 0 {
		last = last[:idx]
	}
	if CourtOfCaseID(last) == "" {
		return ""
	}
	return strings.ToLower(last)
}

// CourtOfCaseID recovers the court code from a compact case id like
// "2024skca79". Returns "" when the id does not follow the
// year-court-number shape.
func CourtOfCaseID(caseID string) string {
	s := strings.ToLower(strings.TrimSpace(caseID))
	if len(s) < 6 {
		return ""
	}
	for i := 0; i < 4; i++ {
		if s[i] < '0' || s[i] > '9' {
			return ""
		}
	}
	s = s[4:]

	end := len(s)
	for end > 0 && s[end-1] >= '0' && s[end-1] <= '9' {
		end--
	}
	if end == 0 || end == len(s) {
		return ""
	}
	return s[:end]
}
