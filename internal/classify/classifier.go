// Package classify determines a judgment's procedural posture before
// extraction. Appeal status follows a court-level decision rule: provincial
// courts sit only at first instance and appellate courts only on review, so
// those levels are terminal. Superior courts do both, so superior-court and
// unclassified judgments fall back to a lexical scan of the header and
// opening paragraphs. A scan with no decisive signal leaves the status
// unresolved for human review rather than guessing.
package classify

import (
	"strings"

	"github.com/jurimetrics/sentenza/internal/markup"
	"github.com/jurimetrics/sentenza/internal/model"
)

// DefaultAppealMarkers indicate an appellate framing. Overridable via
// classifier config.
var DefaultAppealMarkers = []string{
	"appeal from",
	"appeal against",
	"appeals from",
	"appeals against",
	"appeal is allowed",
	"appeal is dismissed",
	"notice of appeal",
	"leave to appeal",
	"grounds of appeal",
	"the appellant",
	"the respondent",
	"court below",
	"sentencing judge",
	"standard of review",
}

// DefaultTrialMarkers indicate first-instance sentencing language
var DefaultTrialMarkers = []string{
	"pleaded guilty",
	"pleads guilty",
	"guilty plea",
	"sentencing hearing",
	"joint submission",
	"pre-sentence report",
	"gladue report",
	"i sentence",
	"i impose",
	"sentence you",
	"fit and proper sentence",
}

// sentencingMarkers gate whether the decision imposes a sentence at all.
// Substring matches, so "sentence" also covers "sentencing" and "sentenced".
var sentencingMarkers = []string{
	"sentence",
	"probation",
	"imprisonment",
	"intermittent",
	"incarceration",
	"fine of",
	"discharge",
	"custody",
	"peine",
	"emprisonnement",
}

const defaultScanParagraphs = 12

// Classifier labels judgments with sentencing and appeal status
type Classifier struct {
	scanParagraphs int
	appealMarkers  []string
	trialMarkers   []string
}

// NewClassifier creates a classifier. Empty marker lists fall back to the
// package defaults.
func NewClassifier(cfg model.ClassifierConfig) *Classifier {
	scan := cfg.ScanParagraphs
	if scan <= 0 {
		scan = defaultScanParagraphs
	}

	appeal := cfg.AppealMarkers
	if len(appeal) == 0 {
		appeal = DefaultAppealMarkers
	}

	trial := cfg.TrialMarkers
	if len(trial) == 0 {
		trial = DefaultTrialMarkers
	}

	return &Classifier{
		scanParagraphs: scan,
		appealMarkers:  lowerAll(appeal),
		trialMarkers:   lowerAll(trial),
	}
}

// Classify labels one document given the court level from its citation.
// The returned Appeal pointer is nil when the posture could not be resolved.
func (c *Classifier) Classify(doc *markup.Document, level model.CourtLevel) model.Classification {
	cls := model.Classification{}
	if doc == nil || doc.Empty {
		return cls
	}

	text := strings.ToLower(c.scanText(doc))

	cls.Sentencing = containsAny(text, sentencingMarkers)

	switch level {
	case model.LevelProvincial:
		cls.Appeal = boolPtr(false)
	case model.LevelAppeal, model.LevelSupreme:
		cls.Appeal = boolPtr(true)
	default:
		// Superior or unclassified: decide from the lexical scan
		appealHits := matchMarkers(text, c.appealMarkers)
		trialHits := matchMarkers(text, c.trialMarkers)
		cls.Markers = append(appealHits, trialHits...)

		switch {
		case len(appealHits) > len(trialHits):
			cls.Appeal = boolPtr(true)
		case len(trialHits) > len(appealHits):
			cls.Appeal = boolPtr(false)
		}
		// Tied counts, including zero on both sides, stay unresolved
	}

	return cls
}

// scanText assembles the text considered by the lexical scan: the header,
// its keywords and summary, and the opening paragraphs.
func (c *Classifier) scanText(doc *markup.Document) string {
	var sb strings.Builder
	sb.WriteString(doc.Header.Text)
	for _, kw := range doc.Header.Keywords {
		sb.WriteString("\n")
		sb.WriteString(kw)
	}
	if doc.Header.Summary != "" {
		sb.WriteString("\n")
		sb.WriteString(doc.Header.Summary)
	}
	for _, p := range doc.FirstParagraphs(c.scanParagraphs) {
		sb.WriteString("\n")
		sb.WriteString(p.Text)
	}
	return sb.String()
}

// matchMarkers returns the distinct markers present in text. Each marker
// counts once no matter how often it repeats.
func matchMarkers(text string, markers []string) []string {
	var hits []string
	for _, m := range markers {
		if strings.Contains(text, m) {
			hits = append(hits, m)
		}
	}
	return hits
}

func containsAny(text string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func boolPtr(b bool) *bool {
	return &b
}
