package extract

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/jurimetrics/sentenza/internal/markup"
	"github.com/jurimetrics/sentenza/internal/model"
	"github.com/jurimetrics/sentenza/internal/quantum"
	"github.com/jurimetrics/sentenza/internal/vocab"
)

// Rule patterns. Quotes handed to citations are always verbatim slices of
// the paragraph text, so every citation survives the strict check.
var (
	styleOfCauseRe = regexp.MustCompile(`^R\.?\s+(?:v|c)\.?\s+(.+)$`)

	offenderRe = regexp.MustCompile(`(?i:the (?:offender|accused|defendant)),?\s+(?:(?i:Mr|Ms|Mrs|Dr)\.?\s+)?([A-Z][A-Za-z'-]+(?:\s+[A-Z][A-Za-z'-]+){0,3})`)

	offenceRe = regexp.MustCompile(`(?i)\b(?:s\.?|ss\.?|section)\s*(\d+(?:\.\d+)?)\s*((?:\([0-9a-z.]+\)\s*)*)of the (Criminal Code|Controlled Drugs and Substances Act|CDSA|Youth Criminal Justice Act|YCJA|Firearms Act)\b`)

	offenceDateRe = regexp.MustCompile(`(?i)\bon or (?:about|around) ((January|February|March|April|May|June|July|August|September|October|November|December) \d{1,2},? \d{4})`)

	numberWord       = `(?:\d+(?:\.\d+)?|one|two|three|four|five|six|seven|eight|nine|ten|eleven|twelve)`
	unitWord         = `(?:years?|yrs?|months?|mos?|days?)`
	durationPhraseRe = regexp.MustCompile(`(?i)\b` + numberWord + `[\s-]*` + unitWord + `(?:\s*(?:and|,|&|plus)\s*` + numberWord + `[\s-]*` + unitWord + `)*(?:\s+less\s+(?:a|one)\s+day)?\b`)

	lifeTermRe = regexp.MustCompile(`(?i)\b(?:imprisonment for life|life imprisonment|indeterminate (?:sentence|period|detention)|detention for an indeterminate period)\b`)

	fineRe        = regexp.MustCompile(`(?i)\bfine[sd]?\s*(?:of|in the (?:amount|sum) of)?\s*(\$\s?[\d,]+(?:\.\d{1,2})?)`)
	restitutionRe = regexp.MustCompile(`(?i)\brestitution\s+(?:order\s+)?(?:of|in the (?:amount|sum) of)\s*(\$\s?[\d,]+(?:\.\d{1,2})?)`)
	dischargeRe   = regexp.MustCompile(`(?i)\b(?:absolute discharge|discharged? absolutely|conditional discharge|discharged? conditionally)\b`)

	dissentRe = regexp.MustCompile(`(?i)\bdissent(?:s|ed|ing)?\b`)
)

// outcomePatterns map disposition wording to appeal outcomes. Checked in
// order so "allowed in part" resolves to varied before the plain "allowed"
// rule sees it.
var outcomePatterns = []struct {
	re      *regexp.Regexp
	outcome model.AppealOutcome
}{
	{regexp.MustCompile(`(?i)\bappeal is allowed in part\b|\bvary the sentence\b|\bsentence is varied\b|\bsubstitute[sd]? a sentence\b`), model.OutcomeVaried},
	{regexp.MustCompile(`(?i)\bappeal (?:is |was )?dismissed\b|\bdismiss the appeal\b`), model.OutcomeUpheld},
	{regexp.MustCompile(`(?i)\bappeal (?:is |was )?allowed\b|\ballow the appeal\b|\bset aside the sentence\b|\bsentence is set aside\b`), model.OutcomeOverturned},
}

// actPrefixes map statute names to offence code prefixes
var actPrefixes = map[string]string{
	"criminal code":                       "cc",
	"controlled drugs and substances act": "cdsa",
	"cdsa":                                "cdsa",
	"youth criminal justice act":          "ycja",
	"ycja":                                "ycja",
	"firearms act":                        "firearms_act",
}

const (
	penaltyWindowBefore = 40
	penaltyWindowAfter  = 45
	modeWindowAfter     = 60
)

// penaltyKeywords bind a duration phrase to a penalty. Compound entries
// come first so the tie-break on equal end positions picks them over their
// embedded suffix ("conditional sentence" over "sentence").
var penaltyKeywords = []struct {
	kw      string
	penalty model.PenaltyType
}{
	{"conditional sentence", model.PenaltyConditionalSentence},
	{"intermittent sentence", model.PenaltyIntermittent},
	{"intermittent", model.PenaltyIntermittent},
	{"supervision", model.PenaltyLongTermSupervision},
	{"parole", model.PenaltyParoleIneligibility},
	{"probation", model.PenaltyProbation},
	{"imprison", model.PenaltyImprisonment},
	{"incarcerat", model.PenaltyImprisonment},
	{"custody", model.PenaltyImprisonment},
	{"jail", model.PenaltyImprisonment},
	{"penitentiary", model.PenaltyImprisonment},
	{"sentence", model.PenaltyImprisonment},
	{"impose", model.PenaltyImprisonment},
}

// RuleExtractor is the deterministic extraction backend. It needs no
// network and no key, so it is the default provider. Quantum wording is
// captured raw; conversion to days happens in the normalization stage.
type RuleExtractor struct {
	vocab *vocab.Table
}

// NewRuleExtractor creates the rule backend. A nil table uses the embedded
// offence vocabulary.
func NewRuleExtractor(table *vocab.Table) *RuleExtractor {
	if table == nil {
		table = vocab.Default()
	}
	return &RuleExtractor{vocab: table}
}

// Name returns the backend name
func (e *RuleExtractor) Name() string {
	return "rules"
}

// IsAvailable always reports true: the rule backend has no dependencies
func (e *RuleExtractor) IsAvailable(ctx context.Context) bool {
	return true
}

// offenceMention is one statute reference found in the body
type offenceMention struct {
	code      string
	name      string
	paragraph int
	quote     string
}

// sentenceMention is one sentence component found in the body, with the
// paragraph anchor for its citation
type sentenceMention struct {
	component model.SentenceComponent
	paragraph int
	quote     string
}

// Extract runs the rule engine over the judgment body
func (e *RuleExtractor) Extract(ctx context.Context, req Request) (*Response, error) {
	offender, offenderCite := e.findOffender(req)
	offences := e.findOffences(req.Paragraphs)
	sentences := e.findSentences(req.Paragraphs)
	date, dateCite := e.findOffenceDate(req.Paragraphs)
	appeal := e.findAppeal(req)
	outcomeCite, hasOutcomeCite := appealOutcomeCitation(req.Paragraphs, appeal.Outcome)

	// A judgment with neither a coded offence nor sentencing language
	// yields no records
	if len(offences) == 0 && len(sentences) == 0 {
		return &Response{}, nil
	}

	// Sentencing language with no statute reference still produces one
	// reviewable record; the validator flags the missing code
	if len(offences) == 0 {
		offences = []offenceMention{{}}
	}

	records := make([]model.SentencingRecord, 0, len(offences))
	for _, off := range offences {
		rec := model.SentencingRecord{
			CaseID:       req.Metadata.CaseID,
			OffenderName: offender,
			OffenceCode:  off.code,
			OffenceName:  off.name,
			Count:        1,
			Appeal:       appeal,
			Citations:    model.CitationSet{},
		}
		if offender != "" && offenderCite != nil {
			rec.Citations[model.CiteOffenderName] = *offenderCite
		}
		if off.quote != "" {
			rec.Citations[model.CiteOffenceCode] = model.Citation{Paragraph: off.paragraph, Quote: off.quote}
		}
		if hasOutcomeCite {
			rec.Citations[model.CiteAppealOutcome] = outcomeCite
		}
		records = append(records, rec)
	}

	// A single stated offence date belongs to the record whose offence was
	// cited in the same paragraph, or to a sole record
	if date != "" {
		assigned := false
		for i := range records {
			if cite, ok := records[i].Citations[model.CiteOffenceCode]; ok && cite.Paragraph == dateCite.Paragraph {
				records[i].OffenceDate = date
				records[i].Citations[model.CiteOffenceDate] = dateCite
				assigned = true
			}
		}
		if !assigned && len(records) == 1 {
			records[0].OffenceDate = date
			records[0].Citations[model.CiteOffenceDate] = dateCite
		}
	}

	// Distribute components: each goes to the last offence mentioned at or
	// before its paragraph, falling back to the first record
	for _, sm := range sentences {
		target := 0
		for i, off := range offences {
			if off.quote != "" && off.paragraph <= sm.paragraph {
				target = i
			}
		}
		rec := &records[target]
		idx := len(rec.Sentence)
		rec.Sentence = append(rec.Sentence, sm.component)
		rec.Citations[model.SentenceCiteKey(idx)] = model.Citation{Paragraph: sm.paragraph, Quote: sm.quote}
	}

	return &Response{Records: records}, nil
}

// findOffender resolves the offender name from the style of cause, falling
// back to "the offender, X" patterns in the body
func (e *RuleExtractor) findOffender(req Request) (string, *model.Citation) {
	if m := styleOfCauseRe.FindStringSubmatch(strings.TrimSpace(req.Metadata.StyleOfCause)); m != nil {
		name := strings.TrimSpace(m[1])
		// Anchor the name to its first appearance in the body
		for _, p := range req.Paragraphs {
			if idx := strings.Index(p.Text, name); idx >= 0 {
				return name, &model.Citation{Paragraph: p.Number, Quote: name}
			}
		}
		// The style of cause itself is header evidence; no paragraph anchor
		return name, nil
	}

	for _, p := range req.Paragraphs {
		if loc := offenderRe.FindStringSubmatchIndex(p.Text); loc != nil {
			name := p.Text[loc[2]:loc[3]]
			quote := p.Text[loc[0]:loc[1]]
			return name, &model.Citation{Paragraph: p.Number, Quote: quote}
		}
	}

	return "", nil
}

// findOffences collects statute references, first mention per code
func (e *RuleExtractor) findOffences(paragraphs []markup.Paragraph) []offenceMention {
	var mentions []offenceMention
	seen := make(map[string]bool)

	for _, p := range paragraphs {
		for _, loc := range offenceRe.FindAllStringSubmatchIndex(p.Text, -1) {
			section := p.Text[loc[2]:loc[3]]
			act := strings.ToLower(p.Text[loc[6]:loc[7]])

			prefix, ok := actPrefixes[act]
			if !ok {
				continue
			}

			code := prefix + "_" + section
			name := ""
			if off, found := e.vocab.Lookup(code); found {
				code = off.Code
				name = off.Name
			}
			if seen[code] {
				continue
			}
			seen[code] = true

			mentions = append(mentions, offenceMention{
				code:      code,
				name:      name,
				paragraph: p.Number,
				quote:     p.Text[loc[0]:loc[1]],
			})
		}
	}

	return mentions
}

// findOffenceDate returns the first stated offence date in ISO form
func (e *RuleExtractor) findOffenceDate(paragraphs []markup.Paragraph) (string, model.Citation) {
	for _, p := range paragraphs {
		loc := offenceDateRe.FindStringSubmatchIndex(p.Text)
		if loc == nil {
			continue
		}
		raw := p.Text[loc[2]:loc[3]]
		parsed, err := time.Parse("January 2, 2006", strings.ReplaceAll(raw, "  ", " "))
		if err != nil {
			if parsed, err = time.Parse("January 2 2006", raw); err != nil {
				continue
			}
		}
		return parsed.Format("2006-01-02"), model.Citation{Paragraph: p.Number, Quote: p.Text[loc[0]:loc[1]]}
	}
	return "", model.Citation{}
}

// findSentences collects penalty components in document order
func (e *RuleExtractor) findSentences(paragraphs []markup.Paragraph) []sentenceMention {
	var mentions []sentenceMention

	for _, p := range paragraphs {
		text := p.Text

		// Duration-based penalties
		for _, loc := range durationPhraseRe.FindAllStringIndex(text, -1) {
			phrase := text[loc[0]:loc[1]]
			before := window(text, loc[0]-penaltyWindowBefore, loc[0])
			after := window(text, loc[1], loc[1]+penaltyWindowAfter)

			penalty, ok := classifyDuration(strings.ToLower(before), strings.ToLower(after))
			if !ok {
				continue
			}

			mode := quantum.DetectMode(window(text, loc[1], loc[1]+modeWindowAfter))
			mentions = append(mentions, sentenceMention{
				component: model.SentenceComponent{Penalty: penalty, Mode: mode, Raw: phrase},
				paragraph: p.Number,
				quote:     phrase,
			})
		}

		// Life and indeterminate terms carry no numeric duration
		if loc := lifeTermRe.FindStringIndex(text); loc != nil {
			phrase := text[loc[0]:loc[1]]
			mentions = append(mentions, sentenceMention{
				component: model.SentenceComponent{Penalty: model.PenaltyImprisonment, Raw: phrase},
				paragraph: p.Number,
				quote:     phrase,
			})
		}

		// Monetary penalties
		for _, loc := range fineRe.FindAllStringSubmatchIndex(text, -1) {
			mentions = append(mentions, sentenceMention{
				component: model.SentenceComponent{Penalty: model.PenaltyFine, Raw: text[loc[2]:loc[3]]},
				paragraph: p.Number,
				quote:     text[loc[0]:loc[1]],
			})
		}
		for _, loc := range restitutionRe.FindAllStringSubmatchIndex(text, -1) {
			mentions = append(mentions, sentenceMention{
				component: model.SentenceComponent{Penalty: model.PenaltyRestitution, Raw: text[loc[2]:loc[3]]},
				paragraph: p.Number,
				quote:     text[loc[0]:loc[1]],
			})
		}

		// Discharges
		if loc := dischargeRe.FindStringIndex(text); loc != nil {
			phrase := text[loc[0]:loc[1]]
			penalty := model.PenaltyConditionalDischarge
			if strings.Contains(strings.ToLower(phrase), "absolut") {
				penalty = model.PenaltyAbsoluteDischarge
			}
			mentions = append(mentions, sentenceMention{
				component: model.SentenceComponent{Penalty: penalty, Raw: phrase},
				paragraph: p.Number,
				quote:     phrase,
			})
		}
	}

	return mentions
}

// classifyDuration decides what penalty a duration phrase describes.
// The wording after a phrase binds tighter than the wording before it
// ("two years' probation" vs "imprisonment for two years"), so the after
// window is consulted first and the nearest keyword wins. Durations with
// no penalty wording nearby are not sentence components (wait times,
// driving prohibitions, offence spans).
func classifyDuration(before, after string) (model.PenaltyType, bool) {
	if strings.Contains(before, "in default") {
		// Default-of-payment jail terms attach to the fine, not the count
		return "", false
	}
	if p, ok := nearestKeyword(after, true); ok {
		return p, true
	}
	return nearestKeyword(before, false)
}

// nearestKeyword finds the penalty keyword closest to the phrase edge:
// the first occurrence when scanning text after the phrase, the last when
// scanning text before it. Ties on position go to the longer keyword.
func nearestKeyword(text string, preferFirst bool) (model.PenaltyType, bool) {
	best := -1
	bestLen := 0
	var penalty model.PenaltyType

	for _, entry := range penaltyKeywords {
		var idx int
		if preferFirst {
			idx = strings.Index(text, entry.kw)
		} else {
			idx = strings.LastIndex(text, entry.kw)
		}
		if idx < 0 {
			continue
		}
		pos := idx
		if !preferFirst {
			pos = idx + len(entry.kw)
		}

		better := false
		switch {
		case best < 0:
			better = true
		case preferFirst && pos < best:
			better = true
		case !preferFirst && pos > best:
			better = true
		case pos == best && len(entry.kw) > bestLen:
			better = true
		}
		if better {
			best = pos
			bestLen = len(entry.kw)
			penalty = entry.penalty
		}
	}

	if best < 0 {
		return "", false
	}
	return penalty, true
}

// findAppeal builds the appeal info from the classification and the
// disposition wording. Dispositions sit at the end of a judgment, so the
// scan runs backwards and the last stated outcome wins.
func (e *RuleExtractor) findAppeal(req Request) model.AppealInfo {
	info := model.AppealInfo{IsAppeal: req.Classification.Appeal}
	if info.IsAppeal == nil || !*info.IsAppeal {
		return info
	}

	for i := len(req.Paragraphs) - 1; i >= 0 && info.Outcome == ""; i-- {
		text := req.Paragraphs[i].Text
		for _, pat := range outcomePatterns {
			if loc := pat.re.FindStringIndex(text); loc != nil {
				info.Outcome = pat.outcome
				break
			}
		}
	}
	if info.Outcome == model.OutcomeVaried {
		info.HigherVaried = true
	}

	for _, p := range req.Paragraphs {
		if dissentRe.MatchString(p.Text) {
			info.Dissent = true
			break
		}
	}

	return info
}

// window slices text clamped to its bounds
func window(text string, start, end int) string {
	if start < 0 {
		start = 0
	}
	if end > len(text) {
		end = len(text)
	}
	if start >= end {
		return ""
	}
	return text[start:end]
}

// appealOutcomeCitation finds the paragraph anchoring the stated outcome
func appealOutcomeCitation(paragraphs []markup.Paragraph, outcome model.AppealOutcome) (model.Citation, bool) {
	if outcome == "" {
		return model.Citation{}, false
	}
	for i := len(paragraphs) - 1; i >= 0; i-- {
		text := paragraphs[i].Text
		for _, pat := range outcomePatterns {
			if pat.outcome != outcome {
				continue
			}
			if loc := pat.re.FindStringIndex(text); loc != nil {
				return model.Citation{Paragraph: paragraphs[i].Number, Quote: text[loc[0]:loc[1]]}, true
			}
		}
	}
	return model.Citation{}, false
}
