package citation

import (
	"strings"

	"github.com/jurimetrics/sentenza/internal/model"
)

// AppealRef identifies the decision under appeal and what the reviewing
// court did with its sentence.
type AppealRef struct {
	CaseID  string
	Outcome model.AppealOutcome
}

// outcomeSynonyms folds common result wordings onto the canonical outcomes.
// An appeal dismissed leaves the sentence standing; an appeal allowed sets
// it aside.
var outcomeSynonyms = map[string]model.AppealOutcome{
	"upheld":     model.OutcomeUpheld,
	"dismissed":  model.OutcomeUpheld,
	"affirmed":   model.OutcomeUpheld,
	"varied":     model.OutcomeVaried,
	"overturned": model.OutcomeOverturned,
	"allowed":    model.OutcomeOverturned,
	"quashed":    model.OutcomeOverturned,
}

// ParseAppealRef reads compact appeal references like "2024skca79_upheld":
// the reviewing court's case id, an underscore, then the result. A reference
// without a result keeps an empty outcome; an empty string yields a zero
// AppealRef. Unrecognized results are kept lowercased rather than dropped.
func ParseAppealRef(raw string) AppealRef {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return AppealRef{}
	}

	caseID, result, found := strings.Cut(trimmed, "_")
	ref := AppealRef{CaseID: strings.ToLower(strings.TrimSpace(caseID))}
	if !found {
		return ref
	}

	result = strings.ToLower(strings.TrimSpace(result))
	if outcome, ok := outcomeSynonyms[result]; ok {
		ref.Outcome = outcome
	} else if result != "" {
		ref.Outcome = model.AppealOutcome(result)
	}
	return ref
}
