package validate

import "github.com/jurimetrics/sentenza/internal/model"

// Compute summarizes how well the records of one analysis are grounded:
// citation coverage over populated fields and quantum resolution over the
// components that expect one. Diagnostic only; nothing here gates storage.
func Compute(records []model.SentencingRecord) model.Coverage {
	cov := model.Coverage{Records: len(records)}

	for i := range records {
		rec := &records[i]

		for _, field := range citableFields(rec) {
			if _, ok := rec.Citations[field]; ok {
				cov.CitedFields++
			} else {
				cov.UncitedFields++
			}
		}

		for _, c := range rec.Sentence {
			switch {
			case durationPenalty(c.Penalty):
				if c.Indeterminate || c.Days != nil {
					cov.QuantumParsed++
				} else {
					cov.QuantumPending++
				}
			case moneyPenalty(c.Penalty):
				if c.Quantum > 0 && c.Unit == model.UnitDollars {
					cov.QuantumParsed++
				} else {
					cov.QuantumPending++
				}
			}
		}

		if rec.Status != model.StatusValidated {
			cov.PendingReview++
		}
	}

	return cov
}

// citableFields lists the populated fields that should carry a citation
func citableFields(rec *model.SentencingRecord) []string {
	var fields []string
	if rec.OffenderName != "" {
		fields = append(fields, model.CiteOffenderName)
	}
	if rec.OffenceCode != "" {
		fields = append(fields, model.CiteOffenceCode)
	}
	if rec.OffenceDate != "" || rec.OffenceStart != "" {
		fields = append(fields, model.CiteOffenceDate)
	}
	if rec.Appeal.Outcome != "" {
		fields = append(fields, model.CiteAppealOutcome)
	}
	for i := range rec.Sentence {
		fields = append(fields, model.SentenceCiteKey(i))
	}
	return fields
}
