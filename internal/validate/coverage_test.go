package validate

import (
	"testing"

	"github.com/jurimetrics/sentenza/internal/model"
)

func TestCompute(t *testing.T) {
	validated := cleanRecord()
	validated.Status = model.StatusValidated

	pending := model.SentencingRecord{
		CaseID:       "2023onsc101",
		OffenderName: "Unknown",
		Sentence: []model.SentenceComponent{
			{Penalty: model.PenaltyProbation, Raw: "a period of probation"},
		},
		Citations: model.CitationSet{},
		Status:    model.StatusPendingReview,
	}

	cov := Compute([]model.SentencingRecord{validated, pending})

	if cov.Records != 2 {
		t.Errorf("Expected 2 records, got %d", cov.Records)
	}
	if cov.CitedFields != 4 {
		t.Errorf("Expected 4 cited fields, got %d", cov.CitedFields)
	}
	if cov.UncitedFields != 2 {
		t.Errorf("Expected 2 uncited fields, got %d", cov.UncitedFields)
	}
	if cov.QuantumParsed != 1 {
		t.Errorf("Expected 1 parsed quantum, got %d", cov.QuantumParsed)
	}
	if cov.QuantumPending != 1 {
		t.Errorf("Expected 1 pending quantum, got %d", cov.QuantumPending)
	}
	if cov.PendingReview != 1 {
		t.Errorf("Expected 1 record pending review, got %d", cov.PendingReview)
	}
}

func TestCompute_Empty(t *testing.T) {
	cov := Compute(nil)
	if cov.Records != 0 || cov.CitedFields != 0 || cov.PendingReview != 0 {
		t.Errorf("Expected zero coverage, got %+v", cov)
	}
}

func TestCompute_MoneyComponents(t *testing.T) {
	rec := model.SentencingRecord{
		CaseID: "2023abpc5",
		Sentence: []model.SentenceComponent{
			{Penalty: model.PenaltyFine, Quantum: 2000, Unit: model.UnitDollars, Raw: "$2,000"},
			{Penalty: model.PenaltyRestitution, Raw: "$1,500"},
			{Penalty: model.PenaltyAbsoluteDischarge},
		},
		Status: model.StatusValidated,
	}

	cov := Compute([]model.SentencingRecord{rec})
	if cov.QuantumParsed != 1 {
		t.Errorf("Expected 1 parsed quantum, got %d", cov.QuantumParsed)
	}
	if cov.QuantumPending != 1 {
		t.Errorf("Expected 1 pending quantum, got %d", cov.QuantumPending)
	}
}
