package indicator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tenderwatch/risk-cli/internal/model"
)

func TestNonCompetitiveProcedure(t *testing.T) {
	tests := []struct {
		name      string
		procedure model.Procedure
		value     float64
		want      float64
	}{
		{"open", model.ProcedureOpen, 5_000_000, 0},
		{"restricted", model.ProcedureRestricted, 5_000_000, 0},
		{"negotiated small", model.ProcedureNegotiated, 400_000, 70},
		{"negotiated above ceiling", model.ProcedureNegotiated, 5_000_000, 85},
		{"direct above ceiling", model.ProcedureDirect, 5_000_000, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			td := awardedTender()
			td.Procedure = tt.procedure
			td.EstimatedValueMKD = tt.value
			f := scoreNonCompetitiveProcedure(dataWith(td))
			assert.InDelta(t, tt.want, f.Score, 0.001)
		})
	}
}

func TestDirectAwardAboveThreshold(t *testing.T) {
	td := awardedTender()
	td.Procedure = model.ProcedureDirect
	td.EstimatedValueMKD = 500_000
	td.AwardedValueMKD = ptr(600_000.0)
	f := scoreDirectAwardAboveThreshold(dataWith(td))
	assert.Zero(t, f.Score, "within ceiling")

	td.AwardedValueMKD = ptr(1_230_000.0) // 2x the ceiling
	f = scoreDirectAwardAboveThreshold(dataWith(td))
	assert.InDelta(t, 100, f.Score, 0.5)

	td.Procedure = model.ProcedureOpen
	f = scoreDirectAwardAboveThreshold(dataWith(td))
	assert.Zero(t, f.Score)
}

func TestMissingDisclosureFields(t *testing.T) {
	td := awardedTender()
	f := scoreMissingDisclosureFields(dataWith(td))
	assert.Zero(t, f.Score)

	td.CPVCode = ""
	td.ClosingDate = nil
	td.Winner = nil
	f = scoreMissingDisclosureFields(dataWith(td))
	// 3 of 8 fields empty on an awarded tender
	assert.InDelta(t, 3.0/8*130, f.Score, 0.5)
	assert.ElementsMatch(t, []string{"cpv_code", "closing_date", "winner"}, f.Evidence["empty_fields"])
}

func TestMissingDocuments(t *testing.T) {
	d := dataWith(awardedTender())
	d.Documents = []model.Document{
		{TenderID: "T-100", DocType: "notice", Present: true},
		{TenderID: "T-100", DocType: "specification", Present: true},
		{TenderID: "T-100", DocType: "contract", Present: true},
	}
	f := scoreMissingDocuments(d)
	assert.Zero(t, f.Score)

	// Awarded tender with no published contract.
	d.Documents = d.Documents[:2]
	f = scoreMissingDocuments(d)
	assert.InDelta(t, 1.0/3*110, f.Score, 0.5)

	// Open tender does not expect a contract yet.
	d.Tender.Status = model.StatusOpen
	f = scoreMissingDocuments(d)
	assert.Zero(t, f.Score)
}

func TestPostAwardValueGrowth(t *testing.T) {
	d := dataWith(awardedTender()) // awarded 3.9M on 2025-04-10
	d.Amendments = []model.Amendment{
		{AmendedAt: date(2025, 5, 1).UTC(), ValueDeltaMKD: 390_000},  // +10%
		{AmendedAt: date(2025, 6, 1).UTC(), ValueDeltaMKD: -50_000},  // reductions ignored
		{AmendedAt: date(2025, 3, 15).UTC(), ValueDeltaMKD: 900_000}, // pre-award, ignored
	}

	f := scorePostAwardValueGrowth(d)
	assert.InDelta(t, 60, f.Score, 0.5) // 0.1 * 600

	d.Amendments = nil
	f = scorePostAwardValueGrowth(d)
	assert.Zero(t, f.Score)
}

func TestExcessiveAmendments(t *testing.T) {
	d := dataWith(awardedTender())
	for i := 0; i < 4; i++ {
		d.Amendments = append(d.Amendments, model.Amendment{AmendedAt: date(2025, 3, 5+i).UTC()})
	}
	f := scoreExcessiveAmendments(d)
	assert.InDelta(t, 90, f.Score, 0.001) // 50 + 4*10

	d.Amendments = d.Amendments[:2]
	f = scoreExcessiveAmendments(d)
	assert.Zero(t, f.Score)
}

func TestContractSplitting(t *testing.T) {
	d := dataWith(awardedTender())
	d.Tender.EstimatedValueMKD = 500_000
	d.Tender.OpeningDate = date(2025, 3, 3)
	d.Entity.Tenders = []PastTender{
		{ID: "S1", CPVCode: d.Tender.CPVCode, EstimatedValueMKD: 400_000, AwardDate: date(2025, 3, 10)},
		{ID: "S2", CPVCode: d.Tender.CPVCode, EstimatedValueMKD: 450_000, AwardDate: date(2025, 2, 20)},
		{ID: "S3", CPVCode: d.Tender.CPVCode, EstimatedValueMKD: 400_000, AwardDate: date(2024, 6, 1)}, // outside window
		{ID: "S4", CPVCode: "99999999", EstimatedValueMKD: 400_000, AwardDate: date(2025, 3, 5)},       // other category
	}

	f := scoreContractSplitting(d)
	assert.InDelta(t, 80, f.Score, 0.001) // 60 + 2*10
	assert.Equal(t, 2, f.Evidence["sibling_tenders"])

	// A tender already above the ceiling cannot be a split fragment.
	d.Tender.EstimatedValueMKD = 5_000_000
	f = scoreContractSplitting(d)
	assert.Zero(t, f.Score)
}

func TestNegotiatedProcedureHistory(t *testing.T) {
	d := dataWith(awardedTender())
	for i := 0; i < 10; i++ {
		p := model.ProcedureOpen
		if i < 6 {
			p = model.ProcedureNegotiated
		}
		d.Entity.Tenders = append(d.Entity.Tenders, PastTender{Procedure: p})
	}
	f := scoreNegotiatedProcedureHistory(d)
	assert.InDelta(t, 60, f.Score, 0.001)

	d.Entity.Tenders = d.Entity.Tenders[:3]
	f = scoreNegotiatedProcedureHistory(d)
	assert.Zero(t, f.Score)
	assert.Less(t, f.Confidence, 1.0)
}
