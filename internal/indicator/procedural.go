package indicator

import (
	"fmt"
	"math"

	"github.com/tenderwatch/risk-cli/internal/model"
)

// proceduralIndicators covers procedure choice, disclosure completeness and
// post-award contract drift.
func proceduralIndicators() []Indicator {
	return []Indicator{
		{
			name:          "non_competitive_procedure",
			category:      model.CategoryProcedural,
			threshold:     60,
			defaultWeight: 7,
			score:         scoreNonCompetitiveProcedure,
		},
		{
			name:          "direct_award_above_threshold",
			category:      model.CategoryProcedural,
			threshold:     60,
			defaultWeight: 8,
			score:         scoreDirectAwardAboveThreshold,
		},
		{
			name:          "missing_disclosure_fields",
			category:      model.CategoryProcedural,
			threshold:     60,
			defaultWeight: 5,
			score:         scoreMissingDisclosureFields,
		},
		{
			name:          "missing_documents",
			category:      model.CategoryProcedural,
			threshold:     60,
			defaultWeight: 4,
			needs:         NeedDocuments,
			score:         scoreMissingDocuments,
		},
		{
			name:          "post_award_value_growth",
			category:      model.CategoryProcedural,
			threshold:     60,
			defaultWeight: 6,
			needs:         NeedAmendments,
			score:         scorePostAwardValueGrowth,
		},
		{
			name:          "excessive_amendments",
			category:      model.CategoryProcedural,
			threshold:     65,
			defaultWeight: 4,
			needs:         NeedAmendments,
			score:         scoreExcessiveAmendments,
		},
		{
			name:          "contract_splitting",
			category:      model.CategoryProcedural,
			threshold:     65,
			defaultWeight: 6,
			needs:         NeedEntityHistory,
			score:         scoreContractSplitting,
		},
		{
			name:          "negotiated_procedure_history",
			category:      model.CategoryProcedural,
			threshold:     65,
			defaultWeight: 4,
			needs:         NeedEntityHistory,
			score:         scoreNegotiatedProcedureHistory,
		},
		{
			name:          "complaint_history",
			category:      model.CategoryProcedural,
			threshold:     60,
			defaultWeight: 2,
		},
	}
}

func scoreNonCompetitiveProcedure(d *TenderData) Finding {
	t := &d.Tender
	if t.Procedure.Competitive() {
		return Finding{Confidence: 1, Description: fmt.Sprintf("competitive %s procedure", t.Procedure)}
	}

	score := 70.0
	if t.Procedure == model.ProcedureDirect {
		score = 85
	}
	if t.EstimatedValueMKD > directAwardCeilingMKD {
		score += 15
	}
	return Finding{
		Score:       score,
		Confidence:  1,
		Description: fmt.Sprintf("%s procedure restricts competition for a %.0f MKD tender", t.Procedure, t.EstimatedValueMKD),
		Evidence: map[string]any{
			"procedure":           string(t.Procedure),
			"estimated_value_mkd": t.EstimatedValueMKD,
		},
	}
}

func scoreDirectAwardAboveThreshold(d *TenderData) Finding {
	t := &d.Tender
	if t.Procedure != model.ProcedureDirect {
		return Finding{Confidence: 1, Description: "not a direct award"}
	}

	value := t.EstimatedValueMKD
	if t.AwardedValueMKD != nil && *t.AwardedValueMKD > value {
		value = *t.AwardedValueMKD
	}
	if value <= directAwardCeilingMKD {
		return Finding{
			Confidence:  0.9,
			Description: "direct award within the legal value ceiling",
			Evidence:    map[string]any{"value_mkd": value, "ceiling_mkd": directAwardCeilingMKD},
		}
	}

	// Scale with how far above the ceiling the value sits.
	excess := value/directAwardCeilingMKD - 1
	return Finding{
		Score:       math.Min(70+excess*30, 100),
		Confidence:  0.9,
		Description: fmt.Sprintf("direct award of %.0f MKD exceeds the %.0f MKD ceiling", value, float64(directAwardCeilingMKD)),
		Evidence:    map[string]any{"value_mkd": value, "ceiling_mkd": directAwardCeilingMKD},
	}
}

func scoreMissingDisclosureFields(d *TenderData) Finding {
	t := &d.Tender
	type field struct {
		name  string
		empty bool
	}
	fields := []field{
		{"title", t.Title == ""},
		{"cpv_code", t.CPVCode == ""},
		{"procuring_entity", t.ProcuringEntity == ""},
		{"estimated_value", t.EstimatedValueMKD <= 0},
		{"opening_date", t.OpeningDate == nil},
		{"closing_date", t.ClosingDate == nil},
	}
	if t.Status == model.StatusAwarded {
		fields = append(fields,
			field{"awarded_value", t.AwardedValueMKD == nil},
			field{"winner", t.Winner == nil || *t.Winner == ""},
		)
	}

	var empty []string
	for _, f := range fields {
		if f.empty {
			empty = append(empty, f.name)
		}
	}
	if len(empty) == 0 {
		return Finding{Confidence: 1, Description: "all mandatory disclosure fields present"}
	}

	frac := float64(len(empty)) / float64(len(fields))
	return Finding{
		Score:       frac * 130,
		Confidence:  1,
		Description: fmt.Sprintf("%d of %d mandatory disclosure fields are empty", len(empty), len(fields)),
		Evidence:    map[string]any{"empty_fields": empty},
	}
}

func scoreMissingDocuments(d *TenderData) Finding {
	expected := []string{"notice", "specification"}
	if d.Tender.Status == model.StatusAwarded {
		expected = append(expected, "contract")
	}

	present := make(map[string]bool, len(d.Documents))
	for _, doc := range d.Documents {
		if doc.Present {
			present[doc.DocType] = true
		}
	}

	var missing []string
	for _, want := range expected {
		if !present[want] {
			missing = append(missing, want)
		}
	}
	if len(missing) == 0 {
		return Finding{Confidence: 0.9, Description: "expected documents are published"}
	}

	frac := float64(len(missing)) / float64(len(expected))
	return Finding{
		Score:       frac * 110,
		Confidence:  0.9,
		Description: fmt.Sprintf("%d expected documents not published: %v", len(missing), missing),
		Evidence:    map[string]any{"missing_documents": missing, "expected": expected},
	}
}

func scorePostAwardValueGrowth(d *TenderData) Finding {
	t := &d.Tender
	if t.Status != model.StatusAwarded || t.AwardedValueMKD == nil || *t.AwardedValueMKD <= 0 {
		return Finding{Confidence: 0.4, Description: "tender not awarded; value growth not applicable"}
	}

	growth := 0.0
	for _, a := range d.Amendments {
		if t.AwardDate != nil && a.AmendedAt.Before(*t.AwardDate) {
			continue
		}
		if a.ValueDeltaMKD > 0 {
			growth += a.ValueDeltaMKD
		}
	}
	if growth == 0 {
		return Finding{Confidence: 0.85, Description: "no post-award value increases recorded"}
	}

	frac := growth / *t.AwardedValueMKD
	return Finding{
		Score:       math.Min(frac*600, 100),
		Confidence:  0.85,
		Description: fmt.Sprintf("contract value grew %.1f%% after award via amendments", frac*100),
		Evidence: map[string]any{
			"growth_mkd":        growth,
			"awarded_value_mkd": *t.AwardedValueMKD,
			"growth_fraction":   frac,
		},
	}
}

func scoreExcessiveAmendments(d *TenderData) Finding {
	n := len(d.Amendments)
	if n < 3 {
		return Finding{Confidence: 0.9, Description: fmt.Sprintf("%d amendments is within the ordinary range", n)}
	}
	return Finding{
		Score:       math.Min(50+float64(n)*10, 100),
		Confidence:  0.9,
		Description: fmt.Sprintf("tender was amended %d times", n),
		Evidence:    map[string]any{"amendments": n},
	}
}

func scoreContractSplitting(d *TenderData) Finding {
	t := &d.Tender
	if t.OpeningDate == nil {
		return Finding{Confidence: 0.3, Description: "opening date unknown; splitting window not assessable"}
	}
	if t.EstimatedValueMKD <= 0 || t.EstimatedValueMKD > directAwardCeilingMKD {
		return Finding{Confidence: 0.8, Description: "tender value is above the splitting-relevant ceiling"}
	}

	siblings := 0
	total := t.EstimatedValueMKD
	for _, pt := range d.Entity.Tenders {
		if pt.CPVCode != t.CPVCode || pt.EstimatedValueMKD <= 0 || pt.EstimatedValueMKD > directAwardCeilingMKD {
			continue
		}
		if pt.AwardDate == nil {
			continue
		}
		gap := pt.AwardDate.Sub(*t.OpeningDate).Hours() / 24
		if math.Abs(gap) <= 30 {
			siblings++
			total += pt.EstimatedValueMKD
		}
	}

	conf := historyConfidence(len(d.Entity.Tenders), 5)
	if siblings < 2 || total <= directAwardCeilingMKD {
		return Finding{Confidence: conf, Description: "no cluster of sub-ceiling same-category tenders around this one"}
	}

	return Finding{
		Score:       math.Min(60+float64(siblings)*10, 100),
		Confidence:  conf,
		Description: fmt.Sprintf("%d same-category tenders within 30 days each sit below the ceiling but total %.0f MKD", siblings+1, total),
		Evidence: map[string]any{
			"sibling_tenders": siblings,
			"combined_mkd":    total,
			"ceiling_mkd":     directAwardCeilingMKD,
		},
	}
}

func scoreNegotiatedProcedureHistory(d *TenderData) Finding {
	if len(d.Entity.Tenders) < 5 {
		return Finding{
			Confidence:  historyConfidence(len(d.Entity.Tenders), 5),
			Description: fmt.Sprintf("only %d historical tenders for entity", len(d.Entity.Tenders)),
		}
	}

	nonComp := 0
	for _, pt := range d.Entity.Tenders {
		if !pt.Procedure.Competitive() {
			nonComp++
		}
	}
	share := float64(nonComp) / float64(len(d.Entity.Tenders))
	ev := map[string]any{
		"non_competitive": nonComp,
		"total":           len(d.Entity.Tenders),
		"share":           share,
	}

	conf := historyConfidence(len(d.Entity.Tenders), 10)
	if share < 0.3 {
		return Finding{
			Confidence:  conf,
			Description: "entity predominantly uses competitive procedures",
			Evidence:    ev,
		}
	}
	return Finding{
		Score:       share * 100,
		Confidence:  conf,
		Description: fmt.Sprintf("%.0f%% of the entity's tenders avoid competitive procedures", share*100),
		Evidence:    ev,
	}
}
