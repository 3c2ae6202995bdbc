package indicator

import (
	"fmt"
	"math"

	"github.com/tenderwatch/risk-cli/internal/model"
)

// priceIndicators covers pricing anomalies: ceiling-hugging awards,
// implausibly tight or patterned bid spreads, and deviations from category
// norms.
func priceIndicators() []Indicator {
	return []Indicator{
		{
			name:          "near_ceiling_award",
			category:      model.CategoryPrice,
			threshold:     75,
			defaultWeight: 9,
			needs:         0,
			score:         scoreNearCeilingAward,
		},
		{
			name:          "tight_bid_spread",
			category:      model.CategoryPrice,
			threshold:     60,
			defaultWeight: 7,
			needs:         NeedBids,
			score:         scoreTightBidSpread,
		},
		{
			name:          "price_above_market",
			category:      model.CategoryPrice,
			threshold:     65,
			defaultWeight: 6,
			needs:         NeedMarketStats,
			score:         scorePriceAboveMarket,
		},
		{
			name:          "round_number_estimate",
			category:      model.CategoryPrice,
			threshold:     70,
			defaultWeight: 3,
			needs:         0,
			score:         scoreRoundNumberEstimate,
		},
		{
			name:          "uniform_bid_spacing",
			category:      model.CategoryPrice,
			threshold:     65,
			defaultWeight: 4,
			needs:         NeedBids,
			score:         scoreUniformBidSpacing,
		},
		{
			name:          "lowball_award",
			category:      model.CategoryPrice,
			threshold:     65,
			defaultWeight: 4,
			needs:         0,
			score:         scoreLowballAward,
		},
		{
			name:          "identical_bid_amounts",
			category:      model.CategoryPrice,
			threshold:     60,
			defaultWeight: 5,
			needs:         NeedBids,
			score:         scoreIdenticalBidAmounts,
		},
		{
			name:          "entity_ceiling_history",
			category:      model.CategoryPrice,
			threshold:     65,
			defaultWeight: 5,
			needs:         NeedEntityHistory,
			score:         scoreEntityCeilingHistory,
		},
		{
			name:          "subcontract_price_inflation",
			category:      model.CategoryPrice,
			threshold:     65,
			defaultWeight: 2,
		},
	}
}

func scoreNearCeilingAward(d *TenderData) Finding {
	ratio := d.Tender.AwardRatio()
	if ratio < 0 {
		return Finding{
			Confidence:  0.2,
			Description: "award or estimated value missing; ceiling proximity not assessable",
		}
	}

	ev := map[string]any{
		"estimated_value_mkd": d.Tender.EstimatedValueMKD,
		"awarded_value_mkd":   *d.Tender.AwardedValueMKD,
		"award_ratio":         ratio,
	}

	if ratio > 1.001 {
		return Finding{
			Score:       100,
			Confidence:  0.9,
			Description: fmt.Sprintf("award exceeds the estimated ceiling (%.1f%%)", ratio*100),
			Evidence:    ev,
		}
	}

	score := (ratio - 0.90) / 0.10 * 100
	desc := fmt.Sprintf("award at %.1f%% of estimated ceiling", ratio*100)
	return Finding{Score: score, Confidence: 0.9, Description: desc, Evidence: ev}
}

func scoreTightBidSpread(d *TenderData) Finding {
	amounts := bidAmounts(d)
	if len(amounts) < 3 {
		return Finding{
			Confidence:  historyConfidence(len(amounts), 3),
			Description: fmt.Sprintf("only %d priced bids; spread not assessable", len(amounts)),
		}
	}

	cv := coefficientOfVariation(amounts)
	if cv < 0 {
		return Finding{Confidence: 0.3, Description: "bid spread undefined for recorded amounts"}
	}

	ev := map[string]any{"bids": len(amounts), "coefficient_of_variation": cv}
	score := (0.03 - cv) / 0.03 * 100
	return Finding{
		Score:       score,
		Confidence:  0.85,
		Description: fmt.Sprintf("bid spread coefficient of variation %.4f across %d bids", cv, len(amounts)),
		Evidence:    ev,
	}
}

func scorePriceAboveMarket(d *TenderData) Finding {
	ratio := d.Tender.AwardRatio()
	if ratio < 0 {
		return Finding{Confidence: 0.2, Description: "award or estimated value missing; market comparison not assessable"}
	}

	sd := math.Max(d.Market.StdevAwardRatio, 0.01)
	z := (ratio - d.Market.MedianAwardRatio) / sd
	ev := map[string]any{
		"award_ratio":         ratio,
		"market_median_ratio": d.Market.MedianAwardRatio,
		"z_score":             z,
		"market_sample":       d.Market.SampleSize,
	}

	if z <= 0 {
		return Finding{
			Confidence:  historyConfidence(d.Market.SampleSize, 20),
			Description: "award ratio at or below category median",
			Evidence:    ev,
		}
	}

	return Finding{
		Score:       z / 3 * 100,
		Confidence:  historyConfidence(d.Market.SampleSize, 20),
		Description: fmt.Sprintf("award ratio %.2f standard deviations above the category median", z),
		Evidence:    ev,
	}
}

func scoreRoundNumberEstimate(d *TenderData) Finding {
	v := d.Tender.EstimatedValueMKD
	if v <= 0 {
		return Finding{Confidence: 0.2, Description: "no estimated value recorded"}
	}

	score := 0.0
	switch {
	case math.Mod(v, 1_000_000) == 0:
		score = 80
	case math.Mod(v, 500_000) == 0:
		score = 70
	case math.Mod(v, 100_000) == 0:
		score = 50
	}

	ev := map[string]any{"estimated_value_mkd": v}
	if score == 0 {
		return Finding{Confidence: 0.8, Description: "estimated value is not a round anchor figure", Evidence: ev}
	}
	return Finding{
		Score:       score,
		Confidence:  0.8,
		Description: fmt.Sprintf("estimated value %.0f MKD is a round anchor figure", v),
		Evidence:    ev,
	}
}

func scoreUniformBidSpacing(d *TenderData) Finding {
	amounts := bidAmounts(d)
	if len(amounts) < 3 {
		return Finding{
			Confidence:  historyConfidence(len(amounts), 3),
			Description: fmt.Sprintf("only %d priced bids; spacing not assessable", len(amounts)),
		}
	}

	// Bids arrive sorted by amount from the loader.
	var gaps []float64
	for i := 1; i < len(amounts); i++ {
		gaps = append(gaps, amounts[i]-amounts[i-1])
	}
	cv := coefficientOfVariation(gaps)
	if cv < 0 {
		return Finding{Confidence: 0.4, Description: "bid spacing undefined for recorded amounts"}
	}

	ev := map[string]any{"gaps": len(gaps), "spacing_cv": cv}
	score := (0.15 - cv) / 0.15 * 100
	return Finding{
		Score:       score,
		Confidence:  0.75,
		Description: fmt.Sprintf("near-uniform spacing between sorted bids (cv %.3f)", cv),
		Evidence:    ev,
	}
}

func scoreLowballAward(d *TenderData) Finding {
	ratio := d.Tender.AwardRatio()
	if ratio < 0 {
		return Finding{Confidence: 0.2, Description: "award or estimated value missing; lowball check not assessable"}
	}

	ev := map[string]any{"award_ratio": ratio}
	if ratio >= 0.6 {
		return Finding{Confidence: 0.85, Description: "award not abnormally far below estimate", Evidence: ev}
	}

	score := (0.6 - ratio) / 0.6 * 140
	return Finding{
		Score:       score,
		Confidence:  0.85,
		Description: fmt.Sprintf("award at %.0f%% of estimate suggests an unrealistic bid or inflated estimate", ratio*100),
		Evidence:    ev,
	}
}

func scoreIdenticalBidAmounts(d *TenderData) Finding {
	amounts := make(map[float64][]string)
	for _, b := range d.Bids {
		if b.AmountMKD > 0 {
			amounts[b.AmountMKD] = append(amounts[b.AmountMKD], b.Bidder)
		}
	}

	pairs := 0
	for _, bidders := range amounts {
		if len(bidders) >= 2 {
			pairs++
		}
	}

	if pairs == 0 {
		return Finding{Confidence: 0.85, Description: "no identical bid amounts between distinct bidders"}
	}

	score := 85.0
	if pairs > 1 {
		score = 100
	}
	return Finding{
		Score:       score,
		Confidence:  0.9,
		Description: fmt.Sprintf("%d groups of bidders submitted exactly equal amounts", pairs),
		Evidence:    map[string]any{"identical_groups": pairs},
	}
}

func scoreEntityCeilingHistory(d *TenderData) Finding {
	var awarded, nearCeiling int
	for _, pt := range d.Entity.Tenders {
		if pt.AwardedValueMKD <= 0 || pt.EstimatedValueMKD <= 0 {
			continue
		}
		awarded++
		if pt.AwardedValueMKD/pt.EstimatedValueMKD >= 0.95 {
			nearCeiling++
		}
	}
	if awarded < 5 {
		return Finding{
			Confidence:  historyConfidence(awarded, 5),
			Description: fmt.Sprintf("only %d priced awards in entity history", awarded),
		}
	}

	share := float64(nearCeiling) / float64(awarded)
	return Finding{
		Score:       share * 100,
		Confidence:  historyConfidence(awarded, 10),
		Description: fmt.Sprintf("%.0f%% of the entity's awards land within 5%% of the ceiling", share*100),
		Evidence:    map[string]any{"awarded": awarded, "near_ceiling": nearCeiling, "share": share},
	}
}
