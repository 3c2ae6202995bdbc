package indicator

import (
	"fmt"

	"github.com/tenderwatch/risk-cli/internal/model"
)

// competitionIndicators covers restricted-competition patterns: single
// bidders, thin fields, recurring bidder clusters, and collapsing
// participation.
func competitionIndicators() []Indicator {
	return []Indicator{
		{
			name:          "single_bidder",
			category:      model.CategoryCompetition,
			threshold:     50,
			defaultWeight: 9,
			needs:         0,
			score:         scoreSingleBidder,
		},
		{
			name:          "low_bidder_count",
			category:      model.CategoryCompetition,
			threshold:     60,
			defaultWeight: 6,
			needs:         0,
			score:         scoreLowBidderCount,
		},
		{
			name:          "repeated_bidder_set",
			category:      model.CategoryCompetition,
			threshold:     60,
			defaultWeight: 7,
			needs:         NeedBids | NeedEntityHistory,
			score:         scoreRepeatedBidderSet,
		},
		{
			name:          "bid_count_collapse",
			category:      model.CategoryCompetition,
			threshold:     60,
			defaultWeight: 5,
			needs:         NeedEntityHistory,
			score:         scoreBidCountCollapse,
		},
		{
			name:          "dominant_winner_share",
			category:      model.CategoryCompetition,
			threshold:     60,
			defaultWeight: 6,
			needs:         NeedEntityHistory,
			score:         scoreDominantWinnerShare,
		},
		{
			name:          "losing_bidder_pattern",
			category:      model.CategoryCompetition,
			threshold:     60,
			defaultWeight: 5,
			needs:         NeedBids | NeedBidderStats,
			score:         scoreLosingBidderPattern,
		},
		{
			name:          "newcomer_wins_large",
			category:      model.CategoryCompetition,
			threshold:     60,
			defaultWeight: 4,
			needs:         NeedBids | NeedBidderStats,
			score:         scoreNewcomerWinsLarge,
		},
		{
			name:          "bid_withdrawal_pattern",
			category:      model.CategoryCompetition,
			threshold:     60,
			defaultWeight: 2,
		},
		{
			name:          "disqualification_rate",
			category:      model.CategoryCompetition,
			threshold:     60,
			defaultWeight: 2,
		},
	}
}

func scoreSingleBidder(d *TenderData) Finding {
	n := d.Tender.NumBidders
	ev := map[string]any{"num_bidders": n, "status": string(d.Tender.Status)}

	if n != 1 {
		return Finding{
			Confidence:  0.9,
			Description: fmt.Sprintf("%d bidders participated", n),
			Evidence:    ev,
		}
	}

	score := 70.0
	desc := "only one bidder participated"
	if d.Tender.Status == model.StatusAwarded {
		score = 100
		desc = "contract awarded with a single bidder"
	}
	return Finding{Score: score, Confidence: 0.95, Description: desc, Evidence: ev}
}

func scoreLowBidderCount(d *TenderData) Finding {
	b := bracketFor(d.Tender.EstimatedValueMKD)
	n := d.Tender.NumBidders
	ev := map[string]any{
		"num_bidders":      n,
		"value_bracket":    b.Name,
		"expected_bidders": b.MinBidders,
	}

	if n >= b.MinBidders {
		return Finding{
			Confidence:  0.9,
			Description: fmt.Sprintf("%d bidders meets the %s-bracket expectation of %d", n, b.Name, b.MinBidders),
			Evidence:    ev,
		}
	}

	score := float64(b.MinBidders-n) / float64(b.MinBidders) * 100
	return Finding{
		Score:       score,
		Confidence:  0.85,
		Description: fmt.Sprintf("%d bidders for a %s-bracket tender expecting at least %d", n, b.Name, b.MinBidders),
		Evidence:    ev,
	}
}

func scoreRepeatedBidderSet(d *TenderData) Finding {
	current := make([]string, 0, len(d.Bids))
	for _, b := range d.Bids {
		current = append(current, b.Bidder)
	}
	if len(current) < 2 {
		return Finding{
			Confidence:  0.3,
			Description: "fewer than 2 bidders; bidder-set clustering not applicable",
		}
	}

	var maxSim float64
	matches := 0
	for _, pt := range d.Entity.Tenders {
		if len(pt.Bidders) < 2 {
			continue
		}
		sim := jaccard(current, pt.Bidders)
		if sim > maxSim {
			maxSim = sim
		}
		if sim >= 0.75 {
			matches++
		}
	}

	ev := map[string]any{
		"max_similarity":  maxSim,
		"near_exact_sets": matches,
		"history_size":    len(d.Entity.Tenders),
	}

	if matches == 0 {
		return Finding{
			Score:       maxSim * 40,
			Confidence:  historyConfidence(len(d.Entity.Tenders), 5),
			Description: "no recurring bidder set in entity history",
			Evidence:    ev,
		}
	}

	score := 50 + float64(matches)*15
	return Finding{
		Score:       score,
		Confidence:  historyConfidence(len(d.Entity.Tenders), 5),
		Description: fmt.Sprintf("bidder set recurs in %d prior tenders of the same entity (max similarity %.2f)", matches, maxSim),
		Evidence:    ev,
	}
}

func scoreBidCountCollapse(d *TenderData) Finding {
	var series []float64
	for _, pt := range d.Entity.Tenders {
		if pt.CPVCode == d.Tender.CPVCode {
			series = append(series, float64(pt.NumBidders))
		}
	}
	series = append(series, float64(d.Tender.NumBidders))

	if len(series) < 4 {
		return Finding{
			Confidence:  historyConfidence(len(series), 4),
			Description: fmt.Sprintf("only %d recurring tenders in category; trend not assessable", len(series)),
		}
	}

	half := len(series) / 2
	var earlySum, lateSum float64
	for i, v := range series {
		if i < half {
			earlySum += v
		} else {
			lateSum += v
		}
	}
	early := earlySum / float64(half)
	late := lateSum / float64(len(series)-half)

	ev := map[string]any{
		"early_avg_bidders": early,
		"late_avg_bidders":  late,
		"series_length":     len(series),
	}

	if early <= 0 || late >= early {
		return Finding{
			Confidence:  historyConfidence(len(series), 6),
			Description: "no participation decline over recurring tenders",
			Evidence:    ev,
		}
	}

	drop := (early - late) / early
	return Finding{
		Score:       drop * 130,
		Confidence:  historyConfidence(len(series), 6),
		Description: fmt.Sprintf("bidder participation fell %.0f%% across recurring tenders", drop*100),
		Evidence:    ev,
	}
}

func scoreDominantWinnerShare(d *TenderData) Finding {
	wins := make(map[string]int)
	awarded := 0
	for _, pt := range d.Entity.Tenders {
		if pt.Winner == "" {
			continue
		}
		awarded++
		wins[pt.Winner]++
	}
	if awarded < 5 {
		return Finding{
			Confidence:  historyConfidence(awarded, 5),
			Description: fmt.Sprintf("only %d awarded tenders in entity history", awarded),
		}
	}

	var topWinner string
	var topWins int
	for w, n := range wins {
		if n > topWins || (n == topWins && w < topWinner) {
			topWinner, topWins = w, n
		}
	}

	share := float64(topWins) / float64(awarded)
	ev := map[string]any{
		"top_winner":      topWinner,
		"top_winner_wins": topWins,
		"awarded_tenders": awarded,
		"share":           share,
	}
	return Finding{
		Score:       share * 100,
		Confidence:  historyConfidence(awarded, 10),
		Description: fmt.Sprintf("%q won %.0f%% of the entity's awarded tenders", topWinner, share*100),
		Evidence:    ev,
	}
}

func scoreLosingBidderPattern(d *TenderData) Finding {
	var losers, neverWin int
	for _, b := range d.Bids {
		if b.IsWinner {
			continue
		}
		st, ok := d.Bidders[b.Bidder]
		if !ok || st.BidsTotal < 3 {
			continue
		}
		losers++
		if st.WinsTotal == 0 {
			neverWin++
		}
	}

	if losers == 0 {
		return Finding{
			Confidence:  0.3,
			Description: "no losing bidders with sufficient market history",
		}
	}

	frac := float64(neverWin) / float64(losers)
	ev := map[string]any{"losing_bidders": losers, "never_win": neverWin}
	return Finding{
		Score:       frac * 100 * historyConfidence(losers, 2),
		Confidence:  historyConfidence(losers, 3),
		Description: fmt.Sprintf("%d of %d losing bidders have never won any tender", neverWin, losers),
		Evidence:    ev,
	}
}

func scoreNewcomerWinsLarge(d *TenderData) Finding {
	wb := d.WinningBid()
	if wb == nil {
		return Finding{Confidence: 0.3, Description: "no winning bid recorded"}
	}

	st, known := d.Bidders[wb.Bidder]
	if known && st.BidsTotal > 0 {
		return Finding{
			Confidence:  0.8,
			Description: fmt.Sprintf("winner has %d prior bids in the market", st.BidsTotal),
			Evidence:    map[string]any{"winner": wb.Bidder, "prior_bids": st.BidsTotal},
		}
	}

	b := bracketFor(d.Tender.EstimatedValueMKD)
	score := 0.0
	switch b.Name {
	case "major", "large":
		score = 75
	case "medium":
		score = 55
	}
	return Finding{
		Score:       score,
		Confidence:  0.7,
		Description: fmt.Sprintf("winner %q has no prior market participation for a %s-bracket contract", wb.Bidder, b.Name),
		Evidence:    map[string]any{"winner": wb.Bidder, "value_bracket": b.Name},
	}
}
