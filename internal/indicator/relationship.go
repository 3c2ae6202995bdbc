package indicator

import (
	"fmt"

	"github.com/tenderwatch/risk-cli/internal/model"
)

// relationshipIndicators covers bidder/entity entanglement: favored
// suppliers, shared addresses between nominal competitors, and rotation
// patterns.
func relationshipIndicators() []Indicator {
	return []Indicator{
		{
			name:          "entity_winner_win_rate",
			category:      model.CategoryRelationship,
			threshold:     60,
			defaultWeight: 8,
			needs:         NeedBids | NeedBidderStats,
			score:         scoreEntityWinnerWinRate,
		},
		{
			name:          "shared_address_bidders",
			category:      model.CategoryRelationship,
			threshold:     60,
			defaultWeight: 7,
			needs:         NeedBids,
			score:         scoreSharedAddressBidders,
		},
		{
			name:          "repeated_co_bidding",
			category:      model.CategoryRelationship,
			threshold:     65,
			defaultWeight: 5,
			needs:         NeedBids | NeedEntityHistory,
			score:         scoreRepeatedCoBidding,
		},
		{
			name:          "single_client_supplier",
			category:      model.CategoryRelationship,
			threshold:     65,
			defaultWeight: 5,
			needs:         NeedBids | NeedBidderStats,
			score:         scoreSingleClientSupplier,
		},
		{
			name:          "perfect_local_record",
			category:      model.CategoryRelationship,
			threshold:     70,
			defaultWeight: 4,
			needs:         NeedBids | NeedBidderStats,
			score:         scorePerfectLocalRecord,
		},
		{
			name:          "bid_rotation",
			category:      model.CategoryRelationship,
			threshold:     65,
			defaultWeight: 5,
			needs:         NeedBids | NeedEntityHistory,
			score:         scoreBidRotation,
		},
		{
			name:          "ownership_overlap",
			category:      model.CategoryRelationship,
			threshold:     60,
			defaultWeight: 3,
		},
		{
			name:          "subcontract_flip",
			category:      model.CategoryRelationship,
			threshold:     60,
			defaultWeight: 3,
		},
		{
			name:          "political_connection",
			category:      model.CategoryRelationship,
			threshold:     60,
			defaultWeight: 2,
		},
	}
}

func scoreEntityWinnerWinRate(d *TenderData) Finding {
	wb := d.WinningBid()
	if wb == nil {
		return Finding{Confidence: 0.3, Description: "no winning bid recorded"}
	}

	st, ok := d.Bidders[wb.Bidder]
	if !ok || st.BidsWithEntity < 3 {
		return Finding{
			Confidence:  historyConfidence(st.BidsWithEntity, 3),
			Description: fmt.Sprintf("winner has only %d prior bids with this entity", st.BidsWithEntity),
		}
	}

	rateWith := float64(st.WinsWithEntity) / float64(st.BidsWithEntity)

	elseBids := st.BidsTotal - st.BidsWithEntity
	if elseBids < 3 {
		return Finding{
			Confidence:  historyConfidence(elseBids, 3),
			Description: fmt.Sprintf("winner has only %d bids outside this entity; rates not comparable", elseBids),
		}
	}
	rateElse := float64(st.WinsTotal-st.WinsWithEntity) / float64(elseBids)

	diff := rateWith - rateElse
	ev := map[string]any{
		"winner":           wb.Bidder,
		"win_rate_entity":  rateWith,
		"win_rate_else":    rateElse,
		"bids_with_entity": st.BidsWithEntity,
		"bids_elsewhere":   elseBids,
	}

	if diff <= 0 {
		return Finding{
			Confidence:  historyConfidence(st.BidsTotal, 10),
			Description: "winner's success with this entity does not exceed their market rate",
			Evidence:    ev,
		}
	}

	return Finding{
		Score:       diff * 125,
		Confidence:  historyConfidence(st.BidsTotal, 10),
		Description: fmt.Sprintf("winner wins %.0f%% with this entity against %.0f%% elsewhere", rateWith*100, rateElse*100),
		Evidence:    ev,
	}
}

func scoreSharedAddressBidders(d *TenderData) Finding {
	byAddr := make(map[string][]string)
	withAddr := 0
	for _, b := range d.Bids {
		if b.Address == nil || *b.Address == "" {
			continue
		}
		withAddr++
		key := normalizeAddress(*b.Address)
		byAddr[key] = append(byAddr[key], b.Bidder)
	}

	if withAddr < 2 {
		return Finding{
			Confidence:  historyConfidence(withAddr, 2),
			Description: "bidder addresses largely unrecorded; overlap not assessable",
		}
	}

	shared := 0
	for _, bidders := range byAddr {
		distinct := make(map[string]bool)
		for _, b := range bidders {
			distinct[b] = true
		}
		if len(distinct) >= 2 {
			shared++
		}
	}

	conf := historyConfidence(withAddr, len(d.Bids))
	if shared == 0 {
		return Finding{Confidence: conf, Description: "no address overlap between competing bidders"}
	}

	score := 90.0
	if shared > 1 {
		score = 100
	}
	return Finding{
		Score:       score,
		Confidence:  conf,
		Description: fmt.Sprintf("%d addresses are shared by nominally competing bidders", shared),
		Evidence:    map[string]any{"shared_addresses": shared, "bidders_with_address": withAddr},
	}
}

func scoreRepeatedCoBidding(d *TenderData) Finding {
	if len(d.Bids) < 2 {
		return Finding{Confidence: 0.3, Description: "fewer than 2 bidders; co-bidding not applicable"}
	}

	present := make(map[string]bool, len(d.Bids))
	for _, b := range d.Bids {
		present[b.Bidder] = true
	}

	// Count past co-appearances for each pair of current bidders.
	bestCount := 0
	var bestPair [2]string
	for i := 0; i < len(d.Bids); i++ {
		for j := i + 1; j < len(d.Bids); j++ {
			a, b := d.Bids[i].Bidder, d.Bids[j].Bidder
			if a == b {
				continue
			}
			count := 0
			for _, pt := range d.Entity.Tenders {
				hasA, hasB := false, false
				for _, name := range pt.Bidders {
					if name == a {
						hasA = true
					}
					if name == b {
						hasB = true
					}
				}
				if hasA && hasB {
					count++
				}
			}
			if count > bestCount {
				bestCount = count
				bestPair = [2]string{a, b}
			}
		}
	}

	conf := historyConfidence(len(d.Entity.Tenders), 5)
	if bestCount < 2 {
		return Finding{Confidence: conf, Description: "no recurring co-bidding pair in entity history"}
	}

	return Finding{
		Score:       float64(bestCount) * 20,
		Confidence:  conf,
		Description: fmt.Sprintf("bidders %q and %q co-appeared in %d prior tenders of this entity", bestPair[0], bestPair[1], bestCount),
		Evidence:    map[string]any{"pair": bestPair, "co_appearances": bestCount},
	}
}

func scoreSingleClientSupplier(d *TenderData) Finding {
	wb := d.WinningBid()
	if wb == nil {
		return Finding{Confidence: 0.3, Description: "no winning bid recorded"}
	}

	st, ok := d.Bidders[wb.Bidder]
	if !ok || st.BidsTotal < 5 {
		return Finding{
			Confidence:  historyConfidence(st.BidsTotal, 5),
			Description: fmt.Sprintf("winner has only %d recorded bids; client mix not assessable", st.BidsTotal),
		}
	}

	share := float64(st.BidsWithEntity) / float64(st.BidsTotal)
	ev := map[string]any{
		"winner":           wb.Bidder,
		"bids_with_entity": st.BidsWithEntity,
		"bids_total":       st.BidsTotal,
		"share":            share,
	}
	if share < 0.5 {
		return Finding{
			Confidence:  historyConfidence(st.BidsTotal, 10),
			Description: "winner bids across a diversified set of entities",
			Evidence:    ev,
		}
	}
	return Finding{
		Score:       share * 100,
		Confidence:  historyConfidence(st.BidsTotal, 10),
		Description: fmt.Sprintf("%.0f%% of the winner's market activity is with this single entity", share*100),
		Evidence:    ev,
	}
}

func scorePerfectLocalRecord(d *TenderData) Finding {
	wb := d.WinningBid()
	if wb == nil {
		return Finding{Confidence: 0.3, Description: "no winning bid recorded"}
	}

	st, ok := d.Bidders[wb.Bidder]
	if !ok || st.BidsWithEntity < 4 {
		return Finding{
			Confidence:  historyConfidence(st.BidsWithEntity, 4),
			Description: fmt.Sprintf("winner has only %d prior bids with this entity", st.BidsWithEntity),
		}
	}

	ev := map[string]any{
		"winner":           wb.Bidder,
		"wins_with_entity": st.WinsWithEntity,
		"bids_with_entity": st.BidsWithEntity,
	}
	if st.WinsWithEntity < st.BidsWithEntity {
		return Finding{
			Confidence:  0.85,
			Description: "winner has lost bids with this entity before",
			Evidence:    ev,
		}
	}
	return Finding{
		Score:       85,
		Confidence:  0.85,
		Description: fmt.Sprintf("winner has a perfect %d/%d record with this entity", st.WinsWithEntity, st.BidsWithEntity),
		Evidence:    ev,
	}
}

func scoreBidRotation(d *TenderData) Finding {
	current := make([]string, 0, len(d.Bids))
	currentSet := make(map[string]bool, len(d.Bids))
	for _, b := range d.Bids {
		current = append(current, b.Bidder)
		currentSet[b.Bidder] = true
	}
	if len(current) < 3 {
		return Finding{Confidence: 0.3, Description: "fewer than 3 bidders; rotation not assessable"}
	}

	similar := 0
	winners := make(map[string]bool)
	for _, pt := range d.Entity.Tenders {
		if jaccard(current, pt.Bidders) < 0.6 {
			continue
		}
		similar++
		if pt.Winner != "" && currentSet[pt.Winner] {
			winners[pt.Winner] = true
		}
	}

	conf := historyConfidence(len(d.Entity.Tenders), 5)
	if similar < 3 {
		return Finding{Confidence: conf, Description: "too few similar bidder fields in entity history for rotation analysis"}
	}

	ev := map[string]any{
		"similar_tenders":  similar,
		"distinct_winners": len(winners),
		"field_size":       len(current),
	}
	if len(winners) < 3 {
		return Finding{
			Confidence:  conf,
			Description: "wins within the recurring bidder field are not rotating",
			Evidence:    ev,
		}
	}

	score := 60 + float64(len(winners))*8
	return Finding{
		Score:       score,
		Confidence:  conf,
		Description: fmt.Sprintf("%d members of a stable bidder field take turns winning across %d tenders", len(winners), similar),
		Evidence:    ev,
	}
}
