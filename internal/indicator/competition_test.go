package indicator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tenderwatch/risk-cli/internal/model"
)

func TestSingleBidder(t *testing.T) {
	tests := []struct {
		name      string
		bidders   int
		status    model.TenderStatus
		wantScore float64
	}{
		{"awarded with one bidder", 1, model.StatusAwarded, 100},
		{"open with one bidder", 1, model.StatusOpen, 70},
		{"healthy competition", 4, model.StatusAwarded, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			td := awardedTender()
			td.NumBidders = tt.bidders
			td.Status = tt.status
			f := scoreSingleBidder(dataWith(td))
			assert.InDelta(t, tt.wantScore, f.Score, 0.001)
		})
	}
}

func TestLowBidderCount(t *testing.T) {
	td := awardedTender() // medium bracket expects 3
	td.NumBidders = 1
	f := scoreLowBidderCount(dataWith(td))
	assert.InDelta(t, 200.0/3, f.Score, 0.1)

	td.NumBidders = 3
	f = scoreLowBidderCount(dataWith(td))
	assert.Zero(t, f.Score)

	// Major bracket raises the bar.
	td.EstimatedValueMKD = 80_000_000
	td.NumBidders = 3
	f = scoreLowBidderCount(dataWith(td))
	assert.Greater(t, f.Score, 0.0)
}

func TestRepeatedBidderSet(t *testing.T) {
	d := dataWith(awardedTender())
	d.Bids = []model.Bid{bid("A", 100, true), bid("B", 110, false), bid("C", 120, false)}
	d.Entity.Tenders = []PastTender{
		{ID: "P1", Bidders: []string{"A", "B", "C"}},
		{ID: "P2", Bidders: []string{"A", "B", "C"}},
		{ID: "P3", Bidders: []string{"A", "X"}},
	}

	f := scoreRepeatedBidderSet(d)
	assert.InDelta(t, 80, f.Score, 0.001) // 50 + 2*15
	assert.Equal(t, 2, f.Evidence["near_exact_sets"])

	// A single bid gives nothing to cluster.
	d.Bids = d.Bids[:1]
	f = scoreRepeatedBidderSet(d)
	assert.Zero(t, f.Score)
}

func TestBidCountCollapse(t *testing.T) {
	d := dataWith(awardedTender())
	d.Tender.NumBidders = 1
	d.Entity.Tenders = []PastTender{
		{CPVCode: d.Tender.CPVCode, NumBidders: 6},
		{CPVCode: d.Tender.CPVCode, NumBidders: 5},
		{CPVCode: d.Tender.CPVCode, NumBidders: 2},
		{CPVCode: "99999999", NumBidders: 9}, // other category, ignored
	}

	f := scoreBidCountCollapse(d)
	// early avg 5.5, late avg 1.5 -> drop ~0.727 -> ~94.5
	assert.InDelta(t, 94.5, f.Score, 1.0)

	// Rising participation scores zero.
	d.Entity.Tenders = []PastTender{
		{CPVCode: d.Tender.CPVCode, NumBidders: 2},
		{CPVCode: d.Tender.CPVCode, NumBidders: 3},
		{CPVCode: d.Tender.CPVCode, NumBidders: 5},
	}
	d.Tender.NumBidders = 6
	f = scoreBidCountCollapse(d)
	assert.Zero(t, f.Score)
}

func TestDominantWinnerShare(t *testing.T) {
	d := dataWith(awardedTender())
	for i := 0; i < 8; i++ {
		w := "Gradba DOO"
		if i >= 6 {
			w = "Other"
		}
		d.Entity.Tenders = append(d.Entity.Tenders, PastTender{ID: string(rune('a' + i)), Winner: w})
	}

	f := scoreDominantWinnerShare(d)
	assert.InDelta(t, 75, f.Score, 0.001)
	assert.Equal(t, "Gradba DOO", f.Evidence["top_winner"])

	// Too little history degrades instead of scoring.
	d.Entity.Tenders = d.Entity.Tenders[:3]
	f = scoreDominantWinnerShare(d)
	assert.Zero(t, f.Score)
	assert.Less(t, f.Confidence, 1.0)
}

func TestLosingBidderPattern(t *testing.T) {
	d := dataWith(awardedTender())
	d.Bids = []model.Bid{bid("W", 100, true), bid("L1", 110, false), bid("L2", 120, false)}
	d.Bidders = map[string]BidderStats{
		"L1": {Bidder: "L1", BidsTotal: 10, WinsTotal: 0},
		"L2": {Bidder: "L2", BidsTotal: 8, WinsTotal: 0},
	}

	f := scoreLosingBidderPattern(d)
	assert.InDelta(t, 100, f.Score, 0.001)

	d.Bidders["L2"] = BidderStats{Bidder: "L2", BidsTotal: 8, WinsTotal: 3}
	f = scoreLosingBidderPattern(d)
	assert.InDelta(t, 50, f.Score, 0.001)
}

func TestNewcomerWinsLarge(t *testing.T) {
	d := dataWith(awardedTender())
	d.Tender.EstimatedValueMKD = 30_000_000 // large bracket
	d.Bids = []model.Bid{bid("Fresh DOO", 29_000_000, true)}

	f := scoreNewcomerWinsLarge(d)
	assert.InDelta(t, 75, f.Score, 0.001)

	d.Tender.EstimatedValueMKD = 5_000_000
	f = scoreNewcomerWinsLarge(d)
	assert.InDelta(t, 55, f.Score, 0.001)

	d.Bidders["Fresh DOO"] = BidderStats{Bidder: "Fresh DOO", BidsTotal: 12, WinsTotal: 2}
	f = scoreNewcomerWinsLarge(d)
	assert.Zero(t, f.Score)
}

func TestCompetitionStubs(t *testing.T) {
	for _, name := range []string{"bid_withdrawal_pattern", "disqualification_rate"} {
		assert.True(t, findByName(t, name).Stub(), name)
	}
}
