package indicator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenderwatch/risk-cli/internal/model"
)

func TestEvaluate_Stub(t *testing.T) {
	in := Indicator{name: "placeholder", category: model.CategoryProcedural, threshold: 60, defaultWeight: 2}
	require.True(t, in.Stub())

	r := in.Evaluate(dataWith(awardedTender()), 2)
	assert.Equal(t, StubDescription, r.Description)
	assert.False(t, r.Triggered)
	assert.Zero(t, r.Score)
	assert.Equal(t, 2.0, r.Weight)
}

func TestEvaluate_MissingData(t *testing.T) {
	in := Indicator{
		name: "needs_bids", category: model.CategoryCompetition, threshold: 60,
		needs: NeedBids,
		score: func(d *TenderData) Finding { return Finding{Score: 100, Confidence: 1} },
	}

	d := dataWith(awardedTender())
	d.MarkMissing(NeedBids, "bid records unavailable")

	r := in.Evaluate(d, 5)
	assert.False(t, r.Triggered)
	assert.Zero(t, r.Score)
	assert.InDelta(t, 0.1, r.Confidence, 0.001)
	assert.Contains(t, r.Description, "insufficient data")
	assert.Contains(t, r.Description, "bid records unavailable")
}

func TestEvaluate_ClampsAndTriggers(t *testing.T) {
	tests := []struct {
		name      string
		raw       float64
		threshold float64
		wantScore float64
		triggered bool
	}{
		{"above 100 clamps", 240, 60, 100, true},
		{"below 0 clamps", -30, 60, 0, false},
		{"exactly at threshold triggers", 60, 60, 60, true},
		{"just below threshold", 59.9, 60, 59.9, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := Indicator{
				name: "synthetic", category: model.CategoryPrice, threshold: tt.threshold,
				score: func(d *TenderData) Finding { return Finding{Score: tt.raw, Confidence: 1.4} },
			}
			r := in.Evaluate(dataWith(awardedTender()), 1)
			assert.InDelta(t, tt.wantScore, r.Score, 0.001)
			assert.Equal(t, tt.triggered, r.Triggered)
			assert.InDelta(t, 1.0, r.Confidence, 0.001, "confidence clamps to [0,1]")
		})
	}
}

func TestMissingReason_MatchesOnlyRequestedNeeds(t *testing.T) {
	d := dataWith(awardedTender())
	d.MarkMissing(NeedMarketStats, "fewer than 5 awarded tenders in category")

	_, missing := d.MissingReason(NeedBids | NeedDocuments)
	assert.False(t, missing)

	reason, missing := d.MissingReason(NeedMarketStats | NeedBids)
	assert.True(t, missing)
	assert.Equal(t, "fewer than 5 awarded tenders in category", reason)
}

func TestBracketFor(t *testing.T) {
	assert.Equal(t, "small", bracketFor(400_000).Name)
	assert.Equal(t, "medium", bracketFor(5_000_000).Name)
	assert.Equal(t, "large", bracketFor(25_000_000).Name)
	assert.Equal(t, "major", bracketFor(90_000_000).Name)
}

func TestHistoryConfidence(t *testing.T) {
	assert.Equal(t, 1.0, historyConfidence(10, 5))
	assert.Equal(t, 1.0, historyConfidence(5, 5))
	assert.InDelta(t, 0.4, historyConfidence(2, 5), 0.001)
	assert.Equal(t, 0.0, historyConfidence(0, 5))
	assert.Equal(t, 1.0, historyConfidence(3, 0))
}

func TestJaccard(t *testing.T) {
	assert.Equal(t, 1.0, jaccard([]string{"a", "b"}, []string{"b", "a"}))
	assert.InDelta(t, 0.5, jaccard([]string{"a", "b", "c"}, []string{"a", "b", "d"}), 0.001)
	assert.Equal(t, 0.0, jaccard(nil, []string{"a"}))
	assert.Equal(t, 0.0, jaccard([]string{"a"}, []string{"b"}))
}

func TestNormalizeAddress(t *testing.T) {
	a := normalizeAddress("Ul. Partizanska 12,  Skopje")
	b := normalizeAddress("ul partizanska 12 skopje")
	assert.Equal(t, a, b)
}

func TestCoefficientOfVariation(t *testing.T) {
	assert.Equal(t, -1.0, coefficientOfVariation([]float64{5}))
	assert.Equal(t, -1.0, coefficientOfVariation([]float64{-2, 2}))

	cv := coefficientOfVariation([]float64{100, 100, 100})
	assert.InDelta(t, 0, cv, 0.0001)

	cv = coefficientOfVariation([]float64{90, 100, 110})
	assert.Greater(t, cv, 0.05)
}
