package indicator

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/tenderwatch/risk-cli/internal/model"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func ptr[T any](v T) *T { return &v }

func date(y, m, d int) *time.Time {
	t := time.Date(y, time.Month(m), d, 10, 0, 0, 0, time.UTC)
	return &t
}

// awardedTender is a plain medium-bracket awarded tender used as the base
// for scorer tests.
func awardedTender() model.Tender {
	return model.Tender{
		ID:                "T-100",
		Title:             "Road maintenance 2025",
		CPVCode:           "45230000",
		ProcuringEntity:   "Municipality of Centar",
		Procedure:         model.ProcedureOpen,
		EstimatedValueMKD: 5_000_000,
		AwardedValueMKD:   ptr(3_900_000.0),
		Currency:          "MKD",
		NumBidders:        4,
		Status:            model.StatusAwarded,
		OpeningDate:       date(2025, 3, 3),
		ClosingDate:       date(2025, 3, 24),
		AwardDate:         date(2025, 4, 10),
		Winner:            ptr("Gradba DOO"),
	}
}

func dataWith(t model.Tender) *TenderData {
	return &TenderData{Tender: t, Bidders: map[string]BidderStats{}}
}

func bid(bidder string, amount float64, winner bool) model.Bid {
	return model.Bid{TenderID: "T-100", Bidder: bidder, AmountMKD: amount, IsWinner: winner}
}

func findByName(t *testing.T, name string) Indicator {
	t.Helper()
	for _, family := range [][]Indicator{
		competitionIndicators(), priceIndicators(), timingIndicators(),
		relationshipIndicators(), proceduralIndicators(),
	} {
		for _, in := range family {
			if in.name == name {
				return in
			}
		}
	}
	t.Fatalf("no indicator named %q", name)
	return Indicator{}
}
