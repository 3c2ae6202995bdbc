package indicator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tenderwatch/risk-cli/internal/model"
)

func TestShortSubmissionWindow(t *testing.T) {
	td := awardedTender() // medium bracket: 15-day floor
	td.OpeningDate = date(2025, 3, 3)
	td.ClosingDate = date(2025, 3, 9) // 6 days
	f := scoreShortSubmissionWindow(dataWith(td))
	assert.InDelta(t, 60, f.Score, 0.5) // (15-6)/15*100

	td.ClosingDate = date(2025, 3, 24)
	f = scoreShortSubmissionWindow(dataWith(td))
	assert.Zero(t, f.Score)

	td.ClosingDate = nil
	f = scoreShortSubmissionWindow(dataWith(td))
	assert.Zero(t, f.Score)
	assert.Less(t, f.Confidence, 0.5)
}

func TestBelowMedianWindow(t *testing.T) {
	d := dataWith(awardedTender())
	d.Tender.OpeningDate = date(2025, 3, 3)
	d.Tender.ClosingDate = date(2025, 3, 13) // 10 days
	d.Market = MarketStats{SampleSize: 25, MedianWindowDays: 20}

	f := scoreBelowMedianWindow(d)
	assert.InDelta(t, 60, f.Score, 0.5) // (20-10)/20*120

	d.Tender.ClosingDate = date(2025, 3, 28)
	f = scoreBelowMedianWindow(d)
	assert.Zero(t, f.Score)
}

func TestWeekendPublication(t *testing.T) {
	d := dataWith(awardedTender())

	sat := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC) // Saturday
	d.Tender.OpeningDate = &sat
	assert.InDelta(t, 85, scoreWeekendPublication(d).Score, 0.001)

	friLate := time.Date(2025, 3, 7, 16, 30, 0, 0, time.UTC) // Friday 16:30
	d.Tender.OpeningDate = &friLate
	assert.InDelta(t, 75, scoreWeekendPublication(d).Score, 0.001)

	tue := time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC)
	d.Tender.OpeningDate = &tue
	assert.Zero(t, scoreWeekendPublication(d).Score)
}

func TestHolidayPublication(t *testing.T) {
	d := dataWith(awardedTender())

	ilinden := time.Date(2025, 8, 2, 9, 0, 0, 0, time.UTC)
	d.Tender.OpeningDate = &ilinden
	assert.InDelta(t, 80, scoreHolidayPublication(d).Score, 0.001)

	dayBefore := time.Date(2025, 8, 1, 9, 0, 0, 0, time.UTC)
	d.Tender.OpeningDate = &dayBefore
	assert.InDelta(t, 80, scoreHolidayPublication(d).Score, 0.001)

	ordinary := time.Date(2025, 6, 17, 9, 0, 0, 0, time.UTC)
	d.Tender.OpeningDate = &ordinary
	assert.Zero(t, scoreHolidayPublication(d).Score)
}

func TestWindowShrinkingAmendments(t *testing.T) {
	d := dataWith(awardedTender())
	d.Tender.OpeningDate = date(2025, 3, 3)
	d.Tender.ClosingDate = date(2025, 3, 24) // 21-day window
	d.Amendments = []model.Amendment{
		{AmendedAt: date(2025, 3, 10).UTC(), NewClosingDate: date(2025, 3, 17)}, // cut 7 days
	}

	f := scoreWindowShrinkingAmendments(d)
	assert.InDelta(t, 50, f.Score, 0.5) // 7/21*150
	assert.Equal(t, 1, f.Evidence["shrinking_amendments"])

	// Extensions are not penalized.
	d.Amendments = []model.Amendment{
		{AmendedAt: date(2025, 3, 10).UTC(), NewClosingDate: date(2025, 4, 1)},
	}
	f = scoreWindowShrinkingAmendments(d)
	assert.Zero(t, f.Score)
}

func TestLastMinuteAmendment(t *testing.T) {
	d := dataWith(awardedTender())
	d.Tender.ClosingDate = date(2025, 3, 24)
	d.Amendments = []model.Amendment{
		{AmendedAt: date(2025, 3, 23).UTC()}, // 1 day before closing
	}

	f := scoreLastMinuteAmendment(d)
	assert.InDelta(t, 90, f.Score, 0.5) // 70 + (3-1)*10

	d.Amendments = []model.Amendment{
		{AmendedAt: date(2025, 3, 10).UTC()},
	}
	f = scoreLastMinuteAmendment(d)
	assert.Zero(t, f.Score)
}

func TestRapidAward(t *testing.T) {
	tests := []struct {
		name    string
		closing *time.Time
		award   *time.Time
		want    float64
	}{
		{"award before closing", date(2025, 3, 24), date(2025, 3, 20), 90},
		{"same day", date(2025, 3, 24), date(2025, 3, 24), 80},
		{"next day", date(2025, 3, 24), date(2025, 3, 25), 65},
		{"normal pace", date(2025, 3, 24), date(2025, 4, 10), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			td := awardedTender()
			td.ClosingDate = tt.closing
			td.AwardDate = tt.award
			f := scoreRapidAward(dataWith(td))
			assert.InDelta(t, tt.want, f.Score, 0.001)
		})
	}
}

func TestYearEndRush(t *testing.T) {
	td := awardedTender()
	td.ClosingDate = date(2025, 12, 28)
	assert.InDelta(t, 75, scoreYearEndRush(dataWith(td)).Score, 0.001)

	td.ClosingDate = date(2025, 12, 10)
	assert.Zero(t, scoreYearEndRush(dataWith(td)).Score)
}
