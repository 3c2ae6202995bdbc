package indicator

import (
	"fmt"
	"time"

	"github.com/tenderwatch/risk-cli/internal/model"
)

// timingIndicators covers schedule manipulation: compressed submission
// windows, burying publications before non-working days, and amendment
// games around the closing date.
func timingIndicators() []Indicator {
	return []Indicator{
		{
			name:          "short_submission_window",
			category:      model.CategoryTiming,
			threshold:     60,
			defaultWeight: 7,
			needs:         0,
			score:         scoreShortSubmissionWindow,
		},
		{
			name:          "below_median_window",
			category:      model.CategoryTiming,
			threshold:     65,
			defaultWeight: 4,
			needs:         NeedMarketStats,
			score:         scoreBelowMedianWindow,
		},
		{
			name:          "weekend_publication",
			category:      model.CategoryTiming,
			threshold:     70,
			defaultWeight: 3,
			needs:         0,
			score:         scoreWeekendPublication,
		},
		{
			name:          "holiday_publication",
			category:      model.CategoryTiming,
			threshold:     70,
			defaultWeight: 3,
			needs:         0,
			score:         scoreHolidayPublication,
		},
		{
			name:          "window_shrinking_amendments",
			category:      model.CategoryTiming,
			threshold:     60,
			defaultWeight: 6,
			needs:         NeedAmendments,
			score:         scoreWindowShrinkingAmendments,
		},
		{
			name:          "last_minute_amendment",
			category:      model.CategoryTiming,
			threshold:     65,
			defaultWeight: 4,
			needs:         NeedAmendments,
			score:         scoreLastMinuteAmendment,
		},
		{
			name:          "rapid_award",
			category:      model.CategoryTiming,
			threshold:     70,
			defaultWeight: 3,
			needs:         0,
			score:         scoreRapidAward,
		},
		{
			name:          "year_end_rush",
			category:      model.CategoryTiming,
			threshold:     70,
			defaultWeight: 3,
			needs:         0,
			score:         scoreYearEndRush,
		},
		{
			name:          "amendment_timing_pattern",
			category:      model.CategoryTiming,
			threshold:     65,
			defaultWeight: 2,
		},
	}
}

// Fixed-date public holidays in North Macedonia (month, day).
var mkHolidays = [][2]int{
	{1, 1}, {1, 7}, {5, 1}, {5, 24}, {8, 2}, {9, 8}, {10, 11}, {10, 23}, {12, 8},
}

func isMKHoliday(t time.Time) bool {
	for _, h := range mkHolidays {
		if int(t.Month()) == h[0] && t.Day() == h[1] {
			return true
		}
	}
	return false
}

func scoreShortSubmissionWindow(d *TenderData) Finding {
	days := d.Tender.SubmissionWindowDays()
	if days < 0 {
		return Finding{Confidence: 0.2, Description: "opening or closing date missing; window not assessable"}
	}

	b := bracketFor(d.Tender.EstimatedValueMKD)
	ev := map[string]any{
		"window_days":     days,
		"value_bracket":   b.Name,
		"min_window_days": b.MinWindowDays,
	}

	if days >= b.MinWindowDays {
		return Finding{
			Confidence:  0.9,
			Description: fmt.Sprintf("%.0f-day window meets the %s-bracket floor of %.0f days", days, b.Name, b.MinWindowDays),
			Evidence:    ev,
		}
	}

	score := (b.MinWindowDays - days) / b.MinWindowDays * 100
	return Finding{
		Score:       score,
		Confidence:  0.9,
		Description: fmt.Sprintf("%.0f-day submission window below the %.0f-day floor for %s-bracket tenders", days, b.MinWindowDays, b.Name),
		Evidence:    ev,
	}
}

func scoreBelowMedianWindow(d *TenderData) Finding {
	days := d.Tender.SubmissionWindowDays()
	if days < 0 {
		return Finding{Confidence: 0.2, Description: "opening or closing date missing; window not assessable"}
	}
	if d.Market.MedianWindowDays <= 0 {
		return Finding{Confidence: 0.3, Description: "no category window norm available"}
	}

	ev := map[string]any{
		"window_days":        days,
		"median_window_days": d.Market.MedianWindowDays,
	}
	if days >= d.Market.MedianWindowDays {
		return Finding{
			Confidence:  historyConfidence(d.Market.SampleSize, 20),
			Description: "window at or above the category median",
			Evidence:    ev,
		}
	}

	score := (d.Market.MedianWindowDays - days) / d.Market.MedianWindowDays * 120
	return Finding{
		Score:       score,
		Confidence:  historyConfidence(d.Market.SampleSize, 20),
		Description: fmt.Sprintf("%.0f-day window against a category median of %.0f days", days, d.Market.MedianWindowDays),
		Evidence:    ev,
	}
}

func scoreWeekendPublication(d *TenderData) Finding {
	if d.Tender.OpeningDate == nil {
		return Finding{Confidence: 0.2, Description: "no publication date recorded"}
	}
	t := *d.Tender.OpeningDate
	ev := map[string]any{"published_at": t, "weekday": t.Weekday().String()}

	switch {
	case t.Weekday() == time.Saturday || t.Weekday() == time.Sunday:
		return Finding{
			Score:       85,
			Confidence:  0.9,
			Description: fmt.Sprintf("tender published on a %s", t.Weekday()),
			Evidence:    ev,
		}
	case t.Weekday() == time.Friday && t.Hour() >= 14:
		return Finding{
			Score:       75,
			Confidence:  0.9,
			Description: "tender published late on a Friday afternoon",
			Evidence:    ev,
		}
	}
	return Finding{Confidence: 0.9, Description: "publication on a regular working day", Evidence: ev}
}

func scoreHolidayPublication(d *TenderData) Finding {
	if d.Tender.OpeningDate == nil {
		return Finding{Confidence: 0.2, Description: "no publication date recorded"}
	}
	t := *d.Tender.OpeningDate
	ev := map[string]any{"published_at": t}

	if isMKHoliday(t) || isMKHoliday(t.AddDate(0, 0, 1)) {
		return Finding{
			Score:       80,
			Confidence:  0.85,
			Description: "tender published on or immediately before a public holiday",
			Evidence:    ev,
		}
	}
	return Finding{Confidence: 0.85, Description: "publication not adjacent to a public holiday", Evidence: ev}
}

func scoreWindowShrinkingAmendments(d *TenderData) Finding {
	if d.Tender.OpeningDate == nil || d.Tender.ClosingDate == nil {
		return Finding{Confidence: 0.2, Description: "tender dates missing; amendment effect not assessable"}
	}

	closing := *d.Tender.ClosingDate
	var shrunkDays float64
	shrinks := 0
	for _, a := range d.Amendments {
		if a.NewClosingDate == nil {
			continue
		}
		if a.NewClosingDate.Before(closing) {
			shrunkDays += closing.Sub(*a.NewClosingDate).Hours() / 24
			shrinks++
		}
		closing = *a.NewClosingDate
	}

	if shrinks == 0 {
		return Finding{Confidence: 0.85, Description: "no amendments shortened the submission window"}
	}

	window := d.Tender.SubmissionWindowDays()
	if window <= 0 {
		window = 1
	}
	frac := shrunkDays / window
	return Finding{
		Score:       frac * 150,
		Confidence:  0.85,
		Description: fmt.Sprintf("%d amendments cut %.0f days from the submission window", shrinks, shrunkDays),
		Evidence:    map[string]any{"shrinking_amendments": shrinks, "days_removed": shrunkDays},
	}
}

func scoreLastMinuteAmendment(d *TenderData) Finding {
	if d.Tender.ClosingDate == nil {
		return Finding{Confidence: 0.2, Description: "closing date missing; amendment timing not assessable"}
	}

	closing := *d.Tender.ClosingDate
	best := -1.0
	for _, a := range d.Amendments {
		if a.AmendedAt.After(closing) {
			continue
		}
		days := closing.Sub(a.AmendedAt).Hours() / 24
		if days <= 3 && (best < 0 || days < best) {
			best = days
		}
	}

	if best < 0 {
		return Finding{Confidence: 0.85, Description: "no amendments within 3 days of closing"}
	}
	return Finding{
		Score:       70 + (3-best)*10,
		Confidence:  0.85,
		Description: fmt.Sprintf("amendment published %.1f days before closing", best),
		Evidence:    map[string]any{"days_before_closing": best},
	}
}

func scoreRapidAward(d *TenderData) Finding {
	if d.Tender.ClosingDate == nil || d.Tender.AwardDate == nil {
		return Finding{Confidence: 0.2, Description: "closing or award date missing"}
	}

	days := d.Tender.AwardDate.Sub(*d.Tender.ClosingDate).Hours() / 24
	ev := map[string]any{"days_to_award": days}
	switch {
	case days < 0:
		return Finding{
			Score:       90,
			Confidence:  0.9,
			Description: "award recorded before the submission deadline",
			Evidence:    ev,
		}
	case days < 1:
		return Finding{
			Score:       80,
			Confidence:  0.9,
			Description: "contract awarded within a day of closing",
			Evidence:    ev,
		}
	case days < 2:
		return Finding{
			Score:       65,
			Confidence:  0.9,
			Description: "contract awarded within two days of closing",
			Evidence:    ev,
		}
	}
	return Finding{Confidence: 0.9, Description: fmt.Sprintf("award followed closing by %.0f days", days), Evidence: ev}
}

func scoreYearEndRush(d *TenderData) Finding {
	if d.Tender.ClosingDate == nil {
		return Finding{Confidence: 0.2, Description: "closing date missing"}
	}
	t := *d.Tender.ClosingDate
	ev := map[string]any{"closing_date": t}

	if t.Month() == time.December && t.Day() >= 20 {
		return Finding{
			Score:       75,
			Confidence:  0.85,
			Description: "tender closes in the year-end budget-spend window",
			Evidence:    ev,
		}
	}
	return Finding{Confidence: 0.85, Description: "closing date outside the year-end rush", Evidence: ev}
}
