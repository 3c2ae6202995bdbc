// Package indicator implements the corruption red-flag catalog: ~45
// statistical indicators across five families, evaluated against a single
// tender's relational data.
package indicator

import (
	"fmt"

	"github.com/tenderwatch/risk-cli/internal/model"
)

// DataNeed is a bitmask describing which sections of TenderData an
// indicator requires. Evaluation fails soft when a required section could
// not be loaded.
type DataNeed uint16

const (
	NeedBids DataNeed = 1 << iota
	NeedDocuments
	NeedAmendments
	NeedEntityHistory
	NeedMarketStats
	NeedBidderStats
)

// StubDescription is the exact description carried by indicators whose
// source data the scraper does not yet supply. Callers distinguish a stub
// from a genuinely negative finding by this field.
const StubDescription = "not yet implemented"

// Finding is the raw output of an indicator's scoring function before
// clamping and threshold evaluation.
type Finding struct {
	Score       float64
	Confidence  float64
	Description string
	Evidence    map[string]any
}

// Indicator is one independent statistical test for a corruption pattern.
// The catalog is a closed set of these tagged variants; a nil score
// function marks a stub.
type Indicator struct {
	name          string
	category      model.Category
	threshold     float64
	defaultWeight float64
	needs         DataNeed
	score         func(d *TenderData) Finding
}

// Name returns the indicator's unique identifier.
func (in Indicator) Name() string { return in.name }

// Category returns the corruption pattern family.
func (in Indicator) Category() model.Category { return in.category }

// Threshold returns the fixed score at or above which the indicator
// triggers.
func (in Indicator) Threshold() float64 { return in.threshold }

// DefaultWeight returns the cold-start weight used before any calibrated
// vector exists.
func (in Indicator) DefaultWeight() float64 { return in.defaultWeight }

// Stub reports whether this indicator is a placeholder awaiting source data.
func (in Indicator) Stub() bool { return in.score == nil }

// Evaluate computes the indicator against loaded tender data. It never
// returns an error: missing data and stubs yield an untriggered zero
// result with an explanatory description.
func (in Indicator) Evaluate(d *TenderData, weight float64) model.IndicatorResult {
	if in.score == nil {
		return in.result(Finding{Description: StubDescription}, weight, false)
	}

	if reason, missing := d.MissingReason(in.needs); missing {
		return in.result(Finding{
			Confidence:  0.1,
			Description: fmt.Sprintf("insufficient data: %s", reason),
		}, weight, false)
	}

	return in.result(in.score(d), weight, true)
}

// result is the single construction path for IndicatorResult, guaranteeing
// the [0,100] score invariant and the triggered/threshold relationship.
func (in Indicator) result(f Finding, weight float64, mayTrigger bool) model.IndicatorResult {
	score := clamp(f.Score, 0, 100)
	if !mayTrigger {
		score = 0
	}
	return model.IndicatorResult{
		Indicator:   in.name,
		Category:    in.category,
		Score:       score,
		Triggered:   mayTrigger && score >= in.threshold,
		Weight:      weight,
		Confidence:  clamp(f.Confidence, 0, 1),
		Description: f.Description,
		Evidence:    f.Evidence,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
