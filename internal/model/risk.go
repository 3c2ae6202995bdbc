package model

import "time"

// Category groups indicators by the corruption pattern family they test.
type Category string

const (
	CategoryCompetition  Category = "competition"
	CategoryPrice        Category = "price"
	CategoryTiming       Category = "timing"
	CategoryRelationship Category = "relationship"
	CategoryProcedural   Category = "procedural"
)

// Categories lists all indicator categories in canonical order.
func Categories() []Category {
	return []Category{
		CategoryCompetition,
		CategoryPrice,
		CategoryTiming,
		CategoryRelationship,
		CategoryProcedural,
	}
}

// ParseCategory converts a string into a Category.
func ParseCategory(s string) (Category, bool) {
	for _, c := range Categories() {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// IndicatorResult is the output of one indicator evaluated against one
// tender. Results are created fresh on each evaluation run and never
// mutated.
type IndicatorResult struct {
	Indicator   string         `json:"indicator"`
	Category    Category       `json:"category"`
	Score       float64        `json:"score"` // 0-100
	Triggered   bool           `json:"triggered"`
	Weight      float64        `json:"weight"`
	Confidence  float64        `json:"confidence"` // 0-1
	Description string         `json:"description"`
	Evidence    map[string]any `json:"evidence,omitempty"`
}

// RiskLevel is the discrete band derived from a composite score.
type RiskLevel string

const (
	RiskMinimal  RiskLevel = "minimal"
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// RiskLevelFor maps a composite score to its fixed band.
func RiskLevelFor(score float64) RiskLevel {
	switch {
	case score < 20:
		return RiskMinimal
	case score < 40:
		return RiskLow
	case score < 60:
		return RiskMedium
	case score < 80:
		return RiskHigh
	default:
		return RiskCritical
	}
}

// CompositeScore is the weighted combination of triggered indicator results
// for one tender under one weight vector version.
type CompositeScore struct {
	TenderID       string            `json:"tender_id"`
	Score          float64           `json:"score"`
	Level          RiskLevel         `json:"level"`
	WeightsVersion int64             `json:"weights_version"`
	ConfidenceLow  float64           `json:"confidence_low"`
	ConfidenceHigh float64           `json:"confidence_high"`
	Completeness   float64           `json:"completeness"`
	Uncertainty    string            `json:"uncertainty"`
	ComputedAt     time.Time         `json:"computed_at"`
	Results        []IndicatorResult `json:"results,omitempty"`
}

// WeightVector maps indicator names to positive weights, versioned with the
// feedback batch that produced it. History is append-only.
type WeightVector struct {
	Version           int64              `json:"version"`
	Weights           map[string]float64 `json:"weights"`
	Source            string             `json:"source"` // "default" or "calibration"
	FeedbackBatchSize int                `json:"feedback_batch_size"`
	CreatedAt         time.Time          `json:"created_at"`
	Current           bool               `json:"current"`
}

// Verdict is an expert's label for a scored tender.
type Verdict string

const (
	VerdictCorrupt      Verdict = "corrupt"
	VerdictClean        Verdict = "clean"
	VerdictInconclusive Verdict = "inconclusive"
)

// ExpertVerdict is an immutable expert label attached to a tender's prior
// composite score.
type ExpertVerdict struct {
	ID             int64             `json:"id"`
	TenderID       string            `json:"tender_id"`
	WeightsVersion int64             `json:"weights_version"`
	Verdict        Verdict           `json:"verdict"`
	Notes          map[string]string `json:"notes,omitempty"` // indicator-level agreement notes
	CreatedAt      time.Time         `json:"created_at"`
}

// AlertSubscription is a user's standing alert query. Read-only to the
// evaluator.
type AlertSubscription struct {
	ID              int64    `json:"id"`
	UserRef         string   `json:"user_ref"`
	Active          bool     `json:"active"`
	MinScore        float64  `json:"min_score"`
	IndicatorFilter []string `json:"indicator_filter,omitempty"` // categories
	EntityFilter    *string  `json:"entity_filter,omitempty"`
	CPVFilter       *string  `json:"cpv_filter,omitempty"`
}

// Alert is a materialized match between a tender's composite score and a
// subscription. At most one alert ever exists per (subscription, tender).
type Alert struct {
	ID             int64     `json:"id"`
	SubscriptionID int64     `json:"subscription_id"`
	TenderID       string    `json:"tender_id"`
	Score          float64   `json:"score"`
	RuleType       string    `json:"rule_type"`
	CreatedAt      time.Time `json:"created_at"`
}

// ReviewItem is a tender queued for expert labeling.
type ReviewItem struct {
	TenderID string    `json:"tender_id"`
	Priority float64   `json:"priority"`
	Reason   string    `json:"reason"`
	QueuedAt time.Time `json:"queued_at"`
}
