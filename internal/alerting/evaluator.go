package alerting

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/tenderwatch/risk-cli/internal/config"
	"github.com/tenderwatch/risk-cli/internal/db"
	"github.com/tenderwatch/risk-cli/internal/model"
)

// Rule types recorded on generated alerts.
const (
	RuleScoreThreshold = "score_threshold"
	RuleCategoryMatch  = "category_match"
)

// candidate is one tender whose latest composite score falls inside the
// evaluation window.
type candidate struct {
	TenderID       string
	Score          float64
	Level          model.RiskLevel
	WeightsVersion int64
	Completeness   float64
	ComputedAt     time.Time
	Entity         string
	CPVCode        string
	TriggeredCats  []string
}

// Summary reports one evaluation run.
type Summary struct {
	RunID         uuid.UUID      `json:"run_id"`
	WindowFrom    time.Time      `json:"window_from"`
	WindowUntil   time.Time      `json:"window_until"`
	Candidates    int            `json:"candidates"`
	Subscriptions int            `json:"subscriptions"`
	Created       int            `json:"created"`
	Duplicates    int            `json:"duplicates"`
	ByRuleType    map[string]int `json:"by_rule_type"`
	Errors        int            `json:"errors"`
}

// Evaluator generates alerts for scores computed since the checkpoint.
type Evaluator struct {
	pool            db.Pool
	cfg             config.AlertingConfig
	minCompleteness float64
	notifier        *Notifier
}

// NewEvaluator builds an alert evaluator. minCompleteness gates low-data
// scores out of alerting regardless of how high they are.
func NewEvaluator(pool db.Pool, cfg config.AlertingConfig, minCompleteness float64, notifier *Notifier) *Evaluator {
	return &Evaluator{pool: pool, cfg: cfg, minCompleteness: minCompleteness, notifier: notifier}
}

// Run executes one checkpointed evaluation pass. Alert inserts are
// idempotent, so interrupted runs can be retried safely; the checkpoint
// only advances after the whole window has been processed. Per-item
// failures are counted and logged, not fatal.
func (e *Evaluator) Run(ctx context.Context) (Summary, error) {
	runID := uuid.New()
	log := zap.L().With(zap.String("component", "alerting"), zap.String("run_id", runID.String()))

	cp, found, err := LoadCheckpoint(ctx, e.pool)
	if err != nil {
		return Summary{}, err
	}
	since := cp.WindowUntil
	if !found {
		since = time.Time{}
	}
	until := time.Now().UTC()

	sum := Summary{
		RunID:       runID,
		WindowFrom:  since,
		WindowUntil: until,
		ByRuleType:  make(map[string]int),
	}

	candidates, err := e.loadCandidates(ctx, since, until)
	if err != nil {
		return Summary{}, err
	}
	sum.Candidates = len(candidates)

	// When the per-run cap truncates the window, the checkpoint may only
	// advance past candidates this run actually saw. The remainder stays in
	// the next run's window instead of being skipped forever.
	advanceTo := until
	if e.cfg.MaxTendersPerRun > 0 && len(candidates) == e.cfg.MaxTendersPerRun {
		advanceTo = candidates[len(candidates)-1].ComputedAt
		sum.WindowUntil = advanceTo
		log.Warn("candidate window truncated",
			zap.Int("limit", e.cfg.MaxTendersPerRun),
			zap.Time("advance_to", advanceTo))
	}

	subs, err := LoadSubscriptions(ctx, e.pool, true)
	if err != nil {
		return Summary{}, err
	}
	sum.Subscriptions = len(subs)

	for _, cand := range candidates {
		if cand.Completeness < e.minCompleteness {
			continue
		}
		for _, sub := range subs {
			rule, ok := matches(sub, cand)
			if !ok {
				continue
			}
			created, err := e.insertAlert(ctx, sub, cand, rule)
			if err != nil {
				log.Warn("alert insert failed",
					zap.Int64("subscription_id", sub.ID),
					zap.String("tender_id", cand.TenderID),
					zap.Error(err))
				sum.Errors++
				continue
			}
			if !created {
				sum.Duplicates++
				continue
			}
			sum.Created++
			sum.ByRuleType[rule]++

			if e.notifier.Enabled() {
				err := e.notifier.Notify(ctx, webhookPayload{
					SubscriptionID: sub.ID,
					UserRef:        sub.UserRef,
					TenderID:       cand.TenderID,
					Score:          cand.Score,
					Level:          cand.Level,
					RuleType:       rule,
				})
				if err != nil {
					log.Warn("webhook delivery failed",
						zap.String("tender_id", cand.TenderID), zap.Error(err))
					sum.Errors++
				}
			}
		}
	}

	if err := AdvanceCheckpoint(ctx, e.pool, runID, advanceTo); err != nil {
		return Summary{}, err
	}

	log.Info("alert run complete",
		zap.Int("candidates", sum.Candidates),
		zap.Int("created", sum.Created),
		zap.Int("duplicates", sum.Duplicates),
		zap.Int("errors", sum.Errors))
	return sum, nil
}

// matches decides whether a candidate satisfies a subscription and which
// rule type to record. A subscription with an indicator filter requires at
// least one triggered indicator in one of the named categories.
func matches(sub model.AlertSubscription, cand candidate) (string, bool) {
	if cand.Score < sub.MinScore {
		return "", false
	}
	if sub.EntityFilter != nil && *sub.EntityFilter != cand.Entity {
		return "", false
	}
	if sub.CPVFilter != nil && *sub.CPVFilter != cand.CPVCode {
		return "", false
	}
	if len(sub.IndicatorFilter) == 0 {
		return RuleScoreThreshold, true
	}
	for _, want := range sub.IndicatorFilter {
		for _, have := range cand.TriggeredCats {
			if want == have {
				return RuleCategoryMatch, true
			}
		}
	}
	return "", false
}

// insertAlert creates the alert if it does not exist yet. created is false
// when the (subscription, tender) pair was already alerted.
func (e *Evaluator) insertAlert(ctx context.Context, sub model.AlertSubscription, cand candidate, rule string) (created bool, err error) {
	tag, err := e.pool.Exec(ctx, `
		INSERT INTO risk.alerts (subscription_id, tender_id, score, rule_type)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (subscription_id, tender_id) DO NOTHING`,
		sub.ID, cand.TenderID, cand.Score, rule)
	if err != nil {
		return false, eris.Wrap(err, "alerting: insert alert")
	}
	return tag.RowsAffected() > 0, nil
}

func (e *Evaluator) loadCandidates(ctx context.Context, since, until time.Time) ([]candidate, error) {
	rows, err := e.pool.Query(ctx, `
		SELECT s.tender_id, s.score, s.risk_level, s.weights_version, s.completeness,
		       s.computed_at, t.procuring_entity, t.cpv_code,
		       COALESCE((
		           SELECT array_agg(DISTINCT i.category)
		           FROM risk.indicator_scores i
		           WHERE i.tender_id = s.tender_id
		             AND i.weights_version = s.weights_version
		             AND i.triggered
		       ), '{}')
		FROM (
		    SELECT DISTINCT ON (tender_id)
		           tender_id, score, risk_level, weights_version, completeness, computed_at
		    FROM risk.composite_scores
		    ORDER BY tender_id, computed_at DESC, weights_version DESC
		) s
		JOIN risk.tenders t ON t.id = s.tender_id
		WHERE s.computed_at > $1 AND s.computed_at <= $2
		ORDER BY s.computed_at, s.tender_id
		LIMIT $3`,
		since, until, e.cfg.MaxTendersPerRun)
	if err != nil {
		return nil, eris.Wrap(err, "alerting: query candidates")
	}
	defer rows.Close()

	var out []candidate
	for rows.Next() {
		var c candidate
		var level string
		if err := rows.Scan(&c.TenderID, &c.Score, &level, &c.WeightsVersion,
			&c.Completeness, &c.ComputedAt, &c.Entity, &c.CPVCode, &c.TriggeredCats); err != nil {
			return nil, eris.Wrap(err, "alerting: scan candidate")
		}
		c.Level = model.RiskLevel(level)
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "alerting: iterate candidates")
}

// LoadSubscriptions returns subscriptions, optionally only active ones.
func LoadSubscriptions(ctx context.Context, pool db.Pool, activeOnly bool) ([]model.AlertSubscription, error) {
	rows, err := pool.Query(ctx, `
		SELECT id, user_ref, active, min_score, indicator_filter, entity_filter, cpv_filter
		FROM risk.alert_subscriptions
		WHERE active OR NOT $1
		ORDER BY id`, activeOnly)
	if err != nil {
		return nil, eris.Wrap(err, "alerting: query subscriptions")
	}
	defer rows.Close()

	var out []model.AlertSubscription
	for rows.Next() {
		var s model.AlertSubscription
		if err := rows.Scan(&s.ID, &s.UserRef, &s.Active, &s.MinScore,
			&s.IndicatorFilter, &s.EntityFilter, &s.CPVFilter); err != nil {
			return nil, eris.Wrap(err, "alerting: scan subscription")
		}
		out = append(out, s)
	}
	return out, eris.Wrap(rows.Err(), "alerting: iterate subscriptions")
}
