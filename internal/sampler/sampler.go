// Package sampler maintains the expert review queue, prioritizing tenders
// whose labels would most improve calibration.
package sampler

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/tenderwatch/risk-cli/internal/config"
	"github.com/tenderwatch/risk-cli/internal/db"
	"github.com/tenderwatch/risk-cli/internal/model"
)

// scoredTender is one labeling candidate with the signals the priority
// function needs.
type scoredTender struct {
	TenderID     string
	Score        float64
	IntervalLow  float64
	IntervalHigh float64
	Disagreement float64 // stddev of triggered indicator scores
}

// Sampler selects which scored tenders go to experts next.
type Sampler struct {
	pool db.Pool
	cfg  config.SamplerConfig
}

// New builds a sampler over the shared pool.
func New(pool db.Pool, cfg config.SamplerConfig) *Sampler {
	return &Sampler{pool: pool, cfg: cfg}
}

// priority ranks a candidate by how informative its label would be: close
// to the decision boundary, wide confidence interval, triggered indicators
// in disagreement. Each term is normalized to [0,1].
func (s *Sampler) priority(t scoredTender) float64 {
	boundary := s.cfg.BoundaryScore
	closeness := 1 - math.Abs(t.Score-boundary)/boundary
	if closeness < 0 {
		closeness = 0
	}
	width := (t.IntervalHigh - t.IntervalLow) / 100
	disagreement := t.Disagreement / 50

	return closeness + math.Min(width, 1) + math.Min(disagreement, 1)
}

// RefreshQueue recomputes the review queue from the latest composite
// scores. Tenders that already carry a verdict are excluded; the queue is
// trimmed to the configured size.
func (s *Sampler) RefreshQueue(ctx context.Context) (int, error) {
	log := zap.L().With(zap.String("component", "sampler"))

	candidates, err := s.loadCandidates(ctx)
	if err != nil {
		return 0, err
	}
	if len(candidates) == 0 {
		log.Info("no unlabeled scored tenders to queue")
		return 0, nil
	}

	type queued struct {
		item     model.ReviewItem
		priority float64
	}
	items := make([]queued, 0, len(candidates))
	for _, c := range candidates {
		p := s.priority(c)
		items = append(items, queued{
			item: model.ReviewItem{
				TenderID: c.TenderID,
				Priority: p,
				Reason: fmt.Sprintf("score %.1f, interval [%.1f, %.1f], indicator stddev %.1f",
					c.Score, c.IntervalLow, c.IntervalHigh, c.Disagreement),
			},
			priority: p,
		})
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].priority != items[j].priority {
			return items[i].priority > items[j].priority
		}
		return items[i].item.TenderID < items[j].item.TenderID
	})
	if len(items) > s.cfg.QueueSize {
		items = items[:s.cfg.QueueSize]
	}

	rows := make([][]any, 0, len(items))
	keep := make([]string, 0, len(items))
	for _, q := range items {
		rows = append(rows, []any{q.item.TenderID, q.item.Priority, q.item.Reason})
		keep = append(keep, q.item.TenderID)
	}

	if _, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "risk.review_queue",
		Columns:      []string{"tender_id", "priority", "reason"},
		ConflictKeys: []string{"tender_id"},
	}, rows); err != nil {
		return 0, err
	}

	if _, err := s.pool.Exec(ctx,
		"DELETE FROM risk.review_queue WHERE NOT (tender_id = ANY($1))", keep); err != nil {
		return 0, eris.Wrap(err, "sampler: trim review queue")
	}

	log.Info("review queue refreshed", zap.Int("queued", len(items)), zap.Int("candidates", len(candidates)))
	return len(items), nil
}

// QueueItems returns the queue in priority order.
func (s *Sampler) QueueItems(ctx context.Context, limit int) ([]model.ReviewItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT tender_id, priority, reason, queued_at
		FROM risk.review_queue
		ORDER BY priority DESC, tender_id
		LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sampler: query review queue")
	}
	defer rows.Close()

	var out []model.ReviewItem
	for rows.Next() {
		var item model.ReviewItem
		if err := rows.Scan(&item.TenderID, &item.Priority, &item.Reason, &item.QueuedAt); err != nil {
			return nil, eris.Wrap(err, "sampler: scan review item")
		}
		out = append(out, item)
	}
	return out, eris.Wrap(rows.Err(), "sampler: iterate review queue")
}

func (s *Sampler) loadCandidates(ctx context.Context) ([]scoredTender, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT s.tender_id, s.score, s.confidence_low, s.confidence_high,
		       COALESCE((
		           SELECT stddev_samp(i.score)
		           FROM risk.indicator_scores i
		           WHERE i.tender_id = s.tender_id
		             AND i.weights_version = s.weights_version
		             AND i.triggered
		       ), 0)
		FROM (
		    SELECT DISTINCT ON (tender_id)
		           tender_id, score, confidence_low, confidence_high, weights_version
		    FROM risk.composite_scores
		    ORDER BY tender_id, computed_at DESC, weights_version DESC
		) s
		WHERE NOT EXISTS (
		    SELECT 1 FROM risk.expert_verdicts v WHERE v.tender_id = s.tender_id
		)`)
	if err != nil {
		return nil, eris.Wrap(err, "sampler: query candidates")
	}
	defer rows.Close()

	var out []scoredTender
	for rows.Next() {
		var t scoredTender
		if err := rows.Scan(&t.TenderID, &t.Score, &t.IntervalLow, &t.IntervalHigh, &t.Disagreement); err != nil {
			return nil, eris.Wrap(err, "sampler: scan candidate")
		}
		out = append(out, t)
	}
	return out, eris.Wrap(rows.Err(), "sampler: iterate candidates")
}
