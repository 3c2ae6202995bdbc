package cri

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tenderwatch/risk-cli/internal/config"
	"github.com/tenderwatch/risk-cli/internal/confidence"
	"github.com/tenderwatch/risk-cli/internal/db"
	"github.com/tenderwatch/risk-cli/internal/indicator"
	"github.com/tenderwatch/risk-cli/internal/model"
)

// Engine ties the indicator registry and confidence estimator into a
// single scoring pipeline.
type Engine struct {
	pool db.Pool
	cfg  config.EngineConfig
	reg  *indicator.Registry
	est  *confidence.Estimator
}

// NewEngine builds the scoring pipeline over a shared pool.
func NewEngine(pool db.Pool, cfg config.EngineConfig) *Engine {
	return &Engine{
		pool: pool,
		cfg:  cfg,
		reg:  indicator.NewRegistry(pool, cfg),
		est:  confidence.New(cfg.Resamples, cfg.MinCompleteness),
	}
}

// Registry exposes the catalog for listing and lookups.
func (e *Engine) Registry() *indicator.Registry { return e.reg }

// Analyze evaluates the full catalog against one tender and returns the
// composite score with confidence annotations attached.
func (e *Engine) Analyze(ctx context.Context, tenderID string, weights model.WeightVector) (model.CompositeScore, error) {
	results, err := e.reg.RunAll(ctx, tenderID, weights)
	if err != nil {
		return model.CompositeScore{}, err
	}

	cs := Compose(tenderID, results, weights.Version)
	cs.ConfidenceLow, cs.ConfidenceHigh, _ = e.est.Interval(tenderID, results, Combine)
	cs.Completeness = confidence.Completeness(results)
	// A maximal interval from the zero-triggered case classifies as high
	// uncertainty on width alone.
	cs.Uncertainty = e.est.Classify(cs.ConfidenceLow, cs.ConfidenceHigh, cs.Completeness)
	cs.ComputedAt = time.Now().UTC()
	return cs, nil
}

// BatchSummary reports the outcome of a batch run. Per-tender failures do
// not abort the batch.
type BatchSummary struct {
	Scored []model.CompositeScore
	Failed int
}

// AnalyzeBatch scores many tenders with bounded concurrency, optionally
// persisting each result. Tenders that fail to load are logged, counted
// and skipped.
func (e *Engine) AnalyzeBatch(ctx context.Context, tenderIDs []string, weights model.WeightVector, save bool) (BatchSummary, error) {
	log := zap.L().With(zap.String("component", "cri.engine"))

	scored := make([]model.CompositeScore, len(tenderIDs))
	failed := make([]bool, len(tenderIDs))

	limit := e.cfg.Concurrency
	if limit <= 0 {
		limit = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, id := range tenderIDs {
		i, id := i, id
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			cs, err := e.Analyze(gctx, id, weights)
			if err != nil {
				log.Warn("tender scoring failed", zap.String("tender_id", id), zap.Error(err))
				failed[i] = true
				return nil
			}
			if save {
				if err := Persist(gctx, e.pool, cs); err != nil {
					log.Warn("score persist failed", zap.String("tender_id", id), zap.Error(err))
					failed[i] = true
					return nil
				}
			}
			scored[i] = cs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return BatchSummary{}, err
	}

	var sum BatchSummary
	for i := range tenderIDs {
		if failed[i] {
			sum.Failed++
			continue
		}
		sum.Scored = append(sum.Scored, scored[i])
	}
	return sum, nil
}
