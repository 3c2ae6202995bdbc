package indicator

import (
	"context"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tenderwatch/risk-cli/internal/config"
	"github.com/tenderwatch/risk-cli/internal/db"
	"github.com/tenderwatch/risk-cli/internal/model"
)

// Registry holds the full indicator catalog and evaluates it against
// tenders. Registration order is fixed at construction and acts as the
// final tie-breaker in ranked output, so repeated runs over the same data
// produce identical orderings.
type Registry struct {
	pool       db.Pool
	cfg        config.EngineConfig
	indicators []Indicator
	byName     map[string]int
}

// NewRegistry builds the catalog in its canonical family order.
func NewRegistry(pool db.Pool, cfg config.EngineConfig) *Registry {
	r := &Registry{pool: pool, cfg: cfg, byName: make(map[string]int)}
	for _, family := range [][]Indicator{
		competitionIndicators(),
		priceIndicators(),
		timingIndicators(),
		relationshipIndicators(),
		proceduralIndicators(),
	} {
		for _, in := range family {
			r.byName[in.name] = len(r.indicators)
			r.indicators = append(r.indicators, in)
		}
	}
	return r
}

// All returns the catalog in registration order.
func (r *Registry) All() []Indicator {
	out := make([]Indicator, len(r.indicators))
	copy(out, r.indicators)
	return out
}

// Get looks up one indicator by name.
func (r *Registry) Get(name string) (Indicator, bool) {
	i, ok := r.byName[name]
	if !ok {
		return Indicator{}, false
	}
	return r.indicators[i], true
}

// IndicatorCount returns the catalog size per family.
func (r *Registry) IndicatorCount() map[model.Category]int {
	out := make(map[model.Category]int, len(model.Categories()))
	for _, in := range r.indicators {
		out[in.category]++
	}
	return out
}

// RunAll loads the tender's evaluation snapshot once and evaluates the
// whole catalog against it, returning results ranked by score descending.
func (r *Registry) RunAll(ctx context.Context, tenderID string, weights model.WeightVector) ([]model.IndicatorResult, error) {
	return r.run(ctx, tenderID, weights, func(Indicator) bool { return true })
}

// RunCategory evaluates only the indicators of one family.
func (r *Registry) RunCategory(ctx context.Context, tenderID string, weights model.WeightVector, cat model.Category) ([]model.IndicatorResult, error) {
	return r.run(ctx, tenderID, weights, func(in Indicator) bool { return in.category == cat })
}

func (r *Registry) run(ctx context.Context, tenderID string, weights model.WeightVector, keep func(Indicator) bool) ([]model.IndicatorResult, error) {
	data, err := Load(ctx, r.pool, tenderID, r.cfg.HistoryYears)
	if err != nil {
		return nil, err
	}

	var selected []Indicator
	for _, in := range r.indicators {
		if keep(in) {
			selected = append(selected, in)
		}
	}

	results := make([]model.IndicatorResult, len(selected))

	limit := r.cfg.Concurrency
	if limit <= 0 {
		limit = 1
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, in := range selected {
		i, in := i, in
		g.Go(func() error {
			// A panicking indicator must not take down the batch. Its slot
			// stays zero-valued and is dropped below, so one broken scorer
			// costs coverage, not the run.
			defer func() {
				if rec := recover(); rec != nil {
					zap.L().Error("indicator panicked",
						zap.String("component", "indicator.registry"),
						zap.String("indicator", in.name),
						zap.String("tender_id", tenderID),
						zap.Any("panic", rec))
				}
			}()
			if err := ctx.Err(); err != nil {
				return eris.Wrap(err, "indicator: evaluation canceled")
			}
			results[i] = in.Evaluate(data, r.weightFor(in, weights))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	kept := results[:0]
	for _, res := range results {
		if res.Indicator != "" {
			kept = append(kept, res)
		}
	}
	results = kept

	r.rank(results)
	return results, nil
}

// weightFor resolves an indicator's weight from the active vector, falling
// back to the catalog default for names the vector does not cover.
func (r *Registry) weightFor(in Indicator, weights model.WeightVector) float64 {
	if w, ok := weights.Weights[in.name]; ok {
		return w
	}
	return in.defaultWeight
}

// rank orders results by score, then weight, then registration order.
func (r *Registry) rank(results []model.IndicatorResult) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Weight != b.Weight {
			return a.Weight > b.Weight
		}
		return r.byName[a.Indicator] < r.byName[b.Indicator]
	})
}
