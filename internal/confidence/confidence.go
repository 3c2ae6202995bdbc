// Package confidence quantifies how much a composite risk score should be
// trusted, combining a bootstrap interval over indicator results with a
// data-completeness measure.
package confidence

import (
	"hash/fnv"
	"math/rand"
	"sort"
	"strings"

	"github.com/montanaflynn/stats"

	"github.com/tenderwatch/risk-cli/internal/indicator"
	"github.com/tenderwatch/risk-cli/internal/model"
)

// Uncertainty classes reported alongside a composite score.
const (
	UncertaintyLow    = "low"
	UncertaintyMedium = "medium"
	UncertaintyHigh   = "high"
)

// Estimator computes confidence intervals and completeness for composite
// scores. The zero value is not usable; construct with New.
type Estimator struct {
	resamples       int
	minCompleteness float64
}

// New builds an estimator. resamples controls the bootstrap iteration
// count; minCompleteness is the floor below which a score is always
// classed high-uncertainty.
func New(resamples int, minCompleteness float64) *Estimator {
	return &Estimator{resamples: resamples, minCompleteness: minCompleteness}
}

// Interval bootstraps a 95% confidence interval for the composite score by
// resampling the triggered indicator subset with replacement and recomputing
// the combination each time. The generator is seeded from the tender ID so
// repeated runs report identical intervals. With zero triggered indicators
// the score has no sampling distribution; the interval is maximal and ok is
// false rather than a misleadingly tight [0,0].
func (e *Estimator) Interval(tenderID string, results []model.IndicatorResult, combine func([]model.IndicatorResult) float64) (lo, hi float64, ok bool) {
	var triggered []model.IndicatorResult
	for _, r := range results {
		if r.Triggered {
			triggered = append(triggered, r)
		}
	}
	if len(triggered) == 0 || e.resamples <= 0 {
		return 0, 100, false
	}

	rng := rand.New(rand.NewSource(seedFor(tenderID)))
	scores := make([]float64, e.resamples)
	sample := make([]model.IndicatorResult, len(triggered))
	for i := 0; i < e.resamples; i++ {
		for j := range sample {
			sample[j] = triggered[rng.Intn(len(triggered))]
		}
		scores[i] = combine(sample)
	}
	sort.Float64s(scores)

	lo, _ = stats.Percentile(scores, 2.5)
	hi, _ = stats.Percentile(scores, 97.5)
	return lo, hi, true
}

// Completeness reports the fraction of implemented indicators that had the
// data they needed. Stubs are excluded from both numerator and denominator.
func Completeness(results []model.IndicatorResult) float64 {
	implemented, evaluated := 0, 0
	for _, r := range results {
		if r.Description == indicator.StubDescription {
			continue
		}
		implemented++
		if !strings.HasPrefix(r.Description, "insufficient data:") {
			evaluated++
		}
	}
	if implemented == 0 {
		return 0
	}
	return float64(evaluated) / float64(implemented)
}

// Classify maps an interval width and completeness to an uncertainty
// class.
func (e *Estimator) Classify(lo, hi, completeness float64) string {
	width := hi - lo
	switch {
	case completeness < e.minCompleteness || width > 30:
		return UncertaintyHigh
	case completeness < 0.7 || width > 15:
		return UncertaintyMedium
	default:
		return UncertaintyLow
	}
}

func seedFor(tenderID string) int64 {
	h := fnv.New64a()
	h.Write([]byte(tenderID))
	return int64(h.Sum64())
}
