// Package cri combines ranked indicator results into the composite
// corruption risk index for a tender and persists scoring runs.
package cri

import "github.com/tenderwatch/risk-cli/internal/model"

// Combine reduces indicator results to a single 0-100 score: the weighted
// mean of triggered indicator scores, damped by n/(n+1) so that a lone
// triggered indicator cannot push a tender into the high bands on its own.
func Combine(results []model.IndicatorResult) float64 {
	var weightSum, weighted float64
	n := 0
	for _, r := range results {
		if !r.Triggered {
			continue
		}
		n++
		weightSum += r.Weight
		weighted += r.Weight * r.Score
	}
	if n == 0 || weightSum == 0 {
		return 0
	}
	mean := weighted / weightSum
	return mean * float64(n) / float64(n+1)
}

// Compose builds the full composite record for one evaluation run.
// Confidence fields are zero until the estimator fills them in.
func Compose(tenderID string, results []model.IndicatorResult, weightsVersion int64) model.CompositeScore {
	score := Combine(results)
	return model.CompositeScore{
		TenderID:       tenderID,
		Score:          score,
		Level:          model.RiskLevelFor(score),
		WeightsVersion: weightsVersion,
		Results:        results,
	}
}
