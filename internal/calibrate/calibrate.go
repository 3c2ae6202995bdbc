package calibrate

import (
	"context"
	"math"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/tenderwatch/risk-cli/internal/config"
	"github.com/tenderwatch/risk-cli/internal/db"
	"github.com/tenderwatch/risk-cli/internal/model"
)

// indicatorFeedback aggregates expert labels for one indicator over the
// current feedback window.
type indicatorFeedback struct {
	CorruptTriggered int
	CorruptTotal     int
	CleanTriggered   int
	CleanTotal       int
}

// Outcome reports what a calibration run did.
type Outcome struct {
	Applied     bool               `json:"applied"`
	Reason      string             `json:"reason,omitempty"`
	FromVersion int64              `json:"from_version"`
	ToVersion   int64              `json:"to_version,omitempty"`
	BatchSize   int                `json:"batch_size"`
	Corrupt     int                `json:"corrupt"`
	Clean       int                `json:"clean"`
	Weights     map[string]float64 `json:"weights,omitempty"`
}

// Calibrator adjusts indicator weights from accumulated expert verdicts.
type Calibrator struct {
	pool db.Pool
	cfg  config.CalibrationConfig
}

// NewCalibrator builds a calibrator over the shared pool.
func NewCalibrator(pool db.Pool, cfg config.CalibrationConfig) *Calibrator {
	return &Calibrator{pool: pool, cfg: cfg}
}

// Run performs one calibration pass. It reads all corrupt/clean verdicts
// recorded since the current vector was created; if the batch has at least
// MinBatchSize labels with both classes represented, it derives and
// activates a new vector. Otherwise the current vector stays and the
// outcome says why.
func (c *Calibrator) Run(ctx context.Context) (Outcome, error) {
	log := zap.L().With(zap.String("component", "calibrate"))

	current, err := CurrentWeights(ctx, c.pool)
	if err != nil {
		return Outcome{}, err
	}
	out := Outcome{FromVersion: current.Version}

	corrupt, clean, err := c.batchCounts(ctx, current)
	if err != nil {
		return Outcome{}, err
	}
	out.Corrupt, out.Clean, out.BatchSize = corrupt, clean, corrupt+clean

	if out.BatchSize < c.cfg.MinBatchSize {
		out.Reason = "feedback batch below minimum size"
		log.Info("calibration skipped", zap.String("reason", out.Reason),
			zap.Int("batch", out.BatchSize), zap.Int("min", c.cfg.MinBatchSize))
		return out, nil
	}
	if corrupt == 0 || clean == 0 {
		out.Reason = "feedback batch has only one verdict class"
		log.Info("calibration skipped", zap.String("reason", out.Reason),
			zap.Int("corrupt", corrupt), zap.Int("clean", clean))
		return out, nil
	}

	feedback, err := c.feedbackByIndicator(ctx, current)
	if err != nil {
		return Outcome{}, err
	}

	updated := c.updatedWeights(current.Weights, feedback)
	if err := insertVector(ctx, c.pool, updated, "calibration", out.BatchSize); err != nil {
		return Outcome{}, err
	}

	applied, err := currentVector(ctx, c.pool)
	if err != nil {
		return Outcome{}, err
	}
	out.Applied = true
	out.ToVersion = applied.Version
	out.Weights = applied.Weights
	log.Info("calibration applied",
		zap.Int64("from_version", out.FromVersion),
		zap.Int64("to_version", out.ToVersion),
		zap.Int("batch", out.BatchSize))
	return out, nil
}

// updatedWeights nudges each weight toward the observed discrimination of
// its indicator. d is the trigger-rate gap between corrupt and clean
// labeled tenders; the multiplicative step is clamped to MaxStep, floored
// at MinWeight, then the vector is rescaled so total mass is preserved.
func (c *Calibrator) updatedWeights(current map[string]float64, feedback map[string]indicatorFeedback) map[string]float64 {
	prevSum, nextSum := 0.0, 0.0
	updated := make(map[string]float64, len(current))

	for name, w := range current {
		prevSum += w
		next := w
		if fb, ok := feedback[name]; ok && fb.CorruptTotal > 0 && fb.CleanTotal > 0 {
			d := float64(fb.CorruptTriggered)/float64(fb.CorruptTotal) -
				float64(fb.CleanTriggered)/float64(fb.CleanTotal)
			factor := 1 + c.cfg.LearningRate*d
			factor = math.Max(1-c.cfg.MaxStep, math.Min(1+c.cfg.MaxStep, factor))
			next = w * factor
		}
		next = math.Max(c.cfg.MinWeight, next)
		updated[name] = next
		nextSum += next
	}

	if nextSum > 0 && prevSum > 0 {
		scale := prevSum / nextSum
		for name, w := range updated {
			updated[name] = math.Max(c.cfg.MinWeight, w*scale)
		}
	}
	return updated
}

func (c *Calibrator) batchCounts(ctx context.Context, current model.WeightVector) (corrupt, clean int, err error) {
	row := c.pool.QueryRow(ctx, `
		SELECT count(*) FILTER (WHERE verdict = 'corrupt'),
		       count(*) FILTER (WHERE verdict = 'clean')
		FROM risk.expert_verdicts
		WHERE created_at >= $1`, verdictWindow(current))
	if err := row.Scan(&corrupt, &clean); err != nil {
		return 0, 0, wrapScan(err, "batch counts")
	}
	return corrupt, clean, nil
}

func (c *Calibrator) feedbackByIndicator(ctx context.Context, current model.WeightVector) (map[string]indicatorFeedback, error) {
	rows, err := c.pool.Query(ctx, `
		SELECT i.indicator,
		       count(*) FILTER (WHERE v.verdict = 'corrupt' AND i.triggered),
		       count(*) FILTER (WHERE v.verdict = 'corrupt'),
		       count(*) FILTER (WHERE v.verdict = 'clean' AND i.triggered),
		       count(*) FILTER (WHERE v.verdict = 'clean')
		FROM risk.expert_verdicts v
		JOIN risk.indicator_scores i
		  ON i.tender_id = v.tender_id AND i.weights_version = v.weights_version
		WHERE v.created_at >= $1 AND v.verdict IN ('corrupt', 'clean')
		GROUP BY i.indicator`, verdictWindow(current))
	if err != nil {
		return nil, wrapScan(err, "query feedback")
	}
	defer rows.Close()

	out := make(map[string]indicatorFeedback)
	for rows.Next() {
		var name string
		var fb indicatorFeedback
		if err := rows.Scan(&name, &fb.CorruptTriggered, &fb.CorruptTotal, &fb.CleanTriggered, &fb.CleanTotal); err != nil {
			return nil, wrapScan(err, "scan feedback")
		}
		out[name] = fb
	}
	return out, wrapScan(rows.Err(), "iterate feedback")
}

func wrapScan(err error, op string) error {
	if err == nil {
		return nil
	}
	return eris.Wrapf(err, "calibrate: %s", op)
}
