// Package calibrate manages the versioned indicator weight vectors and the
// feedback-driven recalibration job.
package calibrate

import (
	"context"
	_ "embed"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/tenderwatch/risk-cli/internal/db"
	"github.com/tenderwatch/risk-cli/internal/model"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// weightsLockKey serializes weight-vector flips across processes.
const weightsLockKey = 47102232

type defaultsFile struct {
	Weights map[string]float64 `yaml:"weights"`
}

// DefaultWeights returns the embedded cold-start weight map.
func DefaultWeights() (map[string]float64, error) {
	var f defaultsFile
	if err := yaml.Unmarshal(defaultsYAML, &f); err != nil {
		return nil, eris.Wrap(err, "calibrate: parse embedded defaults")
	}
	if len(f.Weights) == 0 {
		return nil, eris.New("calibrate: embedded defaults are empty")
	}
	return f.Weights, nil
}

// CurrentWeights returns the active weight vector. On a fresh database it
// persists the embedded defaults as version 1 and returns that.
func CurrentWeights(ctx context.Context, pool db.Pool) (model.WeightVector, error) {
	wv, err := currentVector(ctx, pool)
	if err == nil {
		return wv, nil
	}
	if !eris.Is(err, pgx.ErrNoRows) {
		return model.WeightVector{}, err
	}

	weights, err := DefaultWeights()
	if err != nil {
		return model.WeightVector{}, err
	}
	zap.L().Info("no weight vector found, seeding defaults",
		zap.String("component", "calibrate"), zap.Int("indicators", len(weights)))

	if err := insertVector(ctx, pool, weights, "default", 0); err != nil {
		return model.WeightVector{}, err
	}
	return currentVector(ctx, pool)
}

func currentVector(ctx context.Context, pool db.Pool) (model.WeightVector, error) {
	var wv model.WeightVector
	row := pool.QueryRow(ctx, `
		SELECT version, weights, source, feedback_batch_size, created_at, is_current
		FROM risk.weight_vectors
		WHERE is_current
		LIMIT 1`)
	err := row.Scan(&wv.Version, &wv.Weights, &wv.Source, &wv.FeedbackBatchSize, &wv.CreatedAt, &wv.Current)
	if err != nil {
		return wv, eris.Wrap(err, "calibrate: load current weight vector")
	}
	return wv, nil
}

// insertVector flips the current flag and appends a new current vector in
// one serialized transaction.
func insertVector(ctx context.Context, pool db.Pool, weights map[string]float64, source string, batchSize int) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "calibrate: begin vector tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", weightsLockKey); err != nil {
		return eris.Wrap(err, "calibrate: acquire weights lock")
	}
	if _, err := tx.Exec(ctx, "UPDATE risk.weight_vectors SET is_current = false WHERE is_current"); err != nil {
		return eris.Wrap(err, "calibrate: clear current vector")
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO risk.weight_vectors (weights, source, feedback_batch_size, is_current)
		VALUES ($1, $2, $3, true)`, weights, source, batchSize); err != nil {
		return eris.Wrap(err, "calibrate: insert weight vector")
	}
	return eris.Wrap(tx.Commit(ctx), "calibrate: commit vector tx")
}

// History returns weight vectors newest first.
func History(ctx context.Context, pool db.Pool, limit int) ([]model.WeightVector, error) {
	rows, err := pool.Query(ctx, `
		SELECT version, weights, source, feedback_batch_size, created_at, is_current
		FROM risk.weight_vectors
		ORDER BY version DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "calibrate: query weight history")
	}
	defer rows.Close()

	var out []model.WeightVector
	for rows.Next() {
		var wv model.WeightVector
		if err := rows.Scan(&wv.Version, &wv.Weights, &wv.Source, &wv.FeedbackBatchSize, &wv.CreatedAt, &wv.Current); err != nil {
			return nil, eris.Wrap(err, "calibrate: scan weight vector")
		}
		out = append(out, wv)
	}
	return out, eris.Wrap(rows.Err(), "calibrate: iterate weight history")
}

// SaveVerdict records an expert label against a tender's scored run.
func SaveVerdict(ctx context.Context, pool db.Pool, v model.ExpertVerdict) error {
	_, err := pool.Exec(ctx, `
		INSERT INTO risk.expert_verdicts (tender_id, weights_version, verdict, notes)
		VALUES ($1, $2, $3, $4)`,
		v.TenderID, v.WeightsVersion, string(v.Verdict), v.Notes)
	return eris.Wrapf(err, "calibrate: save verdict for %s", v.TenderID)
}

// verdictWindow is how feedback is batched: everything labeled since the
// current vector was created.
func verdictWindow(wv model.WeightVector) time.Time { return wv.CreatedAt }
