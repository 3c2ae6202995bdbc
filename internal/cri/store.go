package cri

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/tenderwatch/risk-cli/internal/db"
	"github.com/tenderwatch/risk-cli/internal/model"
)

// Persist writes a composite score and its per-indicator snapshot in one
// transaction. Re-scoring under the same weight version replaces the
// previous run for that tender.
func Persist(ctx context.Context, pool db.Pool, cs model.CompositeScore) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "cri: begin persist tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx, `
		INSERT INTO risk.composite_scores
			(tender_id, score, risk_level, weights_version,
			 confidence_low, confidence_high, completeness, uncertainty, computed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (tender_id, weights_version) DO UPDATE SET
			score = EXCLUDED.score,
			risk_level = EXCLUDED.risk_level,
			confidence_low = EXCLUDED.confidence_low,
			confidence_high = EXCLUDED.confidence_high,
			completeness = EXCLUDED.completeness,
			uncertainty = EXCLUDED.uncertainty,
			computed_at = EXCLUDED.computed_at`,
		cs.TenderID, cs.Score, string(cs.Level), cs.WeightsVersion,
		cs.ConfidenceLow, cs.ConfidenceHigh, cs.Completeness, cs.Uncertainty, cs.ComputedAt)
	if err != nil {
		return eris.Wrapf(err, "cri: upsert composite score for %s", cs.TenderID)
	}

	_, err = tx.Exec(ctx, `
		DELETE FROM risk.indicator_scores
		WHERE tender_id = $1 AND weights_version = $2`,
		cs.TenderID, cs.WeightsVersion)
	if err != nil {
		return eris.Wrapf(err, "cri: clear indicator snapshot for %s", cs.TenderID)
	}

	rows := make([][]any, 0, len(cs.Results))
	for _, r := range cs.Results {
		var evidence []byte
		if r.Evidence != nil {
			if evidence, err = json.Marshal(r.Evidence); err != nil {
				return eris.Wrapf(err, "cri: encode evidence for %s", r.Indicator)
			}
		}
		rows = append(rows, []any{
			cs.TenderID, cs.WeightsVersion, r.Indicator, string(r.Category),
			r.Score, r.Triggered, r.Weight, r.Confidence, r.Description, evidence, cs.ComputedAt,
		})
	}
	if len(rows) > 0 {
		_, err = tx.CopyFrom(ctx, pgx.Identifier{"risk", "indicator_scores"},
			[]string{"tender_id", "weights_version", "indicator", "category",
				"score", "triggered", "weight", "confidence", "description", "evidence", "computed_at"},
			pgx.CopyFromRows(rows))
		if err != nil {
			return eris.Wrapf(err, "cri: copy indicator snapshot for %s", cs.TenderID)
		}
	}

	return eris.Wrap(tx.Commit(ctx), "cri: commit persist tx")
}

// Load returns the most recent persisted composite score for a tender,
// including its indicator snapshot, or pgx.ErrNoRows wrapped if none
// exists.
func Load(ctx context.Context, pool db.Pool, tenderID string) (model.CompositeScore, error) {
	var cs model.CompositeScore
	var level string

	row := pool.QueryRow(ctx, `
		SELECT tender_id, score, risk_level, weights_version,
		       confidence_low, confidence_high, completeness, uncertainty, computed_at
		FROM risk.composite_scores
		WHERE tender_id = $1
		ORDER BY computed_at DESC, weights_version DESC
		LIMIT 1`, tenderID)
	err := row.Scan(&cs.TenderID, &cs.Score, &level, &cs.WeightsVersion,
		&cs.ConfidenceLow, &cs.ConfidenceHigh, &cs.Completeness, &cs.Uncertainty, &cs.ComputedAt)
	if err != nil {
		return cs, eris.Wrapf(err, "cri: load composite score for %s", tenderID)
	}
	cs.Level = model.RiskLevel(level)

	rows, err := pool.Query(ctx, `
		SELECT indicator, category, score, triggered, weight, confidence, description, evidence
		FROM risk.indicator_scores
		WHERE tender_id = $1 AND weights_version = $2
		ORDER BY score DESC, weight DESC, indicator`,
		tenderID, cs.WeightsVersion)
	if err != nil {
		return cs, eris.Wrapf(err, "cri: load indicator snapshot for %s", tenderID)
	}
	defer rows.Close()

	for rows.Next() {
		var r model.IndicatorResult
		var category string
		var evidence []byte
		if err := rows.Scan(&r.Indicator, &category, &r.Score, &r.Triggered,
			&r.Weight, &r.Confidence, &r.Description, &evidence); err != nil {
			return cs, eris.Wrap(err, "cri: scan indicator snapshot")
		}
		r.Category = model.Category(category)
		if len(evidence) > 0 {
			if err := json.Unmarshal(evidence, &r.Evidence); err != nil {
				return cs, eris.Wrapf(err, "cri: decode evidence for %s", r.Indicator)
			}
		}
		cs.Results = append(cs.Results, r)
	}
	if err := rows.Err(); err != nil {
		return cs, eris.Wrap(err, "cri: iterate indicator snapshot")
	}
	return cs, nil
}

// RankedTender is one row of the latest-score leaderboard.
type RankedTender struct {
	TenderID        string          `json:"tender_id"`
	Title           string          `json:"title"`
	ProcuringEntity string          `json:"procuring_entity"`
	Score           float64         `json:"score"`
	Level           model.RiskLevel `json:"level"`
}

// Rankings returns tenders ordered by their latest composite score.
func Rankings(ctx context.Context, pool db.Pool, minScore float64, limit int) ([]RankedTender, error) {
	rows, err := pool.Query(ctx, `
		SELECT s.tender_id, t.title, t.procuring_entity, s.score, s.risk_level
		FROM (
			SELECT DISTINCT ON (tender_id) tender_id, score, risk_level
			FROM risk.composite_scores
			ORDER BY tender_id, computed_at DESC, weights_version DESC
		) s
		JOIN risk.tenders t ON t.id = s.tender_id
		WHERE s.score >= $1
		ORDER BY s.score DESC, s.tender_id
		LIMIT $2`, minScore, limit)
	if err != nil {
		return nil, eris.Wrap(err, "cri: query rankings")
	}
	defer rows.Close()

	var out []RankedTender
	for rows.Next() {
		var rt RankedTender
		var level string
		if err := rows.Scan(&rt.TenderID, &rt.Title, &rt.ProcuringEntity, &rt.Score, &level); err != nil {
			return nil, eris.Wrap(err, "cri: scan ranking row")
		}
		rt.Level = model.RiskLevel(level)
		out = append(out, rt)
	}
	return out, eris.Wrap(rows.Err(), "cri: iterate rankings")
}
