// Package alerting matches freshly scored tenders against standing
// subscriptions and materializes alerts exactly once per (subscription,
// tender) pair.
package alerting

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/tenderwatch/risk-cli/internal/db"
)

// Checkpoint is the single-row high-water mark of alert evaluation. Runs
// only consider composite scores computed after WindowUntil, so crashed or
// repeated runs never double-process a window.
type Checkpoint struct {
	RunID       uuid.UUID
	WindowUntil time.Time
	UpdatedAt   time.Time
}

// LoadCheckpoint reads the checkpoint. found is false on a fresh database.
func LoadCheckpoint(ctx context.Context, pool db.Pool) (cp Checkpoint, found bool, err error) {
	row := pool.QueryRow(ctx, `
		SELECT run_id, window_until, updated_at
		FROM risk.alert_checkpoints
		WHERE id`)
	err = row.Scan(&cp.RunID, &cp.WindowUntil, &cp.UpdatedAt)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return Checkpoint{}, false, nil
		}
		return Checkpoint{}, false, eris.Wrap(err, "alerting: load checkpoint")
	}
	return cp, true, nil
}

// AdvanceCheckpoint moves the high-water mark after a successful run.
func AdvanceCheckpoint(ctx context.Context, pool db.Pool, runID uuid.UUID, until time.Time) error {
	_, err := pool.Exec(ctx, `
		INSERT INTO risk.alert_checkpoints (id, run_id, window_until, updated_at)
		VALUES (true, $1, $2, now())
		ON CONFLICT (id) DO UPDATE SET
			run_id = EXCLUDED.run_id,
			window_until = EXCLUDED.window_until,
			updated_at = EXCLUDED.updated_at`,
		runID, until)
	return eris.Wrap(err, "alerting: advance checkpoint")
}
