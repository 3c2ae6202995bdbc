package main

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/tenderwatch/risk-cli/internal/db"
	"github.com/tenderwatch/risk-cli/internal/store"
)

// openPool connects the shared pool from loaded config.
func openPool(ctx context.Context) (*pgxpool.Pool, error) {
	return db.Connect(ctx, db.PoolConfig{
		DatabaseURL:      cfg.DB.DatabaseURL,
		MaxConns:         cfg.DB.MaxConns,
		StatementTimeout: cfg.DB.StatementTimeout(),
	})
}

// requireSchema fails a batch job up front when the risk tables are absent,
// before any per-tender work starts.
func requireSchema(ctx context.Context, pool db.Pool) error {
	ready, err := store.SchemaReady(ctx, pool)
	if err != nil {
		return err
	}
	if !ready {
		return eris.New("risk schema not found; run `risk-cli migrate` first")
	}
	return nil
}
