package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
)

//go:embed scripts/initdb.sql
var bootstrapFS embed.FS

const schemaVersion = 1

// undefinedTable is the Postgres SQLSTATE for a missing relation.
const undefinedTable = "42P01"

// EnsureBootstrapped runs scripts/initdb.sql unless the meta table already
// records the current schema version.
func EnsureBootstrapped(ctx context.Context, db *sql.DB) error {
	ctxBoot, cancel := context.WithTimeout(ctx, 3*time.Minute)
	defer cancel()

	var applied sql.NullInt64
	err := db.QueryRowContext(ctxBoot, `SELECT MAX(version) FROM shopvora_meta`).Scan(&applied)
	need, err := needsBootstrap(applied, err)
	if err != nil {
		return err
	}
	if need {
		return runBootstrap(ctxBoot, db)
	}
	log.Debug().Int64("version", applied.Int64).Msg("schema already bootstrapped")
	return nil
}

// needsBootstrap decides from the meta table lookup. A missing table means a
// fresh database.
func needsBootstrap(applied sql.NullInt64, err error) (bool, error) {
	var pgErr *pgconn.PgError
	switch {
	case errors.As(err, &pgErr) && pgErr.Code == undefinedTable:
		return true, nil
	case err != nil:
		return false, fmt.Errorf("meta version check failed: %w", err)
	}
	return !applied.Valid || applied.Int64 < schemaVersion, nil
}

func runBootstrap(ctx context.Context, db *sql.DB) error {
	sqlBytes, err := bootstrapFS.ReadFile("scripts/initdb.sql")
	if err != nil {
		return fmt.Errorf("read initdb.sql: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, string(sqlBytes)); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("exec bootstrap: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit bootstrap: %w", err)
	}
	log.Info().Int("version", schemaVersion).Msg("schema bootstrapped")
	return nil
}
