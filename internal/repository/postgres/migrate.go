package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// migrationLockKey serializes concurrent instances running migrations at boot
const migrationLockKey = 724_301_118

// Migrate applies every embedded migration that is not yet recorded in
// _migrations, in filename order. Each file runs in its own transaction.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS _migrations (
		name       TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`); err != nil {
		return fmt.Errorf("create _migrations table: %w", translateError(err, nil))
	}

	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		applied, err := applyMigration(ctx, pool, e.Name())
		if err != nil {
			return err
		}
		if applied {
			log.Info().Str("migration", e.Name()).Msg("Applied migration")
		}
	}
	return nil
}

func applyMigration(ctx context.Context, pool *pgxpool.Pool, name string) (bool, error) {
	data, err := migrationsFS.ReadFile("migrations/" + name)
	if err != nil {
		return false, fmt.Errorf("read migration %s: %w", name, err)
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin tx for %s: %w", name, translateError(err, nil))
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", migrationLockKey); err != nil {
		return false, fmt.Errorf("lock for %s: %w", name, translateError(err, nil))
	}

	var count int
	if err := tx.QueryRow(ctx, "SELECT COUNT(*) FROM _migrations WHERE name = $1", name).Scan(&count); err != nil {
		return false, fmt.Errorf("check migration %s: %w", name, translateError(err, nil))
	}
	if count > 0 {
		return false, nil
	}

	// Simple protocol so a file may hold several statements
	if _, err := tx.Exec(ctx, string(data), pgx.QueryExecModeSimpleProtocol); err != nil {
		return false, fmt.Errorf("apply migration %s: %w", name, translateError(err, nil))
	}
	if _, err := tx.Exec(ctx, "INSERT INTO _migrations (name) VALUES ($1)", name); err != nil {
		return false, fmt.Errorf("record migration %s: %w", name, translateError(err, nil))
	}
	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit migration %s: %w", name, translateError(err, nil))
	}
	return true, nil
}
