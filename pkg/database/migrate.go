package database

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
)

// migrationLockID is the advisory lock key serializing migrations across
// replicas starting at the same time.
const migrationLockID int64 = 0x7265766965777300

const createMigrationsTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
	version    TEXT PRIMARY KEY,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// Migrate applies every *.up.sql file in fsys that has not been recorded in
// schema_migrations, in filename order. Each file runs in its own
// transaction together with its bookkeeping row.
func Migrate(ctx context.Context, db DBTX, fsys fs.FS, logger *slog.Logger) error {
	names, err := fs.Glob(fsys, "*.up.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(names)

	return Retry(ctx, DefaultRetryPolicy, logger, "run migrations", func(ctx context.Context) error {
		if _, err := db.Exec(ctx, createMigrationsTable); err != nil {
			return fmt.Errorf("create schema_migrations: %w", err)
		}
		for _, name := range names {
			if err := applyMigration(ctx, db, fsys, name, logger); err != nil {
				return err
			}
		}
		return nil
	})
}

func applyMigration(ctx context.Context, db DBTX, fsys fs.FS, name string, logger *slog.Logger) error {
	body, err := fs.ReadFile(fsys, name)
	if err != nil {
		return fmt.Errorf("read migration %s: %w", name, err)
	}
	version := strings.TrimSuffix(name, ".up.sql")

	applied := false
	err = InTx(ctx, db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", migrationLockID); err != nil {
			return fmt.Errorf("lock migrations: %w", err)
		}
		var exists bool
		if err := tx.QueryRow(ctx,
			"SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)", version,
		).Scan(&exists); err != nil {
			return fmt.Errorf("check migration %s: %w", version, err)
		}
		if exists {
			return nil
		}
		if _, err := tx.Exec(ctx, string(body)); err != nil {
			return fmt.Errorf("execute migration %s: %w", version, err)
		}
		if _, err := tx.Exec(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", version); err != nil {
			return fmt.Errorf("record migration %s: %w", version, err)
		}
		applied = true
		return nil
	})
	if err != nil {
		return err
	}
	if applied {
		logger.InfoContext(ctx, "migration applied", slog.String("version", version))
	} else {
		logger.DebugContext(ctx, "migration already applied", slog.String("version", version))
	}
	return nil
}
