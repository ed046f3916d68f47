package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"qphub/internal/logger"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_extension_uuid_ossp",
		SQL:  `CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	},
	{
		Name: "create_table_papers",
		SQL: `CREATE TABLE IF NOT EXISTS papers (
  id          UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  department  TEXT        NOT NULL DEFAULT '',
  subject     TEXT        NOT NULL DEFAULT '',
  year        INTEGER     NULL,
  filename    TEXT        NOT NULL,
  file_url    TEXT        NOT NULL,
  storage_key TEXT        NOT NULL UNIQUE,
  created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_papers_department",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_papers_department ON papers (department);`,
	},
	{
		Name: "create_index_papers_subject",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_papers_subject ON papers (subject);`,
	},
	{
		Name: "create_index_papers_year",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_papers_year ON papers (year);`,
	},
	{
		Name: "create_index_papers_created_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_papers_created_at ON papers (created_at);`,
	},
}

// EnsureMigrated checks whether the papers table exists and runs the schema
// steps if it does not. Re-running against a migrated database is a no-op.
func EnsureMigrated(ctx context.Context, db *sql.DB, dbHost string) error {
	log := logger.WithComponent("migration")
	start := time.Now()

	var exists bool
	err := db.QueryRowContext(ctx, "SELECT to_regclass('public.papers') IS NOT NULL").Scan(&exists)
	if err != nil {
		log.Error().Err(err).Str("db_host", dbHost).Msg("sentinel table check failed")
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		log.Info().Str("db_host", dbHost).Msg("schema already exists, skipping migration")
		return nil
	}

	log.Info().Str("db_host", dbHost).Msg("running schema migration")

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.Error().Err(err).
				Str("migration_step", step.Name).
				Str("db_host", dbHost).
				Msg("migration step failed")
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}
		log.Debug().
			Str("migration_step", step.Name).
			Dur("step_duration", time.Since(stepStart)).
			Msg("migration step applied")
	}

	log.Info().
		Str("db_host", dbHost).
		Dur("duration", time.Since(start)).
		Msg("schema migration complete")

	return nil
}
