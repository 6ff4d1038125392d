package state

import (
	"database/sql"
	"fmt"

	ferrors "github.com/appdock/appdock/internal/foundation/errors"
)

// schemaVersion is the newest schema this binary understands. Databases at a
// lower version are migrated on open; databases at a higher version are
// rejected before the store becomes usable.
const schemaVersion = 2

// migrations[i] brings the schema from version i to version i+1.
var migrations = []string{
	// v0 -> v1: initial schema.
	`
	CREATE TABLE IF NOT EXISTS apps (
		app_id TEXT PRIMARY KEY,
		install_status TEXT NOT NULL,
		run_status TEXT NOT NULL,
		process_id TEXT NOT NULL DEFAULT '',
		pid INTEGER NOT NULL DEFAULT 0,
		endpoint TEXT NOT NULL DEFAULT '',
		last_error TEXT NOT NULL DEFAULT '',
		revision INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS job_audit (
		job_id INTEGER PRIMARY KEY,
		kind TEXT NOT NULL,
		app_id TEXT NOT NULL,
		status TEXT NOT NULL,
		detail TEXT NOT NULL DEFAULT '',
		submitted_at INTEGER NOT NULL,
		started_at INTEGER,
		finished_at INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_job_audit_app ON job_audit(app_id);
	`,
	// v1 -> v2: track the installed version marker.
	`ALTER TABLE apps ADD COLUMN version TEXT NOT NULL DEFAULT '';`,
}

func migrate(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_meta (version INTEGER NOT NULL)`); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryStore, "create schema_meta").Fatal().Build()
	}

	var version int
	err := db.QueryRow(`SELECT version FROM schema_meta`).Scan(&version)
	switch {
	case err == sql.ErrNoRows:
		if _, err := db.Exec(`INSERT INTO schema_meta (version) VALUES (0)`); err != nil {
			return ferrors.WrapError(err, ferrors.CategoryStore, "seed schema version").Fatal().Build()
		}
		version = 0
	case err != nil:
		return ferrors.WrapError(err, ferrors.CategoryStore, "read schema version").Fatal().Build()
	}

	if version > schemaVersion {
		return ferrors.SchemaError(
			fmt.Sprintf("database schema version %d is newer than supported %d", version, schemaVersion)).
			Build()
	}

	for v := version; v < schemaVersion; v++ {
		tx, err := db.Begin()
		if err != nil {
			return ferrors.WrapError(err, ferrors.CategoryStore, "begin migration").Fatal().Build()
		}
		if _, err := tx.Exec(migrations[v]); err != nil {
			_ = tx.Rollback()
			return ferrors.WrapError(err, ferrors.CategorySchema,
				fmt.Sprintf("apply migration %d -> %d", v, v+1)).Fatal().Build()
		}
		if _, err := tx.Exec(`UPDATE schema_meta SET version = ?`, v+1); err != nil {
			_ = tx.Rollback()
			return ferrors.WrapError(err, ferrors.CategoryStore, "bump schema version").Fatal().Build()
		}
		if err := tx.Commit(); err != nil {
			return ferrors.WrapError(err, ferrors.CategoryStore, "commit migration").Fatal().Build()
		}
	}

	return nil
}
