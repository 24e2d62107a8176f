package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// migrationStep upgrades a database by exactly one schema version. The
// chain is forward-only (spec.md §4.3); there is no corresponding "down"
// direction.
type migrationStep struct {
	toVersion int
	run       func(ctx context.Context, tx *sql.Tx) error
}

// migrations is the ordered forward-only chain from spec.md §4.3's
// migration table.
var migrations = []migrationStep{
	{toVersion: 2, run: migrateAddHidden},
	{toVersion: 3, run: migrateAddType},
	{toVersion: 4, run: migrateBackfillType},
	{toVersion: 5, run: migrateAddMidiBankNo},
	{toVersion: 6, run: migrateCreateCategories},
	{toVersion: 7, run: migrateCreateLists},
}

func migrateAddHidden(ctx context.Context, tx *sql.Tx) error {
	return addColumnIfMissing(ctx, tx, "patches", "hidden", "INTEGER")
}

func migrateAddType(ctx context.Context, tx *sql.Tx) error {
	return addColumnIfMissing(ctx, tx, "patches", "type", "INTEGER")
}

func migrateBackfillType(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `UPDATE patches SET type = 0 WHERE type IS NULL`)
	if err != nil {
		return fmt.Errorf("backfilling type: %w", err)
	}
	return nil
}

func migrateAddMidiBankNo(ctx context.Context, tx *sql.Tx) error {
	return addColumnIfMissing(ctx, tx, "patches", "midiBankNo", "INTEGER")
}

func migrateCreateCategories(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS categories (
			bit_index INTEGER PRIMARY KEY,
			name      TEXT NOT NULL UNIQUE,
			color     TEXT NOT NULL DEFAULT '#808080',
			active    INTEGER NOT NULL DEFAULT 1
		)
	`)
	if err != nil {
		return fmt.Errorf("creating categories table: %w", err)
	}
	for _, c := range defaultCategories {
		_, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO categories (bit_index, name, color, active) VALUES (?, ?, ?, 1)
		`, c.BitIndex, c.Name, c.Color)
		if err != nil {
			return fmt.Errorf("seeding category %q: %w", c.Name, err)
		}
	}
	return nil
}

func migrateCreateLists(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS lists (
			id   TEXT PRIMARY KEY,
			name TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("creating lists table: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS patch_in_list (
			list_id      TEXT NOT NULL,
			synth_name   TEXT NOT NULL,
			content_hash TEXT NOT NULL,
			order_num    INTEGER NOT NULL DEFAULT 0,
			FOREIGN KEY (list_id) REFERENCES lists(id) ON DELETE CASCADE
		)
	`)
	if err != nil {
		return fmt.Errorf("creating patch_in_list table: %w", err)
	}
	_, err = tx.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_patch_in_list_list ON patch_in_list(list_id, order_num)`)
	if err != nil {
		return fmt.Errorf("indexing patch_in_list: %w", err)
	}
	return nil
}

// addColumnIfMissing inspects PRAGMA table_info before issuing ALTER
// TABLE ... ADD COLUMN, the way the teacher's
// migrations.MigrateExternalRefColumn checks for external_ref: SQLite
// has no "ADD COLUMN IF NOT EXISTS", and re-running a migration must
// stay idempotent.
func addColumnIfMissing(ctx context.Context, tx *sql.Tx, table, column, decl string) error {
	rows, err := tx.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info(%s)`, table))
	if err != nil {
		return fmt.Errorf("inspecting %s: %w", table, err)
	}
	exists := false
	for rows.Next() {
		var cid int
		var name, typ string
		var notNull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			_ = rows.Close()
			return fmt.Errorf("scanning column info for %s: %w", table, err)
		}
		if name == column {
			exists = true
		}
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return fmt.Errorf("iterating column info for %s: %w", table, err)
	}
	_ = rows.Close()

	if exists {
		return nil
	}
	_, err = tx.ExecContext(ctx, fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s %s`, table, column, decl)) // #nosec G201 - table/column/decl are fixed literals from the migration chain, never user input
	if err != nil {
		return fmt.Errorf("adding column %s.%s: %w", table, column, err)
	}
	return nil
}

// runMigrations runs every migration step whose toVersion exceeds the
// database's current schema_version, in ascending order, inside a
// single transaction, then updates schema_version.number.
func runMigrations(ctx context.Context, db *sql.DB, fromVersion int) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning migration transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	version := fromVersion
	for _, step := range migrations {
		if step.toVersion <= fromVersion {
			continue
		}
		if err := step.run(ctx, tx); err != nil {
			return fmt.Errorf("migrating to schema version %d: %w", step.toVersion, err)
		}
		version = step.toVersion
	}

	if version != fromVersion {
		if _, err := tx.ExecContext(ctx, `UPDATE schema_version SET number = ?`, version); err != nil {
			return fmt.Errorf("recording schema version %d: %w", version, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing migration: %w", err)
	}
	return nil
}
