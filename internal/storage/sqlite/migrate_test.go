package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/synthvault/catalog/internal/types"
)

// Property 8 / scenario D — opening an older schema version migrates
// monotonically up to CurrentSchemaVersion and never back down.
func TestRunMigrationsReachesCurrentVersion(t *testing.T) {
	ctx := context.Background()
	mgr, err := Open(ctx, ":memory:", ModeReadWriteNoBackups, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = mgr.Close() })

	var version int
	if err := mgr.DB().QueryRowContext(ctx, `SELECT number FROM schema_version`).Scan(&version); err != nil {
		t.Fatalf("reading schema_version: %v", err)
	}
	if version != CurrentSchemaVersion {
		t.Fatalf("version = %d, want %d", version, CurrentSchemaVersion)
	}
}

// version1Schema is the patches table shape before any of the
// migrations in migrate.go ran: no hidden, type, or midiBankNo
// columns, and no categories/lists tables at all.
const version1Schema = `
CREATE TABLE schema_version (number INTEGER NOT NULL);
INSERT INTO schema_version (number) VALUES (1);

CREATE TABLE patches (
	synth_name             TEXT NOT NULL,
	content_hash           TEXT NOT NULL,
	display_name           TEXT NOT NULL DEFAULT '',
	kind_code               INTEGER NOT NULL DEFAULT 0,
	bytes                   BLOB NOT NULL,
	favorite_state          INTEGER NOT NULL DEFAULT 0,
	import_id               TEXT,
	import_display_string   TEXT,
	source_descriptor       TEXT,
	bank_number             INTEGER NOT NULL DEFAULT 0,
	program_number          INTEGER NOT NULL DEFAULT 0,
	categories_mask         INTEGER NOT NULL DEFAULT 0,
	user_decision_mask      INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (synth_name, content_hash)
);
`

// TestRunMigrationsFromOldVersionIsIdempotentAndForwardOnly hand-creates
// a genuinely version-1-shaped database (spec.md §8 property 8, scenario
// D) so every addColumnIfMissing call in the chain does real work: it
// must actually add a column to a table that lacks it, not find the
// column already present and return early.
func TestRunMigrationsFromOldVersionIsIdempotentAndForwardOnly(t *testing.T) {
	ctx := context.Background()
	db, err := sql.Open("sqlite3", "file:migratetest1?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if _, err := db.ExecContext(ctx, version1Schema); err != nil {
		t.Fatalf("creating version 1 schema: %v", err)
	}
	if _, err := db.ExecContext(ctx, `
		INSERT INTO patches (synth_name, content_hash, display_name, bytes, bank_number, program_number)
		VALUES ('DX7', 'abc123', 'Crystal Bell', X'00', 0, 1)
	`); err != nil {
		t.Fatalf("seeding a version 1 row: %v", err)
	}

	if err := runMigrations(ctx, db, 1); err != nil {
		t.Fatalf("runMigrations: %v", err)
	}

	var version int
	if err := db.QueryRowContext(ctx, `SELECT number FROM schema_version`).Scan(&version); err != nil {
		t.Fatalf("reading schema_version: %v", err)
	}
	if version != CurrentSchemaVersion {
		t.Fatalf("version = %d, want %d after migrating from version 1", version, CurrentSchemaVersion)
	}

	var name string
	var hidden sql.NullInt64
	var typeVal, midiBankNo sql.NullInt64
	row := db.QueryRowContext(ctx, `SELECT display_name, hidden, type, midiBankNo FROM patches WHERE content_hash = 'abc123'`)
	if err := row.Scan(&name, &hidden, &typeVal, &midiBankNo); err != nil {
		t.Fatalf("reading migrated row: %v", err)
	}
	if name != "Crystal Bell" {
		t.Fatalf("display_name = %q, the pre-existing row was lost or corrupted", name)
	}
	if hidden.Valid {
		t.Fatalf("hidden = %v, want NULL (no backfill rule for it)", hidden)
	}
	if !typeVal.Valid || typeVal.Int64 != 0 {
		t.Fatalf("type = %v, want backfilled to 0", typeVal)
	}
	if midiBankNo.Valid {
		t.Fatalf("midiBankNo = %v, want NULL (no backfill rule for it)", midiBankNo)
	}

	var categoryCount int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories`).Scan(&categoryCount); err != nil {
		t.Fatalf("counting seeded categories: %v", err)
	}
	if categoryCount == 0 {
		t.Fatalf("migrateCreateCategories did not seed any default categories")
	}

	// Re-running from the current version must be a no-op: no column or
	// table creation should error out on a second pass, and the row
	// that survived the real migration must still be there.
	if err := runMigrations(ctx, db, CurrentSchemaVersion); err != nil {
		t.Fatalf("re-running migrations from the current version: %v", err)
	}
	var countAfter int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM patches`).Scan(&countAfter); err != nil {
		t.Fatalf("counting patches after re-run: %v", err)
	}
	if countAfter != 1 {
		t.Fatalf("patches count = %d after a no-op re-run, want 1", countAfter)
	}
}

func TestAddColumnIfMissingIsIdempotent(t *testing.T) {
	ctx := context.Background()
	mgr, err := Open(ctx, ":memory:", ModeReadWriteNoBackups, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = mgr.Close() })

	tx, err := mgr.DB().BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("BeginTx: %v", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := addColumnIfMissing(ctx, tx, "patches", "hidden", "INTEGER"); err != nil {
		t.Fatalf("first addColumnIfMissing: %v", err)
	}
	if err := addColumnIfMissing(ctx, tx, "patches", "hidden", "INTEGER"); err != nil {
		t.Fatalf("second addColumnIfMissing should be a no-op, got: %v", err)
	}
}

func TestOpenRejectsFutureSchema(t *testing.T) {
	ctx := context.Background()
	path := t.TempDir() + "/catalog.db3"

	mgr, err := Open(ctx, path, ModeReadWriteNoBackups, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := mgr.DB().ExecContext(ctx, `UPDATE schema_version SET number = ?`, CurrentSchemaVersion+1); err != nil {
		t.Fatalf("bumping schema_version: %v", err)
	}
	if err := mgr.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	_, err = Open(ctx, path, ModeReadWriteNoBackups, nil)
	if !errors.Is(err, types.ErrFutureSchema) {
		t.Fatalf("expected ErrFutureSchema reopening a newer-than-supported database, got %v", err)
	}
}

// Two concurrent in-memory databases must never share state — each
// :memory: Open gets its own isolated database.
func TestMemoryDatabasesAreIsolated(t *testing.T) {
	ctx := context.Background()
	a, err := Open(ctx, ":memory:", ModeReadWriteNoBackups, nil)
	if err != nil {
		t.Fatalf("opening a: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	b, err := Open(ctx, ":memory:", ModeReadWriteNoBackups, nil)
	if err != nil {
		t.Fatalf("opening b: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })

	if _, err := a.DB().ExecContext(ctx, `INSERT INTO lists (id, name) VALUES ('x', 'X')`); err != nil {
		t.Fatalf("inserting into a: %v", err)
	}

	var count int
	if err := b.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM lists`).Scan(&count); err != nil {
		t.Fatalf("counting in b: %v", err)
	}
	if count != 0 {
		t.Fatalf("b saw %d rows from a, the two in-memory databases are not isolated", count)
	}
}
