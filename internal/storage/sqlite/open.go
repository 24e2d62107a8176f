// Package sqlite is the schema/migration manager: it owns the database
// handle for its entire lifetime, creates missing tables, upgrades an
// older file across the numbered schema_version chain, and delegates to
// the backup manager before any migration and on close (spec.md §4.3).
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	sqlite3 "github.com/ncruces/go-sqlite3"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/tetratelabs/wazero"

	"github.com/synthvault/catalog/internal/types"
)

// OpenMode selects how Open connects to the database file (spec.md
// §4.3 step 1).
type OpenMode int

const (
	// ModeReadOnly opens the file read-only; any write path returns
	// ErrReadOnly.
	ModeReadOnly OpenMode = iota
	// ModeReadWrite opens the file for writing and runs the normal
	// backup-on-migration / backup-on-close flow.
	ModeReadWrite
	// ModeReadWriteNoBackups opens the file for writing but skips the
	// backup manager entirely — used by tests and by callers that
	// manage their own snapshotting.
	ModeReadWriteNoBackups
)

func setupWASMCache() string {
	cacheDir := ""
	if userCache, err := os.UserCacheDir(); err == nil {
		cacheDir = filepath.Join(userCache, "synthvault", "wasm")
	}

	var cache wazero.CompilationCache
	if cacheDir != "" {
		if c, err := wazero.NewCompilationCacheWithDir(cacheDir); err == nil {
			cache = c
		}
	}
	if cache == nil {
		cache = wazero.NewCompilationCache()
		cacheDir = ""
	}
	sqlite3.RuntimeConfig = wazero.NewRuntimeConfig().WithCompilationCache(cache)
	return cacheDir
}

func init() {
	_ = setupWASMCache()
}

// Manager owns the *sql.DB for as long as the database is open. All
// other components (category registry, patch store, list store) borrow
// it through DB(); none of them may Close it.
type Manager struct {
	db     *sql.DB
	path   string
	mode   OpenMode
	backup *BackupManager
	closed atomic.Bool
}

// Open opens (or creates) the database at path in the given mode,
// creates any missing tables, and migrates an older file up to
// CurrentSchemaVersion, snapshotting before the first migration step if
// the mode allows backups.
func Open(ctx context.Context, path string, mode OpenMode, backup *BackupManager) (*Manager, error) {
	if backup == nil {
		backup = NewBackupManager(nil)
	}

	connStr, err := connectionString(path, mode)
	if err != nil {
		return nil, err
	}

	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	isInMemory := path == ":memory:" || strings.Contains(connStr, "mode=memory")
	if isInMemory {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, classifyStorageError(err, mode)
	}

	m := &Manager{db: db, path: path, mode: mode, backup: backup}

	if err := m.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return m, nil
}

// memdbCounter hands out a distinct in-memory database name to every
// :memory: Open call, so two Managers opened in the same process never
// collide on go-sqlite3's named shared-cache memory databases.
var memdbCounter atomic.Uint64

func connectionString(path string, mode OpenMode) (string, error) {
	roParam := ""
	if mode == ModeReadOnly {
		roParam = "&mode=ro"
	}

	switch {
	case path == ":memory:":
		name := fmt.Sprintf("memdb%d", memdbCounter.Add(1))
		return "file:" + name + "?mode=memory&cache=shared&_pragma=journal_mode(DELETE)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(30000)", nil
	case strings.HasPrefix(path, "file:"):
		if !strings.Contains(path, "_pragma=foreign_keys") {
			return path + "&_pragma=foreign_keys(ON)&_pragma=busy_timeout(30000)" + roParam, nil
		}
		return path + roParam, nil
	default:
		return "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(30000)" + roParam, nil
	}
}

// initSchema implements spec.md §4.3 steps 2-4.
func (m *Manager) initSchema(ctx context.Context) error {
	if _, err := m.db.ExecContext(ctx, freshSchema); err != nil {
		return classifyStorageError(fmt.Errorf("creating schema: %w", err), m.mode)
	}

	var version int
	err := m.db.QueryRowContext(ctx, `SELECT number FROM schema_version LIMIT 1`).Scan(&version)
	switch {
	case err == sql.ErrNoRows:
		if _, err := m.db.ExecContext(ctx, `INSERT INTO schema_version (number) VALUES (?)`, CurrentSchemaVersion); err != nil {
			return classifyStorageError(fmt.Errorf("recording fresh schema version: %w", err), m.mode)
		}
		for _, c := range defaultCategories {
			if _, err := m.db.ExecContext(ctx, `
				INSERT OR IGNORE INTO categories (bit_index, name, color, active) VALUES (?, ?, ?, 1)
			`, c.BitIndex, c.Name, c.Color); err != nil {
				return classifyStorageError(fmt.Errorf("seeding category %q: %w", c.Name, err), m.mode)
			}
		}
		return nil
	case err != nil:
		return classifyStorageError(fmt.Errorf("reading schema version: %w", err), m.mode)
	}

	if version > CurrentSchemaVersion {
		return fmt.Errorf("%w: database is at version %d, this program supports up to %d", types.ErrFutureSchema, version, CurrentSchemaVersion)
	}
	if version == CurrentSchemaVersion {
		return nil
	}

	if m.mode != ModeReadOnly && m.mode != ModeReadWriteNoBackups {
		if _, err := m.backup.Snapshot(m.path, "-before-migration"); err != nil {
			return fmt.Errorf("snapshotting before migration: %w", err)
		}
	}

	if err := runMigrations(ctx, m.db, version); err != nil {
		return classifyStorageError(fmt.Errorf("migrating schema: %w", err), m.mode)
	}
	return nil
}

// classifyStorageError distinguishes a read-only filesystem/engine
// rejection from every other storage error (spec.md §7). Driven by
// message sniffing because database/sql does not expose a portable
// sentinel for SQLite's "attempt to write a readonly database".
func classifyStorageError(err error, mode OpenMode) error {
	if err == nil {
		return nil
	}
	if mode == ModeReadOnly && strings.Contains(strings.ToLower(err.Error()), "readonly") {
		return fmt.Errorf("%w: %v", types.ErrReadOnly, err)
	}
	return fmt.Errorf("%w: %v", types.ErrStorageFailure, err)
}

// DB returns the borrowed *sql.DB. Callers must not Close it; Close on
// the Manager is the only valid way to release it.
func (m *Manager) DB() *sql.DB { return m.db }

// Path returns the path this manager was opened with, or ":memory:".
func (m *Manager) Path() string { return m.path }

// Mode returns the mode this database was opened in.
func (m *Manager) Mode() OpenMode { return m.mode }

// Close backs up the file (ModeReadWrite only) and releases the
// connection (spec.md §4.3, "On close").
func (m *Manager) Close() error {
	if m.closed.Swap(true) {
		return nil
	}
	if m.mode == ModeReadWrite && m.path != ":memory:" {
		if _, err := m.backup.Snapshot(m.path, "-backup"); err != nil {
			_ = m.db.Close()
			return fmt.Errorf("backing up on close: %w", err)
		}
		if err := m.backup.Retain(m.path, "-backup"); err != nil {
			_ = m.db.Close()
			return fmt.Errorf("retaining backups on close: %w", err)
		}
	}
	return m.db.Close()
}
