package sqlite

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, path string, size int, modTime time.Time) {
	t.Helper()
	if err := os.WriteFile(path, make([]byte, size), 0o600); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	if err := os.Chtimes(path, modTime, modTime); err != nil {
		t.Fatalf("setting mtime on %s: %v", path, err)
	}
}

func TestSnapshotAvoidsClobberingAnExistingFile(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "catalog.db3")
	writeFile(t, dbPath, 16, time.Now())

	b := NewBackupManager(nil)
	first, err := b.Snapshot(dbPath, "-backup")
	if err != nil {
		t.Fatalf("first Snapshot: %v", err)
	}
	second, err := b.Snapshot(dbPath, "-backup")
	if err != nil {
		t.Fatalf("second Snapshot: %v", err)
	}
	if first == second {
		t.Fatalf("second snapshot clobbered the first at %s", first)
	}
	if _, err := os.Stat(first); err != nil {
		t.Fatalf("first snapshot missing: %v", err)
	}
	if _, err := os.Stat(second); err != nil {
		t.Fatalf("second snapshot missing: %v", err)
	}
}

func TestRetainKeepsEverythingUnderBudget(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "catalog.db3")
	writeFile(t, dbPath, 16, time.Now())

	now := time.Now()
	for i := 0; i < 5; i++ {
		name := filepath.Join(dir, "catalog-backup")
		if i > 0 {
			name = filepath.Join(dir, "catalog-backup-"+string(rune('0'+i)))
		}
		writeFile(t, name+".db3", 1024, now.Add(-time.Duration(i)*time.Hour))
	}

	b := NewBackupManager(nil)
	if err := b.Retain(dbPath, "-backup"); err != nil {
		t.Fatalf("Retain: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	kept := 0
	for _, e := range entries {
		if e.Name() != "catalog.db3" {
			kept++
		}
	}
	if kept != 5 {
		t.Fatalf("kept %d backup files, want all 5 (well under the size budget)", kept)
	}
}

func TestRetainDeletesPastBudgetBeyondMinimum(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "catalog.db3")
	writeFile(t, dbPath, 16, time.Now())

	now := time.Now()
	bigSize := retentionBudgetBytes / 2
	for i := 0; i < 6; i++ {
		name := filepath.Join(dir, "catalog-backup")
		if i > 0 {
			name = filepath.Join(dir, "catalog-backup-"+string(rune('0'+i)))
		}
		writeFile(t, name+".db3", bigSize, now.Add(-time.Duration(i)*time.Hour))
	}

	b := NewBackupManager(nil)
	if err := b.Retain(dbPath, "-backup"); err != nil {
		t.Fatalf("Retain: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	kept := 0
	for _, e := range entries {
		if e.Name() != "catalog.db3" {
			kept++
		}
	}
	// Each file is half the budget, so only 2 fit under budget by size,
	// but minKeep (3) is the floor since it yields more kept files.
	if kept != minKeep {
		t.Fatalf("kept %d backup files, want the minimum-keep floor of %d", kept, minKeep)
	}
}
