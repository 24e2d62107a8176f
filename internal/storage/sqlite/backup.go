package sqlite

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// retentionBudgetBytes is the disk budget the retention policy tries to
// stay under (spec.md §4.4).
const retentionBudgetBytes = 500 * 1024 * 1024

// minKeep is the minimum number of snapshot files retention always
// keeps regardless of the cumulative-size budget.
const minKeep = 3

// BackupLogger receives best-effort diagnostics from the backup
// manager: unreadable sibling files and failed deletions are logged and
// skipped rather than treated as fatal (spec.md §4.4).
type BackupLogger interface {
	Warnf(format string, args ...interface{})
}

type discardLogger struct{}

func (discardLogger) Warnf(string, ...interface{}) {}

// BackupManager writes file-level snapshots of the database file and
// enforces the retention policy over its siblings. It never opens the
// live database connection itself; it only copies the file on disk.
type BackupManager struct {
	log BackupLogger
}

// NewBackupManager constructs a BackupManager. A nil logger discards
// diagnostics.
func NewBackupManager(log BackupLogger) *BackupManager {
	if log == nil {
		log = discardLogger{}
	}
	return &BackupManager{log: log}
}

// Snapshot copies the live database file at dbPath to a sibling named
// "<stem><suffix><ext>", adding a numeric counter if that name is
// already taken, so an existing snapshot is never clobbered. Returns
// the path written.
func (b *BackupManager) Snapshot(dbPath, suffix string) (string, error) {
	dir := filepath.Dir(dbPath)
	ext := filepath.Ext(dbPath)
	stem := strings.TrimSuffix(filepath.Base(dbPath), ext)

	dest := filepath.Join(dir, stem+suffix+ext)
	for n := 1; fileExists(dest); n++ {
		dest = filepath.Join(dir, fmt.Sprintf("%s%s-%d%s", stem, suffix, n, ext))
	}

	if err := copyFileUnderLock(dbPath, dest); err != nil {
		return "", fmt.Errorf("snapshotting %s to %s: %w", dbPath, dest, err)
	}
	return dest, nil
}

// Retain lists siblings of dbPath matching "<stem><suffix>*<ext>",
// sorts them newest-first, and deletes whatever falls past the
// retention rule: keep every file whose cumulative size stays under
// ~500MB, OR the three most recent, whichever keeps more files
// (spec.md §4.4). Unreadable files and failed deletions are logged and
// skipped, never fatal.
func (b *BackupManager) Retain(dbPath, suffix string) error {
	dir := filepath.Dir(dbPath)
	ext := filepath.Ext(dbPath)
	stem := strings.TrimSuffix(filepath.Base(dbPath), ext)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("listing backup directory %s: %w", dir, err)
	}

	type candidate struct {
		path    string
		modTime int64
		size    int64
	}
	var candidates []candidate
	prefix := stem + suffix
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ext) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			b.log.Warnf("skipping unreadable backup file %s: %v", name, err)
			continue
		}
		candidates = append(candidates, candidate{
			path:    filepath.Join(dir, name),
			modTime: info.ModTime().UnixNano(),
			size:    info.Size(),
		})
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].modTime > candidates[j].modTime })

	keepBySize := 0
	var cumulative int64
	for _, c := range candidates {
		cumulative += c.size
		if cumulative > retentionBudgetBytes {
			break
		}
		keepBySize++
	}

	keep := keepBySize
	if minKeep > keep {
		keep = minKeep
	}
	if keep > len(candidates) {
		keep = len(candidates)
	}

	for _, c := range candidates[keep:] {
		if err := os.Remove(c.path); err != nil {
			b.log.Warnf("failed to delete stale backup %s: %v", c.path, err)
			continue
		}
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// copyFileUnderLock copies src to dst using the storage layer's
// advisory file lock (spec.md §4.4, "the storage layer's native
// file-copy-under-lock primitive") so a concurrent writer's in-flight
// transaction is not torn. See lockfile_unix.go / lockfile_other.go for
// the platform-specific lock acquisition.
func copyFileUnderLock(src, dst string) error {
	in, err := os.Open(src) // #nosec G304 - src is the caller's own database path
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	unlock, err := lockForRead(in)
	if err != nil {
		return fmt.Errorf("locking %s for snapshot: %w", src, err)
	}
	defer unlock()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600) // #nosec G304 - dst is derived from the caller's own database path
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
