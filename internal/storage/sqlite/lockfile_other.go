//go:build !unix

package sqlite

import "os"

// lockForRead is a no-op on platforms with no POSIX advisory lock.
// WAL-mode SQLite files can still be copied safely between checkpoints;
// callers on these platforms lose the extra safety margin, not
// correctness.
func lockForRead(*os.File) (unlock func(), err error) {
	return func() {}, nil
}
