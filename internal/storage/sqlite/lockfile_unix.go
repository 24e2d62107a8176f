//go:build unix

package sqlite

import (
	"os"

	"golang.org/x/sys/unix"
)

// lockForRead takes a shared advisory flock on f for the duration of a
// backup copy, mirroring SQLite's own use of POSIX locks to coordinate
// readers and writers on the same file.
func lockForRead(f *os.File) (unlock func(), err error) {
	fd := int(f.Fd())
	if err := unix.Flock(fd, unix.LOCK_SH); err != nil {
		return nil, err
	}
	return func() { _ = unix.Flock(fd, unix.LOCK_UN) }, nil
}
