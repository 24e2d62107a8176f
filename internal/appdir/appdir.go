// Package appdir resolves the default location of the catalog database
// file: the user's application-data directory, an application
// subfolder, and a fixed file name (spec.md §6, "Persisted state
// layout").
package appdir

import (
	"os"
	"path/filepath"
	"runtime"
)

// SubfolderName is the application subfolder created under the
// platform's application-data directory.
const SubfolderName = "SynthVault"

// DatabaseFileName is the fixed file name of the catalog database
// (spec.md §6).
const DatabaseFileName = "SysexDatabaseOfAllPatches.db3"

// platformDir holds the platform-detection functions, swappable in
// tests the way the rest of this package's grounding does it.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// DefaultDataDir returns the platform-specific application-data
// directory for the catalog subfolder.
//
// Linux:   $XDG_DATA_HOME/SynthVault (fallback ~/.local/share/SynthVault)
// macOS:   ~/Library/Application Support/SynthVault
// Windows: %APPDATA%/SynthVault
func DefaultDataDir() (string, error) {
	switch runtime.GOOS {
	case "linux":
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return filepath.Join(xdg, SubfolderName), nil
		}
		home, err := platformDir.homeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".local", "share", SubfolderName), nil
	default:
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, SubfolderName), nil
	}
}

// DefaultDatabasePath returns the full default database file path,
// creating its parent directory if missing.
func DefaultDatabasePath() (string, error) {
	dir, err := DefaultDataDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", err
	}
	return filepath.Join(dir, DatabaseFileName), nil
}
