package appdir

import (
	"path/filepath"
	"runtime"
	"testing"
)

func TestDefaultDataDirLinux(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("linux-only test")
	}

	t.Run("uses XDG_DATA_HOME when set", func(t *testing.T) {
		t.Setenv("XDG_DATA_HOME", "/tmp/xdg-data")
		got, err := DefaultDataDir()
		if err != nil {
			t.Fatalf("DefaultDataDir: %v", err)
		}
		want := filepath.Join("/tmp/xdg-data", SubfolderName)
		if got != want {
			t.Fatalf("got %q, want %q", got, want)
		}
	})
}

func TestDefaultDataDirDarwin(t *testing.T) {
	if runtime.GOOS != "darwin" {
		t.Skip("darwin-only test")
	}
	orig := platformDir.userConfigDir
	platformDir.userConfigDir = func() (string, error) { return "/Users/tester/Library/Application Support", nil }
	t.Cleanup(func() { platformDir.userConfigDir = orig })

	got, err := DefaultDataDir()
	if err != nil {
		t.Fatalf("DefaultDataDir: %v", err)
	}
	want := filepath.Join("/Users/tester/Library/Application Support", SubfolderName)
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestDefaultDatabasePathEndsInFixedFileName(t *testing.T) {
	orig := platformDir.homeDir
	platformDir.homeDir = func() (string, error) { return t.TempDir(), nil }
	t.Cleanup(func() { platformDir.homeDir = orig })
	t.Setenv("XDG_DATA_HOME", "")

	path, err := DefaultDatabasePath()
	if err != nil {
		t.Fatalf("DefaultDatabasePath: %v", err)
	}
	if filepath.Base(path) != DatabaseFileName {
		t.Fatalf("DefaultDatabasePath = %q, want it to end in %q", path, DatabaseFileName)
	}
}
