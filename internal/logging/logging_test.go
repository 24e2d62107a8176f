package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInfofWritesToRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.log")
	log := New(path, 1)

	log.Infof("opened %s in mode %d", "catalog.db3", 1)
	log.Warnf("duplicate skip for %s", "h1")
	if err := log.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, "opened catalog.db3 in mode 1") {
		t.Fatalf("log missing info line, got %q", out)
	}
	if !strings.Contains(out, "duplicate skip for h1") {
		t.Fatalf("log missing warn line, got %q", out)
	}
}

func TestNewDefaultsInvalidMaxSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.log")
	log := New(path, 0)
	if log.sink.MaxSize != 20 {
		t.Fatalf("MaxSize = %d, want the 20MB default for a non-positive input", log.sink.MaxSize)
	}
	_ = log.Close()
}
