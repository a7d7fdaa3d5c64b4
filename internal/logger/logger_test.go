package logger

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSyncClosesRotatingLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.log")
	l := New(&Config{
		Level:       "info",
		Format:      "json",
		ServiceName: "test",
		LogFile:     path,
	})
	l.Info("rotating file output")

	if err := Sync(); err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("log file was not created: %v", err)
	}
	// Safe to call again once the handle is closed.
	if err := Sync(); err != nil {
		t.Errorf("second sync failed: %v", err)
	}
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	if FromContext(nil) == nil {
		t.Fatal("expected the default logger for a nil context")
	}
}
