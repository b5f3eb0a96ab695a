package main

import (
	"os"
	"path/filepath"
	"testing"

	"teleop-bridge/internal/record"
	"teleop-bridge/internal/telemetry"
)

func TestNewRecorderPrintOnly(t *testing.T) {
	w, cleanup, err := newRecorder(true, "", "s1")
	if err != nil {
		t.Fatalf("newRecorder returned error: %v", err)
	}
	cleanup()
	if _, ok := w.(*record.StdoutJSONWriter); !ok {
		t.Fatalf("expected *record.StdoutJSONWriter, got %T", w)
	}
}

func TestNewRecorderGreptimeFallback(t *testing.T) {
	t.Setenv("GREPTIMEDB_ENDPOINT", "")
	w, cleanup, err := newRecorder(false, "", "s1")
	if err != nil {
		t.Fatalf("newRecorder returned error: %v", err)
	}
	cleanup()
	if _, ok := w.(*record.StdoutJSONWriter); !ok {
		t.Fatalf("expected *record.StdoutJSONWriter, got %T", w)
	}
}

func TestNewRecorderLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telemetry.log")
	w, cleanup, err := newRecorder(true, path, "s1")
	if err != nil {
		t.Fatalf("newRecorder returned error: %v", err)
	}
	defer cleanup()
	if _, ok := w.(*record.MultiWriter); !ok {
		t.Fatalf("expected *record.MultiWriter, got %T", w)
	}
	if err := w.Write(telemetry.Snapshot{Type: "telemetry", Timestamp: 1}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if info.Size() == 0 {
		t.Fatalf("expected log file to be non-empty")
	}
}
