// Package record persists telemetry snapshots for after-the-fact review:
// stdout, JSONL files, or GreptimeDB.
package record

import "teleop-bridge/internal/telemetry"

// SnapshotWriter handles one snapshot per broadcast tick.
type SnapshotWriter interface {
	Write(telemetry.Snapshot) error
}

// Optional: writers may support batch mode for snapshots.
type batchSnapshotWriter interface {
	WriteBatch([]telemetry.Snapshot) error
}

// MultiWriter fans snapshots out to multiple writers.
type MultiWriter struct {
	writers []SnapshotWriter
}

// NewMultiWriter creates a new MultiWriter.
func NewMultiWriter(ws ...SnapshotWriter) *MultiWriter {
	return &MultiWriter{writers: ws}
}

// Write sends a snapshot to all writers.
func (mw *MultiWriter) Write(s telemetry.Snapshot) error {
	for _, w := range mw.writers {
		if err := w.Write(s); err != nil {
			return err
		}
	}
	return nil
}

// WriteBatch sends multiple snapshots to all writers, using batch mode where
// supported.
func (mw *MultiWriter) WriteBatch(snaps []telemetry.Snapshot) error {
	for _, w := range mw.writers {
		if bw, ok := w.(batchSnapshotWriter); ok {
			if err := bw.WriteBatch(snaps); err != nil {
				return err
			}
			continue
		}
		for _, s := range snaps {
			if err := w.Write(s); err != nil {
				return err
			}
		}
	}
	return nil
}
