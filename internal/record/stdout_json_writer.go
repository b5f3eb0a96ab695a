package record

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"teleop-bridge/internal/telemetry"
)

// StdoutJSONWriter prints snapshots as JSON lines to STDOUT.
type StdoutJSONWriter struct {
	out io.Writer
}

// NewStdoutJSONWriter creates a StdoutJSONWriter writing to os.Stdout.
func NewStdoutJSONWriter() *StdoutJSONWriter {
	return &StdoutJSONWriter{out: os.Stdout}
}

// Write outputs a snapshot in JSON format.
func (w *StdoutJSONWriter) Write(s telemetry.Snapshot) error {
	data, _ := json.Marshal(s)
	fmt.Fprintln(w.out, string(data))
	return nil
}

// WriteBatch outputs multiple snapshots in JSON format.
func (w *StdoutJSONWriter) WriteBatch(snaps []telemetry.Snapshot) error {
	for _, s := range snaps {
		_ = w.Write(s)
	}
	return nil
}
