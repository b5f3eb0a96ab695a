package record

import (
	"encoding/json"
	"os"

	"teleop-bridge/internal/telemetry"
)

// FileWriter appends snapshots to a JSONL file.
type FileWriter struct {
	file *os.File
	enc  *json.Encoder
}

// NewFileWriter creates the file, truncating any previous run's log.
func NewFileWriter(path string) (*FileWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &FileWriter{file: f, enc: json.NewEncoder(f)}, nil
}

// Write appends one snapshot line.
func (w *FileWriter) Write(s telemetry.Snapshot) error {
	return w.enc.Encode(s)
}

// Close flushes and closes the file.
func (w *FileWriter) Close() error {
	return w.file.Close()
}
