package main

import (
	"os"

	"teleop-bridge/internal/record"
)

// newRecorder chooses the telemetry recorder based on flags and env vars.
// It returns the recorder and a cleanup function to close any resources.
func newRecorder(printOnly bool, logFile, sessionID string) (record.SnapshotWriter, func(), error) {
	cleanup := func() {}

	writer, err := baseRecorder(printOnly, sessionID)
	if err != nil {
		return nil, nil, err
	}
	if logFile == "" {
		return writer, cleanup, nil
	}

	fw, err := record.NewFileWriter(logFile)
	if err != nil {
		return nil, nil, err
	}
	cleanup = func() { fw.Close() }
	return record.NewMultiWriter(writer, fw), cleanup, nil
}

// baseRecorder chooses the underlying recorder based on printOnly flag and env vars.
func baseRecorder(printOnly bool, sessionID string) (record.SnapshotWriter, error) {
	if printOnly || os.Getenv("GREPTIMEDB_ENDPOINT") == "" {
		return record.NewStdoutJSONWriter(), nil
	}
	endpoint := os.Getenv("GREPTIMEDB_ENDPOINT")
	return record.NewGreptimeDBWriter(endpoint, "public", sessionID)
}
