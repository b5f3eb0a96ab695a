package link

import (
	"context"
	"strings"
	"testing"
	"time"
)

var testTokens = Tokens{Heartbeat: "READY", Timeout: "TIMEOUT", TimeoutClear: "TIMEOUT_CLEAR"}

func runReader(t *testing.T, input string, mon *Monitor) []string {
	t.Helper()
	var lines []string
	r := NewReader(strings.NewReader(input), testTokens, mon)
	r.OnLine = func(line string) { lines = append(lines, line) }
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	r.Run(ctx) // returns at EOF
	return lines
}

func TestHeartbeatRefreshesMonitor(t *testing.T) {
	m, clock := newTestMonitor(15 * time.Second)
	clock.t = clock.t.Add(time.Minute)
	if m.Connected() {
		t.Fatal("stale monitor should start disconnected")
	}
	runReader(t, "READY\r\n", m)
	if !m.Connected() {
		t.Error("heartbeat line should refresh the monitor")
	}
}

func TestInertTokensChangeNothing(t *testing.T) {
	m, clock := newTestMonitor(15 * time.Second)
	clock.t = clock.t.Add(time.Minute)
	lines := runReader(t, "TIMEOUT\r\nTIMEOUT_CLEAR\r\n", m)
	if m.Connected() {
		t.Error("inert tokens must not refresh the heartbeat")
	}
	if len(lines) != 2 || lines[0] != "TIMEOUT" || lines[1] != "TIMEOUT_CLEAR" {
		t.Errorf("expected both tokens surfaced to OnLine, got %v", lines)
	}
}

func TestBlankAndUnknownLines(t *testing.T) {
	m, _ := newTestMonitor(15 * time.Second)
	lines := runReader(t, "\r\n  \r\nRSSI:-97\r\n", m)
	if len(lines) != 1 || lines[0] != "RSSI:-97" {
		t.Errorf("expected only the informational line, got %v", lines)
	}
}

type crlfSink struct{ wrote []string }

func (s *crlfSink) Write(p []byte) (int, error) {
	s.wrote = append(s.wrote, string(p))
	return len(p), nil
}

func TestWriteLineAppendsCRLF(t *testing.T) {
	sink := &crlfSink{}
	w := NewWriter(sink)
	if err := w.WriteLine("0.35,-0.2"); err != nil {
		t.Fatalf("WriteLine: %v", err)
	}
	if err := w.WriteLine("0.0,0.0\r\n"); err != nil {
		t.Fatalf("WriteLine: %v", err)
	}
	if sink.wrote[0] != "0.35,-0.2\r\n" {
		t.Errorf("missing CRLF: %q", sink.wrote[0])
	}
	if sink.wrote[1] != "0.0,0.0\r\n" {
		t.Errorf("CRLF doubled: %q", sink.wrote[1])
	}
}