package link

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"teleop-bridge/internal/logging"
)

// Tokens are the line-level protocol words recognized on the inbound side.
type Tokens struct {
	Heartbeat    string
	Timeout      string
	TimeoutClear string
}

// Reader consumes inbound serial lines. A heartbeat token refreshes the
// monitor; the timeout and timeout-clear tokens are recognized but inert,
// reserved for future link-state reporting. Every non-empty line is handed
// to the optional OnLine hook.
type Reader struct {
	port   io.Reader
	tokens Tokens
	mon    *Monitor

	// OnLine, when set, observes every non-empty inbound line.
	OnLine func(line string)
}

// NewReader wires a reader to an open port and a monitor.
func NewReader(port io.Reader, tokens Tokens, mon *Monitor) *Reader {
	return &Reader{port: port, tokens: tokens, mon: mon}
}

// Run reads lines until the context is cancelled or the port reaches EOF.
// A single failed read is logged and retried after a short backoff.
func (r *Reader) Run(ctx context.Context) {
	log := logging.FromContext(ctx)
	br := bufio.NewReader(r.port)
	for {
		if ctx.Err() != nil {
			return
		}
		raw, err := br.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return
			}
			// Read timeouts during radio silence land here too; only
			// genuine garbage is worth a log line.
			if len(raw) > 0 {
				log.Warn("serial read failed", "err", err)
			}
			time.Sleep(50 * time.Millisecond)
			continue
		}
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		r.handle(line)
	}
}

func (r *Reader) handle(line string) {
	switch line {
	case r.tokens.Heartbeat:
		r.mon.MarkHeartbeat()
	case r.tokens.Timeout, r.tokens.TimeoutClear:
		// Recognized but inert.
	}
	if r.OnLine != nil {
		r.OnLine(line)
	}
}

// Writer sends line-terminated ASCII messages over the port, appending CRLF
// when the caller omits it. Writes are serialized.
type Writer struct {
	mu   sync.Mutex
	port io.Writer
}

// NewWriter wraps an open port for line output.
func NewWriter(port io.Writer) *Writer {
	return &Writer{port: port}
}

// WriteLine writes one CRLF-terminated line.
func (w *Writer) WriteLine(line string) error {
	if !strings.HasSuffix(line, "\r\n") {
		line += "\r\n"
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	_, err := w.port.Write([]byte(line))
	return err
}
