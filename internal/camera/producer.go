package camera

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"teleop-bridge/internal/hub"
	"teleop-bridge/internal/logging"
)

// readBackoff is the pause after a failed frame read before retrying.
const readBackoff = 50 * time.Millisecond

// maxConsecutiveFailures ends the ingest loop when the source keeps failing
// without ever recovering.
const maxConsecutiveFailures = 20

// Producer pumps frames from a source into the hub.
type Producer struct {
	src Source
	hub *hub.Hub
}

// NewProducer wires a source to the hub.
func NewProducer(src Source, h *hub.Hub) *Producer {
	return &Producer{src: src, hub: h}
}

// Run publishes every frame until the context ends or the source dies.
// A single failed read is logged and retried after a short backoff.
func (p *Producer) Run(ctx context.Context) error {
	log := logging.FromContext(ctx)
	failures := 0
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		frame, err := p.src.NextFrame(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return err
			}
			failures++
			if failures >= maxConsecutiveFailures {
				return fmt.Errorf("camera: source not recovering: %w", err)
			}
			log.Warn("frame read failed", "err", err, "consecutive", failures)
			time.Sleep(readBackoff)
			continue
		}
		failures = 0
		p.hub.Publish(frame)
	}
}
