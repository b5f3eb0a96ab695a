// Package hub provides a latest-value broadcast cell for encoded camera
// frames. One producer publishes, any number of streaming loops consume.
//
// The discipline is "drop frames, never queue": a consumer asking for the
// next frame always eventually sees the most recently published one, and the
// producer is never blocked by slow or absent consumers. At most one frame
// ever waits in the handoff slot; a new publish replaces it.
package hub

import (
	"errors"
	"sync"
	"time"
)

// Frame is an opaque, already-encoded image buffer. Frames are immutable
// after publish; the hub never copies or inspects them.
type Frame []byte

var (
	// ErrNoFrame is returned by Next when the timeout expires before the
	// first frame has ever been published.
	ErrNoFrame = errors.New("hub: no frame available")
	// ErrClosed is returned by Next after Close.
	ErrClosed = errors.New("hub: closed")
)

// Hub holds the latest published frame plus a single-slot handoff channel.
// The slot gives one waiting consumer a low-latency wake-up; the latest
// frame gives every consumer the correctness fallback.
type Hub struct {
	mu     sync.Mutex
	latest Frame

	pending chan Frame // capacity exactly 1
	done    chan struct{}
	once    sync.Once
}

// New returns an empty hub.
func New() *Hub {
	return &Hub{
		pending: make(chan Frame, 1),
		done:    make(chan struct{}),
	}
}

// Publish replaces the latest frame and forces it into the handoff slot,
// discarding whatever older frame was still waiting there. It never blocks.
func (h *Hub) Publish(f Frame) {
	h.mu.Lock()
	if h.closed() {
		h.mu.Unlock()
		return
	}
	h.latest = f
	h.mu.Unlock()

	for {
		select {
		case h.pending <- f:
			return
		default:
		}
		// Slot occupied: evict the stale frame and retry. A concurrent
		// consumer may win the race, which also frees the slot.
		select {
		case <-h.pending:
		default:
		}
	}
}

// Next returns the next handed-off frame. With timeout <= 0 it blocks until
// a frame arrives. With a positive timeout it waits that long for a handoff,
// then falls back to the latest published frame; the fallback may repeat a
// frame the caller has already seen. ErrNoFrame means nothing has ever been
// published.
func (h *Hub) Next(timeout time.Duration) (Frame, error) {
	if timeout <= 0 {
		select {
		case f := <-h.pending:
			return f, nil
		case <-h.done:
			return nil, ErrClosed
		}
	}

	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case f := <-h.pending:
		return f, nil
	case <-h.done:
		return nil, ErrClosed
	case <-t.C:
		if f, ok := h.Latest(); ok {
			return f, nil
		}
		return nil, ErrNoFrame
	}
}

// Latest returns the most recently published frame, if any.
func (h *Hub) Latest() (Frame, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.latest, h.latest != nil
}

// Close wakes every blocked Next caller. Publish becomes a no-op.
func (h *Hub) Close() {
	h.once.Do(func() { close(h.done) })
}

func (h *Hub) closed() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}
