package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"teleop-bridge/internal/hub"
	"teleop-bridge/internal/logging"
)

// handleStream runs the per-client frame loop: newest frame always, paced to
// the configured frame period, dropped on the first send failure.
func (s *Server) handleStream(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(ctx)
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &client{id: uuid.NewString(), conn: conn}

	s.mu.Lock()
	s.streams[c.id] = c
	s.mu.Unlock()
	log.Info("stream client connected", "client", c.id)

	// The socket stays readable so the peer's close handshake is seen, but
	// frame clients have nothing to say.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	s.streamFrames(ctx, c)

	s.mu.Lock()
	delete(s.streams, c.id)
	s.mu.Unlock()
	conn.Close()
	log.Info("stream client disconnected", "client", c.id)
}

func (s *Server) streamFrames(ctx context.Context, c *client) {
	log := logging.FromContext(ctx)

	// Give a late joiner something to look at right away.
	if f, ok := s.hub.Latest(); ok {
		if err := c.send(websocket.BinaryMessage, f); err != nil {
			return
		}
	}

	// Half the frame period bounds the wait for a fresh frame; the latest
	// frame is repeated when the producer stalls.
	var pullTimeout time.Duration
	if s.cfg.FramePeriod > 0 {
		pullTimeout = s.cfg.FramePeriod / 2
	}

	rates := newRateCounter(time.Second)
	var lastSend time.Time
	var lastRateLog time.Time

	for {
		if ctx.Err() != nil {
			return
		}
		f, err := s.hub.Next(pullTimeout)
		if err != nil {
			if errors.Is(err, hub.ErrClosed) {
				return
			}
			// Nothing published yet: idle briefly and ask again.
			time.Sleep(pullTimeout)
			continue
		}

		// Pace on send time, not frame arrival time.
		if s.cfg.FramePeriod > 0 && !lastSend.IsZero() {
			if wait := s.cfg.FramePeriod - time.Since(lastSend); wait > 0 {
				time.Sleep(wait)
			}
		}

		if err := c.send(websocket.BinaryMessage, f); err != nil {
			return
		}
		lastSend = time.Now()
		rates.mark(lastSend)

		if lastSend.Sub(lastRateLog) >= time.Second {
			log.Debug("stream rate", "client", c.id, "fps", rates.rate(lastSend))
			lastRateLog = lastSend
		}
	}
}

// rateCounter tracks sends over a rolling window.
type rateCounter struct {
	window time.Duration
	marks  []time.Time
}

func newRateCounter(window time.Duration) *rateCounter {
	return &rateCounter{window: window}
}

func (r *rateCounter) mark(now time.Time) {
	r.prune(now)
	r.marks = append(r.marks, now)
}

// rate returns events per second over the window.
func (r *rateCounter) rate(now time.Time) float64 {
	r.prune(now)
	return float64(len(r.marks)) / r.window.Seconds()
}

func (r *rateCounter) prune(now time.Time) {
	cutoff := now.Add(-r.window)
	i := 0
	for i < len(r.marks) && r.marks[i].Before(cutoff) {
		i++
	}
	r.marks = r.marks[i:]
}
