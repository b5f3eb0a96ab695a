package server

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"teleop-bridge/internal/logging"
)

// handleTelemetry joins the snapshot client set. The client gets one
// snapshot immediately so it never waits out a full broadcast period, then
// receives whatever the broadcaster fans out. Inbound messages are read and
// discarded; the protocol is one-way.
func (s *Server) handleTelemetry(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(ctx)
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &client{id: uuid.NewString(), conn: conn}

	s.mu.Lock()
	s.telemetry[c.id] = c
	n := len(s.telemetry)
	s.mu.Unlock()
	log.Info("telemetry client connected", "client", c.id, "subscribers", n)

	if data, err := s.builder.Snapshot().MarshalJSONLine(); err == nil {
		if err := c.send(websocket.TextMessage, data); err != nil {
			s.dropTelemetryClient(c.id)
			return
		}
	}

	// Drain inbound until the peer goes away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	s.dropTelemetryClient(c.id)
	log.Info("telemetry client disconnected", "client", c.id)
}

func (s *Server) dropTelemetryClient(id string) {
	s.mu.Lock()
	c, ok := s.telemetry[id]
	delete(s.telemetry, id)
	s.mu.Unlock()
	if ok {
		c.conn.Close()
	}
}

// Broadcast fans a fresh snapshot out to every telemetry client at the
// configured cadence. A failed send drops only that client. When a recorder
// is configured, each tick's snapshot is persisted whether or not anyone is
// connected.
func (s *Server) Broadcast(ctx context.Context) {
	log := logging.FromContext(ctx)
	log.Info("starting telemetry broadcaster", "period", s.cfg.PublishPeriod)
	ticker := time.NewTicker(s.cfg.PublishPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.broadcastOnce(ctx)
		case <-ctx.Done():
			log.Info("stopping telemetry broadcaster")
			return
		}
	}
}

func (s *Server) broadcastOnce(ctx context.Context) {
	log := logging.FromContext(ctx)
	snap := s.builder.Snapshot()

	if s.Recorder != nil {
		if err := s.Recorder.Write(snap); err != nil {
			log.Error("snapshot record failed", "err", err)
		}
	}

	s.mu.Lock()
	clients := make([]*client, 0, len(s.telemetry))
	for _, c := range s.telemetry {
		clients = append(clients, c)
	}
	s.mu.Unlock()
	if len(clients) == 0 {
		return
	}

	data, err := snap.MarshalJSONLine()
	if err != nil {
		log.Error("snapshot marshal failed", "err", err)
		return
	}
	for _, c := range clients {
		go func(c *client) {
			if err := c.send(websocket.TextMessage, data); err != nil {
				s.dropTelemetryClient(c.id)
			}
		}(c)
	}
}
