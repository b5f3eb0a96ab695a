// Package server exposes the bridge over a single websocket endpoint:
// /stream carries binary frames, /telemetry carries JSON status snapshots.
package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"teleop-bridge/internal/hub"
	"teleop-bridge/internal/logging"
	"teleop-bridge/internal/record"
	"teleop-bridge/internal/telemetry"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Config tunes the server's two routes.
type Config struct {
	PublishPeriod time.Duration // telemetry broadcast cadence
	FramePeriod   time.Duration // min spacing between frame sends; 0 = unthrottled
}

// Server owns both client sets and the broadcast loop.
type Server struct {
	hub     *hub.Hub
	builder *telemetry.Builder
	cfg     Config

	// Recorder is optional; when set, every broadcast-tick snapshot is
	// also persisted.
	Recorder record.SnapshotWriter

	mu        sync.Mutex
	telemetry map[string]*client
	streams   map[string]*client
}

// New creates a server around the shared hub and snapshot builder.
func New(h *hub.Hub, b *telemetry.Builder, cfg Config) *Server {
	return &Server{
		hub:       h,
		builder:   b,
		cfg:       cfg,
		telemetry: make(map[string]*client),
		streams:   make(map[string]*client),
	}
}

func (s *Server) routes(ctx context.Context) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/telemetry", func(w http.ResponseWriter, r *http.Request) {
		s.handleTelemetry(ctx, w, r)
	})
	mux.HandleFunc("/stream", func(w http.ResponseWriter, r *http.Request) {
		s.handleStream(ctx, w, r)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		s.handleUnknown(ctx, w, r)
	})
	return mux
}

// Start serves until the context is done, then closes every client.
func (s *Server) Start(ctx context.Context, addr string) error {
	log := logging.FromContext(ctx)
	srv := &http.Server{Addr: addr, Handler: s.routes(ctx)}

	go func() {
		<-ctx.Done()
		s.closeAll()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("websocket server listening", "addr", addr)
	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// handleUnknown upgrades the socket only to close it with a policy
// violation, so misrouted clients get an explicit rejection instead of a
// silent accept.
func (s *Server) handleUnknown(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	logging.FromContext(ctx).Warn("rejecting unknown route", "path", r.URL.Path)
	msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "unknown route")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	conn.Close()
}

func (s *Server) closeAll() {
	s.hub.Close()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.telemetry {
		c.conn.Close()
	}
	for _, c := range s.streams {
		c.conn.Close()
	}
}

// client is one live websocket connection. The write mutex serializes the
// broadcaster against connect-time sends.
type client struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) send(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(messageType, data)
}
