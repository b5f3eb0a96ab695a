package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"teleop-bridge/internal/hub"
	"teleop-bridge/internal/telemetry"
)

type stubLink struct{}

func (stubLink) Connected() bool             { return true }
func (stubLink) Quality() int                { return 100 }
func (stubLink) TxRateHz() float64           { return 10 }
func (stubLink) HeartbeatAge() time.Duration { return time.Second }

type stubModes struct{}

func (stubModes) Sleep() bool      { return false }
func (stubModes) SpeedBoost() bool { return true }

type stubMotion struct{}

func (stubMotion) Effective() (float64, float64) { return 0.35, -0.2 }

func newTestServer(t *testing.T, h *hub.Hub) (*Server, *httptest.Server) {
	t.Helper()
	b := telemetry.NewBuilder(stubLink{}, stubModes{}, stubMotion{})
	s := New(h, b, Config{
		PublishPeriod: 50 * time.Millisecond,
		FramePeriod:   10 * time.Millisecond,
	})
	ts := httptest.NewServer(s.routes(context.Background()))
	t.Cleanup(ts.Close)
	return s, ts
}

func wsURL(ts *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + path
}

func TestTelemetryClientGetsImmediateSnapshot(t *testing.T) {
	_, ts := newTestServer(t, hub.New())

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts, "/telemetry"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var snap telemetry.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		t.Fatalf("snapshot is not JSON: %v", err)
	}
	if snap.Type != "telemetry" || !snap.SpeedPlus || snap.V != 0.35 {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
}

func TestBroadcastReachesAllClients(t *testing.T) {
	s, ts := newTestServer(t, hub.New())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Broadcast(ctx)

	var conns []*websocket.Conn
	for i := 0; i < 3; i++ {
		conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts, "/telemetry"), nil)
		if err != nil {
			t.Fatalf("dial %d: %v", i, err)
		}
		defer conn.Close()
		conns = append(conns, conn)
	}

	// Each client should see its connect snapshot plus at least one
	// broadcast tick.
	for i, conn := range conns {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		for n := 0; n < 2; n++ {
			if _, _, err := conn.ReadMessage(); err != nil {
				t.Fatalf("client %d message %d: %v", i, n, err)
			}
		}
	}
}

func TestUnknownRouteIsRejected(t *testing.T) {
	_, ts := newTestServer(t, hub.New())

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts, "/nonsense"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err = conn.ReadMessage()
	if err == nil {
		t.Fatal("expected the connection to be closed")
	}
	var closeErr *websocket.CloseError
	if !errors.As(err, &closeErr) || closeErr.Code != websocket.ClosePolicyViolation {
		t.Errorf("expected policy-violation close, got %v", err)
	}
}

func TestStreamSendsLatestOnConnect(t *testing.T) {
	h := hub.New()
	h.Publish(hub.Frame("jpeg-bytes"))
	_, ts := newTestServer(t, h)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts, "/stream"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(time.Second))
	mt, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if mt != websocket.BinaryMessage {
		t.Errorf("frame message type = %d, want binary", mt)
	}
	if string(data) != "jpeg-bytes" {
		t.Errorf("frame = %q", data)
	}
}

func TestStreamDeliversNewFrames(t *testing.T) {
	h := hub.New()
	_, ts := newTestServer(t, h)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts, "/stream"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	go func() {
		for i := 0; i < 10; i++ {
			h.Publish(hub.Frame("frame"))
			time.Sleep(20 * time.Millisecond)
		}
	}()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for n := 0; n < 3; n++ {
		if _, _, err := conn.ReadMessage(); err != nil {
			t.Fatalf("frame %d: %v", n, err)
		}
	}
}

func TestRateCounterRollingWindow(t *testing.T) {
	rc := newRateCounter(time.Second)
	base := time.Unix(3000, 0)
	for i := 0; i < 30; i++ {
		rc.mark(base.Add(time.Duration(i) * 33 * time.Millisecond))
	}
	now := base.Add(990 * time.Millisecond)
	if got := rc.rate(now); got != 30 {
		t.Errorf("rate inside window = %v, want 30", got)
	}
	if got := rc.rate(base.Add(5 * time.Second)); got != 0 {
		t.Errorf("rate after expiry = %v, want 0", got)
	}
}
