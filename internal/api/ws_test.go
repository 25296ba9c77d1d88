package api

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cdav1990/overwatch-mission-core/internal/logging"
	"github.com/cdav1990/overwatch-mission-core/internal/telemetry"
)

func dialHub(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/telemetry/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHubBroadcastReachesClient(t *testing.T) {
	srv, ts := newTestServer(t)
	conn := dialHub(t, ts)

	// Registration races the dial return; poll briefly.
	deadline := time.Now().Add(2 * time.Second)
	for srv.hub.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if srv.hub.ClientCount() != 1 {
		t.Fatalf("client count = %d", srv.hub.ClientCount())
	}

	sample := telemetry.Sample{
		MissionID: "m-1",
		Phase:     "running",
		X:         12.5,
		Done:      false,
	}
	srv.hub.Broadcast(sample)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got telemetry.Sample
	if err := json.Unmarshal(payload, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.MissionID != "m-1" || got.X != 12.5 || got.Phase != "running" {
		t.Fatalf("sample: %+v", got)
	}
}

func TestHubDropsSlowClient(t *testing.T) {
	metrics := telemetry.NewMetrics()
	hub := NewHub(logging.Noop(), metrics)

	// A client with a full buffer and no write pump stands in for a
	// stalled consumer.
	c := &wsClient{send: make(chan []byte, 1)}
	c.send <- []byte("backlog")
	hub.clients[c] = struct{}{}

	done := make(chan struct{})
	go func() {
		defer close(done)
		hub.Broadcast(telemetry.Sample{MissionID: "m"})
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("broadcast blocked on slow client")
	}

	if metrics.Snapshot().NumWSDropped != 1 {
		t.Fatalf("ws_dropped = %d, want 1", metrics.Snapshot().NumWSDropped)
	}
	if hub.ClientCount() != 0 {
		t.Fatalf("slow client not removed, count = %d", hub.ClientCount())
	}
}
