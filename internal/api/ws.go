package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cdav1990/overwatch-mission-core/internal/logging"
	"github.com/cdav1990/overwatch-mission-core/internal/telemetry"
)

const (
	wsWriteWait      = 5 * time.Second
	wsClientBuffer   = 16
	wsPingInterval   = 30 * time.Second
	wsReadDeadline   = 70 * time.Second
	wsMaxMessageSize = 512
)

// Hub fans telemetry samples out to connected WebSocket clients. Slow
// clients are dropped rather than allowed to stall the tick loop.
type Hub struct {
	mu      sync.Mutex
	clients map[*wsClient]struct{}

	upgrader websocket.Upgrader
	log      logging.Logger
	metrics  *telemetry.Metrics
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub constructs an empty hub.
func NewHub(log logging.Logger, metrics *telemetry.Metrics) *Hub {
	if log == nil {
		log = logging.Noop()
	}
	return &Hub{
		clients: make(map[*wsClient]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The API is same-origin or proxied in deployment; origin
			// enforcement belongs to the proxy.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		log:     log,
		metrics: metrics,
	}
}

// ServeHTTP upgrades the request and streams telemetry until the client
// disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn(r.Context(), "websocket upgrade failed", logging.Err(err))
		return
	}

	c := &wsClient{conn: conn, send: make(chan []byte, wsClientBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.log.Info(r.Context(), "telemetry client connected", logging.Int("clients", n))

	go h.writePump(c)
	h.readPump(c)
}

// Broadcast delivers one sample to every connected client. A client
// whose buffer is full is disconnected.
func (h *Hub) Broadcast(s telemetry.Sample) {
	payload, err := json.Marshal(s)
	if err != nil {
		h.log.Error(context.Background(), "marshal telemetry sample", logging.Err(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- payload:
			h.metrics.IncWSBroadcast()
		default:
			delete(h.clients, c)
			close(c.send)
			h.metrics.IncWSDropped()
			h.log.Warn(context.Background(), "dropped slow telemetry client")
		}
	}
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) writePump(c *wsClient) {
	ticker := time.NewTicker(wsPingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards inbound messages; the stream is one-way. It exists
// to process control frames and detect disconnects.
func (h *Hub) readPump(c *wsClient) {
	defer h.remove(c)

	c.conn.SetReadLimit(wsMaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(wsReadDeadline))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(wsReadDeadline))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) remove(c *wsClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	c.conn.Close()
}
