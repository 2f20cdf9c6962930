package push

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

const (
	sendQueueSize = 32
	writeTimeout  = 5 * time.Second
)

// Hub broadcasts messages to every connected WebSocket client. A client that
// cannot keep up loses messages rather than slowing the broadcaster.
type Hub struct {
	log            zerolog.Logger
	originPatterns []string
	listeners      prometheus.Gauge

	mu      sync.Mutex
	clients map[*subscriber]struct{}
}

type subscriber struct {
	send chan []byte
}

type HubOption func(*Hub)

// WithOriginPatterns sets the hosts allowed to connect cross origin.
func WithOriginPatterns(patterns ...string) HubOption {
	return func(h *Hub) {
		h.originPatterns = patterns
	}
}

// WithListenerGauge reports the number of connected clients.
func WithListenerGauge(g prometheus.Gauge) HubOption {
	return func(h *Hub) {
		h.listeners = g
	}
}

func NewHub(log zerolog.Logger, opts ...HubOption) *Hub {
	h := &Hub{log: log, clients: map[*subscriber]struct{}{}}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast sends v as a JSON text frame to every client and returns how many
// clients it was queued for.
func (h *Hub) Broadcast(v any) (int, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return 0, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	sent := 0
	for s := range h.clients {
		select {
		case s.send <- b:
			sent++
		default:
			h.log.Warn().Msg("push.broadcast.dropped")
		}
	}
	return sent, nil
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("push.accept")
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "bye") }()

	s := &subscriber{send: make(chan []byte, sendQueueSize)}
	h.add(s)
	defer h.remove(s)

	// Clients never send anything; CloseRead handles control frames and
	// cancels ctx when the peer goes away.
	ctx := conn.CloseRead(r.Context())
	for {
		select {
		case <-ctx.Done():
			return
		case b := <-s.send:
			if err := write(ctx, conn, b); err != nil {
				h.log.Debug().Err(err).Msg("push.write")
				return
			}
		}
	}
}

func write(parent context.Context, conn *websocket.Conn, b []byte) error {
	ctx, cancel := context.WithTimeout(parent, writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, b)
}

func (h *Hub) add(s *subscriber) {
	h.mu.Lock()
	h.clients[s] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.setGauge(n)
}

func (h *Hub) remove(s *subscriber) {
	h.mu.Lock()
	delete(h.clients, s)
	n := len(h.clients)
	h.mu.Unlock()
	h.setGauge(n)
}

func (h *Hub) setGauge(n int) {
	if h.listeners != nil {
		h.listeners.Set(float64(n))
	}
}
