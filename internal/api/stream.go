package api

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/SaumyaAdani05/coastwatchd/internal/store"
)

// Hub fans stored readings out to connected websocket clients. Slow
// clients are dropped rather than allowed to block the ingest path.
type Hub struct {
	logger *slog.Logger

	mu      sync.Mutex
	clients map[*streamClient]struct{}
	closed  bool
}

type streamClient struct {
	ch     chan store.Reading
	cancel context.CancelFunc
}

// NewHub creates an empty Hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger:  logger,
		clients: make(map[*streamClient]struct{}),
	}
}

// ClientCount returns the number of connected stream clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast queues a reading for every connected client. Clients whose
// send buffer is full are disconnected.
func (h *Hub) Broadcast(r store.Reading) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.ch <- r:
		default:
			h.logger.Warn("dropping slow stream client")
			c.cancel()
			delete(h.clients, c)
		}
	}
}

// CloseAll disconnects every client and rejects future subscriptions.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		c.cancel()
		delete(h.clients, c)
	}
}

func (h *Hub) subscribe(cancel context.CancelFunc) (*streamClient, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, false
	}
	c := &streamClient{ch: make(chan store.Reading, 16), cancel: cancel}
	h.clients[c] = struct{}{}
	return c, true
}

func (h *Hub) unsubscribe(c *streamClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
}

// Stream handles GET /api/v1/stream: upgrades to a websocket and pushes
// each classified reading as it is stored.
func (h *Handlers) Stream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.Logger.Warn("stream upgrade failed", "error", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "") //nolint:errcheck

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	client, ok := h.Hub.subscribe(cancel)
	if !ok {
		conn.Close(websocket.StatusGoingAway, "shutting down") //nolint:errcheck
		return
	}
	defer h.Hub.unsubscribe(client)

	// Drain client frames so pings are answered and closure is noticed.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case reading := <-client.ch:
			writeCtx, writeCancel := context.WithTimeout(ctx, 5*time.Second)
			err := wsjson.Write(writeCtx, conn, reading)
			writeCancel()
			if err != nil {
				return
			}
		}
	}
}
