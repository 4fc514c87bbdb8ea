package api

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/DonutsDelivery/auto-brightness/internal/infrastructure/config"
	"github.com/DonutsDelivery/auto-brightness/internal/infrastructure/logging"
)

// Hub fans scheduler and API events out to WebSocket clients. A client only
// receives the channels it subscribed to. Every event carries a hub-wide
// sequence number, so a client whose buffer overflowed can see the gap and
// re-read state over REST.
type Hub struct {
	cfg    config.WebSocketConfig
	logger *logging.Logger
	seq    atomic.Uint64

	mu      sync.RWMutex
	clients map[*WSClient]struct{}
}

// NewHub creates a hub. It is the scheduler's WebSocket sink.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{
		cfg:     cfg,
		logger:  logger,
		clients: make(map[*WSClient]struct{}),
	}
}

// Run blocks until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// Register adds a client.
func (h *Hub) Register(client *WSClient) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "clients", n)
}

// Unregister removes a client and closes its send queue. Calling it twice
// is harmless.
func (h *Hub) Unregister(client *WSClient) {
	h.mu.Lock()
	delete(h.clients, client)
	n := len(h.clients)
	h.mu.Unlock()

	client.closeQueue()
	h.logger.Debug("websocket client disconnected", "clients", n)
}

// Broadcast sends payload on channel to every subscribed client. Events for
// channels clients cannot subscribe to are dropped.
func (h *Hub) Broadcast(channel string, payload any) {
	if !knownChannel(channel) {
		h.logger.Warn("broadcast on unknown websocket channel", "channel", channel)
		return
	}

	data, err := json.Marshal(WSMessage{
		Type:    WSTypeEvent,
		Channel: channel,
		Seq:     h.seq.Add(1),
		At:      time.Now().UTC(),
		Data:    payload,
	})
	if err != nil {
		h.logger.Error("failed to marshal websocket event", "channel", channel, "error", err)
		return
	}

	h.mu.RLock()
	targets := make([]*WSClient, 0, len(h.clients))
	for client := range h.clients {
		targets = append(targets, client)
	}
	h.mu.RUnlock()

	sent, lagging := 0, 0
	for _, client := range targets {
		if !client.subscribed(channel) {
			continue
		}
		if client.enqueue(data) {
			sent++
		} else {
			lagging++
		}
	}
	if lagging > 0 {
		h.logger.Warn("websocket clients lagging, event dropped", "channel", channel, "clients", lagging)
	}
	if sent > 0 {
		h.logger.Debug("websocket event sent", "channel", channel, "recipients", sent)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*WSClient]struct{})
	h.mu.Unlock()

	for client := range clients {
		client.closeQueue()
		if client.conn != nil {
			client.conn.Close()
		}
	}
}
