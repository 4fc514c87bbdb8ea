package api

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/DonutsDelivery/auto-brightness/internal/infrastructure/config"
	"github.com/DonutsDelivery/auto-brightness/internal/scheduler"
)

// Channels clients may subscribe to.
const (
	ChannelMonitorBrightness = scheduler.ChannelMonitorBrightness
	ChannelScheduleTick      = scheduler.ChannelTick
	ChannelMonitorDetected   = scheduler.ChannelMonitorDetected
)

func knownChannel(ch string) bool {
	switch ch {
	case ChannelMonitorBrightness, ChannelScheduleTick, ChannelMonitorDetected:
		return true
	}
	return false
}

// Client requests.
const (
	WSOpSubscribe   = "subscribe"
	WSOpUnsubscribe = "unsubscribe"
	WSOpPing        = "ping"
)

// Server messages.
const (
	WSTypeEvent = "event" // broadcast on a subscribed channel
	WSTypeState = "state" // current state of a channel, sent once after subscribing
	WSTypeAck   = "ack"
	WSTypePong  = "pong"
	WSTypeError = "error"
)

const wsSendBufferSize = 64

// WSRequest is a message from a client.
type WSRequest struct {
	Op       string   `json:"op"`
	ID       string   `json:"id,omitempty"`
	Channels []string `json:"channels,omitempty"`
}

// WSMessage is a message to a client. Replies echo the request ID.
type WSMessage struct {
	Type    string    `json:"type"`
	ID      string    `json:"id,omitempty"`
	Channel string    `json:"channel,omitempty"`
	Seq     uint64    `json:"seq,omitempty"`
	At      time.Time `json:"at"`
	Data    any       `json:"data,omitempty"`
}

// WSClient is one connected WebSocket client.
type WSClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	// state returns the current value of a channel for new subscribers.
	state func(channel string) (any, bool)

	mu       sync.Mutex
	closed   bool
	channels map[string]struct{}
}

func newWSClient(hub *Hub, conn *websocket.Conn, state func(string) (any, bool)) *WSClient {
	return &WSClient{
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, wsSendBufferSize),
		state:    state,
		channels: make(map[string]struct{}),
	}
}

// The API binds to loopback and CORS guards browsers, so any origin that
// reached the handler is accepted.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// handleWebSocket upgrades the connection. Clients receive nothing until
// they subscribe.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := newWSClient(s.hub, conn, s.channelState)
	s.hub.Register(client)

	go client.writePump(s.wsCfg)
	go client.readPump(s.wsCfg)
}

// channelState is what a client sees right after subscribing: the current
// snapshot for monitor.detected and the last tick for schedule.tick.
func (s *Server) channelState(channel string) (any, bool) {
	switch channel {
	case ChannelMonitorDetected:
		return snapshotResponse(s.monitors.Snapshot()), true
	case ChannelScheduleTick:
		if s.schedule == nil {
			return nil, false
		}
		if last := s.schedule.Status().LastRun; last != nil {
			return last, true
		}
	}
	return nil, false
}

func (c *WSClient) readPump(cfg config.WebSocketConfig) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	if cfg.MaxMessageSize > 0 {
		c.conn.SetReadLimit(int64(cfg.MaxMessageSize))
	}
	ping, pong := wsTimings(cfg)
	extend := func() error { return c.conn.SetReadDeadline(time.Now().Add(ping + pong)) }
	extend() //nolint:errcheck // a failed deadline surfaces as a read error
	c.conn.SetPongHandler(func(string) error { return extend() })

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error", "error", err)
			}
			return
		}
		// Browsers do not always answer protocol pings; any request counts.
		extend() //nolint:errcheck // see above
		c.handle(data)
	}
}

func (c *WSClient) writePump(cfg config.WebSocketConfig) {
	ping, pong := wsTimings(cfg)
	ticker := time.NewTicker(ping)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	write := func(kind int, data []byte) error {
		c.conn.SetWriteDeadline(time.Now().Add(pong)) //nolint:errcheck // the write reports it
		return c.conn.WriteMessage(kind, data)
	}

	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				write(websocket.CloseMessage, nil) //nolint:errcheck // closing anyway
				return
			}
			if err := write(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			if err := write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// wsTimings returns the ping interval and pong wait (defaults 30s and 10s).
func wsTimings(cfg config.WebSocketConfig) (ping, pong time.Duration) {
	ping = time.Duration(cfg.PingInterval) * time.Second
	if ping <= 0 {
		ping = 30 * time.Second
	}
	pong = time.Duration(cfg.PongTimeout) * time.Second
	if pong <= 0 {
		pong = 10 * time.Second
	}
	return ping, pong
}

func (c *WSClient) handle(data []byte) {
	var req WSRequest
	if err := json.Unmarshal(data, &req); err != nil {
		c.fail("", "invalid JSON message")
		return
	}

	switch req.Op {
	case WSOpSubscribe:
		c.subscribe(req)
	case WSOpUnsubscribe:
		c.mu.Lock()
		for _, ch := range req.Channels {
			delete(c.channels, ch)
		}
		c.mu.Unlock()
		c.reply(WSMessage{Type: WSTypeAck, ID: req.ID, Data: map[string]any{"channels": c.subscriptions()}})
	case WSOpPing:
		c.reply(WSMessage{Type: WSTypePong, ID: req.ID})
	default:
		c.fail(req.ID, "unknown op: "+req.Op)
	}
}

// subscribe adds channels all-or-nothing, acknowledges with the full
// subscription list, then sends each new channel's current state.
func (c *WSClient) subscribe(req WSRequest) {
	if len(req.Channels) == 0 {
		c.fail(req.ID, "no channels given")
		return
	}
	for _, ch := range req.Channels {
		if !knownChannel(ch) {
			c.fail(req.ID, "unknown channel: "+ch)
			return
		}
	}

	c.mu.Lock()
	for _, ch := range req.Channels {
		c.channels[ch] = struct{}{}
	}
	c.mu.Unlock()

	c.hub.logger.Debug("websocket client subscribed", "channels", req.Channels)
	c.reply(WSMessage{Type: WSTypeAck, ID: req.ID, Data: map[string]any{"channels": c.subscriptions()}})

	if c.state == nil {
		return
	}
	for _, ch := range req.Channels {
		if data, ok := c.state(ch); ok {
			c.reply(WSMessage{Type: WSTypeState, ID: req.ID, Channel: ch, Data: data})
		}
	}
}

func (c *WSClient) subscriptions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.channels))
	for ch := range c.channels {
		out = append(out, ch)
	}
	sort.Strings(out)
	return out
}

func (c *WSClient) subscribed(channel string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.channels[channel]
	return ok
}

// enqueue queues data without blocking. It reports false when the buffer
// is full; a closed client swallows the data.
func (c *WSClient) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *WSClient) closeQueue() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *WSClient) reply(msg WSMessage) {
	msg.At = time.Now().UTC()
	data, err := json.Marshal(msg)
	if err != nil {
		c.hub.logger.Error("failed to marshal websocket reply", "type", msg.Type, "error", err)
		return
	}
	c.enqueue(data)
}

func (c *WSClient) fail(id, message string) {
	c.reply(WSMessage{Type: WSTypeError, ID: id, Data: map[string]string{"message": message}})
}
