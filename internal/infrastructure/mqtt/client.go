package mqtt

import (
	"context"
	"fmt"
	"sync"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/DonutsDelivery/auto-brightness/internal/infrastructure/config"
)

// Logger receives handler failures and connection loss.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Client is the daemon's broker connection. It keeps a table of
// subscriptions so they survive a clean-session reconnect, and keeps the
// retained system status topic current. Safe for concurrent use.
type Client struct {
	client pahomqtt.Client
	cfg    config.MQTTConfig

	mu           sync.RWMutex
	connected    bool
	onConnect    func()
	onDisconnect func(err error)
	logger       Logger

	subs subscriptions
}

// Connect dials the broker in cfg and waits for the first connection.
func Connect(cfg config.MQTTConfig) (*Client, error) {
	c := newClient(cfg)

	opts := buildClientOptions(cfg)
	opts.SetOnConnectHandler(func(pahomqtt.Client) { c.handleConnect() })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.handleDisconnect(err) })
	c.client = pahomqtt.NewClient(opts)

	if err := await(c.client.Connect(), defaultConnectTimeout); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// paho runs the connect handler on its own goroutine, possibly after
	// Connect returns.
	c.setConnected(true)
	return c, nil
}

func newClient(cfg config.MQTTConfig) *Client {
	return &Client{cfg: cfg, subs: subscriptions{byTopic: make(map[string]subscription)}}
}

func (c *Client) handleConnect() {
	c.setConnected(true)

	for _, sub := range c.subs.all() {
		c.client.Subscribe(sub.topic, sub.qos, c.wrapHandler(sub.handler))
	}
	c.client.Publish(Topics{}.SystemStatus(), c.qos(), true, statusPayload("online", c.cfg.Broker.ClientID, ""))

	c.mu.RLock()
	cb := c.onConnect
	c.mu.RUnlock()
	if cb != nil {
		cb()
	}
}

func (c *Client) handleDisconnect(err error) {
	c.mu.Lock()
	c.connected = false
	cb, log := c.onDisconnect, c.logger
	c.mu.Unlock()

	if log != nil {
		log.Warn("mqtt connection lost", "error", err)
	}
	if cb != nil {
		cb(err)
	}
}

// Close marks the daemon offline on the status topic and disconnects.
// A nil Client is a no-op.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	if c.IsConnected() {
		offline := statusPayload("offline", c.cfg.Broker.ClientID, "graceful_shutdown")
		c.client.Publish(Topics{}.SystemStatus(), c.qos(), true, offline).WaitTimeout(defaultPublishTimeout)
	}
	c.client.Disconnect(defaultDisconnectQuiesce)
	c.setConnected(false)
	return nil
}

// HealthCheck returns ErrNotConnected while the broker is unreachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt health check: %w", err)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected reports whether both the wrapper and paho consider the
// session up.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	up := c.connected
	c.mu.RUnlock()
	return up && c.client != nil && c.client.IsConnected()
}

// SetOnConnect registers a callback for every (re)connect.
func (c *Client) SetOnConnect(fn func()) {
	c.mu.Lock()
	c.onConnect = fn
	c.mu.Unlock()
}

// SetOnDisconnect registers a callback for connection loss.
func (c *Client) SetOnDisconnect(fn func(err error)) {
	c.mu.Lock()
	c.onDisconnect = fn
	c.mu.Unlock()
}

func (c *Client) SetLogger(logger Logger) {
	c.mu.Lock()
	c.logger = logger
	c.mu.Unlock()
}

func (c *Client) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}

func (c *Client) log() Logger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.logger
}

// qos is the configured default QoS, falling back to 1 when out of range.
func (c *Client) qos() byte {
	if c.cfg.QoS < 0 || c.cfg.QoS > maxQoS {
		return 1
	}
	return byte(c.cfg.QoS)
}
