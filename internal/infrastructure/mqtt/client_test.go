package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/DonutsDelivery/auto-brightness/internal/infrastructure/config"
)

func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Enabled: true,
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "autobrightness-test",
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

// =============================================================================
// Fakes
// =============================================================================

type fakeToken struct {
	err     error
	timeout bool
}

func (t *fakeToken) Wait() bool                     { return !t.timeout }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return !t.timeout }
func (t *fakeToken) Error() error                   { return t.err }

func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakePaho struct {
	pahomqtt.Client

	mu           sync.Mutex
	connected    bool
	published    []published
	subscribed   map[string]pahomqtt.MessageHandler
	publishErr   error
	subscribeErr error
	disconnected bool
}

func newFakePaho() *fakePaho {
	return &fakePaho{connected: true, subscribed: make(map[string]pahomqtt.MessageHandler)}
}

func (f *fakePaho) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakePaho) Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	var b []byte
	switch p := payload.(type) {
	case []byte:
		b = p
	case string:
		b = []byte(p)
	}
	f.published = append(f.published, published{topic, qos, retained, b})
	return &fakeToken{err: f.publishErr}
}

func (f *fakePaho) Subscribe(topic string, _ byte, callback pahomqtt.MessageHandler) pahomqtt.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subscribeErr != nil {
		return &fakeToken{err: f.subscribeErr}
	}
	f.subscribed[topic] = callback
	return &fakeToken{}
}

func (f *fakePaho) Disconnect(uint) {
	f.mu.Lock()
	f.connected = false
	f.disconnected = true
	f.mu.Unlock()
}

func (f *fakePaho) deliver(topic string, payload []byte) {
	f.mu.Lock()
	var handler pahomqtt.MessageHandler
	for filter, h := range f.subscribed {
		if filter == topic || filter == (Topics{}).AllMonitorCommands() {
			handler = h
		}
	}
	f.mu.Unlock()
	if handler != nil {
		handler(f, &fakeMessage{topic: topic, payload: payload})
	}
}

type fakeMessage struct {
	pahomqtt.Message
	topic   string
	payload []byte
}

func (m *fakeMessage) Topic() string   { return m.topic }
func (m *fakeMessage) Payload() []byte { return m.payload }

type recordingLogger struct {
	mu     sync.Mutex
	errors []string
	warns  []string
}

func (l *recordingLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	l.errors = append(l.errors, msg)
	l.mu.Unlock()
}

func (l *recordingLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	l.warns = append(l.warns, msg)
	l.mu.Unlock()
}

func connectedClient(t *testing.T) (*Client, *fakePaho) {
	t.Helper()
	fake := newFakePaho()
	c := newClient(testConfig())
	c.client = fake
	c.connected = true
	return c, fake
}

// =============================================================================
// Topic Tests
// =============================================================================

func TestTopics(t *testing.T) {
	var topics Topics
	tests := []struct {
		got, want string
	}{
		{topics.MonitorState("desktop_0"), "autobrightness/state/monitor/desktop_0"},
		{topics.CurveState(), "autobrightness/state/curve"},
		{topics.MonitorCommand("7"), "autobrightness/command/monitor/7"},
		{topics.AllMonitorCommands(), "autobrightness/command/monitor/+"},
		{topics.AutoCommand(), "autobrightness/command/auto"},
		{topics.SystemStatus(), "autobrightness/system/status"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("topic = %q, want %q", tt.got, tt.want)
		}
	}
}

func TestMonitorIDFromCommand(t *testing.T) {
	tests := []struct {
		topic  string
		want   string
		wantOK bool
	}{
		{"autobrightness/command/monitor/raw_3", "raw_3", true},
		{"autobrightness/command/monitor/", "", false},
		{"autobrightness/command/monitor/a/b", "", false},
		{"autobrightness/command/auto", "", false},
		{"other/command/monitor/1", "", false},
	}
	for _, tt := range tests {
		got, ok := Topics{}.MonitorIDFromCommand(tt.topic)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("MonitorIDFromCommand(%q) = %q, %v, want %q, %v", tt.topic, got, ok, tt.want, tt.wantOK)
		}
	}
}

// =============================================================================
// Option Tests
// =============================================================================

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.Username = "user"
	cfg.Auth.Password = "secret"

	opts := buildClientOptions(cfg)

	if len(opts.Servers) != 1 || opts.Servers[0].String() != "tcp://127.0.0.1:1883" {
		t.Errorf("Servers = %v, want tcp://127.0.0.1:1883", opts.Servers)
	}
	if opts.ClientID != "autobrightness-test" {
		t.Errorf("ClientID = %q", opts.ClientID)
	}
	if opts.Username != "user" || opts.Password != "secret" {
		t.Errorf("credentials not applied")
	}
	if !opts.AutoReconnect {
		t.Error("AutoReconnect = false, want true")
	}
	if !opts.WillEnabled || opts.WillTopic != "autobrightness/system/status" || !opts.WillRetained {
		t.Errorf("will = %v %q retained=%v", opts.WillEnabled, opts.WillTopic, opts.WillRetained)
	}

	var will statusMessage
	if err := json.Unmarshal(opts.WillPayload, &will); err != nil {
		t.Fatalf("will payload: %v", err)
	}
	if will.Status != "offline" || will.Reason != "unexpected_disconnect" {
		t.Errorf("will = %+v", will)
	}
}

func TestBuildClientOptionsTLS(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.TLS = true
	cfg.Broker.Port = 8883

	opts := buildClientOptions(cfg)
	if opts.Servers[0].Scheme != "ssl" {
		t.Errorf("scheme = %q, want ssl", opts.Servers[0].Scheme)
	}
	if opts.TLSConfig == nil {
		t.Error("TLSConfig = nil")
	}
}

func TestStatusPayload(t *testing.T) {
	var msg statusMessage
	if err := json.Unmarshal([]byte(statusPayload("online", "id-1", "")), &msg); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if msg.Status != "online" || msg.ClientID != "id-1" || msg.Reason != "" {
		t.Errorf("msg = %+v", msg)
	}
	if _, err := time.Parse(time.RFC3339, msg.Timestamp); err != nil {
		t.Errorf("timestamp %q: %v", msg.Timestamp, err)
	}
}

// =============================================================================
// Publish Tests
// =============================================================================

func TestPublish(t *testing.T) {
	c, fake := connectedClient(t)

	if err := c.Publish("autobrightness/state/curve", []byte(`{}`), 1, true); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if len(fake.published) != 1 {
		t.Fatalf("published %d messages, want 1", len(fake.published))
	}
	p := fake.published[0]
	if p.topic != "autobrightness/state/curve" || !p.retained || p.qos != 1 {
		t.Errorf("published = %+v", p)
	}
}

func TestPublishValidation(t *testing.T) {
	c, _ := connectedClient(t)

	tests := []struct {
		name    string
		topic   string
		payload []byte
		qos     byte
		want    error
	}{
		{"empty topic", "", nil, 1, ErrInvalidTopic},
		{"bad qos", "a", nil, 3, ErrInvalidQoS},
		{"oversize", "a", make([]byte, maxPayloadSize+1), 1, ErrPublishFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := c.Publish(tt.topic, tt.payload, tt.qos, false); !errors.Is(err, tt.want) {
				t.Errorf("Publish() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestPublishNotConnected(t *testing.T) {
	c, fake := connectedClient(t)
	fake.connected = false

	if err := c.Publish("a", nil, 0, false); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Publish() error = %v, want ErrNotConnected", err)
	}
}

func TestPublishBrokerError(t *testing.T) {
	c, fake := connectedClient(t)
	fake.publishErr = errors.New("broker said no")

	if err := c.Publish("a", nil, 0, false); !errors.Is(err, ErrPublishFailed) {
		t.Errorf("Publish() error = %v, want ErrPublishFailed", err)
	}
}

// =============================================================================
// Subscribe Tests
// =============================================================================

func TestSubscribeDelivers(t *testing.T) {
	c, fake := connectedClient(t)

	var got string
	err := c.Subscribe(Topics{}.AutoCommand(), 1, func(topic string, payload []byte) error {
		got = topic + " " + string(payload)
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if c.SubscriptionCount() != 1 {
		t.Errorf("SubscriptionCount() = %d, want 1", c.SubscriptionCount())
	}

	fake.deliver(Topics{}.AutoCommand(), []byte(`{"enabled":true}`))
	if got != `autobrightness/command/auto {"enabled":true}` {
		t.Errorf("handler got %q", got)
	}
}

func TestSubscribeValidation(t *testing.T) {
	c, _ := connectedClient(t)
	noop := func(string, []byte) error { return nil }

	if err := c.Subscribe("", 1, noop); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("empty topic error = %v", err)
	}
	if err := c.Subscribe("a", 5, noop); !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("bad qos error = %v", err)
	}
	if err := c.Subscribe("a", 1, nil); !errors.Is(err, ErrSubscribeFailed) {
		t.Errorf("nil handler error = %v", err)
	}
}

func TestSubscribeFailureNotTracked(t *testing.T) {
	c, fake := connectedClient(t)
	fake.subscribeErr = errors.New("denied")

	err := c.Subscribe("a", 1, func(string, []byte) error { return nil })
	if !errors.Is(err, ErrSubscribeFailed) {
		t.Fatalf("Subscribe() error = %v, want ErrSubscribeFailed", err)
	}
	if c.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() = %d, want 0", c.SubscriptionCount())
	}
}

func TestHandlerPanicRecovered(t *testing.T) {
	c, fake := connectedClient(t)
	logger := &recordingLogger{}
	c.SetLogger(logger)

	if err := c.Subscribe("a", 1, func(string, []byte) error { panic("boom") }); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	fake.deliver("a", nil)

	if len(logger.errors) != 1 {
		t.Errorf("logged %d errors, want 1", len(logger.errors))
	}
}

func TestHandlerErrorLogged(t *testing.T) {
	c, fake := connectedClient(t)
	logger := &recordingLogger{}
	c.SetLogger(logger)

	if err := c.Subscribe("a", 1, func(string, []byte) error { return errors.New("bad payload") }); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	fake.deliver("a", nil)

	if len(logger.warns) != 1 {
		t.Errorf("logged %d warnings, want 1", len(logger.warns))
	}
}

// =============================================================================
// Connection Lifecycle Tests
// =============================================================================

func TestHandleConnectRestoresSubscriptions(t *testing.T) {
	c, fake := connectedClient(t)
	noop := func(string, []byte) error { return nil }
	if err := c.Subscribe("a", 1, noop); err != nil {
		t.Fatal(err)
	}
	if err := c.Subscribe("b", 1, noop); err != nil {
		t.Fatal(err)
	}

	// Simulate a reconnect with a clean session.
	fake.subscribed = make(map[string]pahomqtt.MessageHandler)
	called := false
	c.SetOnConnect(func() { called = true })
	c.handleConnect()

	if len(fake.subscribed) != 2 {
		t.Errorf("restored %d subscriptions, want 2", len(fake.subscribed))
	}
	if !called {
		t.Error("onConnect callback not called")
	}

	last := fake.published[len(fake.published)-1]
	if last.topic != (Topics{}).SystemStatus() || !last.retained {
		t.Errorf("status publish = %+v", last)
	}
	var msg statusMessage
	if err := json.Unmarshal(last.payload, &msg); err != nil || msg.Status != "online" {
		t.Errorf("status = %+v, err = %v", msg, err)
	}
}

func TestHandleDisconnect(t *testing.T) {
	c, _ := connectedClient(t)
	var got error
	c.SetOnDisconnect(func(err error) { got = err })

	lost := errors.New("connection reset")
	c.handleDisconnect(lost)

	if c.IsConnected() {
		t.Error("IsConnected() = true after disconnect")
	}
	if !errors.Is(got, lost) {
		t.Errorf("onDisconnect got %v", got)
	}
	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
}

func TestClosePublishesOffline(t *testing.T) {
	c, fake := connectedClient(t)

	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !fake.disconnected {
		t.Error("Disconnect not called")
	}
	if len(fake.published) != 1 {
		t.Fatalf("published %d messages, want 1", len(fake.published))
	}
	var msg statusMessage
	if err := json.Unmarshal(fake.published[0].payload, &msg); err != nil {
		t.Fatal(err)
	}
	if msg.Status != "offline" || msg.Reason != "graceful_shutdown" {
		t.Errorf("status = %+v", msg)
	}
}

func TestCloseNil(t *testing.T) {
	var c *Client
	if err := c.Close(); err != nil {
		t.Errorf("Close() on nil = %v", err)
	}
}

func TestHealthCheckCancelled(t *testing.T) {
	c, _ := connectedClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.HealthCheck(ctx); err == nil {
		t.Error("HealthCheck() with cancelled context = nil")
	}
}
