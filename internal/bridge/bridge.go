package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/DonutsDelivery/auto-brightness/internal/infrastructure/mqtt"
	"github.com/DonutsDelivery/auto-brightness/internal/monitor"
	"github.com/DonutsDelivery/auto-brightness/internal/scheduler"
	"github.com/DonutsDelivery/auto-brightness/internal/vcp"
)

// commandTimeout bounds one inbound command, including its DDC/CI exchange.
const commandTimeout = 10 * time.Second

// MQTTClient is the subset of the MQTT client the bridge uses.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// Monitors routes commands to displays (the monitor registry).
type Monitors interface {
	Get(id string) (monitor.Record, error)
	SetBrightness(ctx context.Context, id string, percent int) error
	SetVCP(ctx context.Context, id string, feature vcp.Feature, value int) error
}

// AutoSwitch toggles automatic brightness (the scheduler).
type AutoSwitch interface {
	SetEnabled(enabled bool)
}

// Logger defines the logging interface used by the bridge.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}

// Options configures a Bridge.
type Options struct {
	MQTT     MQTTClient
	Monitors Monitors
	Auto     AutoSwitch
	QoS      byte
	Logger   Logger
}

// Bridge publishes scheduler state to MQTT and executes MQTT commands.
// All methods are safe for concurrent use.
type Bridge struct {
	mqtt     MQTTClient
	monitors Monitors
	auto     AutoSwitch
	qos      byte
	logger   Logger
	topics   mqtt.Topics
	now      func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	stopOnce sync.Once
}

// New creates a bridge. MQTT and Monitors are required; Auto may be nil, in
// which case auto commands are rejected.
func New(opts Options) (*Bridge, error) {
	if opts.MQTT == nil {
		return nil, fmt.Errorf("MQTT client is required")
	}
	if opts.Monitors == nil {
		return nil, fmt.Errorf("monitor registry is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Bridge{
		mqtt:     opts.MQTT,
		monitors: opts.Monitors,
		auto:     opts.Auto,
		qos:      opts.QoS,
		logger:   logger,
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Start subscribes to the command topics.
func (b *Bridge) Start() error {
	if err := b.mqtt.Subscribe(b.topics.AllMonitorCommands(), b.qos, b.handleMonitorCommand); err != nil {
		return fmt.Errorf("subscribe to monitor commands: %w", err)
	}
	if err := b.mqtt.Subscribe(b.topics.AutoCommand(), b.qos, b.handleAutoCommand); err != nil {
		return fmt.Errorf("subscribe to auto command: %w", err)
	}
	b.logger.Info("mqtt bridge started")
	return nil
}

// Stop cancels in-flight commands.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		b.cancel()
		b.logger.Info("mqtt bridge stopped")
	})
}

// PublishTick publishes the curve state and one state message per monitor.
// It returns the first publish error after attempting every message.
func (b *Bridge) PublishTick(r scheduler.Result) error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	keep(b.publishJSON(b.topics.CurveState(), CurveState{
		Elevation: r.Elevation,
		Target:    r.Target,
		Enabled:   r.Enabled,
		Timestamp: r.At,
	}))

	for _, m := range r.Monitors {
		state := MonitorState{
			ID:        m.ID,
			Label:     m.Label,
			Backend:   m.Backend,
			Timestamp: r.At,
		}
		if rec, err := b.monitors.Get(m.ID); err == nil {
			state.I2CBus = rec.I2CBus
		}
		if m.Applied || m.Skipped == scheduler.SkipUnchanged {
			v := m.Target
			state.Brightness = &v
		}
		keep(b.publishJSON(b.topics.MonitorState(m.ID), state))
	}
	return firstErr
}

func (b *Bridge) publishJSON(topic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", topic, err)
	}
	return b.mqtt.Publish(topic, payload, b.qos, true)
}

func (b *Bridge) handleMonitorCommand(topic string, payload []byte) error {
	id, ok := b.topics.MonitorIDFromCommand(topic)
	if !ok {
		return fmt.Errorf("%w: %s", ErrInvalidTopic, topic)
	}

	var cmd MonitorCommand
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCommand, err)
	}

	ctx, cancel := context.WithTimeout(b.ctx, commandTimeout)
	defer cancel()

	switch {
	case cmd.Brightness != nil && cmd.VCP == "":
		if err := b.monitors.SetBrightness(ctx, id, *cmd.Brightness); err != nil {
			return fmt.Errorf("set brightness on %s: %w", id, err)
		}
		b.logger.Info("brightness set from mqtt", "monitor", id, "brightness", *cmd.Brightness)
		b.publishMonitor(id, *cmd.Brightness)
		return nil

	case cmd.VCP != "" && cmd.Value != nil && cmd.Brightness == nil:
		code, err := vcp.ParseCode(cmd.VCP)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidCommand, err)
		}
		feature := vcp.FeatureOf(code)
		if err := b.monitors.SetVCP(ctx, id, feature, *cmd.Value); err != nil {
			return fmt.Errorf("set %s on %s: %w", feature, id, err)
		}
		b.logger.Info("vcp set from mqtt", "monitor", id, "feature", feature.String(), "value", *cmd.Value)
		if feature.IsBrightness() {
			b.publishMonitor(id, *cmd.Value)
		}
		return nil

	default:
		return fmt.Errorf("%w: need brightness or vcp with value", ErrInvalidCommand)
	}
}

func (b *Bridge) publishMonitor(id string, brightness int) {
	rec, err := b.monitors.Get(id)
	if err != nil {
		return
	}
	state := MonitorState{
		ID:         rec.ID,
		Label:      rec.Label,
		Backend:    rec.Backend.String(),
		I2CBus:     rec.I2CBus,
		Brightness: &brightness,
		Timestamp:  b.now().UTC(),
	}
	if err := b.publishJSON(b.topics.MonitorState(id), state); err != nil {
		b.logger.Warn("publishing monitor state failed", "monitor", id, "error", err)
	}
}

func (b *Bridge) handleAutoCommand(_ string, payload []byte) error {
	var cmd AutoCommand
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCommand, err)
	}
	if cmd.Enabled == nil {
		return fmt.Errorf("%w: missing enabled", ErrInvalidCommand)
	}
	if b.auto == nil {
		return errors.New("auto brightness is not available")
	}
	b.auto.SetEnabled(*cmd.Enabled)
	b.logger.Info("auto brightness toggled from mqtt", "enabled", *cmd.Enabled)
	return nil
}
