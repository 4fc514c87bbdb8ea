package mqtt

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// Errors returned by Client. Match them with errors.Is.
var (
	ErrNotConnected     = errors.New("mqtt: not connected")
	ErrConnectionFailed = errors.New("mqtt: connection failed")
	ErrPublishFailed    = errors.New("mqtt: publish failed")
	ErrSubscribeFailed  = errors.New("mqtt: subscribe failed")
	ErrInvalidQoS       = errors.New("mqtt: QoS must be 0, 1 or 2")
	ErrInvalidTopic     = errors.New("mqtt: empty topic")
)

// maxPayloadSize caps outgoing payloads at 1 MB.
const maxPayloadSize = 1 << 20

// MessageHandler handles one received message. A returned error is logged
// and otherwise ignored.
type MessageHandler func(topic string, payload []byte) error

type subscription struct {
	topic   string
	qos     byte
	handler MessageHandler
}

// subscriptions is the set replayed after every reconnect.
type subscriptions struct {
	mu      sync.RWMutex
	byTopic map[string]subscription
}

func (s *subscriptions) put(sub subscription) {
	s.mu.Lock()
	s.byTopic[sub.topic] = sub
	s.mu.Unlock()
}

func (s *subscriptions) remove(topic string) {
	s.mu.Lock()
	delete(s.byTopic, topic)
	s.mu.Unlock()
}

// all returns the subscriptions ordered by topic.
func (s *subscriptions) all() []subscription {
	s.mu.RLock()
	out := make([]subscription, 0, len(s.byTopic))
	for _, sub := range s.byTopic {
		out = append(out, sub)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].topic < out[j].topic })
	return out
}

func checkTopic(topic string, qos byte) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	return nil
}

// await waits for a paho token.
func await(t pahomqtt.Token, timeout time.Duration) error {
	if !t.WaitTimeout(timeout) {
		return fmt.Errorf("timed out after %v", timeout)
	}
	return t.Error()
}

// Publish sends payload and waits for the broker to take it. State topics
// are retained; commands never are.
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if err := checkTopic(topic, qos); err != nil {
		return err
	}
	if n := len(payload); n > maxPayloadSize {
		return fmt.Errorf("%w: %d byte payload exceeds %d", ErrPublishFailed, n, maxPayloadSize)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	if err := await(c.client.Publish(topic, qos, retained, payload), defaultPublishTimeout); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPublishFailed, topic, err)
	}
	return nil
}

// Subscribe registers handler for a topic filter. Once the broker accepts
// it the subscription is replayed on every reconnect.
func (c *Client) Subscribe(topic string, qos byte, handler MessageHandler) error {
	if err := checkTopic(topic, qos); err != nil {
		return err
	}
	if handler == nil {
		return fmt.Errorf("%w: nil handler", ErrSubscribeFailed)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	sub := subscription{topic: topic, qos: qos, handler: handler}
	c.subs.put(sub)
	if err := await(c.client.Subscribe(topic, qos, c.wrapHandler(handler)), defaultPublishTimeout); err != nil {
		c.subs.remove(topic)
		return fmt.Errorf("%w: %s: %w", ErrSubscribeFailed, topic, err)
	}
	return nil
}

// SubscriptionCount returns the number of replayed subscriptions.
func (c *Client) SubscriptionCount() int {
	c.subs.mu.RLock()
	defer c.subs.mu.RUnlock()
	return len(c.subs.byTopic)
}

// wrapHandler adapts handler to paho. Errors are logged as warnings and
// panics are recovered and logged as errors.
func (c *Client) wrapHandler(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		topic := msg.Topic()
		defer func() {
			if r := recover(); r != nil {
				if log := c.log(); log != nil {
					log.Error("mqtt handler panicked", "topic", topic, "panic", r)
				}
			}
		}()
		if err := handler(topic, msg.Payload()); err != nil {
			if log := c.log(); log != nil {
				log.Warn("mqtt handler failed", "topic", topic, "error", err)
			}
		}
	}
}
