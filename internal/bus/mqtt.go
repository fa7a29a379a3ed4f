// v3
// internal/bus/mqtt.go
package bus

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTAdapter runs the bus contract over a paho MQTT connection. Connect
// failures are fatal for the run and reported to the caller; they are not
// retried indefinitely.
type MQTTAdapter struct {
	client mqtt.Client
	log    *slog.Logger

	mu     sync.Mutex
	closed bool
	queue  chan *Message
}

// MQTTOptions carries broker connection settings.
type MQTTOptions struct {
	BrokerAddr     string // e.g. "tcp://localhost:1883"
	ClientID       string
	Username       string
	Password       string
	ConnectTimeout time.Duration
}

// NewMQTT connects to the broker and returns an adapter ready to
// subscribe. The paho client delivers on its own goroutine; handoff to the
// controller happens only through the internal queue.
func NewMQTT(opts MQTTOptions, log *slog.Logger) (*MQTTAdapter, error) {
	connectTimeout := opts.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 10 * time.Second
	}
	co := mqtt.NewClientOptions().
		AddBroker(opts.BrokerAddr).
		SetClientID(opts.ClientID).
		SetConnectTimeout(connectTimeout).
		SetOrderMatters(true)
	if opts.Username != "" {
		co.SetUsername(opts.Username)
		co.SetPassword(opts.Password)
	}
	c := mqtt.NewClient(co)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", opts.BrokerAddr, token.Error())
	}
	a := &MQTTAdapter{
		client: c,
		log:    log.With(slog.String("component", "mqtt-bus")),
		queue:  make(chan *Message, receiveBuffer),
	}
	return a, nil
}

func (a *MQTTAdapter) Subscribe(pattern string) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return ErrClosed
	}
	a.mu.Unlock()
	token := a.client.Subscribe(pattern, 0, a.onMessage)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt subscribe %s: %w", pattern, token.Error())
	}
	a.log.Info("subscribed", "pattern", pattern)
	return nil
}

func (a *MQTTAdapter) onMessage(_ mqtt.Client, m mqtt.Message) {
	var payload map[string]any
	if err := json.Unmarshal(m.Payload(), &payload); err != nil {
		a.log.Error("undecodable payload", "topic", m.Topic(), "error", err)
		return
	}
	msg := &Message{Topic: m.Topic(), Payload: payload}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	select {
	case a.queue <- msg:
	default:
		a.log.Warn("receive queue full, dropping", "topic", m.Topic())
	}
}

func (a *MQTTAdapter) Publish(topic string, payload map[string]any) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return ErrClosed
	}
	a.mu.Unlock()
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	token := a.client.Publish(topic, 0, false, b)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt publish %s: %w", topic, token.Error())
	}
	return nil
}

func (a *MQTTAdapter) Receive(timeout time.Duration) (*Message, bool, error) {
	if timeout <= 0 {
		select {
		case msg, ok := <-a.queue:
			if !ok {
				return nil, false, ErrClosed
			}
			return msg, true, nil
		default:
			return nil, false, nil
		}
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case msg, ok := <-a.queue:
		if !ok {
			return nil, false, ErrClosed
		}
		return msg, true, nil
	case <-t.C:
		return nil, false, nil
	}
}

func (a *MQTTAdapter) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	close(a.queue)
	a.mu.Unlock()
	a.client.Disconnect(250)
	return nil
}
