// v2
// internal/bus/direct.go
package bus

import (
	"log/slog"
	"sync"
	"time"
)

// Loopback is the in-process broker backing direct (offline) mode. The
// harness and the simulator each hold one endpoint; a publish on either
// side is delivered synchronously, in publication order, to every other
// endpoint with a matching subscription. No network, no flakiness.
type Loopback struct {
	mu        sync.Mutex
	endpoints []*DirectAdapter
	log       *slog.Logger
}

func NewLoopback(log *slog.Logger) *Loopback {
	return &Loopback{log: log.With(slog.String("component", "loopback-bus"))}
}

// Endpoint creates a new adapter attached to this loopback broker.
func (l *Loopback) Endpoint(name string) *DirectAdapter {
	l.mu.Lock()
	defer l.mu.Unlock()
	ep := &DirectAdapter{
		name:   name,
		broker: l,
		queue:  make(chan *Message, receiveBuffer),
	}
	l.endpoints = append(l.endpoints, ep)
	return ep
}

func (l *Loopback) route(from *DirectAdapter, msg *Message) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, ep := range l.endpoints {
		if ep == from {
			continue
		}
		ep.deliver(msg)
	}
}

// DirectAdapter is one endpoint on a Loopback broker.
type DirectAdapter struct {
	name   string
	broker *Loopback

	mu       sync.Mutex
	patterns []string
	closed   bool
	queue    chan *Message
}

func (d *DirectAdapter) Subscribe(pattern string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	d.patterns = append(d.patterns, pattern)
	return nil
}

func (d *DirectAdapter) Publish(topic string, payload map[string]any) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrClosed
	}
	d.mu.Unlock()
	d.broker.route(d, &Message{Topic: topic, Payload: payload})
	return nil
}

func (d *DirectAdapter) deliver(msg *Message) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	for _, p := range d.patterns {
		if Match(p, msg.Topic) {
			select {
			case d.queue <- msg:
			default:
				d.broker.log.Warn("receive queue full, dropping", "endpoint", d.name, "topic", msg.Topic)
			}
			return
		}
	}
}

func (d *DirectAdapter) Receive(timeout time.Duration) (*Message, bool, error) {
	if timeout <= 0 {
		select {
		case msg, ok := <-d.queue:
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
	case msg, ok := <-d.queue:
		if !ok {
			return nil, false, ErrClosed
		}
		return msg, true, nil
	case <-t.C:
		return nil, false, nil
	}
}

func (d *DirectAdapter) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	close(d.queue)
	return nil
}
