// v2
// internal/bus/bus.go
// Package bus provides the message transport between the harness and the
// factory simulator. Three backends share one contract: an MQTT broker, a
// Kafka broker, and an in-process loopback for offline runs.
package bus

import (
	"errors"
	"time"
)

// Message is a single simulator status payload delivered on a topic.
// Payloads are opaque beyond the fields each consumer explicitly reads.
type Message struct {
	Topic   string
	Payload map[string]any
}

// ErrClosed is returned by Receive and Publish after Close.
var ErrClosed = errors.New("bus: adapter closed")

// Adapter is the uniform publish/subscribe surface over a transport backend.
//
// Subscribe registers interest in a topic pattern (single-level `+`
// wildcard). Receive returns the next delivered message, blocking up to
// timeout; ok is false when the wait elapsed with nothing to deliver.
// Delivery order per topic follows publication order; cross-topic ordering
// is not guaranteed.
type Adapter interface {
	Subscribe(pattern string) error
	Publish(topic string, payload map[string]any) error
	Receive(timeout time.Duration) (*Message, bool, error)
	Close() error
}

// receiveBuffer is how many in-flight messages an adapter queues between
// broker delivery and the controller's poll loop.
const receiveBuffer = 1024
