// v2
// internal/bus/kafka.go
package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaAdapter runs the bus contract over a Kafka broker. Kafka has no
// topic wildcards, so the full simulator stream rides two real topics per
// namespace: "<root>.status" (simulator→harness, single partition so the
// emit order survives) and "<root>.command" (harness→simulator). The
// logical factory topic travels in the message key and is matched against
// subscriptions on the consumer side.
type KafkaAdapter struct {
	brokers     []string
	statusTopic string
	cmdTopic    string
	log         *slog.Logger

	reader *kafka.Reader
	writer *kafka.Writer
	cancel context.CancelFunc

	mu       sync.Mutex
	patterns []string
	closed   bool
	once     sync.Once
	queue    chan *Message
}

// KafkaOptions carries broker connection settings.
type KafkaOptions struct {
	Brokers []string
	Root    string
	GroupID string
}

// NewKafka dials the broker, ensures the two namespace topics exist and
// returns an adapter. A dial failure is fatal for the run.
func NewKafka(opts KafkaOptions, log *slog.Logger) (*KafkaAdapter, error) {
	if len(opts.Brokers) == 0 {
		return nil, errors.New("kafka: no brokers configured")
	}
	a := &KafkaAdapter{
		brokers:     opts.Brokers,
		statusTopic: opts.Root + ".status",
		cmdTopic:    opts.Root + ".command",
		log:         log.With(slog.String("component", "kafka-bus")),
		queue:       make(chan *Message, receiveBuffer),
	}
	if err := a.ensureTopics(context.Background()); err != nil {
		return nil, err
	}
	a.reader = kafka.NewReader(kafka.ReaderConfig{
		Brokers:  opts.Brokers,
		GroupID:  opts.GroupID,
		Topic:    a.statusTopic,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  200 * time.Millisecond,
	})
	a.writer = &kafka.Writer{
		Addr:         kafka.TCP(opts.Brokers...),
		Topic:        a.cmdTopic,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}
	return a, nil
}

func (a *KafkaAdapter) ensureTopics(ctx context.Context) error {
	conn, err := kafka.DialContext(ctx, "tcp", a.brokers[0])
	if err != nil {
		return fmt.Errorf("dial broker: %w", err)
	}
	defer conn.Close()
	ctrl, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("controller: %w", err)
	}
	c, err := kafka.DialContext(ctx, "tcp", fmt.Sprintf("%s:%d", ctrl.Host, ctrl.Port))
	if err != nil {
		return fmt.Errorf("dial controller: %w", err)
	}
	defer c.Close()
	cfgs := []kafka.TopicConfig{
		{Topic: a.statusTopic, NumPartitions: 1, ReplicationFactor: 1},
		{Topic: a.cmdTopic, NumPartitions: 1, ReplicationFactor: 1},
	}
	if err := c.CreateTopics(cfgs...); err != nil {
		a.log.Warn("CreateTopics", "err", err)
	}
	return nil
}

func (a *KafkaAdapter) Subscribe(pattern string) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return ErrClosed
	}
	a.patterns = append(a.patterns, pattern)
	a.mu.Unlock()
	a.once.Do(a.startFetch)
	return nil
}

func (a *KafkaAdapter) startFetch() {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	go func() {
		for {
			m, err := a.reader.FetchMessage(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				a.log.Error("fetch", "error", err)
				return
			}
			topic := string(m.Key)
			var payload map[string]any
			if err := json.Unmarshal(m.Value, &payload); err != nil {
				a.log.Error("undecodable payload", "topic", topic, "error", err)
				continue
			}
			a.dispatch(&Message{Topic: topic, Payload: payload})
		}
	}()
}

func (a *KafkaAdapter) dispatch(msg *Message) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	for _, p := range a.patterns {
		if Match(p, msg.Topic) {
			select {
			case a.queue <- msg:
			default:
				a.log.Warn("receive queue full, dropping", "topic", msg.Topic)
			}
			return
		}
	}
}

func (a *KafkaAdapter) Publish(topic string, payload map[string]any) error {
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
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	msg := kafka.Message{Key: []byte(topic), Value: b, Time: time.Now()}
	if err := a.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka publish %s: %w", topic, err)
	}
	return nil
}

func (a *KafkaAdapter) Receive(timeout time.Duration) (*Message, bool, error) {
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

func (a *KafkaAdapter) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	close(a.queue)
	a.mu.Unlock()
	if a.cancel != nil {
		a.cancel()
	}
	var first error
	if err := a.reader.Close(); err != nil {
		first = err
	}
	if err := a.writer.Close(); err != nil && first == nil {
		first = err
	}
	return first
}
