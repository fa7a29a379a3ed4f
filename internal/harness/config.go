// v3
// internal/harness/config.go
package harness

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// TransportMode selects how the harness reaches the simulator.
type TransportMode string

const (
	// TransportNetworked talks to an external simulator over a broker.
	TransportNetworked TransportMode = "networked"
	// TransportDirect runs the simulator in-process over a loopback bus.
	TransportDirect TransportMode = "direct"
)

// BrokerKind selects the broker flavor in networked mode.
type BrokerKind string

const (
	BrokerMQTT  BrokerKind = "mqtt"
	BrokerKafka BrokerKind = "kafka"
)

// ErrConfig marks configuration failures surfaced before any run starts.
var ErrConfig = errors.New("invalid configuration")

// Config is the explicit, immutable-per-run configuration handed to
// Evaluate. There is no process-global configuration state.
type Config struct {
	// Duration is the evaluation window in real (= simulated) time.
	Duration time.Duration
	// Transport picks networked or direct mode.
	Transport TransportMode
	// Broker picks the networked backend; ignored in direct mode.
	Broker BrokerKind
	// TopicRoot is the namespace prefix of the topic taxonomy.
	TopicRoot string
	// PerCallTimeout bounds a single strategy invocation.
	PerCallTimeout time.Duration
	// PollInterval bounds one idle receive wait in the run loop.
	PollInterval time.Duration
	// FaultInjection enables simulator fault injection.
	FaultInjection bool

	// Lines is the number of production lines (direct mode and topic
	// subscription fan-out).
	Lines int
	// Seed drives the direct-mode simulator.
	Seed int64

	MQTTBrokerAddr string
	MQTTUsername   string
	MQTTPassword   string
	KafkaBrokers   []string

	// ResultsPath, when set, appends the final result as a JSON line.
	ResultsPath string
	// HTTPBind, when set, serves the status API while the run is active.
	HTTPBind string
}

// WithDefaults fills unset optional fields.
func (c Config) WithDefaults() Config {
	if c.Transport == "" {
		c.Transport = TransportDirect
	}
	if c.Broker == "" {
		c.Broker = BrokerMQTT
	}
	if c.TopicRoot == "" {
		c.TopicRoot = "NLDF"
	}
	if c.PerCallTimeout <= 0 {
		c.PerCallTimeout = 2 * time.Second
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 250 * time.Millisecond
	}
	if c.Lines <= 0 {
		c.Lines = 1
	}
	return c
}

// Validate fails fast on anything that would make the run meaningless.
func (c Config) Validate() error {
	if c.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %s", ErrConfig, c.Duration)
	}
	switch c.Transport {
	case TransportNetworked, TransportDirect:
	default:
		return fmt.Errorf("%w: unknown transport mode %q", ErrConfig, c.Transport)
	}
	if c.Transport == TransportNetworked {
		switch c.Broker {
		case BrokerMQTT:
			if c.MQTTBrokerAddr == "" {
				return fmt.Errorf("%w: mqtt broker address required in networked mode", ErrConfig)
			}
		case BrokerKafka:
			if len(c.KafkaBrokers) == 0 {
				return fmt.Errorf("%w: kafka brokers required in networked mode", ErrConfig)
			}
		default:
			return fmt.Errorf("%w: unknown broker kind %q", ErrConfig, c.Broker)
		}
	}
	if err := validateTopicRoot(c.TopicRoot); err != nil {
		return err
	}
	return nil
}

func validateTopicRoot(root string) error {
	if root == "" {
		return fmt.Errorf("%w: topic root must not be empty", ErrConfig)
	}
	if strings.ContainsAny(root, "+#") {
		return fmt.Errorf("%w: topic root %q must not contain wildcards", ErrConfig, root)
	}
	if strings.HasPrefix(root, "/") || strings.HasSuffix(root, "/") {
		return fmt.Errorf("%w: topic root %q must not start or end with '/'", ErrConfig, root)
	}
	if strings.ContainsAny(root, " \t\n") {
		return fmt.Errorf("%w: topic root %q must not contain whitespace", ErrConfig, root)
	}
	return nil
}

// LineNames enumerates the configured production lines.
func (c Config) LineNames() []string {
	out := make([]string, 0, c.Lines)
	for i := 1; i <= c.Lines; i++ {
		out = append(out, fmt.Sprintf("line%d", i))
	}
	return out
}

// LoadEnv builds a Config from environment variables with the documented
// defaults. The CLI uses this; library callers pass a Config directly.
func LoadEnv() Config {
	return Config{
		Duration:       time.Duration(geti("EVAL_DURATION_S", 180)) * time.Second,
		Transport:      TransportMode(getenv("EVAL_TRANSPORT", string(TransportDirect))),
		Broker:         BrokerKind(getenv("EVAL_BROKER", string(BrokerMQTT))),
		TopicRoot:      getenv("TOPIC_ROOT", "NLDF"),
		PerCallTimeout: time.Duration(geti("EVAL_CALL_TIMEOUT_MS", 2000)) * time.Millisecond,
		PollInterval:   time.Duration(geti("EVAL_POLL_INTERVAL_MS", 250)) * time.Millisecond,
		FaultInjection: getenv("EVAL_FAULTS", "") == "true",
		Lines:          geti("EVAL_LINES", 1),
		Seed:           int64(geti("EVAL_SEED", 1)),
		MQTTBrokerAddr: getenv("MQTT_BROKER", "tcp://localhost:1883"),
		MQTTUsername:   getenv("MQTT_USERNAME", ""),
		MQTTPassword:   getenv("MQTT_PASSWORD", ""),
		KafkaBrokers:   split(getenv("KAFKA_BROKERS", ""), ","),
		ResultsPath:    getenv("RESULTS_PATH", ""),
		HTTPBind:       getenv("HTTP_BIND", ""),
	}
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func geti(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return d
}

func split(s, sep string) []string {
	if s == "" {
		return nil
	}
	p := strings.Split(s, sep)
	out := make([]string, 0, len(p))
	for _, x := range p {
		x = strings.TrimSpace(x)
		if x != "" {
			out = append(out, x)
		}
	}
	return out
}
