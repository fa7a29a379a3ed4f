// v3
// internal/harness/evaluate.go
package harness

import (
	"fmt"
	"log/slog"

	"github.com/AgenticFactoria/AgenticFac-SupCon/internal/bus"
	"github.com/AgenticFactoria/AgenticFac-SupCon/internal/metrics"
	"github.com/AgenticFactoria/AgenticFac-SupCon/internal/simfactory"
	"github.com/AgenticFactoria/AgenticFac-SupCon/internal/storage"
	"github.com/AgenticFactoria/AgenticFac-SupCon/internal/strategy"
)

// Run is one prepared evaluation: transport acquired, simulator attached
// in direct mode, controller wired but not yet started.
type Run struct {
	cfg     Config
	log     *slog.Logger
	ctrl    *Controller
	met     *metrics.Metrics
	adapter bus.Adapter
	simEnd  bus.Adapter
}

// NewRun validates the configuration and acquires the transport.
// Configuration problems and networked connect failures surface here,
// before anything runs; they are the only errors Evaluate raises.
func NewRun(cfg Config, log *slog.Logger) (*Run, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	met := metrics.New()
	topics := bus.NewTopics(cfg.TopicRoot)

	var (
		adapter bus.Adapter
		simEnd  bus.Adapter
		stepper Stepper
	)
	switch cfg.Transport {
	case TransportDirect:
		lb := bus.NewLoopback(log)
		simAdapter := lb.Endpoint("simulator")
		factory, err := simfactory.New(simfactory.Options{
			Lines:          cfg.Lines,
			Seed:           cfg.Seed,
			FaultInjection: cfg.FaultInjection,
		}, simAdapter, topics, log)
		if err != nil {
			return nil, fmt.Errorf("start simulator: %w", err)
		}
		stepper = factory
		simEnd = simAdapter
		adapter = lb.Endpoint("harness")
	case TransportNetworked:
		var err error
		switch cfg.Broker {
		case BrokerMQTT:
			adapter, err = bus.NewMQTT(bus.MQTTOptions{
				BrokerAddr: cfg.MQTTBrokerAddr,
				ClientID:   cfg.TopicRoot + "_evaluator",
				Username:   cfg.MQTTUsername,
				Password:   cfg.MQTTPassword,
			}, log)
		case BrokerKafka:
			adapter, err = bus.NewKafka(bus.KafkaOptions{
				Brokers: cfg.KafkaBrokers,
				Root:    cfg.TopicRoot,
				GroupID: cfg.TopicRoot + "-evaluator",
			}, log)
		}
		if err != nil {
			return nil, fmt.Errorf("acquire transport: %w", err)
		}
	}

	ctrl := NewController(cfg, adapter, NewClock(cfg.Duration), stepper, met, log)
	return &Run{cfg: cfg, log: log, ctrl: ctrl, met: met, adapter: adapter, simEnd: simEnd}, nil
}

// Controller exposes the live run state for the status API.
func (r *Run) Controller() *Controller { return r.ctrl }

// Metrics exposes the run's Prometheus registry.
func (r *Run) Metrics() *metrics.Metrics { return r.met }

// Execute performs the evaluation, persists the result when a results
// path is configured, and releases the transport.
func (r *Run) Execute(strat strategy.Strategy) (*Result, error) {
	defer func() {
		_ = r.adapter.Close()
		if r.simEnd != nil {
			_ = r.simEnd.Close()
		}
	}()
	result, err := r.ctrl.Run(strat)
	if err != nil {
		return nil, err
	}
	if r.cfg.ResultsPath != "" {
		if err := storage.Append(r.cfg.ResultsPath, result); err != nil {
			r.log.Error("persist result failed", "path", r.cfg.ResultsPath, "error", err)
		}
	}
	return result, nil
}

// Evaluate runs a strategy against the factory for the configured
// duration and returns its weighted score. This is the single public
// invocation surface of the harness.
func Evaluate(strat strategy.Strategy, cfg Config, log *slog.Logger) (*Result, error) {
	run, err := NewRun(cfg, log)
	if err != nil {
		return nil, err
	}
	return run.Execute(strat)
}
