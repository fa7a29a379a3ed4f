// v4
// internal/harness/controller.go
package harness

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AgenticFactoria/AgenticFac-SupCon/internal/bus"
	"github.com/AgenticFactoria/AgenticFac-SupCon/internal/command"
	"github.com/AgenticFactoria/AgenticFac-SupCon/internal/kpi"
	"github.com/AgenticFactoria/AgenticFac-SupCon/internal/metrics"
	"github.com/AgenticFactoria/AgenticFac-SupCon/internal/strategy"
)

// State is the controller's lifecycle position.
type State string

const (
	StateIdle         State = "idle"
	StateInitializing State = "initializing"
	StateRunning      State = "running"
	StateFinalizing   State = "finalizing"
	StateDone         State = "done"
	StateAborted      State = "aborted"
)

// Stepper is the direct-mode simulator hook: the controller drives the
// in-process factory forward in lockstep with the clock. Nil in networked
// mode, where the simulator advances itself.
type Stepper interface {
	AdvanceTo(simSecond int)
	ProcessPending()
}

// finalizeWait bounds how long the controller waits for the simulator's
// final result snapshot after dispatching get_result.
const finalizeWait = 3 * time.Second

// Controller owns one evaluation run: the clock, the aggregator, the poll
// loop and the final report. It alone mutates the clock and aggregator;
// bus-delivered messages reach it only through Receive.
type Controller struct {
	cfg     Config
	log     *slog.Logger
	adapter bus.Adapter
	topics  bus.Topics
	runner  *strategy.Runner
	valid   *command.Validator
	disp    *command.Dispatcher
	agg     *kpi.Aggregator
	clock   *Clock
	met     *metrics.Metrics
	stepper Stepper

	mu         sync.Mutex
	state      State
	meta       Metadata
	lastResult *Result
}

// NewController wires a run. The adapter must already be connected; the
// clock must not be started yet.
func NewController(cfg Config, adapter bus.Adapter, clock *Clock, stepper Stepper, met *metrics.Metrics, log *slog.Logger) *Controller {
	topics := bus.NewTopics(cfg.TopicRoot)
	runID := uuid.NewString()
	lg := log.With(slog.String("component", "controller"), slog.String("runId", runID))
	return &Controller{
		cfg:     cfg,
		log:     lg,
		adapter: adapter,
		topics:  topics,
		runner:  strategy.NewRunner(cfg.PerCallTimeout, log),
		valid:   command.NewValidator(),
		disp:    command.NewDispatcher(adapter, topics, cfg.LineNames()[0], log),
		agg:     kpi.NewAggregator(topics, log),
		clock:   clock,
		met:     met,
		stepper: stepper,
		state:   StateIdle,
		meta:    Metadata{RunID: runID},
	}
}

// State returns the controller's current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	c.log.Info("state", "state", string(s))
}

// StatusSnapshot is the live view served by the status API.
type StatusSnapshot struct {
	State      State    `json:"state"`
	Metadata   Metadata `json:"metadata"`
	LastResult *Result  `json:"last_result,omitempty"`
}

// Status returns a consistent snapshot of the run's progress.
func (c *Controller) Status() StatusSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := StatusSnapshot{State: c.state, Metadata: c.meta, LastResult: c.lastResult}
	return snap
}

// Run executes one evaluation of the strategy. It never propagates
// per-message failures: strategy errors, timeouts and invalid commands
// degrade to no-action plus a counter. Transport-fatal errors move the run
// to Aborted and still produce a partial result; Run returns an error only
// for failures before the run could start.
func (c *Controller) Run(strat strategy.Strategy) (*Result, error) {
	c.setState(StateInitializing)
	for _, pattern := range c.topics.All(c.cfg.LineNames()) {
		if err := c.adapter.Subscribe(pattern); err != nil {
			return c.abort(fmt.Errorf("subscribe %s: %w", pattern, err)), nil
		}
	}

	c.clock.Start()
	c.setState(StateRunning)
	durSec := int(c.cfg.Duration / time.Second)

	for !c.clock.Expired() {
		if c.stepper != nil {
			target := int(c.clock.Elapsed() / time.Second)
			if target > durSec {
				target = durSec
			}
			c.stepper.AdvanceTo(target)
		}
		timeout := c.clock.Remaining()
		if timeout > c.cfg.PollInterval {
			timeout = c.cfg.PollInterval
		}
		msg, ok, err := c.adapter.Receive(timeout)
		if err != nil {
			return c.abort(fmt.Errorf("transport receive: %w", err)), nil
		}
		if !ok {
			// Idle poll path: nothing arrived inside the interval; loop
			// to re-check expiry so a stalled simulator cannot wedge us.
			continue
		}
		if err := c.processMessage(strat, msg); err != nil {
			return c.abort(err), nil
		}
	}

	c.setState(StateFinalizing)
	c.finalize()
	result := c.assemble("")
	c.setState(StateDone)
	return result, nil
}

// processMessage drives one message through runner → validator →
// dispatcher and feeds the KPI aggregator. The returned error is
// transport-fatal only.
func (c *Controller) processMessage(strat strategy.Strategy, msg *bus.Message) error {
	c.met.MessagesReceived.Inc()
	c.mu.Lock()
	c.meta.MessagesProcessed++
	c.mu.Unlock()

	if c.agg.Wants(msg.Topic) {
		c.agg.Ingest(msg)
		c.met.KPIMessages.Inc()
	}
	if bus.Match(c.topics.ResponseWildcard(), msg.Topic) {
		if rejected, _ := msg.Payload["rejected"].(bool); rejected {
			reason, _ := msg.Payload["reason"].(string)
			c.countRejection(reason)
			c.log.Warn("command rejected by simulator", "topic", msg.Topic, "reason", reason, "response", msg.Payload["response"])
		}
	}

	cmd, outcome := c.runner.Invoke(strat, msg.Topic, msg.Payload)
	switch outcome {
	case strategy.OutcomeNone:
		return nil
	case strategy.OutcomeError:
		c.met.StrategyErrors.Inc()
		c.mu.Lock()
		c.meta.StrategyErrors++
		c.mu.Unlock()
		return nil
	case strategy.OutcomeTimeout:
		c.met.StrategyTimeouts.Inc()
		c.mu.Lock()
		c.meta.StrategyTimeouts++
		c.mu.Unlock()
		return nil
	}

	if res := c.valid.Validate(cmd); !res.OK {
		c.countRejection(string(res.Reason))
		c.log.Warn("command rejected", "reason", res.Reason, "detail", res.Detail, "action", cmd.Action, "target", cmd.Target)
		return nil
	}
	if err := c.disp.Dispatch(cmd, msg.Topic); err != nil {
		c.met.DispatchErrors.Inc()
		c.mu.Lock()
		c.meta.DispatchErrors++
		c.mu.Unlock()
		if errors.Is(err, bus.ErrClosed) {
			return fmt.Errorf("transport unusable: %w", err)
		}
		c.log.Error("dispatch failed", "error", err)
		return nil
	}
	c.met.CommandsIssued.Inc()
	c.mu.Lock()
	c.meta.CommandsIssued++
	c.mu.Unlock()
	return nil
}

func (c *Controller) countRejection(reason string) {
	if reason == "" {
		reason = "unspecified"
	}
	c.met.CommandsRejected.WithLabelValues(reason).Inc()
	c.mu.Lock()
	c.meta.CommandsRejected++
	c.mu.Unlock()
}

// finalize runs the get_result handshake: the simulator is asked for its
// authoritative final snapshot and the aggregator ingests whatever arrives
// before the bounded wait runs out. The handshake command is issued by the
// harness, not the strategy, so it does not count toward commands_issued.
func (c *Controller) finalize() {
	if c.stepper != nil {
		c.stepper.AdvanceTo(int(c.cfg.Duration / time.Second))
	}
	getResult := &command.Command{
		CommandID: "eval_get_result",
		Action:    command.ActionGetResult,
		Target:    "factory",
		Params:    map[string]any{},
	}
	if err := c.disp.Dispatch(getResult, ""); err != nil {
		c.log.Warn("get_result dispatch failed; scoring from running snapshots", "error", err)
		return
	}
	if c.stepper != nil {
		c.stepper.ProcessPending()
	}
	deadline := time.Now().Add(finalizeWait)
	for time.Now().Before(deadline) {
		msg, ok, err := c.adapter.Receive(50 * time.Millisecond)
		if err != nil {
			return
		}
		if !ok {
			continue
		}
		if c.agg.Wants(msg.Topic) {
			c.agg.Ingest(msg)
			c.met.KPIMessages.Inc()
		}
		if msg.Topic == c.topics.Result() {
			return
		}
	}
	c.log.Warn("no final result snapshot within wait; scoring from running snapshots")
}

// abort produces the partial result for a transport-fatal failure.
func (c *Controller) abort(cause error) *Result {
	c.log.Error("run aborted", "error", cause)
	c.setState(StateAborted)
	return c.assemble(cause.Error())
}

// assemble freezes the run into its immutable Result.
func (c *Controller) assemble(abortReason string) *Result {
	score := c.agg.Finalize()
	elapsed := c.clock.Elapsed()
	simSeconds := elapsed.Seconds()
	if max := c.cfg.Duration.Seconds(); simSeconds > max {
		simSeconds = max
	}
	if abortReason == "" && c.clock.Expired() {
		simSeconds = c.cfg.Duration.Seconds()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.meta.ElapsedRealSeconds = elapsed.Seconds()
	c.meta.ElapsedSimSeconds = simSeconds
	c.meta.TransportMode = string(c.cfg.Transport)
	c.meta.TopicRoot = c.cfg.TopicRoot
	c.meta.FaultInjection = c.cfg.FaultInjection
	c.meta.AbortReason = abortReason
	c.lastResult = &Result{
		TotalScore:         score.Total,
		CategoryScores:     score.Categories,
		ComponentBreakdown: score.Breakdown,
		Metadata:           c.meta,
	}
	return c.lastResult
}
