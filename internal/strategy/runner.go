// v3
// internal/strategy/runner.go
package strategy

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/AgenticFactoria/AgenticFac-SupCon/internal/command"
)

// Outcome classifies one strategy invocation.
type Outcome int

const (
	// OutcomeNone means the strategy chose not to act.
	OutcomeNone Outcome = iota
	// OutcomeCommand means the strategy produced a command.
	OutcomeCommand
	// OutcomeError means the strategy returned an error or panicked;
	// treated as no action, the run continues.
	OutcomeError
	// OutcomeTimeout means the invocation exceeded the per-call deadline;
	// treated as no action, the run continues.
	OutcomeTimeout
)

// DefaultTimeout bounds a single strategy invocation.
const DefaultTimeout = 2 * time.Second

// Runner invokes strategy code with exception and deadline containment.
// Exactly one invocation is in flight at a time from the runner's point of
// view; a hung strategy only ever costs the loop one timeout window.
type Runner struct {
	timeout time.Duration
	log     *slog.Logger
}

func NewRunner(timeout time.Duration, log *slog.Logger) *Runner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Runner{timeout: timeout, log: log.With(slog.String("component", "strategy-runner"))}
}

type invokeResult struct {
	cmd *command.Command
	err error
}

// Invoke calls the strategy with (topic, message) under the configured
// deadline. The call runs on its own goroutine since the strategy is
// untrusted; on timeout the goroutine is abandoned (its late result is
// dropped via the buffered channel) and the message is treated as
// no-action.
func (r *Runner) Invoke(s Strategy, topic string, message map[string]any) (*command.Command, Outcome) {
	done := make(chan invokeResult, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- invokeResult{err: fmt.Errorf("strategy panic: %v", p)}
			}
		}()
		cmd, err := s.Invoke(topic, message)
		done <- invokeResult{cmd: cmd, err: err}
	}()

	t := time.NewTimer(r.timeout)
	defer t.Stop()
	select {
	case res := <-done:
		if res.err != nil {
			r.log.Error("strategy error", "topic", topic, "error", res.err)
			return nil, OutcomeError
		}
		if res.cmd == nil {
			return nil, OutcomeNone
		}
		return res.cmd, OutcomeCommand
	case <-t.C:
		r.log.Warn("strategy timeout", "topic", topic, "timeout", r.timeout.String())
		return nil, OutcomeTimeout
	}
}
