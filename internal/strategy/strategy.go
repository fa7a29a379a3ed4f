// v2
// internal/strategy/strategy.go
// Package strategy defines the decision-function contract and the runner
// that invokes untrusted strategy code under fault and deadline containment.
package strategy

import (
	"strings"

	"github.com/AgenticFactoria/AgenticFac-SupCon/internal/command"
)

// Strategy maps one inbound status message to an optional command.
// Returning (nil, nil) means no action for this message. Implementations
// may be plain functions (see Func) or stateful types keeping memory
// across calls; the harness itself holds no state between invocations.
type Strategy interface {
	Invoke(topic string, message map[string]any) (*command.Command, error)
}

// Func adapts a plain function to the Strategy interface.
type Func func(topic string, message map[string]any) (*command.Command, error)

func (f Func) Invoke(topic string, message map[string]any) (*command.Command, error) {
	return f(topic, message)
}

// None returns the baseline strategy that never acts. Scoring it gives the
// deterministic floor every other strategy is compared against.
func None() Strategy {
	return Func(func(string, map[string]any) (*command.Command, error) {
		return nil, nil
	})
}

// MoveOnOrders returns a minimal reactive strategy: on every new-order
// notification it sends the given AGV to the given waypoint and otherwise
// stays quiet.
func MoveOnOrders(target, waypoint string) Strategy {
	return Func(func(topic string, _ map[string]any) (*command.Command, error) {
		if !strings.Contains(topic, "orders") {
			return nil, nil
		}
		return &command.Command{
			Action: command.ActionMove,
			Target: target,
			Params: map[string]any{"target_point": waypoint},
		}, nil
	})
}
