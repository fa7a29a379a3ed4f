// v3
// internal/command/validator.go
package command

import "fmt"

// Reason classifies why a command was rejected.
type Reason string

const (
	ReasonUnknownAction  Reason = "unknown_action"
	ReasonMissingTarget  Reason = "missing_target"
	ReasonSchemaMismatch Reason = "schema_mismatch"
)

// ValidationResult is the outcome of validating one command.
type ValidationResult struct {
	OK     bool
	Reason Reason
	Detail string
}

func reject(reason Reason, format string, args ...any) ValidationResult {
	return ValidationResult{OK: false, Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// Validator checks commands against the fixed per-action parameter
// contracts and hands out surrogate command ids. One Validator serves one
// evaluation run; the id sequence restarts at cmd_000001 per run, so
// identical runs produce identical audit trails.
type Validator struct {
	seq uint64
}

func NewValidator() *Validator { return &Validator{} }

// Validate checks a command. It never touches simulator state. On
// acceptance a missing command_id is filled from the run's monotonic
// sequence so every dispatched command stays correlatable in the audit
// trail; re-validating an accepted command is therefore idempotent.
//
// Whether the target of a load is actually a raw-material device is only
// known to the simulator; that check surfaces as a rejected response ack
// and is reported under the same reason.
func (v *Validator) Validate(c *Command) ValidationResult {
	if !knownAction(c.Action) {
		return reject(ReasonUnknownAction, "action %q not in %v", c.Action, KnownActions)
	}
	if c.Target == "" {
		return reject(ReasonMissingTarget, "target is required")
	}
	switch c.Action {
	case ActionMove:
		tp, ok := c.Params["target_point"].(string)
		if !ok || tp == "" {
			return reject(ReasonSchemaMismatch, "move requires string param target_point")
		}
		if !Waypoints[tp] {
			return reject(ReasonSchemaMismatch, "target_point %q is not a known waypoint", tp)
		}
	case ActionLoad:
		pid, ok := c.Params["product_id"].(string)
		if !ok || pid == "" {
			return reject(ReasonSchemaMismatch, "load requires string param product_id")
		}
	case ActionCharge:
		if raw, present := c.Params["target_level"]; present {
			level, ok := asFloat(raw)
			if !ok {
				return reject(ReasonSchemaMismatch, "target_level must be numeric, got %T", raw)
			}
			if level <= 0 || level > 100 {
				return reject(ReasonSchemaMismatch, "target_level %.1f outside (0,100]", level)
			}
		} else {
			if c.Params == nil {
				c.Params = map[string]any{}
			}
			c.Params["target_level"] = DefaultChargeLevel
		}
	case ActionUnload, ActionGetResult:
		// no parameters
	}
	if c.CommandID == "" {
		v.seq++
		c.CommandID = fmt.Sprintf("cmd_%06d", v.seq)
	}
	return ValidationResult{OK: true}
}

func knownAction(a Action) bool {
	for _, k := range KnownActions {
		if a == k {
			return true
		}
	}
	return false
}

// asFloat widens the numeric types a JSON decode or a strategy may hand us.
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
