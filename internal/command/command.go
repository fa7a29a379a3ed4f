// v2
// internal/command/command.go
// Package command defines the strategy→simulator command schema, its
// validation rules and the dispatch path back onto the bus.
package command

// Action is the closed set of operations a strategy may request.
type Action string

const (
	ActionMove      Action = "move"
	ActionLoad      Action = "load"
	ActionUnload    Action = "unload"
	ActionCharge    Action = "charge"
	ActionGetResult Action = "get_result"
)

// KnownActions lists every accepted action value.
var KnownActions = []Action{ActionMove, ActionLoad, ActionUnload, ActionCharge, ActionGetResult}

// DefaultChargeLevel is applied when a charge command omits target_level.
const DefaultChargeLevel = 80.0

// Command is the exact wire shape published on {root}/command/{line_id}.
type Command struct {
	CommandID string         `json:"command_id,omitempty"`
	Action    Action         `json:"action"`
	Target    string         `json:"target"`
	Params    map[string]any `json:"params"`
}

// Payload renders the command as a bus payload map matching the wire schema.
func (c *Command) Payload() map[string]any {
	params := c.Params
	if params == nil {
		params = map[string]any{}
	}
	return map[string]any{
		"command_id": c.CommandID,
		"action":     string(c.Action),
		"target":     c.Target,
		"params":     params,
	}
}

// Waypoints is the fixed set of named movement targets.
var Waypoints = map[string]bool{
	"P0": true, "P1": true, "P2": true, "P3": true, "P4": true,
	"P5": true, "P6": true, "P7": true, "P8": true, "P9": true,
}
