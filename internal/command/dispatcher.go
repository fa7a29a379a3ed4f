// v3
// internal/command/dispatcher.go
package command

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/AgenticFactoria/AgenticFac-SupCon/internal/bus"
)

// Dispatcher forwards validated commands to the simulator over the bus.
// Dispatch is fire-and-forget relative to the evaluation loop: the ack
// arrives later on the response topic and is handled by the controller.
type Dispatcher struct {
	adapter     bus.Adapter
	topics      bus.Topics
	defaultLine string
	log         *slog.Logger
}

func NewDispatcher(adapter bus.Adapter, topics bus.Topics, defaultLine string, log *slog.Logger) *Dispatcher {
	return &Dispatcher{
		adapter:     adapter,
		topics:      topics,
		defaultLine: defaultLine,
		log:         log.With(slog.String("component", "dispatcher")),
	}
}

// Dispatch publishes the command on {root}/command/{line}. The line is
// taken from a "lineN/" prefix on the target when present, else from the
// topic the triggering message arrived on, else the default line.
func (d *Dispatcher) Dispatch(c *Command, sourceTopic string) error {
	line := d.resolveLine(c, sourceTopic)
	topic := d.topics.Command(line)
	if err := d.adapter.Publish(topic, c.Payload()); err != nil {
		return fmt.Errorf("dispatch %s to %s: %w", c.Action, topic, err)
	}
	d.log.Info("command dispatched", "commandId", c.CommandID, "action", c.Action, "target", c.Target, "line", line)
	return nil
}

func (d *Dispatcher) resolveLine(c *Command, sourceTopic string) string {
	if line, device, ok := SplitLineTarget(c.Target); ok {
		c.Target = device
		return line
	}
	if line, ok := bus.LineFromTopic(sourceTopic); ok {
		return line
	}
	return d.defaultLine
}

// SplitLineTarget splits targets of the form "line3/AGV_1" into the line
// and the bare device id. Targets without a line prefix pass through.
func SplitLineTarget(target string) (line, device string, ok bool) {
	prefix, device, found := strings.Cut(target, "/")
	if !found {
		return "", target, false
	}
	if !strings.HasPrefix(prefix, "line") || len(prefix) == 4 {
		return "", target, false
	}
	for _, r := range prefix[4:] {
		if r < '0' || r > '9' {
			return "", target, false
		}
	}
	return prefix, device, true
}
