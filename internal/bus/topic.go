// v2
// internal/bus/topic.go
package bus

import (
	"fmt"
	"strings"
)

// Topics builds and parses every topic in the factory taxonomy under one
// configured root namespace.
type Topics struct {
	Root string
}

func NewTopics(root string) Topics { return Topics{Root: root} }

func (t Topics) Orders() string { return t.Root + "/orders/status" }
func (t Topics) KPI() string    { return t.Root + "/kpi/status" }
func (t Topics) Result() string { return t.Root + "/result/status" }

func (t Topics) WarehouseStatus(id string) string {
	return fmt.Sprintf("%s/warehouse/%s/status", t.Root, id)
}

func (t Topics) AGVStatus(line, id string) string {
	return fmt.Sprintf("%s/%s/agv/%s/status", t.Root, line, id)
}

func (t Topics) StationStatus(line, id string) string {
	return fmt.Sprintf("%s/%s/station/%s/status", t.Root, line, id)
}

func (t Topics) ConveyorStatus(line, id string) string {
	return fmt.Sprintf("%s/%s/conveyor/%s/status", t.Root, line, id)
}

func (t Topics) Alerts(line string) string { return fmt.Sprintf("%s/%s/alerts", t.Root, line) }

func (t Topics) Command(line string) string { return fmt.Sprintf("%s/command/%s", t.Root, line) }

func (t Topics) Response(line string) string { return fmt.Sprintf("%s/response/%s", t.Root, line) }

func (t Topics) CommandWildcard() string { return t.Root + "/command/+" }
func (t Topics) ResponseWildcard() string { return t.Root + "/response/+" }

// All returns every simulator→harness pattern for the given production
// lines. The harness subscribes to the full taxonomy regardless of which
// topics a strategy actually reads.
func (t Topics) All(lines []string) []string {
	out := []string{
		t.Orders(),
		t.KPI(),
		t.Result(),
		t.WarehouseStatus("+"),
	}
	for _, line := range lines {
		out = append(out,
			t.AGVStatus(line, "+"),
			t.StationStatus(line, "+"),
			t.ConveyorStatus(line, "+"),
			t.Alerts(line),
			t.Response(line),
		)
	}
	return out
}

// ParseCommandLine extracts the line id from a command topic, e.g.
// "{root}/command/line1" -> "line1".
func (t Topics) ParseCommandLine(topic string) (string, bool) {
	prefix := t.Root + "/command/"
	if !strings.HasPrefix(topic, prefix) {
		return "", false
	}
	line := strings.TrimPrefix(topic, prefix)
	if line == "" || strings.Contains(line, "/") {
		return "", false
	}
	return line, true
}

// LineFromTopic extracts a "lineN" segment from a status topic, falling
// back to ok=false when the topic carries no line component.
func LineFromTopic(topic string) (string, bool) {
	for _, part := range strings.Split(topic, "/") {
		if strings.HasPrefix(part, "line") && len(part) > 4 {
			return part, true
		}
	}
	return "", false
}

// Match reports whether topic matches pattern, where a `+` segment matches
// exactly one topic level. No multi-level wildcard is supported.
func Match(pattern, topic string) bool {
	if pattern == topic {
		return true
	}
	pp := strings.Split(pattern, "/")
	tp := strings.Split(topic, "/")
	if len(pp) != len(tp) {
		return false
	}
	for i := range pp {
		if pp[i] == "+" {
			continue
		}
		if pp[i] != tp[i] {
			return false
		}
	}
	return true
}
