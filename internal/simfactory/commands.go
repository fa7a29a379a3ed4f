// v3
// internal/simfactory/commands.go
package simfactory

import (
	"strconv"

	"github.com/AgenticFactoria/AgenticFac-SupCon/internal/bus"
	"github.com/AgenticFactoria/AgenticFac-SupCon/internal/command"
)

// handleCommand applies one command received on {root}/command/{line}. The
// outcome, success or rejection, is acknowledged on the line's response
// topic. Semantic rejections the harness-side validator cannot see (load
// against a non-raw-material device, unknown AGV) surface here with the
// rejected flag set so the harness counts them identically.
func (f *Factory) handleCommand(msg *bus.Message) {
	lineID, ok := f.topics.ParseCommandLine(msg.Topic)
	if !ok {
		f.log.Error("unparseable command topic", "topic", msg.Topic)
		return
	}
	cmd := decodeCommand(msg.Payload)
	line, ok := f.lines[lineID]
	if !ok {
		f.respondReject(lineID, cmd.CommandID, "not_found", "production line "+lineID+" not found")
		return
	}

	switch cmd.Action {
	case command.ActionMove:
		f.applyMove(line, cmd)
	case command.ActionLoad:
		f.applyLoad(line, cmd)
	case command.ActionUnload:
		f.applyUnload(line, cmd)
	case command.ActionCharge:
		f.applyCharge(line, cmd)
	case command.ActionGetResult:
		f.applyGetResult(lineID, cmd)
	default:
		f.respondReject(line.name, cmd.CommandID, "unknown_action", "unknown action "+string(cmd.Action))
	}
}

func decodeCommand(payload map[string]any) *command.Command {
	cmd := &command.Command{}
	if v, ok := payload["command_id"].(string); ok {
		cmd.CommandID = v
	}
	if v, ok := payload["action"].(string); ok {
		cmd.Action = command.Action(v)
	}
	if v, ok := payload["target"].(string); ok {
		cmd.Target = v
	}
	if v, ok := payload["params"].(map[string]any); ok {
		cmd.Params = v
	}
	return cmd
}

func (f *Factory) applyMove(line *Line, cmd *command.Command) {
	agv, ok := line.agvs[cmd.Target]
	if !ok {
		f.respondReject(line.name, cmd.CommandID, "not_found", "AGV "+cmd.Target+" not found in "+line.name)
		return
	}
	point, _ := cmd.Params["target_point"].(string)
	if waypointIndex(point) < 0 {
		f.respondReject(line.name, cmd.CommandID, "schema_mismatch", "unknown target_point "+point)
		return
	}
	agv.startMove(point)
	f.respondOK(line.name, cmd.CommandID, agv.id+" moving to "+point)
}

func (f *Factory) applyLoad(line *Line, cmd *command.Command) {
	// Loading is only defined against the raw-material warehouse.
	if cmd.Target != rawMaterialID {
		f.respondReject(line.name, cmd.CommandID, "schema_mismatch", "load target "+cmd.Target+" is not a raw-material device")
		return
	}
	productID, _ := cmd.Params["product_id"].(string)
	if productID == "" {
		f.respondReject(line.name, cmd.CommandID, "schema_mismatch", "product_id required for load")
		return
	}
	if !f.orders.knownProduct(productID) {
		f.respondReject(line.name, cmd.CommandID, "not_found", "no order asked for product "+productID)
		return
	}
	// The raw-material pickup sits at P0; the first empty AGV there loads.
	for _, agv := range line.orderedAGVs() {
		if agv.position == "P0" && agv.carrying == "" && agv.state == agvIdle {
			agv.carrying = productID
			f.stock--
			f.stats.transferDone()
			f.respondOK(line.name, cmd.CommandID, agv.id+" loaded "+productID)
			return
		}
	}
	f.respondReject(line.name, cmd.CommandID, "not_ready", "no idle empty AGV at P0 to load")
}

func (f *Factory) applyUnload(line *Line, cmd *command.Command) {
	agv, ok := line.agvs[cmd.Target]
	if !ok {
		f.respondReject(line.name, cmd.CommandID, "not_found", "AGV "+cmd.Target+" not found in "+line.name)
		return
	}
	if agv.carrying == "" {
		f.respondReject(line.name, cmd.CommandID, "not_ready", agv.id+" carries nothing")
		return
	}
	st := line.stationAt(agv.position)
	if st == nil {
		f.respondReject(line.name, cmd.CommandID, "not_ready", "no station at "+agv.position)
		return
	}
	if !st.accept(agv.carrying) {
		f.respondReject(line.name, cmd.CommandID, "not_ready", st.id+" is busy")
		return
	}
	product := agv.carrying
	agv.carrying = ""
	f.stats.transferDone()
	f.respondOK(line.name, cmd.CommandID, agv.id+" unloaded "+product+" to "+st.id)
}

func (f *Factory) applyCharge(line *Line, cmd *command.Command) {
	agv, ok := line.agvs[cmd.Target]
	if !ok {
		f.respondReject(line.name, cmd.CommandID, "not_found", "AGV "+cmd.Target+" not found in "+line.name)
		return
	}
	level, ok := numericParam(cmd.Params, "target_level")
	if !ok {
		level = command.DefaultChargeLevel
	}
	f.stats.chargeStarted(agv.battery > chargeWastefulAbove)
	agv.startCharge(level)
	f.respondOK(line.name, cmd.CommandID, agv.id+" charging toward "+formatLevel(level))
}

func (f *Factory) applyGetResult(lineID string, cmd *command.Command) {
	f.publish(f.topics.Result(), f.stats.finalScore(f.simTime, f.lines))
	f.respondOK(lineID, cmd.CommandID, "Results published to "+f.topics.Result())
}

func (f *Factory) respondOK(lineID, commandID, text string) {
	f.publish(f.topics.Response(lineID), map[string]any{
		"command_id": commandID,
		"response":   text,
		"rejected":   false,
		"sim_time":   f.simTime,
	})
}

func (f *Factory) respondReject(lineID, commandID, reason, text string) {
	f.publish(f.topics.Response(lineID), map[string]any{
		"command_id": commandID,
		"response":   text,
		"rejected":   true,
		"reason":     reason,
		"sim_time":   f.simTime,
	})
}

func numericParam(params map[string]any, key string) (float64, bool) {
	switch v := params[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

func formatLevel(level float64) string {
	return strconv.FormatFloat(level, 'f', -1, 64) + "%"
}
