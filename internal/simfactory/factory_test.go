// v2
// internal/simfactory/factory_test.go
package simfactory

import (
	"testing"
	"time"

	"github.com/AgenticFactoria/AgenticFac-SupCon/internal/bus"
	"github.com/AgenticFactoria/AgenticFac-SupCon/internal/logging"
)

func newTestFactory(t *testing.T, opts Options) (*Factory, *bus.DirectAdapter, bus.Topics) {
	t.Helper()
	lb := bus.NewLoopback(logging.Discard())
	simEnd := lb.Endpoint("sim")
	harnessEnd := lb.Endpoint("harness")
	topics := bus.NewTopics("TEST")
	f, err := New(opts, simEnd, topics, logging.Discard())
	if err != nil {
		t.Fatal(err)
	}
	return f, harnessEnd, topics
}

// drain pulls every queued message off the harness endpoint.
func drain(end *bus.DirectAdapter) []*bus.Message {
	var out []*bus.Message
	for {
		msg, ok, err := end.Receive(0)
		if err != nil || !ok {
			return out
		}
		out = append(out, msg)
	}
}

func subscribeAll(t *testing.T, end *bus.DirectAdapter, topics bus.Topics, lines []string) {
	t.Helper()
	for _, p := range topics.All(lines) {
		if err := end.Subscribe(p); err != nil {
			t.Fatal(err)
		}
	}
}

func TestDeterministicStatusStream(t *testing.T) {
	run := func() []string {
		f, end, topics := newTestFactory(t, Options{Lines: 1, Seed: 7})
		subscribeAll(t, end, topics, f.LineNames())
		f.AdvanceTo(20)
		var topicsSeen []string
		for _, m := range drain(end) {
			topicsSeen = append(topicsSeen, m.Topic)
		}
		return topicsSeen
	}
	a, b := run(), run()
	if len(a) == 0 {
		t.Fatal("no messages published in 20 sim seconds")
	}
	if len(a) != len(b) {
		t.Fatalf("runs differ in length: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("message %d differs: %s vs %s", i, a[i], b[i])
		}
	}
}

func TestMoveCommandMovesAGV(t *testing.T) {
	f, end, topics := newTestFactory(t, Options{Lines: 1, Seed: 1})
	if err := end.Subscribe(topics.Response("line1")); err != nil {
		t.Fatal(err)
	}
	err := end.Publish(topics.Command("line1"), map[string]any{
		"command_id": "c1",
		"action":     "move",
		"target":     "AGV_1",
		"params":     map[string]any{"target_point": "P3"},
	})
	if err != nil {
		t.Fatal(err)
	}
	f.AdvanceTo(5)

	msgs := drain(end)
	if len(msgs) == 0 {
		t.Fatal("no response ack")
	}
	ack := msgs[0]
	if ack.Payload["command_id"] != "c1" || ack.Payload["rejected"] != false {
		t.Fatalf("unexpected ack %v", ack.Payload)
	}
	agv := f.lines["line1"].agvs["AGV_1"]
	if agv.position != "P3" {
		t.Fatalf("AGV at %s after 5s, want P3", agv.position)
	}
	if agv.battery >= 100 {
		t.Fatal("movement must drain battery")
	}
}

func TestLoadRejectedForNonRawMaterialTarget(t *testing.T) {
	f, end, topics := newTestFactory(t, Options{Lines: 1, Seed: 1})
	if err := end.Subscribe(topics.Response("line1")); err != nil {
		t.Fatal(err)
	}
	err := end.Publish(topics.Command("line1"), map[string]any{
		"command_id": "c2",
		"action":     "load",
		"target":     "Station_3",
		"params":     map[string]any{"product_id": "p1"},
	})
	if err != nil {
		t.Fatal(err)
	}
	f.ProcessPending()

	msgs := drain(end)
	if len(msgs) != 1 {
		t.Fatalf("want 1 response, got %d", len(msgs))
	}
	p := msgs[0].Payload
	if p["rejected"] != true || p["reason"] != "schema_mismatch" {
		t.Fatalf("load against station must reject with schema_mismatch, got %v", p)
	}
}

func TestLoadUnloadProcessCompletesProduct(t *testing.T) {
	f, end, topics := newTestFactory(t, Options{Lines: 1, Seed: 1, OrderInterval: 5})
	if err := end.Subscribe(topics.Response("line1")); err != nil {
		t.Fatal(err)
	}
	cmd := func(id, action, target string, params map[string]any) {
		if err := end.Publish(topics.Command("line1"), map[string]any{
			"command_id": id, "action": action, "target": target, "params": params,
		}); err != nil {
			t.Fatal(err)
		}
	}

	// order_1 with product order_1_p1 exists once the first order fires.
	f.AdvanceTo(5)
	cmd("load1", "load", "RawMaterial", map[string]any{"product_id": "order_1_p1"})
	f.AdvanceTo(6)
	cmd("move1", "move", "AGV_1", map[string]any{"target_point": "P3"})
	f.AdvanceTo(10)
	cmd("unload1", "unload", "AGV_1", nil)
	f.AdvanceTo(17)

	for _, m := range drain(end) {
		if m.Payload["rejected"] == true {
			t.Fatalf("unexpected rejection: %v", m.Payload)
		}
	}
	if f.stats.productsDone != 1 {
		t.Fatalf("productsDone = %d, want 1", f.stats.productsDone)
	}
	if f.stock != rawStock-1 {
		t.Fatalf("stock = %d after one load, want %d", f.stock, rawStock-1)
	}
}

func TestLoadUnknownProductRejected(t *testing.T) {
	f, end, topics := newTestFactory(t, Options{Lines: 1, Seed: 1})
	if err := end.Subscribe(topics.Response("line1")); err != nil {
		t.Fatal(err)
	}
	err := end.Publish(topics.Command("line1"), map[string]any{
		"command_id": "c3",
		"action":     "load",
		"target":     "RawMaterial",
		"params":     map[string]any{"product_id": "no_such_product"},
	})
	if err != nil {
		t.Fatal(err)
	}
	f.ProcessPending()

	msgs := drain(end)
	if len(msgs) != 1 {
		t.Fatalf("want 1 response, got %d", len(msgs))
	}
	p := msgs[0].Payload
	if p["rejected"] != true || p["reason"] != "not_found" {
		t.Fatalf("load of unordered product must reject with not_found, got %v", p)
	}
	if f.stock != rawStock {
		t.Fatalf("rejected load changed stock: %d", f.stock)
	}
}

func TestWarehouseStatusPublished(t *testing.T) {
	f, end, topics := newTestFactory(t, Options{Lines: 1, Seed: 1})
	if err := end.Subscribe(topics.WarehouseStatus("+")); err != nil {
		t.Fatal(err)
	}
	f.AdvanceTo(3)
	if f.SimTime() != 3 {
		t.Fatalf("SimTime = %d after AdvanceTo(3)", f.SimTime())
	}

	msgs := drain(end)
	if len(msgs) == 0 {
		t.Fatal("no warehouse status published while stepping")
	}
	p := msgs[0].Payload
	if msgs[0].Topic != topics.WarehouseStatus(rawMaterialID) {
		t.Fatalf("unexpected topic %s", msgs[0].Topic)
	}
	if p["class"] != "raw_material" {
		t.Fatalf("warehouse status missing raw_material class: %v", p)
	}
	if p["stock"] != rawStock {
		t.Fatalf("stock = %v, want %d", p["stock"], rawStock)
	}
}

func TestGetResultPublishesSnapshot(t *testing.T) {
	f, end, topics := newTestFactory(t, Options{Lines: 1, Seed: 1})
	if err := end.Subscribe(topics.Result()); err != nil {
		t.Fatal(err)
	}
	f.AdvanceTo(3)
	drain(end)
	err := end.Publish(topics.Command("line1"), map[string]any{
		"command_id": "r1", "action": "get_result", "target": "factory", "params": map[string]any{},
	})
	if err != nil {
		t.Fatal(err)
	}
	f.ProcessPending()

	var snapshot *bus.Message
	deadline := time.Now().Add(time.Second)
	for snapshot == nil && time.Now().Before(deadline) {
		msg, ok, _ := end.Receive(10 * time.Millisecond)
		if ok && msg.Topic == topics.Result() {
			snapshot = msg
		}
	}
	if snapshot == nil {
		t.Fatal("no result/status snapshot published")
	}
	if _, ok := snapshot.Payload["total_score"].(float64); !ok {
		t.Fatalf("snapshot missing total_score: %v", snapshot.Payload)
	}
}

func TestChargeCommand(t *testing.T) {
	f, end, topics := newTestFactory(t, Options{Lines: 1, Seed: 1})
	if err := end.Subscribe(topics.Response("line1")); err != nil {
		t.Fatal(err)
	}
	agv := f.lines["line1"].agvs["AGV_1"]
	agv.battery = 20

	err := end.Publish(topics.Command("line1"), map[string]any{
		"command_id": "ch1", "action": "charge", "target": "AGV_1",
		"params": map[string]any{"target_level": 60.0},
	})
	if err != nil {
		t.Fatal(err)
	}
	f.AdvanceTo(10)
	if agv.battery < 60 {
		t.Fatalf("battery %v after charging window, want >= 60", agv.battery)
	}
	if f.stats.chargeStarts != 1 || f.stats.wastefulCharges != 0 {
		t.Fatalf("charge bookkeeping: starts=%d wasteful=%d", f.stats.chargeStarts, f.stats.wastefulCharges)
	}
}
