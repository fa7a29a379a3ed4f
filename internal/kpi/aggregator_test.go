// v2
// internal/kpi/aggregator_test.go
package kpi

import (
	"math"
	"testing"

	"github.com/AgenticFactoria/AgenticFac-SupCon/internal/bus"
	"github.com/AgenticFactoria/AgenticFac-SupCon/internal/logging"
)

func TestWeightsSumToOne(t *testing.T) {
	sum := 0.0
	for _, c := range Components {
		sum += c.Weight
	}
	if math.Abs(sum-1.0) > 1e-9 {
		t.Fatalf("component weights sum to %v, want 1.0", sum)
	}
	cw := CategoryWeights()
	if math.Abs(cw[CategoryEfficiency]-0.40) > 1e-9 ||
		math.Abs(cw[CategoryQualityCost]-0.30) > 1e-9 ||
		math.Abs(cw[CategoryAGV]-0.30) > 1e-9 {
		t.Fatalf("category weights %v, want 0.40/0.30/0.30", cw)
	}
}

func newAggregator() *Aggregator {
	return NewAggregator(bus.NewTopics("NLDF"), logging.Discard())
}

func TestFinalizeWithoutSnapshots(t *testing.T) {
	a := newAggregator()
	s := a.Finalize()
	if s.Total != 0 {
		t.Fatalf("empty run total = %v, want 0", s.Total)
	}
	for name, v := range s.Breakdown {
		if v != 0 {
			t.Fatalf("component %s = %v, want 0", name, v)
		}
	}
	if len(s.Breakdown) != len(Components) {
		t.Fatalf("breakdown has %d entries, want %d", len(s.Breakdown), len(Components))
	}
}

func TestIngestFlatSnapshot(t *testing.T) {
	a := newAggregator()
	a.Ingest(&bus.Message{Topic: "NLDF/kpi/status", Payload: map[string]any{
		"order_completion":   100.0,
		"production_cycle":   100.0,
		"device_utilization": 100.0,
		"first_pass_rate":    100.0,
		"cost_efficiency":    100.0,
		"charge_strategy":    100.0,
		"energy_efficiency":  100.0,
		"utilization":        100.0,
	}})
	s := a.Finalize()
	if s.Total != 100 {
		t.Fatalf("perfect run total = %v, want 100", s.Total)
	}
	if s.Categories[CategoryEfficiency] != 40 || s.Categories[CategoryQualityCost] != 30 || s.Categories[CategoryAGV] != 30 {
		t.Fatalf("category scores %v, want 40/30/30", s.Categories)
	}
}

func TestIngestNestedResultSnapshot(t *testing.T) {
	a := newAggregator()
	a.Ingest(&bus.Message{Topic: "NLDF/result/status", Payload: map[string]any{
		"total_score":           12.34,
		"efficiency_components": map[string]any{"order_completion": 50.0},
		"agv_components":        map[string]any{"charge_strategy": 100.0, "utilization": 25.0},
	}})
	s := a.Finalize()
	// 50*.16 + 100*.09 + 25*.09 = 8 + 9 + 2.25
	if want := 19.25; s.Total != want {
		t.Fatalf("total = %v, want %v", s.Total, want)
	}
	if s.Breakdown["order_completion"] != 8.0 {
		t.Fatalf("order_completion = %v, want 8.0", s.Breakdown["order_completion"])
	}
}

func TestLaterSnapshotWins(t *testing.T) {
	a := newAggregator()
	a.Ingest(&bus.Message{Topic: "NLDF/kpi/status", Payload: map[string]any{"order_completion": 10.0}})
	a.Ingest(&bus.Message{Topic: "NLDF/kpi/status", Payload: map[string]any{"order_completion": 60.0}})
	s := a.Finalize()
	if got := s.Breakdown["order_completion"]; got != round2(60*0.16) {
		t.Fatalf("order_completion = %v, want %v", got, 60*0.16)
	}
	if a.Ingested() != 2 {
		t.Fatalf("ingested = %d, want 2", a.Ingested())
	}
}

func TestOutOfRangeRawsClamped(t *testing.T) {
	a := newAggregator()
	a.Ingest(&bus.Message{Topic: "NLDF/kpi/status", Payload: map[string]any{
		"order_completion": 900.0,
		"cost_efficiency":  -50.0,
	}})
	s := a.Finalize()
	if s.Breakdown["order_completion"] != 16.0 {
		t.Fatalf("overshoot not clamped: %v", s.Breakdown["order_completion"])
	}
	if s.Breakdown["cost_efficiency"] != 0.0 {
		t.Fatalf("negative raw not clamped: %v", s.Breakdown["cost_efficiency"])
	}
	if s.Total < 0 || s.Total > 100 {
		t.Fatalf("total %v outside [0,100]", s.Total)
	}
}

func TestFinalizeIdempotent(t *testing.T) {
	a := newAggregator()
	a.Ingest(&bus.Message{Topic: "NLDF/kpi/status", Payload: map[string]any{"utilization": 40.0}})
	first := a.Finalize()
	// Late messages after finalization must not change the result.
	a.Ingest(&bus.Message{Topic: "NLDF/kpi/status", Payload: map[string]any{"utilization": 99.0}})
	second := a.Finalize()
	if first.Total != second.Total {
		t.Fatalf("finalize not idempotent: %v vs %v", first.Total, second.Total)
	}
}

func TestWantsOnlyKPITopics(t *testing.T) {
	a := newAggregator()
	if !a.Wants("NLDF/kpi/status") || !a.Wants("NLDF/result/status") {
		t.Fatal("aggregator must want kpi and result topics")
	}
	if a.Wants("NLDF/orders/status") || a.Wants("NLDF/line1/alerts") {
		t.Fatal("aggregator must ignore non-KPI topics")
	}
}
