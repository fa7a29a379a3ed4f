// v3
// internal/kpi/aggregator.go
package kpi

import (
	"log/slog"
	"math"

	"github.com/AgenticFactoria/AgenticFac-SupCon/internal/bus"
)

// Aggregator consumes KPI and result snapshot messages and produces the
// weighted score. It trusts the simulator's reported raw values and only
// applies the documented normalization and weighting; it never recomputes
// factory-internal statistics. Mutated only by the controller goroutine.
type Aggregator struct {
	topics bus.Topics
	log    *slog.Logger

	raw       map[string]float64
	ingested  int
	finalized bool
	result    Score
}

func NewAggregator(topics bus.Topics, log *slog.Logger) *Aggregator {
	return &Aggregator{
		topics: topics,
		log:    log.With(slog.String("component", "kpi-aggregator")),
		raw:    map[string]float64{},
	}
}

// Wants reports whether the aggregator consumes the given topic.
func (a *Aggregator) Wants(topic string) bool {
	return topic == a.topics.KPI() || topic == a.topics.Result()
}

// Ingest folds one snapshot into the current raw values. Later snapshots
// overwrite earlier ones per metric; the final snapshot on result/status
// wins by arriving last. Unknown fields are ignored.
func (a *Aggregator) Ingest(msg *bus.Message) {
	if !a.Wants(msg.Topic) {
		return
	}
	before := len(a.raw)
	for _, c := range Components {
		if v, ok := metricValue(msg.Payload, c.Name); ok {
			a.raw[c.Name] = v
		}
	}
	a.ingested++
	a.log.Debug("snapshot ingested", "topic", msg.Topic, "metricsKnown", len(a.raw), "metricsBefore", before)
}

// Ingested returns how many snapshots have been folded in.
func (a *Aggregator) Ingested() int { return a.ingested }

// Finalize computes the weighted score. Idempotent: the first call fixes
// the result. With no snapshot ingested every component scores its default
// zero, which is a valid result rather than an error.
func (a *Aggregator) Finalize() Score {
	if a.finalized {
		return a.result
	}
	categories := map[string]float64{}
	breakdown := map[string]float64{}
	total := 0.0
	for _, c := range Components {
		n := Normalize(a.raw[c.Name], c.Weight)
		breakdown[c.Name] = round2(n)
		categories[c.Category] += n
		total += n
	}
	for k, v := range categories {
		categories[k] = round2(v)
	}
	a.result = Score{
		Total:      round2(clamp(total, 0, 100)),
		Categories: categories,
		Breakdown:  breakdown,
	}
	a.finalized = true
	return a.result
}

// metricValue finds a metric either as a flat payload field or nested in
// one of the category component maps the simulator's final snapshot uses
// (efficiency_components, quality_cost_components, agv_components).
func metricValue(payload map[string]any, name string) (float64, bool) {
	if v, ok := asFloat(payload[name]); ok {
		return v, true
	}
	for _, key := range []string{"efficiency_components", "quality_cost_components", "agv_components"} {
		if nested, ok := payload[key].(map[string]any); ok {
			if v, ok := asFloat(nested[name]); ok {
				return v, true
			}
		}
	}
	return 0, false
}

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

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
