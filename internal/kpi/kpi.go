// v2
// internal/kpi/kpi.go
// Package kpi turns the simulator's published metric snapshots into the
// final weighted evaluation score.
//
// Normalization: every sub-metric raw value the simulator reports is a
// percentage. A component's normalized score is clamp(raw, 0, 100)/100 ×
// weight × 100, so each component contributes within [0, weight×100], a
// category's score is the sum of its components, and the total is the sum
// over categories clamped to [0, 100]. The mapping is monotonic in every
// raw value and the weights below are authoritative.
package kpi

// Category names as they appear in reports.
const (
	CategoryEfficiency  = "efficiency"
	CategoryQualityCost = "quality_cost"
	CategoryAGV         = "agv"
)

// Component is one weighted sub-metric of the total score.
type Component struct {
	Name     string
	Category string
	Weight   float64
}

// Components is the closed set of scored sub-metrics. Weights within a
// category sum to the category weight (0.40 / 0.30 / 0.30) and all weights
// sum to 1.0.
var Components = []Component{
	{Name: "order_completion", Category: CategoryEfficiency, Weight: 0.16},
	{Name: "production_cycle", Category: CategoryEfficiency, Weight: 0.16},
	{Name: "device_utilization", Category: CategoryEfficiency, Weight: 0.08},
	{Name: "first_pass_rate", Category: CategoryQualityCost, Weight: 0.12},
	{Name: "cost_efficiency", Category: CategoryQualityCost, Weight: 0.18},
	{Name: "charge_strategy", Category: CategoryAGV, Weight: 0.09},
	{Name: "energy_efficiency", Category: CategoryAGV, Weight: 0.12},
	{Name: "utilization", Category: CategoryAGV, Weight: 0.09},
}

// CategoryWeights gives the aggregate weight per category.
func CategoryWeights() map[string]float64 {
	out := map[string]float64{}
	for _, c := range Components {
		out[c.Category] += c.Weight
	}
	return out
}

// Score is the immutable outcome of aggregation.
type Score struct {
	Total      float64            `json:"total_score"`
	Categories map[string]float64 `json:"category_scores"`
	Breakdown  map[string]float64 `json:"component_breakdown"`
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Normalize maps one raw percentage to its weighted contribution.
func Normalize(raw, weight float64) float64 {
	return clamp(raw, 0, 100) * weight
}
