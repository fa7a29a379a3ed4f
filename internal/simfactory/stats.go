// v3
// internal/simfactory/stats.go
package simfactory

import (
	"github.com/AgenticFactoria/AgenticFac-SupCon/internal/kpi"
)

// idealCycleSeconds is the best-case product lead time used as the
// production_cycle reference: one pickup move, one delivery move and the
// station processing window.
const idealCycleSeconds = processingSeconds + 6

// idealEnergyPerProduct is the energy budget a perfectly routed product
// costs, the reference for energy_efficiency.
const idealEnergyPerProduct = 20.0

// stats accumulates the raw KPI metrics the factory reports. The factory
// computes them from its own ground truth; the harness only ever sees the
// published percentages.
type stats struct {
	productsTotal int
	productsDone  int
	firstPass     int
	cycleSum      int

	moves     int
	transfers int
	energy    float64

	chargeStarts    int
	wastefulCharges int
	depletions      int

	agvBusySeconds     int
	agvSeconds         int
	stationBusySeconds int
	stationSeconds     int

	faults int
}

func newStats() *stats { return &stats{} }

func (s *stats) productsAdded(n int)   { s.productsTotal += n }
func (s *stats) moveCompleted()        { s.moves++ }
func (s *stats) transferDone()         { s.transfers++ }
func (s *stats) energySpent(e float64) { s.energy += e }
func (s *stats) busySecond()           { s.agvBusySeconds++ }
func (s *stats) depleted()             { s.depletions++ }
func (s *stats) faultInjected()        { s.faults++ }

func (s *stats) chargeStarted(wasteful bool) {
	s.chargeStarts++
	if wasteful {
		s.wastefulCharges++
	}
}

func (s *stats) productDone(cycle int, firstPass bool) {
	s.productsDone++
	s.cycleSum += cycle
	if firstPass {
		s.firstPass++
	}
}

// tick accumulates the per-second utilization denominators.
func (s *stats) tick(lines map[string]*Line) {
	for _, line := range lines {
		s.agvSeconds += len(line.agvs)
		s.stationSeconds += len(line.stations)
		for _, st := range line.stations {
			if st.state == stationProcessing {
				s.stationBusySeconds++
			}
		}
	}
}

func pct(num, den float64) float64 {
	if den <= 0 {
		return 0
	}
	v := 100 * num / den
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// metrics renders the raw KPI snapshot published on kpi/status. All values
// are percentages in [0,100].
func (s *stats) metrics(simTime int, lines map[string]*Line) map[string]any {
	out := map[string]any{
		"sim_time":           simTime,
		"order_completion":   pct(float64(s.productsDone), float64(s.productsTotal)),
		"device_utilization": pct(float64(s.stationBusySeconds), float64(s.stationSeconds)),
		"first_pass_rate":    pct(float64(s.firstPass), float64(s.productsDone)),
		"utilization":        pct(float64(s.agvBusySeconds), float64(s.agvSeconds)),
	}

	if s.productsDone > 0 {
		avgCycle := float64(s.cycleSum) / float64(s.productsDone)
		out["production_cycle"] = pct(idealCycleSeconds, avgCycle)
	} else {
		out["production_cycle"] = 0.0
	}

	// Cost efficiency degrades with total energy spent beyond what the
	// completed work justifies.
	budget := float64(s.productsDone)*idealEnergyPerProduct + 10
	cost := 2 * pct(budget, budget+s.energy)
	if cost > 100 {
		cost = 100
	}
	out["cost_efficiency"] = cost

	if s.chargeStarts == 0 && s.depletions == 0 {
		out["charge_strategy"] = 100.0
	} else {
		good := s.chargeStarts - s.wastefulCharges
		v := pct(float64(good), float64(s.chargeStarts)) - 25*float64(s.depletions)
		if v < 0 {
			v = 0
		}
		out["charge_strategy"] = v
	}

	if s.energy <= 0 {
		out["energy_efficiency"] = 0.0
	} else {
		out["energy_efficiency"] = pct(float64(s.productsDone)*idealEnergyPerProduct, s.energy)
	}

	return out
}

// finalScore renders the result/status snapshot in the shape strategies
// and the aggregator consume: category scores plus component percentages.
func (s *stats) finalScore(simTime int, lines map[string]*Line) map[string]any {
	raw := s.metrics(simTime, lines)
	components := map[string]map[string]any{
		kpi.CategoryEfficiency:  {},
		kpi.CategoryQualityCost: {},
		kpi.CategoryAGV:         {},
	}
	categoryScore := map[string]float64{}
	total := 0.0
	for _, c := range kpi.Components {
		rawVal, _ := raw[c.Name].(float64)
		components[c.Category][c.Name] = rawVal
		n := kpi.Normalize(rawVal, c.Weight)
		categoryScore[c.Category] += n
		total += n
	}
	return map[string]any{
		"total_score":             total,
		"efficiency_score":        categoryScore[kpi.CategoryEfficiency],
		"efficiency_components":   components[kpi.CategoryEfficiency],
		"quality_cost_score":      categoryScore[kpi.CategoryQualityCost],
		"quality_cost_components": components[kpi.CategoryQualityCost],
		"agv_score":               categoryScore[kpi.CategoryAGV],
		"agv_components":          components[kpi.CategoryAGV],
		"sim_time":                simTime,
	}
}
