// v4
// internal/simfactory/devices.go
package simfactory

import (
	"fmt"
	"sort"
)

const (
	rawMaterialID = "RawMaterial"
	rawStock      = 1000

	// waypointCount matches the fixed P0..P9 movement grid.
	waypointCount = 10

	// processingSeconds is how long a station works one product.
	processingSeconds = 4

	// batteryDrainPerMove is the charge an AGV spends crossing one
	// waypoint; batteryChargePerSec is what a charger restores per second.
	batteryDrainPerMove = 2.0
	batteryChargePerSec = 5.0
	batteryLowThreshold = 30.0
	chargeWastefulAbove = 50.0
)

// Line groups the devices of one production line.
type Line struct {
	name      string
	agvs      map[string]*AGV
	stations  map[string]*Station
	conveyors map[string]*Conveyor
}

func newLine(name string, agvCount int) *Line {
	l := &Line{
		name:      name,
		agvs:      map[string]*AGV{},
		stations:  map[string]*Station{},
		conveyors: map[string]*Conveyor{},
	}
	for i := 1; i <= agvCount; i++ {
		id := fmt.Sprintf("AGV_%d", i)
		l.agvs[id] = &AGV{id: id, battery: 100, position: "P0", state: agvIdle}
	}
	for i := 1; i <= 3; i++ {
		id := fmt.Sprintf("Station_%d", i)
		// Station_i sits at waypoint P(2i+1); AGVs unload there.
		l.stations[id] = &Station{id: id, point: fmt.Sprintf("P%d", 2*i+1), state: stationIdle}
	}
	l.conveyors["Conveyor_1"] = &Conveyor{id: "Conveyor_1"}
	return l
}

func (l *Line) orderedAGVs() []*AGV {
	keys := make([]string, 0, len(l.agvs))
	for k := range l.agvs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]*AGV, 0, len(keys))
	for _, k := range keys {
		out = append(out, l.agvs[k])
	}
	return out
}

func (l *Line) orderedStations() []*Station {
	keys := make([]string, 0, len(l.stations))
	for k := range l.stations {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]*Station, 0, len(keys))
	for _, k := range keys {
		out = append(out, l.stations[k])
	}
	return out
}

func (l *Line) orderedConveyors() []*Conveyor {
	keys := make([]string, 0, len(l.conveyors))
	for k := range l.conveyors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]*Conveyor, 0, len(keys))
	for _, k := range keys {
		out = append(out, l.conveyors[k])
	}
	return out
}

// stationAt returns the station whose service point is the waypoint, if any.
func (l *Line) stationAt(point string) *Station {
	for _, st := range l.orderedStations() {
		if st.point == point {
			return st
		}
	}
	return nil
}

type agvState string

const (
	agvIdle     agvState = "idle"
	agvMoving   agvState = "moving"
	agvCharging agvState = "charging"
)

// AGV is an automated guided vehicle moving along the P0..P9 grid.
type AGV struct {
	id           string
	battery      float64
	position     string
	state        agvState
	carrying     string
	moveTarget   string
	moveRemain   int
	chargeTarget float64
}

func waypointIndex(p string) int {
	if len(p) < 2 || p[0] != 'P' {
		return -1
	}
	n := 0
	for _, r := range p[1:] {
		if r < '0' || r > '9' {
			return -1
		}
		n = n*10 + int(r-'0')
	}
	if n >= waypointCount {
		return -1
	}
	return n
}

func (a *AGV) startMove(target string) {
	from := waypointIndex(a.position)
	to := waypointIndex(target)
	dist := to - from
	if dist < 0 {
		dist = -dist
	}
	a.moveTarget = target
	a.moveRemain = dist
	a.state = agvMoving
	if dist == 0 {
		a.state = agvIdle
	}
}

func (a *AGV) startCharge(target float64) {
	a.chargeTarget = target
	a.state = agvCharging
}

func (a *AGV) step(s *stats) {
	switch a.state {
	case agvMoving:
		if a.battery < batteryDrainPerMove {
			// Stranded until charged.
			s.depleted()
			a.state = agvIdle
			return
		}
		a.battery -= batteryDrainPerMove
		a.moveRemain--
		s.energySpent(batteryDrainPerMove)
		s.busySecond()
		if a.moveRemain <= 0 {
			a.position = a.moveTarget
			a.state = agvIdle
			s.moveCompleted()
		}
	case agvCharging:
		a.battery += batteryChargePerSec
		s.busySecond()
		if a.battery >= a.chargeTarget {
			if a.battery > 100 {
				a.battery = 100
			}
			a.state = agvIdle
		}
	}
}

func (a *AGV) status() map[string]any {
	return map[string]any{
		"agv_id":        a.id,
		"battery_level": a.battery,
		"position":      a.position,
		"status":        string(a.state),
		"payload":       a.carrying,
	}
}

type stationState string

const (
	stationIdle       stationState = "idle"
	stationProcessing stationState = "processing"
)

// Station processes one product at a time at its service waypoint.
type Station struct {
	id        string
	point     string
	state     stationState
	product   string
	remaining int
	faulted   bool
	faultLeft int
}

func (s *Station) accept(productID string) bool {
	if s.state != stationIdle {
		return false
	}
	s.state = stationProcessing
	s.product = productID
	s.remaining = processingSeconds
	s.faulted = false
	return true
}

func (s *Station) fault(seconds int) {
	s.faulted = true
	s.faultLeft = seconds
}

// step advances one second and returns the finished product id, if any.
func (s *Station) step() string {
	if s.state != stationProcessing {
		return ""
	}
	if s.faultLeft > 0 {
		s.faultLeft--
		return ""
	}
	s.remaining--
	if s.remaining > 0 {
		return ""
	}
	done := s.product
	s.state = stationIdle
	s.product = ""
	return done
}

func (s *Station) status() map[string]any {
	return map[string]any{
		"station_id": s.id,
		"status":     string(s.state),
		"product":    s.product,
		"faulted":    s.faulted,
	}
}

// Conveyor is passive in this model; it reports a steady running state so
// the full topic taxonomy stays live.
type Conveyor struct {
	id    string
	moved int
}

func (c *Conveyor) step() { c.moved++ }

func (c *Conveyor) status() map[string]any {
	return map[string]any{
		"conveyor_id": c.id,
		"status":      "running",
		"items_moved": c.moved,
	}
}
