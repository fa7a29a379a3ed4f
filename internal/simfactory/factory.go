// v4
// internal/simfactory/factory.go
// Package simfactory is the deterministic in-process factory used in
// direct (offline) mode. It models production lines with AGVs, stations
// and conveyors at one-second resolution, publishes the full status topic
// taxonomy onto a loopback bus, and applies strategy commands received on
// the command topics. Given a seed and no fault injection, a run is fully
// reproducible.
package simfactory

import (
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/AgenticFactoria/AgenticFac-SupCon/internal/bus"
)

// Options configures a simulated factory.
type Options struct {
	Lines          int
	AGVsPerLine    int
	Seed           int64
	FaultInjection bool
	// OrderInterval is how many simulated seconds pass between generated
	// orders.
	OrderInterval int
	// KPIInterval is how many simulated seconds pass between kpi/status
	// snapshots.
	KPIInterval int
}

func (o *Options) defaults() {
	if o.Lines <= 0 {
		o.Lines = 1
	}
	if o.AGVsPerLine <= 0 {
		o.AGVsPerLine = 2
	}
	if o.OrderInterval <= 0 {
		o.OrderInterval = 5
	}
	if o.KPIInterval <= 0 {
		o.KPIInterval = 5
	}
}

// Factory is the simulator root. It is advanced only by the evaluation
// controller goroutine; it is not safe for concurrent use.
type Factory struct {
	opts    Options
	adapter bus.Adapter
	topics  bus.Topics
	rng     *rand.Rand
	log     *slog.Logger

	simTime int
	lines   map[string]*Line
	orders  *orderBook
	stats   *stats
	stock   int
}

// New attaches a factory to its side of the bus and subscribes to the
// command topics. The adapter is normally a loopback endpoint.
func New(opts Options, adapter bus.Adapter, topics bus.Topics, log *slog.Logger) (*Factory, error) {
	opts.defaults()
	f := &Factory{
		opts:    opts,
		adapter: adapter,
		topics:  topics,
		rng:     rand.New(rand.NewSource(opts.Seed)),
		log:     log.With(slog.String("component", "simfactory")),
		lines:   map[string]*Line{},
		orders:  newOrderBook(),
		stats:   newStats(),
		stock:   rawStock,
	}
	for i := 1; i <= opts.Lines; i++ {
		name := fmt.Sprintf("line%d", i)
		f.lines[name] = newLine(name, opts.AGVsPerLine)
	}
	if err := adapter.Subscribe(topics.CommandWildcard()); err != nil {
		return nil, fmt.Errorf("subscribe commands: %w", err)
	}
	return f, nil
}

// LineNames returns the configured production line names.
func (f *Factory) LineNames() []string {
	out := make([]string, 0, len(f.lines))
	for i := 1; i <= f.opts.Lines; i++ {
		out = append(out, fmt.Sprintf("line%d", i))
	}
	return out
}

// SimTime returns the current simulated second.
func (f *Factory) SimTime() int { return f.simTime }

// AdvanceTo steps the simulation forward to the target simulated second,
// processing queued commands at every step boundary. Stepping never goes
// backwards.
func (f *Factory) AdvanceTo(target int) {
	for f.simTime < target {
		f.ProcessPending()
		f.simTime++
		f.step()
	}
	f.ProcessPending()
}

// ProcessPending drains and applies every command currently queued on the
// factory's bus endpoint without advancing simulated time. Used at the end
// of a run so a final get_result is answered after the clock expired.
func (f *Factory) ProcessPending() {
	for {
		msg, ok, err := f.adapter.Receive(0)
		if err != nil || !ok {
			return
		}
		f.handleCommand(msg)
	}
}

// step advances exactly one simulated second.
func (f *Factory) step() {
	if f.simTime%f.opts.OrderInterval == 0 {
		f.generateOrder()
	}
	f.publishWarehouse()
	for _, name := range f.LineNames() {
		line := f.lines[name]
		f.stepLine(line)
		if f.opts.FaultInjection {
			f.maybeInjectFault(line)
		}
		f.publishLineStatus(line)
	}
	f.stats.tick(f.lines)
	if f.simTime%f.opts.KPIInterval == 0 {
		f.publishKPI()
	}
}

func (f *Factory) stepLine(line *Line) {
	for _, agv := range line.orderedAGVs() {
		agv.step(f.stats)
	}
	for _, st := range line.orderedStations() {
		if done := st.step(); done != "" {
			f.completeProduct(line, st, done)
		}
	}
	for _, cv := range line.orderedConveyors() {
		cv.step()
	}
}

func (f *Factory) completeProduct(line *Line, st *Station, productID string) {
	firstPass := !st.faulted
	cycle, known := f.orders.complete(productID, f.simTime, firstPass)
	if !known {
		cycle = idealCycleSeconds
	}
	f.stats.productDone(cycle, firstPass)
	f.log.Info("product completed", "line", line.name, "station", st.id, "product", productID, "firstPass", firstPass)
}

func (f *Factory) generateOrder() {
	order := f.orders.generate(f.simTime, f.rng)
	f.stats.productsAdded(len(order.products))
	f.publish(f.topics.Orders(), map[string]any{
		"order_id":   order.id,
		"products":   order.products,
		"created_at": order.createdAt,
	})
}

func (f *Factory) maybeInjectFault(line *Line) {
	// One station fault per line at a time, low probability per second.
	if f.rng.Float64() > 0.02 {
		return
	}
	for _, st := range line.orderedStations() {
		if st.state == stationProcessing && !st.faulted {
			st.fault(3 + f.rng.Intn(5))
			f.stats.faultInjected()
			f.publish(f.topics.Alerts(line.name), map[string]any{
				"alert_type": "station_fault",
				"device_id":  st.id,
				"sim_time":   f.simTime,
			})
			return
		}
	}
}

func (f *Factory) publishWarehouse() {
	f.publish(f.topics.WarehouseStatus(rawMaterialID), map[string]any{
		"warehouse_id": rawMaterialID,
		"class":        "raw_material",
		"stock":        f.stock,
		"sim_time":     f.simTime,
	})
}

func (f *Factory) publishLineStatus(line *Line) {
	for _, agv := range line.orderedAGVs() {
		f.publish(f.topics.AGVStatus(line.name, agv.id), agv.status())
	}
	for _, st := range line.orderedStations() {
		f.publish(f.topics.StationStatus(line.name, st.id), st.status())
	}
	for _, cv := range line.orderedConveyors() {
		f.publish(f.topics.ConveyorStatus(line.name, cv.id), cv.status())
	}
}

func (f *Factory) publishKPI() {
	f.publish(f.topics.KPI(), f.stats.metrics(f.simTime, f.lines))
}

func (f *Factory) publish(topic string, payload map[string]any) {
	if err := f.adapter.Publish(topic, payload); err != nil {
		f.log.Error("publish failed", "topic", topic, "error", err)
	}
}
