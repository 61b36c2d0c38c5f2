package telemetry

import "sort"

// Collector accumulates events within step windows and produces
// WindowStats.
type Collector struct {
	windowSteps int64
	windowStart int64

	births   int
	deaths   int
	collects int
	connects int
	faults   int
}

// NewCollector creates a stats collector flushing every windowSteps steps.
func NewCollector(windowSteps int) *Collector {
	if windowSteps < 1 {
		windowSteps = 1
	}
	return &Collector{windowSteps: int64(windowSteps)}
}

// RecordBirth records a robot entering the world.
func (c *Collector) RecordBirth() { c.births++ }

// RecordDeath records a robot leaving the world.
func (c *Collector) RecordDeath() { c.deaths++ }

// RecordCollect records a successful resource collection.
func (c *Collector) RecordCollect() { c.collects++ }

// RecordConnect records a new connection edge.
func (c *Collector) RecordConnect() { c.connects++ }

// RecordFault records a per-robot fault skipped by the step loop.
func (c *Collector) RecordFault() { c.faults++ }

// ShouldFlush returns true when the current window is complete.
func (c *Collector) ShouldFlush(step int64) bool {
	return step-c.windowStart >= c.windowSteps
}

// Flush builds the WindowStats for the closing window and resets the event
// counters. energies and resourceValues are sampled by the caller at
// window end.
func (c *Collector) Flush(step int64, robots, resources, edges int, energies, resourceValues []float64) WindowStats {
	ws := WindowStats{
		WindowEnd: step,
		Robots:    robots,
		Resources: resources,
		Births:    c.births,
		Deaths:    c.deaths,
		Collects:  c.collects,
		Connects:  c.connects,
		Faults:    c.faults,
		Edges:     edges,
	}

	if len(energies) > 0 {
		sort.Float64s(energies)
		sum := 0.0
		for _, e := range energies {
			sum += e
		}
		ws.EnergyMean = sum / float64(len(energies))
		ws.EnergyP10 = Percentile(energies, 0.10)
		ws.EnergyP50 = Percentile(energies, 0.50)
		ws.EnergyP90 = Percentile(energies, 0.90)
	}
	if len(resourceValues) > 0 {
		sum := 0.0
		for _, v := range resourceValues {
			sum += v
		}
		ws.ResourceValueMean = sum / float64(len(resourceValues))
	}

	c.windowStart = step
	c.births, c.deaths, c.collects, c.connects, c.faults = 0, 0, 0, 0, 0
	return ws
}
