// Package telemetry provides observational statistics for the simulation:
// monotonic world counters, windowed aggregates, CSV output, and an
// optional run-index database. Nothing in this package is ever read back
// by simulation logic.
package telemetry

// WorldStats holds monotonic counters over the lifetime of a world.
type WorldStats struct {
	Steps              int64
	RobotsCreated      int64
	RobotsDestroyed    int64
	ResourcesCollected int64
	ConnectionsMade    int64
	OffspringProduced  int64
	Faults             int64
}

// WindowStats holds aggregated statistics for one stats window.
type WindowStats struct {
	WindowEnd int64 `csv:"window_end"`

	// Population at window end
	Robots    int `csv:"robots"`
	Resources int `csv:"resources"`

	// Events during the window
	Births   int `csv:"births"`
	Deaths   int `csv:"deaths"`
	Collects int `csv:"collects"`
	Connects int `csv:"connects"`
	Faults   int `csv:"faults"`

	// Energy distribution sampled at window end
	EnergyMean float64 `csv:"energy_mean"`
	EnergyP10  float64 `csv:"energy_p10"`
	EnergyP50  float64 `csv:"energy_p50"`
	EnergyP90  float64 `csv:"energy_p90"`

	// Connection topology
	Edges int `csv:"edges"`

	// Mean remaining value over live resources
	ResourceValueMean float64 `csv:"resource_value_mean"`
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
