package world

import (
	"slices"

	"github.com/vbe-lab/vbe3d/components"
	"github.com/vbe-lab/vbe3d/systems"
)

// Step advances the simulation by one tick:
//
//  1. increment the step counter
//  2. prune robots that died last step
//  3. tick resource lifecycles (respawn countdowns, decay)
//  4. rebuild the spatial grid from current positions
//  5. perceive and decide for every robot (parallel, frozen grid)
//  6. apply decided actions serially in ascending id order
//  7. resolve interactions: connections, collection, reproduction
//  8. flush telemetry windows and buffered renderer notifications
//
// The step is one atomic unit of work: no caller ever observes a
// partially-updated world.
func (w *World) Step() {
	w.step++
	w.stats.Steps++

	w.pruneDead()
	w.tickResources()
	w.rebuildGrid()

	w.decide()
	w.applyIntents()

	w.resolveInteractions()

	w.flushTelemetry()
	w.flushRenderNotes()
}

// pruneDead removes robots observed dead at the start of the step.
func (w *World) pruneDead() {
	var dead []uint32
	for id, e := range w.robots {
		if w.robotMap.Get(e).State == components.StateDead {
			dead = append(dead, id)
		}
	}
	if len(dead) == 0 {
		return
	}
	slices.Sort(dead)
	for _, id := range dead {
		w.log.Debug("robot died", "robot", id, "step", w.step)
		w.RemoveRobot(id)
	}
}

// tickResources advances respawn countdowns and decay. A resource armed at
// step N with delay D becomes collectible again at the top of step N+D.
func (w *World) tickResources() {
	query := w.resourceFilter.Query()
	for query.Next() {
		_, _, res := query.Get()
		systems.TickResource(res)
	}
}

// rebuildGrid re-buckets all robots and collectible resources. Dormant
// resources are inert: invisible to perception and collection until they
// respawn.
func (w *World) rebuildGrid() {
	w.grid.Clear()

	rq := w.robotFilter.Query()
	for rq.Next() {
		pos, _, rob, _, _, _ := rq.Get()
		w.grid.Insert(systems.Entry{
			Entity: rq.Entity(),
			ID:     rob.ID,
			Robot:  true,
			Pos:    *pos,
		})
	}

	sq := w.resourceFilter.Query()
	for sq.Next() {
		pos, _, res := sq.Get()
		if !res.Collectible {
			continue
		}
		w.grid.Insert(systems.Entry{
			Entity: sq.Entity(),
			ID:     res.ID,
			Pos:    *pos,
		})
	}
}

// applyIntents executes the decided actions serially, in the snapshot
// order (ascending robot id). Per-robot faults are logged and counted;
// the robot loses its turn and the step continues.
func (w *World) applyIntents() {
	for i := range w.parallel.snapshots {
		snap := &w.parallel.snapshots[i]
		in := &w.parallel.intents[i]

		if in.Err != nil {
			w.recordFault(snap.ID, "decide", in.Err)
			continue
		}

		pos := w.posMap.Get(snap.Entity)
		rob := w.robotMap.Get(snap.Entity)
		energy := w.energyMap.Get(snap.Entity)
		stats := w.statsMap.Get(snap.Entity)

		if err := systems.ApplyAction(in.Action, pos, rob, energy, stats); err != nil {
			w.recordFault(snap.ID, "act", err)
			continue
		}

		if in.Action != 0 {
			w.notifyUpdate(w.robotView(snap.ID, snap.Entity))
		}
	}
}

func (w *World) recordFault(robot uint32, phase string, err error) {
	w.log.Warn("robot turn skipped", "robot", robot, "phase", phase, "step", w.step, "error", err)
	w.stats.Faults++
	w.collector.RecordFault()
}

// flushTelemetry closes the stats window when due and routes it to the
// configured sinks.
func (w *World) flushTelemetry() {
	if w.cfg.Telemetry.StatsWindow <= 0 || !w.collector.ShouldFlush(w.step) {
		return
	}

	var energies, values []float64
	edges := 0
	rq := w.robotFilter.Query()
	for rq.Next() {
		_, _, _, energy, conns, _ := rq.Get()
		energies = append(energies, float64(energy.Value))
		edges += conns.Count()
	}
	edges /= 2 // each edge counted from both endpoints

	sq := w.resourceFilter.Query()
	for sq.Next() {
		_, _, res := sq.Get()
		values = append(values, float64(res.Value))
	}

	ws := w.collector.Flush(w.step, len(w.robots), len(w.resources), edges, energies, values)

	if w.logStats {
		w.log.Info("window stats",
			"window_end", ws.WindowEnd,
			"robots", ws.Robots,
			"resources", ws.Resources,
			"births", ws.Births,
			"deaths", ws.Deaths,
			"collects", ws.Collects,
			"connects", ws.Connects,
			"faults", ws.Faults,
			"edges", ws.Edges,
			"energy_mean", ws.EnergyMean,
		)
	}
	if w.output != nil {
		if err := w.output.WriteWindow(ws); err != nil {
			w.log.Error("failed to write telemetry", "error", err)
		}
	}
	if w.runIndex != nil {
		w.runIndex.RecordWindow(ws)
	}
}
