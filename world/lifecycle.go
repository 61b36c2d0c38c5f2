package world

import (
	"github.com/vbe-lab/vbe3d/components"
	"github.com/vbe-lab/vbe3d/neural"
)

// SpawnInitial creates the starting population from config: robots and
// resources scattered uniformly in the spawn extent.
func (w *World) SpawnInitial() {
	cfg := w.cfg

	for i := 0; i < cfg.World.InitialRobots; i++ {
		var brain neural.Brain
		useMLP := cfg.Brain.Default == "mlp"
		if cfg.Brain.MLPRatio > 0 && w.rng.Float64() < cfg.Brain.MLPRatio {
			useMLP = true
		}
		if useMLP {
			brain = neural.NewMLP(w.rng)
		} else {
			brain = neural.NewRuleBased(w.rng.Int63())
		}

		w.AddRobot(
			w.randomSpawnPos(),
			components.Color{R: w.rng.Float32(), G: w.rng.Float32(), B: w.rng.Float32()},
			brain,
		)
	}

	for i := 0; i < cfg.World.InitialResources; i++ {
		w.AddResource(
			w.randomSpawnPos(),
			components.Color{R: 0.2, G: w.rng.Float32()*0.4 + 0.6, B: 0.2},
			components.Resource{
				Value:        float32(cfg.Resource.Value),
				Original:     float32(cfg.Resource.Value),
				Kind:         components.KindEnergy,
				DecayRate:    float32(cfg.Resource.DecayRate),
				MaxUses:      cfg.Resource.MaxUses,
				RespawnDelay: int32(cfg.Resource.RespawnDelay),
				Collectible:  true,
			},
		)
	}
}

func (w *World) randomSpawnPos() components.Position {
	extent := float32(w.cfg.World.SpawnExtent)
	return components.Position{
		X: (w.rng.Float32()*2 - 1) * extent,
		Y: (w.rng.Float32()*2 - 1) * extent,
		Z: (w.rng.Float32()*2 - 1) * extent,
	}
}

// AddRobot admits a robot with the configured energy budget and the given
// brain, returning its id. The renderer is notified on the next flush.
func (w *World) AddRobot(pos components.Position, col components.Color, brain neural.Brain) uint32 {
	cfg := w.cfg
	return w.addRobotFull(
		pos, col,
		components.Energy{
			Value:          float32(cfg.Robot.MaxEnergy),
			Max:            float32(cfg.Robot.MaxEnergy),
			MovementCost:   float32(cfg.Robot.MovementCost),
			ReproThreshold: float32(cfg.Robot.ReproductionThreshold),
		},
		components.Stats{},
		components.StateIdle,
		brain,
	)
}

// addRobotFull is the full-control spawn path shared by AddRobot,
// reproduction, and state restore.
func (w *World) addRobotFull(
	pos components.Position,
	col components.Color,
	energy components.Energy,
	stats components.Stats,
	state components.RobotState,
	brain neural.Brain,
) uint32 {
	id := w.allocID()

	robot := components.Robot{ID: id, State: state}
	conns := components.NewConnections()

	e := w.robotMapper.NewEntity(&pos, &col, &robot, &energy, &conns, &stats)
	w.robots[id] = e
	w.brains[id] = brain

	w.stats.RobotsCreated++
	w.collector.RecordBirth()
	w.notifyAdd(w.robotView(id, e))
	return id
}

// RemoveRobot removes a robot, severing its connections everywhere.
func (w *World) RemoveRobot(id uint32) {
	e, ok := w.robots[id]
	if !ok {
		return
	}

	// Purge this robot from every peer's connection map.
	conns := w.connMap.Get(e)
	for peer := range conns.Links {
		if pe, ok := w.robots[peer]; ok {
			delete(w.connMap.Get(pe).Links, id)
		}
	}

	w.robotMapper.Remove(e)
	delete(w.robots, id)
	delete(w.brains, id)

	w.stats.RobotsDestroyed++
	w.collector.RecordDeath()
	w.notifyRemove(id)
}

// AddResource admits a resource, assigning its id, and returns the id.
// The Original value defaults to the initial value when unset.
func (w *World) AddResource(pos components.Position, col components.Color, res components.Resource) uint32 {
	id := w.allocID()
	res.ID = id
	if res.Original == 0 {
		res.Original = res.Value
	}

	e := w.resourceMapper.NewEntity(&pos, &col, &res)
	w.resources[id] = e

	w.notifyAdd(w.resourceView(id, e))
	return id
}

// RemoveResource removes a resource from the world.
func (w *World) RemoveResource(id uint32) {
	e, ok := w.resources[id]
	if !ok {
		return
	}
	w.resourceMapper.Remove(e)
	delete(w.resources, id)
	w.notifyRemove(id)
}

func (w *World) allocID() uint32 {
	id := w.nextID
	w.nextID++
	return id
}
