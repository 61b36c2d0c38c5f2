package world

import (
	"fmt"

	"github.com/vbe-lab/vbe3d/components"
	"github.com/vbe-lab/vbe3d/config"
	"github.com/vbe-lab/vbe3d/neural"
	"github.com/vbe-lab/vbe3d/snapshot"
)

// Save writes the complete world state to path. Robots and resources are
// recorded in ascending id order; connection edges are recorded on both
// endpoints and restored from the lower-id one.
func (w *World) Save(path string) error {
	state := &snapshot.WorldState{
		Version:   snapshot.Version,
		Step:      w.step,
		Seed:      w.seed,
		Robots:    []snapshot.RobotRecord{},
		Resources: []snapshot.ResourceRecord{},
	}

	for _, id := range sortedIDs(w.robots) {
		e := w.robots[id]
		pos := w.posMap.Get(e)
		col := w.colorMap.Get(e)
		rob := w.robotMap.Get(e)
		energy := w.energyMap.Get(e)
		conns := w.connMap.Get(e)
		stats := w.statsMap.Get(e)
		brain := w.brains[id]

		rec := snapshot.RobotRecord{
			ID:             id,
			Position:       [3]float32{pos.X, pos.Y, pos.Z},
			Color:          [3]float32{col.R, col.G, col.B},
			State:          rob.State.String(),
			Energy:         energy.Value,
			MaxEnergy:      energy.Max,
			MovementCost:   energy.MovementCost,
			ReproThreshold: energy.ReproThreshold,
			BrainType:      brain.Kind().String(),
			BrainParams:    neural.ExportParams(brain),
			Connections:    []snapshot.ConnectionRecord{},
			Stats: snapshot.StatsRecord{
				DistanceTraveled:   stats.DistanceTraveled,
				ResourcesCollected: stats.ResourcesCollected,
				ConnectionsMade:    stats.ConnectionsMade,
				OffspringProduced:  stats.OffspringProduced,
				EnergyConsumed:     stats.EnergyConsumed,
				Lifetime:           stats.Lifetime,
			},
		}
		for _, peer := range sortedIDs(conns.Links) {
			rec.Connections = append(rec.Connections, snapshot.ConnectionRecord{
				Peer:  peer,
				Level: uint8(conns.Links[peer]),
			})
		}
		state.Robots = append(state.Robots, rec)
	}

	for _, id := range sortedIDs(w.resources) {
		e := w.resources[id]
		pos := w.posMap.Get(e)
		col := w.colorMap.Get(e)
		res := w.resMap.Get(e)

		state.Resources = append(state.Resources, snapshot.ResourceRecord{
			ID:           id,
			Position:     [3]float32{pos.X, pos.Y, pos.Z},
			Color:        [3]float32{col.R, col.G, col.B},
			Value:        res.Value,
			Original:     res.Original,
			Kind:         res.Kind.String(),
			DecayRate:    res.DecayRate,
			MaxUses:      res.MaxUses,
			Uses:         res.Uses,
			RespawnDelay: res.RespawnDelay,
			RespawnIn:    res.RespawnIn,
			RespawnArmed: res.RespawnArmed,
			Collectible:  res.Collectible,
			Obstacle:     res.Obstacle,
		})
	}

	return snapshot.Write(path, state)
}

// Restore builds a world from a persisted state file. The loaded seed is
// reused unless opts.Seed overrides it.
func Restore(path string, cfg *config.Config, opts Options) (*World, error) {
	state, err := snapshot.Read(path)
	if err != nil {
		return nil, err
	}

	if opts.Seed == 0 {
		opts.Seed = state.Seed
	}
	w, err := New(cfg, opts)
	if err != nil {
		return nil, err
	}
	if err := w.restoreState(state); err != nil {
		w.Close()
		return nil, err
	}
	return w, nil
}

func (w *World) restoreState(state *snapshot.WorldState) error {
	w.step = state.Step
	w.seed = state.Seed

	// Ids are restored exactly as recorded; the allocator resumes past
	// the highest one afterwards.
	var maxID uint32
	for _, rec := range state.Robots {
		w.nextID = rec.ID
		maxID = max(maxID, rec.ID)
		brain, err := neural.FromExport(rec.BrainType, rec.BrainParams, w.rng.Int63())
		if err != nil {
			return fmt.Errorf("robot %d: %w", rec.ID, err)
		}

		w.addRobotFull(
			components.Position{X: rec.Position[0], Y: rec.Position[1], Z: rec.Position[2]},
			components.Color{R: rec.Color[0], G: rec.Color[1], B: rec.Color[2]},
			components.Energy{
				Value:          rec.Energy,
				Max:            rec.MaxEnergy,
				MovementCost:   rec.MovementCost,
				ReproThreshold: rec.ReproThreshold,
			},
			components.Stats{
				DistanceTraveled:   rec.Stats.DistanceTraveled,
				ResourcesCollected: rec.Stats.ResourcesCollected,
				ConnectionsMade:    rec.Stats.ConnectionsMade,
				OffspringProduced:  rec.Stats.OffspringProduced,
				EnergyConsumed:     rec.Stats.EnergyConsumed,
				Lifetime:           rec.Stats.Lifetime,
			},
			components.RobotStateFromString(rec.State),
			brain,
		)
	}

	// Edges restore symmetrically from the lower-id endpoint.
	for _, rec := range state.Robots {
		e, ok := w.robots[rec.ID]
		if !ok {
			continue
		}
		for _, cr := range rec.Connections {
			if cr.Peer <= rec.ID {
				continue
			}
			pe, ok := w.robots[cr.Peer]
			if !ok {
				return fmt.Errorf("robot %d: connection to unknown robot %d", rec.ID, cr.Peer)
			}
			level := components.Level(cr.Level)
			w.connMap.Get(e).Links[cr.Peer] = level
			w.connMap.Get(pe).Links[rec.ID] = level
		}
	}

	for _, rec := range state.Resources {
		w.nextID = rec.ID
		maxID = max(maxID, rec.ID)
		w.AddResource(
			components.Position{X: rec.Position[0], Y: rec.Position[1], Z: rec.Position[2]},
			components.Color{R: rec.Color[0], G: rec.Color[1], B: rec.Color[2]},
			components.Resource{
				Value:        rec.Value,
				Original:     rec.Original,
				Kind:         components.ResourceKindFromString(rec.Kind),
				DecayRate:    rec.DecayRate,
				MaxUses:      rec.MaxUses,
				Uses:         rec.Uses,
				RespawnDelay: rec.RespawnDelay,
				RespawnIn:    rec.RespawnIn,
				RespawnArmed: rec.RespawnArmed,
				Collectible:  rec.Collectible,
				Obstacle:     rec.Obstacle,
			},
		)
	}

	if len(state.Robots) > 0 || len(state.Resources) > 0 {
		w.nextID = maxID + 1
	}
	return nil
}
