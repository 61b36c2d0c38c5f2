package world

import (
	"cmp"
	"slices"

	"github.com/vbe-lab/vbe3d/components"
	"github.com/vbe-lab/vbe3d/neural"
	"github.com/vbe-lab/vbe3d/systems"
)

// moveMargin widens resolver grid queries: the grid was built before the
// action phase and every robot moves at most one unit per step, so a
// query padded by one unit per moving endpoint still yields a superset.
// Exact distances are always recomputed from live positions.
const moveMargin = 1.0

// resolveInteractions runs the three resolver passes in fixed order:
// connections, collection, reproduction. Within each pass robots and
// pairs are visited in ascending id order, so outcomes are reproducible.
func (w *World) resolveInteractions() {
	ids := sortedIDs(w.robots)
	w.resolveConnections(ids)
	w.resolveCollection(ids)
	w.resolveReproduction(ids)
}

// resolveConnections strengthens or severs existing edges by current
// distance, then forms new edges for unlinked pairs within the connect
// radius. Every unordered pair is handled exactly once per step.
func (w *World) resolveConnections(ids []uint32) {
	radius := float32(w.cfg.Interaction.ConnectRadius)
	radiusSq := radius * radius

	// Existing edges first: in or out of range decides strengthen vs
	// weaken. Pairs are visited from their lower-id endpoint.
	for _, id := range ids {
		e := w.robots[id]
		conns := w.connMap.Get(e)

		peers := make([]uint32, 0, len(conns.Links))
		for peer := range conns.Links {
			if peer > id {
				peers = append(peers, peer)
			}
		}
		slices.Sort(peers)

		pos := w.posMap.Get(e)
		for _, peer := range peers {
			pe, ok := w.robots[peer]
			if !ok {
				continue
			}
			if pos.DistSq(*w.posMap.Get(pe)) <= radiusSq {
				systems.Connect(id, peer, conns, w.connMap.Get(pe),
					w.statsMap.Get(e), w.statsMap.Get(pe))
			} else {
				systems.Disconnect(id, peer, conns, w.connMap.Get(pe))
			}
		}
	}

	// New edges: grid candidates, exact filter, skip pairs linked above.
	var hits []systems.Entry
	for _, id := range ids {
		e, ok := w.robots[id]
		if !ok {
			continue
		}
		pos := w.posMap.Get(e)
		conns := w.connMap.Get(e)

		hits = w.grid.QueryInto(hits[:0], *pos, radius+2*moveMargin)
		cands := hits[:0]
		for _, hit := range hits {
			if hit.Robot && hit.ID > id {
				cands = append(cands, hit)
			}
		}
		slices.SortFunc(cands, func(a, b systems.Entry) int {
			return cmp.Compare(a.ID, b.ID)
		})

		for _, hit := range cands {
			if _, linked := conns.Links[hit.ID]; linked {
				continue
			}
			pe, ok := w.robots[hit.ID]
			if !ok {
				continue
			}
			if pos.DistSq(*w.posMap.Get(pe)) > radiusSq {
				continue
			}
			systems.Connect(id, hit.ID, conns, w.connMap.Get(pe),
				w.statsMap.Get(e), w.statsMap.Get(pe))
			w.stats.ConnectionsMade++
			w.collector.RecordConnect()
		}
	}
}

// resolveCollection lets every robot harvest each collectible resource
// within the collect radius, then removes permanently depleted resources.
func (w *World) resolveCollection(ids []uint32) {
	radius := float32(w.cfg.Interaction.CollectRadius)
	radiusSq := radius * radius

	var hits []systems.Entry
	var depleted []uint32

	for _, id := range ids {
		e, ok := w.robots[id]
		if !ok {
			continue
		}
		// Dead is terminal: a robot that died stepping onto a resource
		// this step must not be fed back to life.
		if w.robotMap.Get(e).State == components.StateDead {
			continue
		}
		pos := w.posMap.Get(e)

		hits = w.grid.QueryInto(hits[:0], *pos, radius+moveMargin)
		cands := hits[:0]
		for _, hit := range hits {
			if !hit.Robot {
				cands = append(cands, hit)
			}
		}
		slices.SortFunc(cands, func(a, b systems.Entry) int {
			return cmp.Compare(a.ID, b.ID)
		})

		for _, hit := range cands {
			re, ok := w.resources[hit.ID]
			if !ok {
				continue
			}
			if pos.DistSq(*w.posMap.Get(re)) > radiusSq {
				continue
			}
			res := w.resMap.Get(re)
			v := systems.Collect(res)
			if v <= 0 {
				continue
			}

			systems.ApplyCollect(v, w.robotMap.Get(e), w.energyMap.Get(e), w.statsMap.Get(e))
			w.stats.ResourcesCollected++
			w.collector.RecordCollect()
			w.notifyUpdate(w.robotView(id, e))

			if systems.PermanentlyDepleted(res) {
				depleted = append(depleted, hit.ID)
			} else {
				w.notifyUpdate(w.resourceView(hit.ID, re))
			}
		}
	}

	for _, id := range depleted {
		w.RemoveResource(id)
	}
}

// resolveReproduction attempts reproduction for strongly-connected pairs
// on interval steps. Both parents must clear their energy threshold; on
// success each parent's energy is halved and one child is inserted,
// offset from the lower-id parent.
func (w *World) resolveReproduction(ids []uint32) {
	interval := int64(w.cfg.Interaction.ReproductionInterval)
	if w.step%interval != 0 {
		return
	}

	// Freeze the eligible pair list first: children spawned during the
	// pass never join it.
	type pair struct{ a, b uint32 }
	var pairs []pair
	for _, id := range ids {
		e := w.robots[id]
		conns := w.connMap.Get(e)
		peers := make([]uint32, 0, len(conns.Links))
		for peer, level := range conns.Links {
			if peer > id && level >= components.LevelStrong {
				peers = append(peers, peer)
			}
		}
		slices.Sort(peers)
		for _, peer := range peers {
			pairs = append(pairs, pair{a: id, b: peer})
		}
	}

	for _, p := range pairs {
		ea, okA := w.robots[p.a]
		eb, okB := w.robots[p.b]
		if !okA || !okB {
			continue
		}
		energyA := w.energyMap.Get(ea)
		energyB := w.energyMap.Get(eb)
		if energyA.Value < energyA.ReproThreshold || energyB.Value < energyB.ReproThreshold {
			continue
		}

		w.reproduce(p.a, p.b)
	}
}

// reproduce spawns one child of the given parents and applies the energy
// cost to both. Parent components are mutated before the child entity is
// created: entity creation can move component storage, so no component
// pointer is held across it.
func (w *World) reproduce(aID, bID uint32) {
	ea := w.robots[aID]
	eb := w.robots[bID]

	// Child setup inherits the initiating parent's energy configuration
	// and averages the parents' colors. The unit offset keeps the child
	// from spawning on top of either parent; since parents reproduce at
	// distance ~1, +1x often lands exactly on the partner, so flip the
	// offset when it does.
	posA := *w.posMap.Get(ea)
	posB := *w.posMap.Get(eb)
	childPos := components.Position{X: posA.X + 1, Y: posA.Y, Z: posA.Z}
	if childPos == posB {
		childPos.X = posA.X - 1
	}
	childCol := w.colorMap.Get(ea).Mix(*w.colorMap.Get(eb))
	cfgA := *w.energyMap.Get(ea)
	childEnergy := components.Energy{
		Value:          cfgA.Max,
		Max:            cfgA.Max,
		MovementCost:   cfgA.MovementCost,
		ReproThreshold: cfgA.ReproThreshold,
	}
	childBrain := neural.Inherit(w.brains[aID], w.brains[bID], w.rng.Int63())

	// Parent updates: state, stat, halved energy.
	for _, parent := range []uint32{aID, bID} {
		pe := w.robots[parent]
		w.robotMap.Get(pe).State = components.StateReproducing
		w.statsMap.Get(pe).OffspringProduced++
		w.energyMap.Get(pe).Value /= 2
		w.notifyUpdate(w.robotView(parent, pe))
	}

	childID := w.addRobotFull(childPos, childCol, childEnergy, components.Stats{}, components.StateIdle, childBrain)

	w.stats.OffspringProduced++
	w.log.Debug("reproduction", "parent_a", aID, "parent_b", bID, "child", childID, "step", w.step)
}
