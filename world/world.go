// Package world orchestrates the simulation: entity membership, the
// per-step perceive/decide/act pipeline, interaction resolution, and
// bookkeeping. Robots and resources live in an ark ECS world; all
// mutation happens inside Step or the explicit membership operations.
package world

import (
	"log/slog"
	"math/rand"
	"slices"

	"github.com/mlange-42/ark/ecs"

	"github.com/vbe-lab/vbe3d/components"
	"github.com/vbe-lab/vbe3d/config"
	"github.com/vbe-lab/vbe3d/neural"
	"github.com/vbe-lab/vbe3d/render"
	"github.com/vbe-lab/vbe3d/systems"
	"github.com/vbe-lab/vbe3d/telemetry"
)

// Options configures a new World beyond the loaded config file.
type Options struct {
	Seed     int64
	Renderer render.Renderer
	Logger   *slog.Logger

	// Telemetry sinks, all optional.
	OutputDir  string
	SQLitePath string
	LogStats   bool
}

// World holds the complete simulation state.
type World struct {
	ecs *ecs.World
	rng *rand.Rand
	cfg *config.Config
	log *slog.Logger

	seed int64
	step int64

	// Robot entities carry six components.
	robotMapper *ecs.Map6[
		components.Position,
		components.Color,
		components.Robot,
		components.Energy,
		components.Connections,
		components.Stats,
	]
	robotFilter *ecs.Filter6[
		components.Position,
		components.Color,
		components.Robot,
		components.Energy,
		components.Connections,
		components.Stats,
	]

	// Resource entities carry three.
	resourceMapper *ecs.Map3[
		components.Position,
		components.Color,
		components.Resource,
	]
	resourceFilter *ecs.Filter3[
		components.Position,
		components.Color,
		components.Resource,
	]

	// Individual component mappers for lookups.
	posMap    *ecs.Map1[components.Position]
	colorMap  *ecs.Map1[components.Color]
	robotMap  *ecs.Map1[components.Robot]
	energyMap *ecs.Map1[components.Energy]
	connMap   *ecs.Map1[components.Connections]
	statsMap  *ecs.Map1[components.Stats]
	resMap    *ecs.Map1[components.Resource]

	// Brain storage, per robot id. Brains never live inside the ECS so
	// interface values stay out of component storage.
	brains map[uint32]neural.Brain

	// Id -> entity indexes. Ids are unique across robots and resources.
	robots    map[uint32]ecs.Entity
	resources map[uint32]ecs.Entity
	nextID    uint32

	grid     *systems.SpatialGrid
	parallel *parallelState

	// Renderer notifications buffered during the step, flushed after.
	renderer render.Renderer
	notes    []renderNote

	collector *telemetry.Collector
	output    *telemetry.OutputManager
	runIndex  *telemetry.RunIndex
	logStats  bool

	stats telemetry.WorldStats
}

type noteKind uint8

const (
	noteAdd noteKind = iota
	noteRemove
	noteUpdate
)

type renderNote struct {
	kind noteKind
	id   uint32
	view render.EntityView
}

// New creates an empty world. Call SpawnInitial for a fresh population or
// Restore to load persisted state.
func New(cfg *config.Config, opts Options) (*World, error) {
	ew := ecs.NewWorld()

	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	renderer := opts.Renderer
	if renderer == nil {
		renderer = render.Null{}
	}

	w := &World{
		ecs:  ew,
		rng:  rand.New(rand.NewSource(opts.Seed)),
		cfg:  cfg,
		log:  log,
		seed: opts.Seed,
		robotMapper: ecs.NewMap6[
			components.Position,
			components.Color,
			components.Robot,
			components.Energy,
			components.Connections,
			components.Stats,
		](ew),
		robotFilter: ecs.NewFilter6[
			components.Position,
			components.Color,
			components.Robot,
			components.Energy,
			components.Connections,
			components.Stats,
		](ew),
		resourceMapper: ecs.NewMap3[
			components.Position,
			components.Color,
			components.Resource,
		](ew),
		resourceFilter: ecs.NewFilter3[
			components.Position,
			components.Color,
			components.Resource,
		](ew),
		posMap:    ecs.NewMap1[components.Position](ew),
		colorMap:  ecs.NewMap1[components.Color](ew),
		robotMap:  ecs.NewMap1[components.Robot](ew),
		energyMap: ecs.NewMap1[components.Energy](ew),
		connMap:   ecs.NewMap1[components.Connections](ew),
		statsMap:  ecs.NewMap1[components.Stats](ew),
		resMap:    ecs.NewMap1[components.Resource](ew),
		brains:    make(map[uint32]neural.Brain),
		robots:    make(map[uint32]ecs.Entity),
		resources: make(map[uint32]ecs.Entity),
		grid:      systems.NewSpatialGrid(),
		renderer:  renderer,
		logStats:  opts.LogStats,
		collector: telemetry.NewCollector(cfg.Telemetry.StatsWindow),
	}
	w.parallel = newParallelState()

	if opts.OutputDir != "" {
		om, err := telemetry.NewOutputManager(opts.OutputDir)
		if err != nil {
			return nil, err
		}
		if err := om.WriteConfig(cfg); err != nil {
			return nil, err
		}
		w.output = om
	}
	if opts.SQLitePath != "" {
		ri, err := telemetry.OpenRunIndex(opts.SQLitePath, opts.Seed)
		if err != nil {
			return nil, err
		}
		w.runIndex = ri
	}

	return w, nil
}

// Close stops workers and releases telemetry sinks.
func (w *World) Close() error {
	w.parallel.stopWorkers()
	var firstErr error
	if w.output != nil {
		if err := w.output.Close(); err != nil {
			firstErr = err
		}
	}
	if w.runIndex != nil {
		if err := w.runIndex.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// StepCount returns the current step counter.
func (w *World) StepCount() int64 { return w.step }

// Seed returns the seed the world RNG was created with.
func (w *World) Seed() int64 { return w.seed }

// Stats returns a copy of the monotonic world counters.
func (w *World) Stats() telemetry.WorldStats { return w.stats }

// RobotCount returns the number of live robots.
func (w *World) RobotCount() int { return len(w.robots) }

// ResourceCount returns the number of resources, including dormant ones.
func (w *World) ResourceCount() int { return len(w.resources) }

// RobotPosition returns a robot's position by id.
func (w *World) RobotPosition(id uint32) (components.Position, bool) {
	e, ok := w.robots[id]
	if !ok {
		return components.Position{}, false
	}
	return *w.posMap.Get(e), true
}

// RobotEnergy returns a robot's energy component by id.
func (w *World) RobotEnergy(id uint32) (components.Energy, bool) {
	e, ok := w.robots[id]
	if !ok {
		return components.Energy{}, false
	}
	return *w.energyMap.Get(e), true
}

// RobotStats returns a robot's lifetime counters by id.
func (w *World) RobotStats(id uint32) (components.Stats, bool) {
	e, ok := w.robots[id]
	if !ok {
		return components.Stats{}, false
	}
	return *w.statsMap.Get(e), true
}

// RobotState returns a robot's state by id.
func (w *World) RobotState(id uint32) (components.RobotState, bool) {
	e, ok := w.robots[id]
	if !ok {
		return components.StateIdle, false
	}
	return w.robotMap.Get(e).State, true
}

// ConnectionLevel returns the connection level between two robots,
// LevelNone if either is gone or no edge exists.
func (w *World) ConnectionLevel(a, b uint32) components.Level {
	e, ok := w.robots[a]
	if !ok {
		return components.LevelNone
	}
	return w.connMap.Get(e).Level(b)
}

// ResourceValue returns a resource's current value by id.
func (w *World) ResourceValue(id uint32) (float32, bool) {
	e, ok := w.resources[id]
	if !ok {
		return 0, false
	}
	return w.resMap.Get(e).Value, true
}

// ResourceCollectible reports whether the resource exists and is
// currently collectible.
func (w *World) ResourceCollectible(id uint32) bool {
	e, ok := w.resources[id]
	if !ok {
		return false
	}
	return w.resMap.Get(e).Collectible
}

// Views snapshots every entity as a renderer view, robots first, each
// group in ascending id order.
func (w *World) Views() []render.EntityView {
	views := make([]render.EntityView, 0, len(w.robots)+len(w.resources))
	for _, id := range sortedIDs(w.robots) {
		views = append(views, w.robotView(id, w.robots[id]))
	}
	for _, id := range sortedIDs(w.resources) {
		views = append(views, w.resourceView(id, w.resources[id]))
	}
	return views
}

func (w *World) robotView(id uint32, e ecs.Entity) render.EntityView {
	pos := w.posMap.Get(e)
	col := w.colorMap.Get(e)
	rob := w.robotMap.Get(e)
	energy := w.energyMap.Get(e)

	frac := float32(0)
	if energy.Max > 0 {
		frac = energy.Value / energy.Max
	}
	return render.EntityView{
		ID:     id,
		Kind:   render.ViewRobot,
		Pos:    [3]float32{pos.X, pos.Y, pos.Z},
		Color:  [3]float32{col.R, col.G, col.B},
		State:  rob.State.String(),
		Energy: frac,
	}
}

func (w *World) resourceView(id uint32, e ecs.Entity) render.EntityView {
	pos := w.posMap.Get(e)
	col := w.colorMap.Get(e)
	res := w.resMap.Get(e)

	frac := float32(0)
	if res.Original > 0 {
		frac = res.Value / res.Original
	}
	return render.EntityView{
		ID:    id,
		Kind:  render.ViewResource,
		Pos:   [3]float32{pos.X, pos.Y, pos.Z},
		Color: [3]float32{col.R, col.G, col.B},
		Value: frac,
	}
}

// notifyAdd buffers a renderer add for the post-step flush.
func (w *World) notifyAdd(v render.EntityView) {
	w.notes = append(w.notes, renderNote{kind: noteAdd, view: v})
}

func (w *World) notifyRemove(id uint32) {
	w.notes = append(w.notes, renderNote{kind: noteRemove, id: id})
}

func (w *World) notifyUpdate(v render.EntityView) {
	w.notes = append(w.notes, renderNote{kind: noteUpdate, view: v})
}

// flushRenderNotes delivers buffered notifications. Renderers are
// non-blocking, so the flush cannot stall the clock.
func (w *World) flushRenderNotes() {
	for _, n := range w.notes {
		switch n.kind {
		case noteAdd:
			w.renderer.Add(n.view)
		case noteRemove:
			w.renderer.Remove(n.id)
		case noteUpdate:
			w.renderer.Update(n.view)
		}
	}
	w.notes = w.notes[:0]
}

// sortedIDs returns map keys in ascending order.
func sortedIDs[V any](m map[uint32]V) []uint32 {
	ids := make([]uint32, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
