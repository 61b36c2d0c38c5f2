package world

import (
	"errors"
	"testing"

	"github.com/vbe-lab/vbe3d/components"
	"github.com/vbe-lab/vbe3d/config"
	"github.com/vbe-lab/vbe3d/neural"
)

// fixedBrain always answers the same action code.
type fixedBrain struct{ action int }

func (b fixedBrain) DecideAction(obs []float32) (int, error) { return b.action, nil }
func (b fixedBrain) Kind() neural.Kind                       { return neural.KindRuleBased }

// scriptBrain plays a fixed action sequence, then idles.
type scriptBrain struct {
	actions []int
	i       int
}

func (b *scriptBrain) DecideAction(obs []float32) (int, error) {
	if b.i >= len(b.actions) {
		return 0, nil
	}
	a := b.actions[b.i]
	b.i++
	return a, nil
}

func (b *scriptBrain) Kind() neural.Kind { return neural.KindRuleBased }

// errBrain fails every decision.
type errBrain struct{}

func (errBrain) DecideAction(obs []float32) (int, error) {
	return 0, errors.New("sensor failure")
}
func (errBrain) Kind() neural.Kind { return neural.KindRuleBased }

func newTestWorld(t *testing.T, mutate func(*config.Config)) *World {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	if mutate != nil {
		mutate(cfg)
	}
	w, err := New(cfg, Options{Seed: 1})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { w.Close() })
	return w
}

func addIdleRobot(w *World, x, y, z float32) uint32 {
	return w.AddRobot(components.Position{X: x, Y: y, Z: z}, components.Color{R: 1}, fixedBrain{})
}

func addPlainResource(w *World, x, y, z, value float32) uint32 {
	return w.AddResource(components.Position{X: x, Y: y, Z: z}, components.Color{G: 1},
		components.Resource{Value: value, Collectible: true})
}

func TestConnectionLifecycle(t *testing.T) {
	w := newTestWorld(t, nil)
	a := addIdleRobot(w, 0, 0, 0)
	b := addIdleRobot(w, 1, 0, 0)

	want := []components.Level{
		components.LevelWeak,
		components.LevelMedium,
		components.LevelStrong,
		components.LevelPermanent,
		components.LevelPermanent,
	}
	for i, lvl := range want {
		w.Step()
		if got := w.ConnectionLevel(a, b); got != lvl {
			t.Fatalf("step %d: level = %v, want %v", i+1, got, lvl)
		}
		if got := w.ConnectionLevel(b, a); got != lvl {
			t.Fatalf("step %d: reverse level = %v, want %v", i+1, got, lvl)
		}
	}

	if got := w.Stats().ConnectionsMade; got != 1 {
		t.Errorf("world connections made = %d, want 1", got)
	}
	for _, id := range []uint32{a, b} {
		st, _ := w.RobotStats(id)
		if st.ConnectionsMade != 1 {
			t.Errorf("robot %d connections made = %d, want 1", id, st.ConnectionsMade)
		}
	}
}

func TestConnectionDecaysWithDistance(t *testing.T) {
	w := newTestWorld(t, nil)
	// a sits still for two steps to build a medium edge, then walks out
	// of range.
	a := w.AddRobot(components.Position{}, components.Color{R: 1},
		&scriptBrain{actions: []int{0, 0, 2}})
	b := addIdleRobot(w, 1, 0, 0)

	w.Step()
	w.Step()
	if got := w.ConnectionLevel(a, b); got != components.LevelMedium {
		t.Fatalf("level after 2 steps = %v, want %v", got, components.LevelMedium)
	}

	w.Step() // a moves to distance 2: medium -> weak
	if got := w.ConnectionLevel(a, b); got != components.LevelWeak {
		t.Fatalf("level after moving apart = %v, want %v", got, components.LevelWeak)
	}

	w.Step() // still apart: weak -> gone
	if got := w.ConnectionLevel(a, b); got != components.LevelNone {
		t.Fatalf("level after decay = %v, want %v", got, components.LevelNone)
	}
	if got := w.ConnectionLevel(b, a); got != components.LevelNone {
		t.Fatalf("reverse level after decay = %v, want %v", got, components.LevelNone)
	}
}

func TestReproduction(t *testing.T) {
	w := newTestWorld(t, func(cfg *config.Config) {
		cfg.Interaction.ReproductionInterval = 3
	})
	a := w.AddRobot(components.Position{}, components.Color{R: 1}, fixedBrain{})
	b := w.AddRobot(components.Position{X: 1}, components.Color{B: 1}, fixedBrain{})

	// Steps 1 and 2 build the edge to medium; step 3 strengthens it to
	// strong and lands on the reproduction interval.
	for i := 0; i < 3; i++ {
		w.Step()
	}

	if got := w.RobotCount(); got != 3 {
		t.Fatalf("robot count = %d, want 3", got)
	}
	if got := w.Stats().OffspringProduced; got != 1 {
		t.Errorf("world offspring = %d, want 1", got)
	}

	for _, id := range []uint32{a, b} {
		e, _ := w.RobotEnergy(id)
		if e.Value != 50 {
			t.Errorf("parent %d energy = %v, want 50", id, e.Value)
		}
		st, _ := w.RobotState(id)
		if st != components.StateReproducing {
			t.Errorf("parent %d state = %v, want %v", id, st, components.StateReproducing)
		}
		rs, _ := w.RobotStats(id)
		if rs.OffspringProduced != 1 {
			t.Errorf("parent %d offspring = %d, want 1", id, rs.OffspringProduced)
		}
	}

	child := b + 1
	pos, ok := w.RobotPosition(child)
	if !ok {
		t.Fatalf("child robot %d missing", child)
	}
	// The +1x offset from the lower-id parent would land exactly on the
	// partner here, so the spawn flips to -1x.
	if pos != (components.Position{X: -1}) {
		t.Errorf("child position = %+v, want {-1 0 0}", pos)
	}
	posA, _ := w.RobotPosition(a)
	posB, _ := w.RobotPosition(b)
	if pos == posA || pos == posB {
		t.Errorf("child spawned on a parent: child %+v, parents %+v and %+v", pos, posA, posB)
	}
	e, _ := w.RobotEnergy(child)
	if e.Value != e.Max {
		t.Errorf("child energy = %v, want full %v", e.Value, e.Max)
	}
	col := *w.colorMap.Get(w.robots[child])
	if col != (components.Color{R: 0.5, B: 0.5}) {
		t.Errorf("child color = %+v, want averaged {0.5 0 0.5}", col)
	}
}

func TestReproductionOffsetClearOfPartner(t *testing.T) {
	w := newTestWorld(t, func(cfg *config.Config) {
		cfg.Interaction.ReproductionInterval = 3
	})
	a := w.AddRobot(components.Position{}, components.Color{R: 1}, fixedBrain{})
	b := w.AddRobot(components.Position{Z: 1}, components.Color{B: 1}, fixedBrain{})

	for i := 0; i < 3; i++ {
		w.Step()
	}
	if got := w.RobotCount(); got != 3 {
		t.Fatalf("robot count = %d, want 3", got)
	}

	// The partner sits along z, so the default +1x offset is free.
	pos, ok := w.RobotPosition(b + 1)
	if !ok {
		t.Fatalf("child robot %d missing", b+1)
	}
	if pos != (components.Position{X: 1}) {
		t.Errorf("child position = %+v, want {1 0 0}", pos)
	}
	posA, _ := w.RobotPosition(a)
	posB, _ := w.RobotPosition(b)
	if pos == posA || pos == posB {
		t.Errorf("child spawned on a parent: child %+v, parents %+v and %+v", pos, posA, posB)
	}
}

func TestReproductionRequiresEnergy(t *testing.T) {
	w := newTestWorld(t, func(cfg *config.Config) {
		cfg.Interaction.ReproductionInterval = 3
		cfg.Robot.ReproductionThreshold = 150 // above max energy
	})
	addIdleRobot(w, 0, 0, 0)
	addIdleRobot(w, 1, 0, 0)

	for i := 0; i < 6; i++ {
		w.Step()
	}
	if got := w.RobotCount(); got != 2 {
		t.Errorf("robot count = %d, want 2 (no reproduction below threshold)", got)
	}
}

func TestCollection(t *testing.T) {
	w := newTestWorld(t, func(cfg *config.Config) {
		cfg.Robot.MovementCost = 30
	})
	// The robot steps into collect range and harvests the same tick.
	r := w.AddRobot(components.Position{X: -0.7}, components.Color{R: 1},
		&scriptBrain{actions: []int{1}})
	addPlainResource(w, 0, 0, 0, 20)

	w.Step()

	e, _ := w.RobotEnergy(r)
	if e.Value != 90 {
		t.Errorf("energy = %v, want 90 (100 - 30 move + 20 collect)", e.Value)
	}
	st, _ := w.RobotState(r)
	if st != components.StateCollecting {
		t.Errorf("state = %v, want %v", st, components.StateCollecting)
	}
	rs, _ := w.RobotStats(r)
	if rs.ResourcesCollected != 1 {
		t.Errorf("robot collected = %d, want 1", rs.ResourcesCollected)
	}
	if got := w.ResourceCount(); got != 0 {
		t.Errorf("resource count = %d, want 0 (plain resource removed)", got)
	}
	if got := w.Stats().ResourcesCollected; got != 1 {
		t.Errorf("world collected = %d, want 1", got)
	}
}

func TestCollectionCapsEnergy(t *testing.T) {
	w := newTestWorld(t, nil)
	r := addIdleRobot(w, 0.3, 0, 0)
	addPlainResource(w, 0, 0, 0, 20)

	w.Step()

	e, _ := w.RobotEnergy(r)
	if e.Value != e.Max {
		t.Errorf("energy = %v, want capped at %v", e.Value, e.Max)
	}
	if got := w.Stats().ResourcesCollected; got != 1 {
		t.Errorf("world collected = %d, want 1", got)
	}
}

func TestResourceRespawnTiming(t *testing.T) {
	w := newTestWorld(t, nil)
	addIdleRobot(w, 0.3, 0, 0)
	rid := w.AddResource(components.Position{}, components.Color{G: 1},
		components.Resource{Value: 20, Collectible: true, RespawnDelay: 5})

	w.Step()
	if got := w.Stats().ResourcesCollected; got != 1 {
		t.Fatalf("collected after step 1 = %d, want 1", got)
	}
	if w.ResourceCollectible(rid) {
		t.Fatal("resource still collectible after harvest")
	}
	if got := w.ResourceCount(); got != 1 {
		t.Fatalf("resource count = %d, want 1 (dormant, not removed)", got)
	}

	// Dormant for the full delay: steps 2 through 5 yield nothing.
	for step := 2; step <= 5; step++ {
		w.Step()
		if got := w.Stats().ResourcesCollected; got != 1 {
			t.Fatalf("collected after step %d = %d, want 1", step, got)
		}
	}

	// Step 6: the countdown expires at the top of the step, the resource
	// reappears, and the adjacent robot harvests it again.
	w.Step()
	if got := w.Stats().ResourcesCollected; got != 2 {
		t.Errorf("collected after step 6 = %d, want 2", got)
	}
	if w.ResourceCollectible(rid) {
		t.Error("resource collectible right after second harvest")
	}
}

func TestFaultIsolation(t *testing.T) {
	w := newTestWorld(t, nil)
	bad := w.AddRobot(components.Position{}, components.Color{R: 1}, errBrain{})
	good := w.AddRobot(components.Position{X: 5}, components.Color{B: 1}, fixedBrain{action: 1})

	w.Step()

	if got := w.Stats().Faults; got != 1 {
		t.Errorf("faults = %d, want 1", got)
	}
	pos, _ := w.RobotPosition(bad)
	if pos != (components.Position{}) {
		t.Errorf("faulted robot moved to %+v", pos)
	}
	e, _ := w.RobotEnergy(bad)
	if e.Value != e.Max {
		t.Errorf("faulted robot energy = %v, want untouched %v", e.Value, e.Max)
	}
	pos, _ = w.RobotPosition(good)
	if pos != (components.Position{X: 6}) {
		t.Errorf("healthy robot at %+v, want {6 0 0}", pos)
	}
}

func TestUnknownActionCodeIsFault(t *testing.T) {
	w := newTestWorld(t, nil)
	r := w.AddRobot(components.Position{}, components.Color{R: 1},
		&scriptBrain{actions: []int{9}})

	w.Step()

	if got := w.Stats().Faults; got != 1 {
		t.Errorf("faults = %d, want 1", got)
	}
	pos, _ := w.RobotPosition(r)
	if pos != (components.Position{}) {
		t.Errorf("robot moved to %+v on an unknown code", pos)
	}
	st, _ := w.RobotState(r)
	if st != components.StateIdle {
		t.Errorf("state = %v, want idle", st)
	}
}

func TestDeadRobotCannotCollect(t *testing.T) {
	w := newTestWorld(t, func(cfg *config.Config) {
		cfg.Robot.MovementCost = 100
	})
	// The move that lands the robot on the resource also exhausts it.
	r := w.AddRobot(components.Position{X: -1}, components.Color{R: 1},
		&scriptBrain{actions: []int{1}})
	addPlainResource(w, 0, 0, 0, 20)

	w.Step()

	st, _ := w.RobotState(r)
	if st != components.StateDead {
		t.Fatalf("state = %v, want dead", st)
	}
	e, _ := w.RobotEnergy(r)
	if e.Value != 0 {
		t.Errorf("energy = %v, want 0 (no posthumous collect)", e.Value)
	}
	if got := w.Stats().ResourcesCollected; got != 0 {
		t.Errorf("world collected = %d, want 0", got)
	}
	if got := w.ResourceCount(); got != 1 {
		t.Errorf("resource count = %d, want 1 (untouched)", got)
	}

	w.Step()
	if got := w.RobotCount(); got != 0 {
		t.Errorf("robot count after pruning step = %d, want 0", got)
	}
}

func TestExhaustedRobotIsPrunedNextStep(t *testing.T) {
	w := newTestWorld(t, func(cfg *config.Config) {
		cfg.Robot.MovementCost = 100
	})
	r := w.AddRobot(components.Position{}, components.Color{R: 1}, fixedBrain{action: 1})

	w.Step()
	if got := w.RobotCount(); got != 1 {
		t.Fatalf("robot count after dying step = %d, want 1", got)
	}
	st, _ := w.RobotState(r)
	if st != components.StateDead {
		t.Fatalf("state = %v, want dead", st)
	}

	w.Step()
	if got := w.RobotCount(); got != 0 {
		t.Errorf("robot count after pruning step = %d, want 0", got)
	}
	if got := w.Stats().RobotsDestroyed; got != 1 {
		t.Errorf("robots destroyed = %d, want 1", got)
	}
}

func TestRemoveRobotPurgesPeerLinks(t *testing.T) {
	w := newTestWorld(t, nil)
	a := addIdleRobot(w, 0, 0, 0)
	b := addIdleRobot(w, 1, 0, 0)

	w.Step()
	if got := w.ConnectionLevel(b, a); got == components.LevelNone {
		t.Fatal("robots never connected")
	}

	w.RemoveRobot(a)
	if got := w.ConnectionLevel(b, a); got != components.LevelNone {
		t.Errorf("level after peer removal = %v, want none", got)
	}
	if links := w.connMap.Get(w.robots[b]).Links; len(links) != 0 {
		t.Errorf("survivor still holds %d links", len(links))
	}
}

func TestViewsOrdering(t *testing.T) {
	w := newTestWorld(t, nil)
	addIdleRobot(w, 0, 0, 0)
	addPlainResource(w, 5, 0, 0, 20)
	addIdleRobot(w, 9, 0, 0)

	views := w.Views()
	if len(views) != 3 {
		t.Fatalf("views = %d entries, want 3", len(views))
	}
	if views[0].Kind != "robot" || views[1].Kind != "robot" || views[2].Kind != "resource" {
		t.Errorf("kinds = %s, %s, %s; want robots before resources",
			views[0].Kind, views[1].Kind, views[2].Kind)
	}
	if views[0].ID >= views[1].ID {
		t.Errorf("robot ids not ascending: %d, %d", views[0].ID, views[1].ID)
	}
}

func TestInvariantsOverSeededRun(t *testing.T) {
	w := newTestWorld(t, func(cfg *config.Config) {
		cfg.World.InitialRobots = 20
		cfg.World.InitialResources = 30
		cfg.World.SpawnExtent = 8
		cfg.Resource.RespawnDelay = 10
	})
	w.SpawnInitial()

	for step := 0; step < 100; step++ {
		w.Step()

		for id, e := range w.robots {
			energy := w.energyMap.Get(e)
			if energy.Value < 0 || energy.Value > energy.Max {
				t.Fatalf("step %d: robot %d energy %v outside [0, %v]",
					step+1, id, energy.Value, energy.Max)
			}
			for peer, level := range w.connMap.Get(e).Links {
				pe, ok := w.robots[peer]
				if !ok {
					t.Fatalf("step %d: robot %d linked to missing peer %d", step+1, id, peer)
				}
				if got := w.connMap.Get(pe).Links[id]; got != level {
					t.Fatalf("step %d: asymmetric edge %d-%d: %v vs %v",
						step+1, id, peer, level, got)
				}
			}
		}
	}

	st := w.Stats()
	if int(st.RobotsCreated-st.RobotsDestroyed) != w.RobotCount() {
		t.Errorf("created %d - destroyed %d != population %d",
			st.RobotsCreated, st.RobotsDestroyed, w.RobotCount())
	}
}
