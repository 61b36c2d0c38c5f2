package world

import (
	"path/filepath"
	"reflect"
	"testing"

	"github.com/vbe-lab/vbe3d/components"
	"github.com/vbe-lab/vbe3d/config"
	"github.com/vbe-lab/vbe3d/snapshot"
)

func TestSaveRestoreRoundTrip(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	cfg.World.InitialRobots = 12
	cfg.World.InitialResources = 8
	cfg.World.SpawnExtent = 5
	cfg.Resource.RespawnDelay = 10

	w, err := New(cfg, Options{Seed: 42})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()
	w.SpawnInitial()
	for i := 0; i < 20; i++ {
		w.Step()
	}

	dir := t.TempDir()
	first := filepath.Join(dir, "state.json")
	if err := w.Save(first); err != nil {
		t.Fatalf("Save: %v", err)
	}

	r, err := Restore(first, cfg, Options{})
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	defer r.Close()

	if r.StepCount() != w.StepCount() {
		t.Errorf("step = %d, want %d", r.StepCount(), w.StepCount())
	}
	if r.Seed() != w.Seed() {
		t.Errorf("seed = %d, want %d", r.Seed(), w.Seed())
	}
	if r.RobotCount() != w.RobotCount() {
		t.Errorf("robots = %d, want %d", r.RobotCount(), w.RobotCount())
	}
	if r.ResourceCount() != w.ResourceCount() {
		t.Errorf("resources = %d, want %d", r.ResourceCount(), w.ResourceCount())
	}

	// A second save of the restored world must reproduce the document
	// byte-for-byte in meaning: positions, energies, topology, brains.
	second := filepath.Join(dir, "state2.json")
	if err := r.Save(second); err != nil {
		t.Fatalf("Save restored: %v", err)
	}
	a, err := snapshot.Read(first)
	if err != nil {
		t.Fatalf("Read first: %v", err)
	}
	b, err := snapshot.Read(second)
	if err != nil {
		t.Fatalf("Read second: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Errorf("restored state diverges from saved state\nfirst  %+v\nsecond %+v", a, b)
	}
}

func TestRestoreRebuildsConnections(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	w, err := New(cfg, Options{Seed: 7})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()
	a := w.AddRobot(components.Position{}, components.Color{R: 1}, fixedBrain{})
	b := w.AddRobot(components.Position{X: 1}, components.Color{B: 1}, fixedBrain{})
	for i := 0; i < 3; i++ {
		w.Step()
	}
	if got := w.ConnectionLevel(a, b); got != components.LevelStrong {
		t.Fatalf("level before save = %v, want %v", got, components.LevelStrong)
	}

	path := filepath.Join(t.TempDir(), "pair.json.zst")
	if err := w.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	r, err := Restore(path, cfg, Options{})
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	defer r.Close()

	if got := r.ConnectionLevel(a, b); got != components.LevelStrong {
		t.Errorf("restored level = %v, want %v", got, components.LevelStrong)
	}
	if got := r.ConnectionLevel(b, a); got != components.LevelStrong {
		t.Errorf("restored reverse level = %v, want %v", got, components.LevelStrong)
	}

	// New ids continue past the restored ones.
	c := r.AddRobot(components.Position{X: 5}, components.Color{G: 1}, fixedBrain{})
	if c <= b {
		t.Errorf("new id %d not past restored ids", c)
	}
}

func TestRestoreMissingFile(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	if _, err := Restore(filepath.Join(t.TempDir(), "nope.json"), cfg, Options{}); err == nil {
		t.Error("Restore of a missing file succeeded")
	}
}
