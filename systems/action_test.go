package systems

import (
	"errors"
	"testing"

	"github.com/vbe-lab/vbe3d/components"
)

func testRobot() (components.Position, components.Robot, components.Energy, components.Stats) {
	return components.Position{},
		components.Robot{ID: 1},
		components.Energy{Value: 100, Max: 100, MovementCost: 1},
		components.Stats{}
}

func TestApplyActionMovementMapping(t *testing.T) {
	tests := []struct {
		code int
		want components.Position
	}{
		{1, components.Position{X: 1}},
		{2, components.Position{X: -1}},
		{3, components.Position{Z: 1}},
		{4, components.Position{Z: -1}},
		{5, components.Position{Y: 1}},
		{6, components.Position{Y: -1}},
	}
	for _, tt := range tests {
		pos, rob, energy, stats := testRobot()
		if err := ApplyAction(tt.code, &pos, &rob, &energy, &stats); err != nil {
			t.Fatalf("action %d: unexpected error %v", tt.code, err)
		}
		if pos != tt.want {
			t.Errorf("action %d moved to %v, want %v", tt.code, pos, tt.want)
		}
		if rob.State != components.StateMoving {
			t.Errorf("action %d state = %v, want moving", tt.code, rob.State)
		}
		if energy.Value != 99 {
			t.Errorf("action %d energy = %v, want 99", tt.code, energy.Value)
		}
		if stats.DistanceTraveled != 1 {
			t.Errorf("action %d distance = %v, want 1", tt.code, stats.DistanceTraveled)
		}
		if stats.Lifetime != 1 || stats.EnergyConsumed != 1 {
			t.Errorf("action %d stats = %+v, want lifetime 1, consumed 1", tt.code, stats)
		}
	}
}

func TestApplyActionIdle(t *testing.T) {
	pos, rob, energy, stats := testRobot()
	rob.State = components.StateMoving

	if err := ApplyAction(0, &pos, &rob, &energy, &stats); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rob.State != components.StateIdle {
		t.Errorf("state = %v, want idle", rob.State)
	}
	if pos != (components.Position{}) || energy.Value != 100 {
		t.Errorf("idle changed position or energy: pos=%v energy=%v", pos, energy.Value)
	}
}

func TestApplyActionUnknownCode(t *testing.T) {
	for _, code := range []int{-1, 7, 42} {
		pos, rob, energy, stats := testRobot()
		err := ApplyAction(code, &pos, &rob, &energy, &stats)
		if !errors.Is(err, ErrUnknownAction) {
			t.Errorf("code %d: err = %v, want ErrUnknownAction", code, err)
		}
		if pos != (components.Position{}) || energy.Value != 100 {
			t.Errorf("code %d performed a motion: pos=%v energy=%v", code, pos, energy.Value)
		}
	}
}

func TestApplyActionExhaustionKills(t *testing.T) {
	pos, rob, energy, stats := testRobot()
	energy.Value = 1

	if err := ApplyAction(1, &pos, &rob, &energy, &stats); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if energy.Value != 0 {
		t.Errorf("energy = %v, want 0", energy.Value)
	}
	if rob.State != components.StateDead {
		t.Errorf("state = %v, want dead", rob.State)
	}
}

func TestApplyActionEnergyFlooredAtZero(t *testing.T) {
	pos, rob, energy, stats := testRobot()
	energy.Value = 0.5
	energy.MovementCost = 2

	if err := ApplyAction(3, &pos, &rob, &energy, &stats); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if energy.Value != 0 {
		t.Errorf("energy = %v, want floor at 0", energy.Value)
	}
}

func TestApplyCollect(t *testing.T) {
	_, rob, energy, stats := testRobot()
	energy.Value = 95

	ApplyCollect(20, &rob, &energy, &stats)
	if energy.Value != 100 {
		t.Errorf("energy = %v, want capped at 100", energy.Value)
	}
	if rob.State != components.StateCollecting {
		t.Errorf("state = %v, want collecting", rob.State)
	}
	if stats.ResourcesCollected != 1 {
		t.Errorf("collected stat = %d, want 1", stats.ResourcesCollected)
	}

	// A zero-value collect is a no-op.
	ApplyCollect(0, &rob, &energy, &stats)
	if stats.ResourcesCollected != 1 {
		t.Errorf("zero-value collect counted: stat = %d", stats.ResourcesCollected)
	}
}
