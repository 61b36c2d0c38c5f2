package systems

import (
	"testing"

	"github.com/vbe-lab/vbe3d/components"
)

func TestNearestPicksMinimumDistance(t *testing.T) {
	origin := components.Position{}
	cands := []Candidate{
		{ID: 5, Pos: components.Position{X: 3}},
		{ID: 2, Pos: components.Position{X: 1}},
		{ID: 9, Pos: components.Position{X: 2}},
	}

	got, ok := Nearest(origin, cands)
	if !ok || got.ID != 2 {
		t.Errorf("Nearest = %v ok=%v, want id 2", got, ok)
	}
}

func TestNearestTieBreaksByLowestID(t *testing.T) {
	origin := components.Position{}
	cands := []Candidate{
		{ID: 7, Pos: components.Position{X: 1}},
		{ID: 3, Pos: components.Position{Y: 1}},
		{ID: 5, Pos: components.Position{Z: 1}},
	}

	got, ok := Nearest(origin, cands)
	if !ok || got.ID != 3 {
		t.Errorf("Nearest tie = id %d ok=%v, want lowest id 3", got.ID, ok)
	}
}

func TestNearestEmpty(t *testing.T) {
	if _, ok := Nearest(components.Position{}, nil); ok {
		t.Error("Nearest on empty candidates reported a hit")
	}
}

func TestBuildObservationLayout(t *testing.T) {
	self := components.Position{X: 1, Y: 2, Z: 3}
	res := Candidate{ID: 10, Pos: components.Position{X: 4, Y: 2, Z: 3}}
	bot := Candidate{ID: 11, Pos: components.Position{X: 1, Y: 0, Z: 5}}
	energy := components.Energy{Value: 25, Max: 100}

	out := BuildObservation(make([]float32, ObsLen), self, res, true, bot, true,
		energy, 3, components.StateMoving)

	want := []float32{
		3, 0, 0, // resource delta
		0, -2, 2, // robot delta
		0.25,    // energy ratio
		0.3,     // 3 connections / 10
		2.0 / 5, // moving is the second state, 1-based
	}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("obs[%d] = %v, want %v", i, out[i], want[i])
		}
	}
}

func TestBuildObservationMissingNeighborsAreZero(t *testing.T) {
	self := components.Position{X: 9, Y: 9, Z: 9}
	energy := components.Energy{Value: 50, Max: 100}

	out := BuildObservation(make([]float32, ObsLen), self,
		Candidate{}, false, Candidate{}, false, energy, 0, components.StateIdle)

	for i := 0; i < 6; i++ {
		if out[i] != 0 {
			t.Errorf("obs[%d] = %v, want 0 when nothing is in range", i, out[i])
		}
	}
	if out[6] != 0.5 {
		t.Errorf("energy ratio = %v, want 0.5", out[6])
	}
}

func TestBuildObservationStateOrdinalIsOneBased(t *testing.T) {
	tests := []struct {
		state components.RobotState
		want  float32
	}{
		{components.StateIdle, 1.0 / 5},
		{components.StateMoving, 2.0 / 5},
		{components.StateDead, 1},
	}
	for _, tt := range tests {
		out := BuildObservation(make([]float32, ObsLen), components.Position{},
			Candidate{}, false, Candidate{}, false,
			components.Energy{Value: 1, Max: 1}, 0, tt.state)
		if out[8] != tt.want {
			t.Errorf("state %v: obs[8] = %v, want %v", tt.state, out[8], tt.want)
		}
	}
}

func TestBuildObservationConnectionSaturation(t *testing.T) {
	out := BuildObservation(make([]float32, ObsLen), components.Position{},
		Candidate{}, false, Candidate{}, false,
		components.Energy{Value: 1, Max: 1}, 25, components.StateIdle)

	if out[7] != 1 {
		t.Errorf("connection feature = %v, want saturation at 1", out[7])
	}
}
