// Package components defines ECS components for the simulation.
package components

import "math"

// Vector3 is a plain value triple. No ownership semantics; copy freely.
type Vector3 struct {
	X, Y, Z float32
}

// Add returns v + o.
func (v Vector3) Add(o Vector3) Vector3 {
	return Vector3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

// Sub returns v - o.
func (v Vector3) Sub(o Vector3) Vector3 {
	return Vector3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

// Len returns the Euclidean length of v.
func (v Vector3) Len() float32 {
	return float32(math.Sqrt(float64(v.LenSq())))
}

// LenSq returns the squared length of v. Avoids sqrt in hot paths.
func (v Vector3) LenSq() float32 {
	return v.X*v.X + v.Y*v.Y + v.Z*v.Z
}

// Position is an entity's world position.
type Position struct {
	X, Y, Z float32
}

// Vec converts the position to a Vector3 for math.
func (p Position) Vec() Vector3 {
	return Vector3{p.X, p.Y, p.Z}
}

// Dist returns the exact Euclidean distance to o.
func (p Position) Dist(o Position) float32 {
	return p.Vec().Sub(o.Vec()).Len()
}

// DistSq returns the squared distance to o.
func (p Position) DistSq(o Position) float32 {
	return p.Vec().Sub(o.Vec()).LenSq()
}

// Color is an RGB triple, each channel in [0,1]. Cosmetic only.
type Color struct {
	R, G, B float32
}

// Mix returns the element-wise average of two colors, used for offspring.
func (c Color) Mix(o Color) Color {
	return Color{(c.R + o.R) / 2, (c.G + o.G) / 2, (c.B + o.B) / 2}
}

// RobotState is the state set by a robot's last action. It is observable
// but not causal, except Dead, which is terminal.
type RobotState uint8

const (
	StateIdle RobotState = iota
	StateMoving
	StateCollecting
	StateReproducing
	StateDead

	// StateCount is the number of robot states, for observation normalization.
	StateCount = 5
)

// String returns the display name for a RobotState.
func (s RobotState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateMoving:
		return "moving"
	case StateCollecting:
		return "collecting"
	case StateReproducing:
		return "reproducing"
	case StateDead:
		return "dead"
	}
	return "unknown"
}

// RobotStateFromString parses a state name, defaulting to idle.
func RobotStateFromString(s string) RobotState {
	for st := StateIdle; st < StateCount; st++ {
		if RobotState(st).String() == s {
			return RobotState(st)
		}
	}
	return StateIdle
}

// Robot holds a robot's identity and lifecycle state.
type Robot struct {
	ID    uint32
	State RobotState
}

// Energy tracks a robot's energy budget and the configuration floats fixed
// at construction. Value stays in [0, Max].
type Energy struct {
	Value          float32
	Max            float32
	MovementCost   float32
	ReproThreshold float32
}

// Gain adds v to the energy value, capped at Max.
func (e *Energy) Gain(v float32) {
	e.Value += v
	if e.Value > e.Max {
		e.Value = e.Max
	}
}

// Spend subtracts v from the energy value, floored at zero. Returns true
// when the robot is exhausted.
func (e *Energy) Spend(v float32) bool {
	e.Value -= v
	if e.Value <= 0 {
		e.Value = 0
		return true
	}
	return false
}

// Stats holds per-robot lifetime counters. Observational only.
type Stats struct {
	DistanceTraveled   float32
	ResourcesCollected int
	ConnectionsMade    int
	OffspringProduced  int
	EnergyConsumed     float32
	Lifetime           int32
}
