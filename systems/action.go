package systems

import (
	"errors"
	"fmt"

	"github.com/vbe-lab/vbe3d/components"
)

// NumActions is the size of the discrete action space.
const NumActions = 7

// ErrUnknownAction is returned for action codes outside [0, NumActions).
// The caller treats the robot's turn as a no-op; an unmapped motion is
// never performed silently.
var ErrUnknownAction = errors.New("unknown action code")

// moveDelta maps movement action codes 1..6 to unit translations.
var moveDelta = [NumActions]components.Vector3{
	1: {X: 1},
	2: {X: -1},
	3: {Z: 1},
	4: {Z: -1},
	5: {Y: 1},
	6: {Y: -1},
}

// ApplyAction executes one decided action against a robot's components.
// Code 0 idles. Codes 1..6 translate the position by one unit, charge the
// movement cost, and update travel stats. A robot whose energy reaches
// zero after moving dies; the world removes it at the top of the next step.
func ApplyAction(
	code int,
	pos *components.Position,
	robot *components.Robot,
	energy *components.Energy,
	stats *components.Stats,
) error {
	if code == 0 {
		robot.State = components.StateIdle
		return nil
	}
	if code < 0 || code >= NumActions {
		return fmt.Errorf("%w: %d", ErrUnknownAction, code)
	}

	robot.State = components.StateMoving

	old := *pos
	d := moveDelta[code]
	pos.X += d.X
	pos.Y += d.Y
	pos.Z += d.Z

	stats.DistanceTraveled += old.Dist(*pos)
	stats.EnergyConsumed += energy.MovementCost
	stats.Lifetime++

	if energy.Spend(energy.MovementCost) {
		robot.State = components.StateDead
	}
	return nil
}

// ApplyCollect credits a collected resource value to a robot, respecting
// the max-energy cap. Zero-value collects leave the robot untouched.
func ApplyCollect(
	value float32,
	robot *components.Robot,
	energy *components.Energy,
	stats *components.Stats,
) {
	if value <= 0 {
		return
	}
	robot.State = components.StateCollecting
	energy.Gain(value)
	stats.ResourcesCollected++
}
