package neural

import "math/rand"

// Observation indices the rule-based policy reads.
const (
	obsResDX  = 0
	obsResDY  = 1
	obsResDZ  = 2
	obsEnergy = 6
)

// conserveBelow is the normalized energy level under which the policy sits
// still instead of wandering.
const conserveBelow = 0.1

// RuleBased is the deterministic fallback policy: walk toward the nearest
// resource along its dominant axis, conserve when energy is low, otherwise
// take a seeded random step on the ground plane.
type RuleBased struct {
	rng *rand.Rand
}

// NewRuleBased creates a rule-based brain with its own seeded rng for the
// wander behavior.
func NewRuleBased(seed int64) *RuleBased {
	return &RuleBased{rng: rand.New(rand.NewSource(seed))}
}

// Kind returns KindRuleBased.
func (b *RuleBased) Kind() Kind { return KindRuleBased }

// DecideAction implements Brain.
func (b *RuleBased) DecideAction(obs []float32) (int, error) {
	if err := checkObs(obs); err != nil {
		return 0, err
	}

	dx, dy, dz := obs[obsResDX], obs[obsResDY], obs[obsResDZ]
	ax, ay, az := abs32(dx), abs32(dy), abs32(dz)

	// A resource within sensing range pulls the robot along the axis with
	// the largest remaining distance.
	if ax > 0.1 || ay > 0.1 || az > 0.1 {
		switch {
		case ax >= ay && ax >= az:
			if dx > 0 {
				return 1, nil
			}
			return 2, nil
		case az >= ax && az >= ay:
			if dz > 0 {
				return 3, nil
			}
			return 4, nil
		default:
			if dy > 0 {
				return 5, nil
			}
			return 6, nil
		}
	}

	if obs[obsEnergy] < conserveBelow {
		return 0, nil
	}

	// Random walk on the ground plane; vertical moves are left to policies
	// that have a reason to climb.
	return b.rng.Intn(5), nil
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
