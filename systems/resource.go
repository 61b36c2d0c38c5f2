package systems

import "github.com/vbe-lab/vbe3d/components"

// Collect attempts to harvest a resource and returns the energy granted.
// A non-collectible resource yields zero with no side effect. Otherwise the
// current value is returned and the lifecycle flags advance: a use-limited
// resource counts the use, a respawning resource goes dormant and arms its
// countdown, and a plain resource (no respawn, no remaining uses) becomes
// permanently depleted so the world removes it this step.
func Collect(r *components.Resource) float32 {
	if !r.Collectible {
		return 0
	}
	v := r.Value

	if r.MaxUses > 0 {
		r.Uses++
		if r.Uses >= r.MaxUses {
			r.Collectible = false
		}
	}

	if r.RespawnDelay > 0 {
		r.Collectible = false
		r.RespawnArmed = true
		r.RespawnIn = r.RespawnDelay
	} else if r.MaxUses == 0 {
		// Single-use by default, like the plain resource blocks.
		r.Collectible = false
	}

	return v
}

// TickResource advances one resource by one step. An armed respawn
// countdown decrements and, at zero, restores the original value, resets
// the use counter, and makes the resource collectible again. Decay applies
// every tick regardless of respawn state, floored at zero.
func TickResource(r *components.Resource) {
	if r.RespawnArmed {
		r.RespawnIn--
		if r.RespawnIn <= 0 {
			r.Value = r.Original
			r.Uses = 0
			r.Collectible = true
			r.RespawnArmed = false
			r.RespawnIn = 0
		}
	}

	if r.DecayRate > 0 {
		r.Value -= r.DecayRate
		if r.Value < 0 {
			r.Value = 0
		}
	}
}

// PermanentlyDepleted reports whether a resource can never be collected
// again and should be removed from the world. Resources with a pending
// respawn remain present but inert.
func PermanentlyDepleted(r *components.Resource) bool {
	return !r.Collectible && !r.RespawnArmed
}
