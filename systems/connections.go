package systems

import "github.com/vbe-lab/vbe3d/components"

// Connect forms or strengthens the edge between two robots. Both endpoints
// are updated in the same call so the levels can never diverge. A new edge
// starts at Weak and bumps each side's connections-made stat once; an
// existing edge below Permanent gains one level.
func Connect(
	aID, bID uint32,
	a, b *components.Connections,
	sa, sb *components.Stats,
) {
	level, exists := a.Links[bID]
	if !exists {
		a.Links[bID] = components.LevelWeak
		b.Links[aID] = components.LevelWeak
		sa.ConnectionsMade++
		sb.ConnectionsMade++
		return
	}
	if level < components.LevelPermanent {
		a.Links[bID] = level + 1
		b.Links[aID] = level + 1
	}
}

// Disconnect weakens or breaks the edge between two robots. Permanent
// edges are immutable and the call is a no-op. An edge above Weak loses
// one level on both sides; a Weak edge is removed entirely.
func Disconnect(aID, bID uint32, a, b *components.Connections) {
	level, exists := a.Links[bID]
	if !exists || level == components.LevelPermanent {
		return
	}
	if level > components.LevelWeak {
		a.Links[bID] = level - 1
		b.Links[aID] = level - 1
		return
	}
	delete(a.Links, bID)
	delete(b.Links, aID)
}
