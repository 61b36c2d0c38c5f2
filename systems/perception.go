package systems

import "github.com/vbe-lab/vbe3d/components"

// ObsLen is the fixed observation length fed to brains.
const ObsLen = 9

// Candidate is a spatial-query hit considered during perception.
type Candidate struct {
	ID  uint32
	Pos components.Position
}

// Nearest returns the candidate closest to origin. Exact-equal distances
// are broken by lowest id so perception is reproducible regardless of
// container iteration order. Returns false when cands is empty.
func Nearest(origin components.Position, cands []Candidate) (Candidate, bool) {
	if len(cands) == 0 {
		return Candidate{}, false
	}
	best := cands[0]
	bestSq := origin.DistSq(best.Pos)
	for _, c := range cands[1:] {
		sq := origin.DistSq(c.Pos)
		if sq < bestSq || (sq == bestSq && c.ID < best.ID) {
			best = c
			bestSq = sq
		}
	}
	return best, true
}

// BuildObservation fills out with the fixed 9-float observation layout:
//
//	[0..3) nearest resource position - self position (zeros if none)
//	[3..6) nearest robot position - self position (zeros if none)
//	[6]    energy / max energy
//	[7]    min(connections, 10) / 10
//	[8]    1-based state ordinal / state count (idle = 1/5)
//
// out must have length ObsLen.
func BuildObservation(
	out []float32,
	self components.Position,
	res Candidate, hasRes bool,
	bot Candidate, hasBot bool,
	energy components.Energy,
	connCount int,
	state components.RobotState,
) []float32 {
	for i := range out {
		out[i] = 0
	}
	if hasRes {
		d := res.Pos.Vec().Sub(self.Vec())
		out[0], out[1], out[2] = d.X, d.Y, d.Z
	}
	if hasBot {
		d := bot.Pos.Vec().Sub(self.Vec())
		out[3], out[4], out[5] = d.X, d.Y, d.Z
	}
	if energy.Max > 0 {
		out[6] = energy.Value / energy.Max
	}
	if connCount > 10 {
		connCount = 10
	}
	out[7] = float32(connCount) / 10
	out[8] = float32(state+1) / float32(components.StateCount)
	return out
}
