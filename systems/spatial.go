// Package systems provides the pure-logic systems of the simulation:
// spatial indexing, perception, actions, connections, and resource
// lifecycle. Systems mutate components passed to them and hold no world
// state of their own.
package systems

import (
	"math"

	"github.com/mlange-42/ark/ecs"

	"github.com/vbe-lab/vbe3d/components"
)

// CellKey identifies one grid cell. Cells are unit cubes keyed by the floor
// of each position axis.
type CellKey struct {
	X, Y, Z int32
}

// CellOf returns the grid cell containing a position.
func CellOf(p components.Position) CellKey {
	return CellKey{
		X: int32(math.Floor(float64(p.X))),
		Y: int32(math.Floor(float64(p.Y))),
		Z: int32(math.Floor(float64(p.Z))),
	}
}

// Entry is one indexed entity. The position is frozen at insert time, so
// queries against a rebuilt grid are safe for concurrent readers even
// while live components change elsewhere.
type Entry struct {
	Entity ecs.Entity
	ID     uint32
	Robot  bool
	Pos    components.Position
}

// SpatialGrid buckets entities into uniform cells for cheap proximity
// queries. The grid holds no ownership of entities and is stale the moment
// an entity moves; the world rebuilds it once per step before any query.
type SpatialGrid struct {
	cells map[CellKey][]Entry
}

// NewSpatialGrid creates an empty grid.
func NewSpatialGrid() *SpatialGrid {
	return &SpatialGrid{cells: make(map[CellKey][]Entry)}
}

// Clear removes all entries, keeping cell capacity for reuse.
func (g *SpatialGrid) Clear() {
	for k := range g.cells {
		g.cells[k] = g.cells[k][:0]
	}
}

// Insert adds an entry at its position's cell.
func (g *SpatialGrid) Insert(e Entry) {
	key := CellOf(e.Pos)
	g.cells[key] = append(g.cells[key], e)
}

// Len returns the total number of stored entries.
func (g *SpatialGrid) Len() int {
	n := 0
	for _, c := range g.cells {
		n += len(c)
	}
	return n
}

// QueryInto appends every entry whose cell lies within ceil(radius) cells
// of the center's cell along each axis, and returns the updated slice.
// The scanned region is a cube, not a sphere: the result is a superset of
// the true spherical neighborhood and callers do their own exact-distance
// filtering. Each entity occupies exactly one cell, so no entity appears
// twice. Reuse dst across calls to avoid allocations.
func (g *SpatialGrid) QueryInto(dst []Entry, center components.Position, radius float32) []Entry {
	if radius < 0 {
		return dst
	}
	c := CellOf(center)
	r := int32(math.Ceil(float64(radius)))

	for dx := -r; dx <= r; dx++ {
		for dy := -r; dy <= r; dy++ {
			for dz := -r; dz <= r; dz++ {
				key := CellKey{c.X + dx, c.Y + dy, c.Z + dz}
				if bucket, ok := g.cells[key]; ok {
					dst = append(dst, bucket...)
				}
			}
		}
	}
	return dst
}
