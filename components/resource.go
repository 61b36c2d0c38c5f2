package components

// ResourceKind tags a resource. Purely classificatory; does not change
// collection mechanics.
type ResourceKind uint8

const (
	KindEnergy ResourceKind = iota
	KindMaterial
	KindSpecial
)

// String returns the display name for a ResourceKind.
func (k ResourceKind) String() string {
	switch k {
	case KindEnergy:
		return "energy"
	case KindMaterial:
		return "material"
	case KindSpecial:
		return "special"
	}
	return "unknown"
}

// ResourceKindFromString parses a kind name, defaulting to energy.
func ResourceKindFromString(s string) ResourceKind {
	switch s {
	case "material":
		return KindMaterial
	case "special":
		return KindSpecial
	}
	return KindEnergy
}

// Resource is a static collectible world element.
type Resource struct {
	ID       uint32
	Value    float32
	Original float32 // restored on respawn
	Kind     ResourceKind

	DecayRate float32 // value lost per tick, floored at 0
	MaxUses   int     // 0 = unlimited
	Uses      int

	RespawnDelay int32 // 0 = no respawn
	RespawnIn    int32
	RespawnArmed bool

	Collectible bool
	Obstacle    bool
}
