package components

// Level is the strength of a connection between two robots.
// Levels are always numerically identical on both endpoints.
type Level uint8

const (
	LevelNone Level = iota
	LevelWeak
	LevelMedium
	LevelStrong
	LevelPermanent
)

// String returns the display name for a Level.
func (l Level) String() string {
	switch l {
	case LevelNone:
		return "none"
	case LevelWeak:
		return "weak"
	case LevelMedium:
		return "medium"
	case LevelStrong:
		return "strong"
	case LevelPermanent:
		return "permanent"
	}
	return "unknown"
}

// Connections maps peer robot ids to connection levels. The zero value is
// not usable; call NewConnections when spawning.
type Connections struct {
	Links map[uint32]Level
}

// NewConnections returns an empty connection map.
func NewConnections() Connections {
	return Connections{Links: make(map[uint32]Level)}
}

// Level returns the connection level to peer, LevelNone if unconnected.
func (c *Connections) Level(peer uint32) Level {
	return c.Links[peer]
}

// Count returns the number of connected peers.
func (c *Connections) Count() int {
	return len(c.Links)
}
