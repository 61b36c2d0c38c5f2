// Package render defines the renderer collaborator the world drives, and
// its implementations: a headless no-op, a websocket/WebGL broadcaster,
// and a native raylib viewer. Renderers see only plain EntityView values,
// never world internals, and must never block the simulation step.
package render

import "context"

// View kinds.
const (
	ViewRobot    = "robot"
	ViewResource = "resource"
)

// EntityView is the renderer-facing projection of one entity.
type EntityView struct {
	ID    uint32     `json:"id"`
	Kind  string     `json:"kind"`
	Pos   [3]float32 `json:"pos"`
	Color [3]float32 `json:"col"`

	// Robot fields
	State  string  `json:"state,omitempty"`
	Energy float32 `json:"energy,omitempty"` // fraction of max, 0..1

	// Resource fields
	Value float32 `json:"value,omitempty"` // fraction of original value, 0..1
}

// Loop is the callback surface a renderer drives: it advances the
// simulation and snapshots the current views.
type Loop interface {
	Step()
	Views() []EntityView
	StepCount() int64
}

// Renderer is the external visualization collaborator. Add/Remove/Update
// are called by the world as membership and state change; Run hands the
// renderer control of the simulation loop until the context is canceled.
type Renderer interface {
	Add(v EntityView)
	Remove(id uint32)
	Update(v EntityView)
	Run(ctx context.Context, lp Loop) error
}

// Null is the headless renderer: notifications are discarded and Run
// steps the loop as fast as it can until canceled.
type Null struct{}

// Add implements Renderer.
func (Null) Add(EntityView) {}

// Remove implements Renderer.
func (Null) Remove(uint32) {}

// Update implements Renderer.
func (Null) Update(EntityView) {}

// Run implements Renderer.
func (Null) Run(ctx context.Context, lp Loop) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
			lp.Step()
		}
	}
}
