package render

import (
	"context"
	"fmt"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
)

// Raylib is the native 3D viewer. It pulls the full view list every
// frame, so Add/Remove/Update are no-ops.
type Raylib struct {
	width         int32
	height        int32
	targetFPS     int32
	stepsPerFrame int
}

// NewRaylib creates a native window renderer with the given screen settings.
func NewRaylib(width, height, targetFPS, stepsPerFrame int) *Raylib {
	if targetFPS <= 0 {
		targetFPS = 60
	}
	if stepsPerFrame <= 0 {
		stepsPerFrame = 1
	}
	return &Raylib{
		width:         int32(width),
		height:        int32(height),
		targetFPS:     int32(targetFPS),
		stepsPerFrame: stepsPerFrame,
	}
}

// Add implements Renderer.
func (r *Raylib) Add(EntityView) {}

// Remove implements Renderer.
func (r *Raylib) Remove(uint32) {}

// Update implements Renderer.
func (r *Raylib) Update(EntityView) {}

// Run implements Renderer: opens the window and drives the simulation
// at the target frame rate until the window closes or ctx is canceled.
func (r *Raylib) Run(ctx context.Context, lp Loop) error {
	rl.InitWindow(r.width, r.height, "VBE 3D")
	defer rl.CloseWindow()
	rl.SetTargetFPS(r.targetFPS)

	camera := rl.Camera3D{
		Position:   rl.NewVector3(22, 18, 22),
		Target:     rl.NewVector3(0, 0, 0),
		Up:         rl.NewVector3(0, 1, 0),
		Fovy:       55,
		Projection: rl.CameraPerspective,
	}

	paused := false

	for !rl.WindowShouldClose() {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		rl.UpdateCamera(&camera, rl.CameraOrbital)

		if rl.IsKeyPressed(rl.KeySpace) {
			paused = !paused
		}
		if !paused {
			for i := 0; i < r.stepsPerFrame; i++ {
				lp.Step()
			}
		}

		views := lp.Views()

		rl.BeginDrawing()
		rl.ClearBackground(rl.NewColor(12, 12, 18, 255))

		rl.BeginMode3D(camera)
		rl.DrawGrid(40, 1)
		robots := 0
		for _, v := range views {
			pos := rl.NewVector3(v.Pos[0], v.Pos[1], v.Pos[2])
			col := rl.NewColor(
				uint8(v.Color[0]*255),
				uint8(v.Color[1]*255),
				uint8(v.Color[2]*255),
				255,
			)
			switch v.Kind {
			case ViewRobot:
				robots++
				rl.DrawCube(pos, 0.8, 0.8, 0.8, col)
				rl.DrawCubeWires(pos, 0.8, 0.8, 0.8, rl.NewColor(220, 220, 220, 120))
			case ViewResource:
				// Shrink with remaining value so depletion is visible.
				size := 0.25 + 0.35*v.Value
				rl.DrawCube(pos, size, size, size, col)
			}
		}
		rl.EndMode3D()

		rl.DrawText(fmt.Sprintf("step %d", lp.StepCount()), 10, 10, 20, rl.RayWhite)
		rl.DrawText(fmt.Sprintf("robots %d / entities %d", robots, len(views)), 10, 34, 20, rl.RayWhite)

		label := "Pause"
		if paused {
			label = "Resume"
		}
		if gui.Button(rl.Rectangle{X: float32(r.width) - 110, Y: 10, Width: 100, Height: 28}, label) {
			paused = !paused
		}

		rl.EndDrawing()
	}
	return nil
}
