package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vbe-lab/vbe3d/config"
	"github.com/vbe-lab/vbe3d/render"
	"github.com/vbe-lab/vbe3d/world"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	mode := flag.String("mode", "", "Renderer mode: null, ws, raylib (empty = use config)")
	headless := flag.Bool("headless", false, "Run without any renderer (same as -mode null)")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based, or the loaded state's seed)")
	maxSteps := flag.Int64("max-steps", 0, "Stop after N steps (0 = unlimited)")
	loadPath := flag.String("load", "", "Load world state from file before running")
	savePath := flag.String("save", "", "Save world state to file on exit (.zst = compressed)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV telemetry and config snapshot")
	sqlitePath := flag.String("sqlite", "", "Run-index database path (empty = disabled)")
	port := flag.Int("port", 0, "Websocket renderer port (0 = use config)")
	logStats := flag.Bool("log-stats", false, "Log window stats via slog")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	rngSeed := *seed
	if rngSeed == 0 && cfg.World.Seed != 0 {
		rngSeed = cfg.World.Seed
	}
	if rngSeed == 0 && *loadPath == "" {
		rngSeed = time.Now().UnixNano()
	}

	renderMode := cfg.Render.Mode
	if *mode != "" {
		renderMode = *mode
	}
	if *headless {
		renderMode = "null"
	}
	wsPort := cfg.Render.Port
	if *port != 0 {
		wsPort = *port
	}

	var renderer render.Renderer
	switch renderMode {
	case "", "null":
		renderer = render.Null{}
	case "ws":
		renderer = render.NewWebSocket(wsPort, cfg.Render.TargetFPS, cfg.Render.StepsPerFrame, logger)
	case "raylib":
		renderer = render.NewRaylib(cfg.Render.ScreenWidth, cfg.Render.ScreenHeight,
			cfg.Render.TargetFPS, cfg.Render.StepsPerFrame)
	default:
		slog.Error("unknown render mode", "mode", renderMode)
		os.Exit(1)
	}

	opts := world.Options{
		Seed:       rngSeed,
		Renderer:   renderer,
		Logger:     logger,
		OutputDir:  *outputDir,
		SQLitePath: *sqlitePath,
		LogStats:   *logStats,
	}

	var w *world.World
	var err error
	if *loadPath != "" {
		w, err = world.Restore(*loadPath, cfg, opts)
		if err != nil {
			slog.Error("failed to load world state", "path", *loadPath, "error", err)
			os.Exit(1)
		}
		slog.Info("world state loaded", "path", *loadPath,
			"step", w.StepCount(), "robots", w.RobotCount(), "resources", w.ResourceCount())
	} else {
		w, err = world.New(cfg, opts)
		if err != nil {
			slog.Error("failed to create world", "error", err)
			os.Exit(1)
		}
		w.SpawnInitial()
	}

	slog.Info("starting simulation",
		"mode", renderMode,
		"seed", rngSeed,
		"max_steps", *maxSteps,
		"robots", w.RobotCount(),
		"resources", w.ResourceCount(),
	)

	// Interruption happens between steps, never mid-step: the renderer
	// loop observes cancellation at step boundaries.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	loop := &stepLimiter{world: w, max: *maxSteps, cancel: cancel}
	if err := renderer.Run(ctx, loop); err != nil {
		slog.Error("renderer stopped", "error", err)
	}

	if *savePath != "" {
		if err := w.Save(*savePath); err != nil {
			slog.Error("failed to save world state", "path", *savePath, "error", err)
		} else {
			slog.Info("world state saved", "path", *savePath, "step", w.StepCount())
		}
	}

	stats := w.Stats()
	slog.Info("simulation finished",
		"steps", stats.Steps,
		"robots_created", stats.RobotsCreated,
		"robots_destroyed", stats.RobotsDestroyed,
		"resources_collected", stats.ResourcesCollected,
		"connections_made", stats.ConnectionsMade,
		"offspring_produced", stats.OffspringProduced,
		"faults", stats.Faults,
	)

	if err := w.Close(); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

// stepLimiter drives the world from the renderer loop and cancels the run
// once the step limit is reached.
type stepLimiter struct {
	world  *world.World
	max    int64
	cancel context.CancelFunc
}

func (s *stepLimiter) Step() {
	if s.max > 0 && s.world.StepCount() >= s.max {
		s.cancel()
		return
	}
	s.world.Step()
}

func (s *stepLimiter) Views() []render.EntityView { return s.world.Views() }

func (s *stepLimiter) StepCount() int64 { return s.world.StepCount() }
