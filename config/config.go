// Package config provides configuration loading and access for the
// simulation.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	World       WorldConfig       `yaml:"world"`
	Robot       RobotConfig       `yaml:"robot"`
	Resource    ResourceConfig    `yaml:"resource"`
	Interaction InteractionConfig `yaml:"interaction"`
	Perception  PerceptionConfig  `yaml:"perception"`
	Brain       BrainConfig       `yaml:"brain"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
	Render      RenderConfig      `yaml:"render"`
}

// WorldConfig holds initial population and seeding parameters.
type WorldConfig struct {
	InitialRobots    int     `yaml:"initial_robots"`
	InitialResources int     `yaml:"initial_resources"`
	SpawnExtent      float64 `yaml:"spawn_extent"` // robots/resources spawn in [-extent, extent] per axis
	Seed             int64   `yaml:"seed"`         // 0 = time-based
}

// RobotConfig holds the energy configuration fixed at robot construction.
type RobotConfig struct {
	MaxEnergy             float64 `yaml:"max_energy"`
	MovementCost          float64 `yaml:"movement_cost"`
	ReproductionThreshold float64 `yaml:"reproduction_threshold"`
}

// ResourceConfig holds defaults for spawned resources.
type ResourceConfig struct {
	Value        float64 `yaml:"value"`
	DecayRate    float64 `yaml:"decay_rate"`
	MaxUses      int     `yaml:"max_uses"`      // 0 = unlimited
	RespawnDelay int     `yaml:"respawn_delay"` // steps, 0 = no respawn
}

// InteractionConfig holds the proximity thresholds and cadence of the
// interaction resolver.
type InteractionConfig struct {
	ConnectRadius        float64 `yaml:"connect_radius"`
	CollectRadius        float64 `yaml:"collect_radius"`
	ReproductionInterval int     `yaml:"reproduction_interval"` // steps between reproduction passes
}

// PerceptionConfig holds the sensing range for observations.
type PerceptionConfig struct {
	Radius float64 `yaml:"radius"`
}

// BrainConfig selects the decision policies for spawned robots.
type BrainConfig struct {
	Default  string  `yaml:"default"`   // "rule_based" or "mlp"
	MLPRatio float64 `yaml:"mlp_ratio"` // fraction of initial robots given a learned brain
}

// TelemetryConfig holds stats-window and output settings.
type TelemetryConfig struct {
	StatsWindow int    `yaml:"stats_window"` // steps per stats window, 0 = disabled
	OutputDir   string `yaml:"output_dir"`   // CSV output directory, empty = disabled
	SQLitePath  string `yaml:"sqlite_path"`  // run index database, empty = disabled
}

// RenderConfig holds renderer selection and transport settings.
type RenderConfig struct {
	Mode          string `yaml:"mode"` // "null", "ws", or "raylib"
	Port          int    `yaml:"port"`
	ScreenWidth   int    `yaml:"screen_width"`
	ScreenHeight  int    `yaml:"screen_height"`
	TargetFPS     int    `yaml:"target_fps"`
	StepsPerFrame int    `yaml:"steps_per_frame"`
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults
// if path is empty. Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded
// defaults. If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into the same struct - only overwrites fields present
		// in the file.
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate rejects configurations the core cannot run with.
func (c *Config) validate() error {
	if c.Robot.MaxEnergy <= 0 {
		return fmt.Errorf("robot.max_energy must be positive, got %v", c.Robot.MaxEnergy)
	}
	if c.Robot.MovementCost < 0 {
		return fmt.Errorf("robot.movement_cost must be non-negative, got %v", c.Robot.MovementCost)
	}
	if c.Resource.DecayRate < 0 {
		return fmt.Errorf("resource.decay_rate must be non-negative, got %v", c.Resource.DecayRate)
	}
	if c.Interaction.ConnectRadius <= 0 || c.Interaction.CollectRadius <= 0 {
		return fmt.Errorf("interaction radii must be positive")
	}
	if c.Interaction.ReproductionInterval <= 0 {
		return fmt.Errorf("interaction.reproduction_interval must be positive, got %d",
			c.Interaction.ReproductionInterval)
	}
	if c.Perception.Radius <= 0 {
		return fmt.Errorf("perception.radius must be positive, got %v", c.Perception.Radius)
	}
	return nil
}

// WriteYAML saves the configuration to a file, for experiment output dirs.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
