// Package snapshot persists and restores complete world state. The state
// document is JSON, zstd-compressed at rest when the filename carries a
// .zst suffix. Round-tripping reproduces identical robot/resource counts,
// positions, energies, and connection topology; learned brain weights are
// carried as opaque float blobs.
package snapshot

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// Version is incremented when the state format changes.
const Version = 1

// WorldState holds the complete simulation state.
type WorldState struct {
	Version int   `json:"version"`
	Step    int64 `json:"step"`
	Seed    int64 `json:"seed"`

	Robots    []RobotRecord    `json:"robots"`
	Resources []ResourceRecord `json:"resources"`
}

// RobotRecord holds one robot's persisted state.
type RobotRecord struct {
	ID       uint32     `json:"id"`
	Position [3]float32 `json:"pos"`
	Color    [3]float32 `json:"col"`
	State    string     `json:"state"`

	Energy         float32 `json:"energy"`
	MaxEnergy      float32 `json:"max_energy"`
	MovementCost   float32 `json:"movement_cost"`
	ReproThreshold float32 `json:"reproduction_threshold"`

	Connections []ConnectionRecord `json:"connections"`

	BrainType   string    `json:"brain_type"`
	BrainParams []float64 `json:"brain_params,omitempty"`

	Stats StatsRecord `json:"stats"`
}

// ConnectionRecord is one endpoint's view of an edge; the loader restores
// the edge symmetrically from the lower-id endpoint.
type ConnectionRecord struct {
	Peer  uint32 `json:"peer"`
	Level uint8  `json:"level"`
}

// StatsRecord mirrors the per-robot counters.
type StatsRecord struct {
	DistanceTraveled   float32 `json:"distance_traveled"`
	ResourcesCollected int     `json:"resources_collected"`
	ConnectionsMade    int     `json:"connections_made"`
	OffspringProduced  int     `json:"offspring_produced"`
	EnergyConsumed     float32 `json:"energy_consumed"`
	Lifetime           int32   `json:"lifetime"`
}

// ResourceRecord holds one resource's persisted state.
type ResourceRecord struct {
	ID       uint32     `json:"id"`
	Position [3]float32 `json:"pos"`
	Color    [3]float32 `json:"col"`

	Value    float32 `json:"value"`
	Original float32 `json:"original"`
	Kind     string  `json:"kind"`

	DecayRate    float32 `json:"decay_rate,omitempty"`
	MaxUses      int     `json:"max_uses,omitempty"`
	Uses         int     `json:"uses,omitempty"`
	RespawnDelay int32   `json:"respawn_delay,omitempty"`
	RespawnIn    int32   `json:"respawn_in,omitempty"`
	RespawnArmed bool    `json:"respawn_armed,omitempty"`

	Collectible bool `json:"collectible"`
	Obstacle    bool `json:"obstacle,omitempty"`
}

// Write saves a world state to path, creating parent directories. The
// document is compressed when path ends in .zst.
func Write(path string, state *WorldState) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create state dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create state file: %w", err)
	}
	if err := encodeState(f, path, state); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	return nil
}

// encodeState writes the document to f in the encoding path selects. The
// buffered zstd path defers the actual device writes to flush and close,
// so their errors must be checked, not dropped.
func encodeState(f *os.File, path string, state *WorldState) error {
	if strings.HasSuffix(path, ".zst") {
		enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return err
		}
		bw := bufio.NewWriter(enc)
		if err := json.NewEncoder(bw).Encode(state); err != nil {
			enc.Close()
			return fmt.Errorf("encode state: %w", err)
		}
		if err := bw.Flush(); err != nil {
			enc.Close()
			return fmt.Errorf("write state: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("write state: %w", err)
		}
		return nil
	}

	je := json.NewEncoder(f)
	je.SetIndent("", "  ")
	if err := je.Encode(state); err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	return nil
}

// Read loads a world state from path.
func Read(path string) (*WorldState, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open state file: %w", err)
	}
	defer f.Close()

	var state WorldState
	if strings.HasSuffix(path, ".zst") {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		if err := json.NewDecoder(bufio.NewReader(dec)).Decode(&state); err != nil {
			return nil, fmt.Errorf("decode state: %w", err)
		}
	} else {
		if err := json.NewDecoder(f).Decode(&state); err != nil {
			return nil, fmt.Errorf("decode state: %w", err)
		}
	}

	if state.Version != Version {
		return nil, fmt.Errorf("unsupported state version %d, want %d", state.Version, Version)
	}
	return &state, nil
}
