package tuning

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"cavecraft.ai/internal/cave/region"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

type Tuning struct {
	Cave2D  Cave    `yaml:"cave_2d"`
	Cave3D  Cave    `yaml:"cave_3d"`
	Pruning Pruning `yaml:"pruning"`
	Passage Passage `yaml:"passage"`
	Output  Output  `yaml:"output"`
}

type Cave struct {
	Width      int `yaml:"width"`
	Height     int `yaml:"height"`
	Depth      int `yaml:"depth,omitempty"`
	BorderSize int `yaml:"border_size"`

	WallPercent      int     `yaml:"wall_percent"`
	WallPercentRange Percent `yaml:"wall_percent_range"`

	Seed          string `yaml:"seed"`
	UseRandomSeed bool   `yaml:"use_random_seed"`

	SmoothIterations int `yaml:"smooth_iterations"`
	SmoothLimit      int `yaml:"smooth_limit"`

	// 2D only.
	SquareSize float32 `yaml:"square_size,omitempty"`
	WallHeight float32 `yaml:"wall_height,omitempty"`

	// 3D only.
	MaxVerticesPerChunk int `yaml:"max_vertices_per_chunk,omitempty"`
}

// Percent is an inclusive [Min, Max] bound on wall_percent.
type Percent struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

type Pruning struct {
	WallThreshold int  `yaml:"wall_threshold"`
	RoomThreshold int  `yaml:"room_threshold"`
	AfterCarve    bool `yaml:"after_carve"`
}

type Passage struct {
	Radius int `yaml:"radius"`
}

type Output struct {
	SnapshotDir string `yaml:"snapshot_dir"`
	LogDir      string `yaml:"log_dir"`
	ArchiveDir  string `yaml:"archive_dir"`
	IndexPath   string `yaml:"index_path"`
	Placeholder string `yaml:"placeholder"`
}

// Defaults mirrors configs/tuning.yaml.
func Defaults() Tuning {
	return Tuning{
		Cave2D: Cave{
			Width:            128,
			Height:           72,
			Depth:            1,
			BorderSize:       5,
			WallPercent:      47,
			WallPercentRange: Percent{Min: 0, Max: 100},
			Seed:             "cave",
			SmoothIterations: 5,
			SmoothLimit:      4,
			SquareSize:       1,
			WallHeight:       5,
		},
		Cave3D: Cave{
			Width:               48,
			Height:              48,
			Depth:               48,
			BorderSize:          1,
			WallPercent:         38,
			WallPercentRange:    Percent{Min: 0, Max: 40},
			Seed:                "cave",
			SmoothIterations:    5,
			SmoothLimit:         13,
			MaxVerticesPerChunk: 60000,
		},
		Pruning: Pruning{
			WallThreshold: region.DefaultThreshold,
			RoomThreshold: region.DefaultThreshold,
			AfterCarve:    true,
		},
		Passage: Passage{Radius: 5},
		Output: Output{
			SnapshotDir: "data/snapshots",
			LogDir:      "data/logs",
			ArchiveDir:  "data/archives",
			IndexPath:   "data/index/generations.sqlite",
			Placeholder: "capsule_player",
		},
	}
}

// Load reads path on top of Defaults. An empty path yields the defaults.
func Load(path string) (Tuning, error) {
	t := Defaults()
	if strings.TrimSpace(path) == "" {
		t.Normalize()
		return t, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	t.Normalize()
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

// For returns the cave block for rank 2 or 3.
func (t Tuning) For(rank int) (Cave, error) {
	switch rank {
	case 2:
		return t.Cave2D, nil
	case 3:
		return t.Cave3D, nil
	default:
		return Cave{}, fmt.Errorf("%w: rank %d", ErrInvalidConfig, rank)
	}
}

func (t *Tuning) Normalize() {
	if t == nil {
		return
	}
	t.Cave2D.Depth = 1
	t.Cave2D.Seed = strings.TrimSpace(t.Cave2D.Seed)
	t.Cave3D.Seed = strings.TrimSpace(t.Cave3D.Seed)
	if t.Cave2D.SquareSize == 0 {
		t.Cave2D.SquareSize = 1
	}
}

func (t Tuning) Validate() error {
	if err := t.Cave2D.Validate(2); err != nil {
		return fmt.Errorf("cave_2d: %w", err)
	}
	if err := t.Cave3D.Validate(3); err != nil {
		return fmt.Errorf("cave_3d: %w", err)
	}
	return t.ValidateCommon()
}

// ValidateCommon checks the blocks shared by both ranks.
func (t Tuning) ValidateCommon() error {
	if t.Pruning.WallThreshold <= 0 {
		return invalid("pruning.wall_threshold", "must be > 0")
	}
	if t.Pruning.RoomThreshold <= 0 {
		return invalid("pruning.room_threshold", "must be > 0")
	}
	if t.Passage.Radius < 0 {
		return invalid("passage.radius", "must be >= 0")
	}
	return nil
}

// Validate checks one cave block for the given rank.
func (c Cave) Validate(rank int) error {
	if c.Width <= 0 {
		return invalid("width", "must be > 0")
	}
	if c.Height <= 0 {
		return invalid("height", "must be > 0")
	}
	if rank == 3 && c.Depth <= 0 {
		return invalid("depth", "must be > 0")
	}
	if c.BorderSize < 0 {
		return invalid("border_size", "must be >= 0")
	}
	r := c.WallPercentRange
	if r.Min < 0 || r.Max > 100 || r.Min > r.Max {
		return invalid("wall_percent_range", fmt.Sprintf("[%d,%d] not within [0,100]", r.Min, r.Max))
	}
	if c.WallPercent < r.Min || c.WallPercent > r.Max {
		return invalid("wall_percent", fmt.Sprintf("%d outside [%d,%d]", c.WallPercent, r.Min, r.Max))
	}
	if !c.UseRandomSeed && c.Seed == "" {
		return invalid("seed", "required unless use_random_seed")
	}
	if c.SmoothIterations < 0 {
		return invalid("smooth_iterations", "must be >= 0")
	}
	neighbours := 8
	if rank == 3 {
		neighbours = 26
	}
	if c.SmoothLimit < 0 || c.SmoothLimit > neighbours {
		return invalid("smooth_limit", fmt.Sprintf("must be in [0,%d]", neighbours))
	}
	if rank == 2 {
		if c.SquareSize <= 0 {
			return invalid("square_size", "must be > 0")
		}
		if c.WallHeight < 0 {
			return invalid("wall_height", "must be >= 0")
		}
	}
	if rank == 3 && (c.MaxVerticesPerChunk <= 0 || c.MaxVerticesPerChunk%3 != 0) {
		return invalid("max_vertices_per_chunk", "must be a positive multiple of 3")
	}
	return nil
}

func invalid(field, msg string) error {
	return fmt.Errorf("%w: %s %s", ErrInvalidConfig, field, msg)
}
