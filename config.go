package atlasengine

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// EngineConfig holds tunables that vary by device/tier-dependent
// constants: one struct per subsystem's knobs, loaded once at startup,
// with yaml tags for on-disk overrides.
type EngineConfig struct {
	// Workers holds the per-tier photo-processor worker cap.
	Workers WorkerConfig `yaml:"workers"`

	// ParallelBuilds holds the per-tier max concurrent atlas builds
	// (halved under High pressure).
	ParallelBuilds ParallelBuildConfig `yaml:"parallel_builds"`

	// BitmapPoolCapacity overrides the free-list capacity per atlas size
	// (default: 2048→4, 4096→2, 8192→1).
	BitmapPoolCapacity map[Size]int `yaml:"bitmap_pool_capacity"`

	// FrameTick is the ≈one-frame wait after cancelling in-flight work for
	// a superseded LOD. Zero or negative uses the built-in 16ms frameTick.
	FrameTick time.Duration `yaml:"frame_tick"`

	// MemoryBudgetFraction is the safety margin NewEngine applies to the
	// device's reported memory budget. Zero or negative keeps the memory
	// manager's built-in 0.9 margin.
	MemoryBudgetFraction float64 `yaml:"memory_budget_fraction"`

	// Logger receives engine diagnostics. Nil uses slog.Default().
	Logger *slog.Logger `yaml:"-"`
}

// WorkerConfig is the per-tier photo-decode worker cap.
type WorkerConfig struct {
	Low    int `yaml:"low"`
	Medium int `yaml:"medium"`
	High   int `yaml:"high"`
}

// ForTier returns the worker cap for tier, halved (minimum 1) under High or
// Critical pressure.
func (w WorkerConfig) ForTier(tier PerformanceTier, pressure Pressure) int {
	n := w.Low
	switch tier {
	case TierMedium:
		n = w.Medium
	case TierHigh:
		n = w.High
	}
	if pressure == PressureHigh || pressure == PressureCritical {
		n = halve(n)
	}
	return n
}

// ParallelBuildConfig is the per-tier max concurrent atlas builds.
type ParallelBuildConfig struct {
	Low    int `yaml:"low"`
	Medium int `yaml:"medium"`
	High   int `yaml:"high"`
}

// ForTier returns the max-parallel-builds cap for tier, halved under High
// pressure.
func (p ParallelBuildConfig) ForTier(tier PerformanceTier, pressure Pressure) int {
	n := p.Low
	switch tier {
	case TierMedium:
		n = p.Medium
	case TierHigh:
		n = p.High
	}
	if pressure == PressureHigh {
		n = halve(n)
	}
	return n
}

func halve(n int) int {
	n /= 2
	if n < 1 {
		n = 1
	}
	return n
}

// DefaultConfig returns the engine's baseline tunables.
func DefaultConfig() EngineConfig {
	return EngineConfig{
		Workers:        WorkerConfig{Low: 2, Medium: 4, High: 6},
		ParallelBuilds: ParallelBuildConfig{Low: 1, Medium: 2, High: 4},
		BitmapPoolCapacity: map[Size]int{
			Size2048: 4,
			Size4096: 2,
			Size8192: 1,
		},
		FrameTick:            16 * time.Millisecond,
		MemoryBudgetFraction: 0.9,
	}
}

// LoadConfig reads an EngineConfig from a YAML file, starting from
// DefaultConfig and overlaying whatever the file specifies.
func LoadConfig(path string) (EngineConfig, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("atlasengine: read config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("atlasengine: parse config %q: %w", path, err)
	}
	return cfg, nil
}
