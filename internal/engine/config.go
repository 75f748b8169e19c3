package engine

import (
	"fmt"

	"github.com/fniksic/PSharp/internal/ir"
	"github.com/fniksic/PSharp/internal/scheduler"
)

// Strategy names accepted by Config.Strategy.
const (
	StrategyRandom = "random"
	StrategyDFS    = "dfs"
	StrategyPCT    = "pct"
)

// Defaults applied by DefaultConfig.
const (
	DefaultIterations      = 100
	DefaultMaxSteps        = 10000
	DefaultMaxTemperature  = 100
	DefaultPCTChangePoints = 3
)

// Config controls a test.
type Config struct {
	// Iterations is the maximum number of iterations to run.
	Iterations int `json:"iterations"`

	// Strategy is one of random, dfs or pct.
	Strategy string `json:"strategy"`

	// Seed seeds random and pct.
	Seed int64 `json:"seed"`

	// MaxSteps bounds scheduling steps per iteration (0 = unbounded).
	MaxSteps int `json:"max_steps"`

	// MaxTemperature bounds idle hot rounds of liveness monitors
	// (0 = only check at quiescence).
	MaxTemperature int `json:"max_temperature"`

	// DepthBound bounds the recorded choice points of dfs (0 = unbounded).
	DepthBound int `json:"depth_bound"`

	// PCTChangePoints is the number of priority change points of pct.
	PCTChangePoints int `json:"pct_change_points"`

	// StopOnFirstBug ends the test after the first failing iteration.
	StopOnFirstBug bool `json:"stop_on_first_bug"`
}

// DefaultConfig returns the default test configuration.
func DefaultConfig() Config {
	return Config{
		Iterations:      DefaultIterations,
		Strategy:        StrategyRandom,
		MaxSteps:        DefaultMaxSteps,
		MaxTemperature:  DefaultMaxTemperature,
		PCTChangePoints: DefaultPCTChangePoints,
		StopOnFirstBug:  true,
	}
}

// Validate rejects unusable configurations.
func (c Config) Validate() error {
	if c.Iterations <= 0 {
		return ir.Errorf(ir.ErrCodeConfig, "iterations must be positive, got %d", c.Iterations)
	}
	switch c.Strategy {
	case StrategyRandom, StrategyDFS:
	case StrategyPCT:
		if c.PCTChangePoints < 0 {
			return ir.Errorf(ir.ErrCodeConfig, "pct_change_points must not be negative, got %d", c.PCTChangePoints)
		}
	default:
		return ir.Errorf(ir.ErrCodeConfig, "unknown strategy %q (want %s, %s or %s)",
			c.Strategy, StrategyRandom, StrategyDFS, StrategyPCT)
	}
	for name, v := range map[string]int{
		"max_steps":       c.MaxSteps,
		"max_temperature": c.MaxTemperature,
		"depth_bound":     c.DepthBound,
	} {
		if v < 0 {
			return ir.Errorf(ir.ErrCodeConfig, "%s must not be negative, got %d", name, v)
		}
	}
	return nil
}

// NewStrategy builds the strategy named by the configuration.
func (c Config) NewStrategy() (scheduler.Strategy, error) {
	switch c.Strategy {
	case StrategyRandom:
		return scheduler.NewRandomStrategy(c.Seed), nil
	case StrategyDFS:
		return scheduler.NewDFSStrategy(c.DepthBound), nil
	case StrategyPCT:
		return scheduler.NewPCTStrategy(c.Seed, c.PCTChangePoints, c.MaxSteps), nil
	}
	return nil, fmt.Errorf("unknown strategy %q", c.Strategy)
}
