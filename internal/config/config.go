// Package config loads the psharp TOML configuration file and sets up
// logging.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/fniksic/PSharp/internal/engine"
)

// Environment variables that override the [log] section.
const (
	EnvLogLevel  = "PSHARP_LOG_LEVEL"
	EnvLogFormat = "PSHARP_LOG_FORMAT"
)

type Config struct {
	Testing    TestingConfig    `toml:"testing"`
	Production ProductionConfig `toml:"production"`
	Log        LogConfig        `toml:"log"`
}

type TestingConfig struct {
	Iterations      int    `toml:"iterations"`
	Strategy        string `toml:"strategy"`
	Seed            int64  `toml:"seed"`
	MaxSteps        int    `toml:"max_steps"`
	MaxTemperature  int    `toml:"max_temperature"`
	DepthBound      int    `toml:"depth_bound"`
	PCTChangePoints int    `toml:"pct_change_points"`
	StopOnFirstBug  *bool  `toml:"stop_on_first_bug"`
}

type ProductionConfig struct {
	Workers int    `toml:"workers"`
	Timeout string `toml:"timeout"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	d := engine.DefaultConfig()
	stop := d.StopOnFirstBug
	return Config{
		Testing: TestingConfig{
			Iterations:      d.Iterations,
			Strategy:        d.Strategy,
			MaxSteps:        d.MaxSteps,
			MaxTemperature:  d.MaxTemperature,
			PCTChangePoints: d.PCTChangePoints,
			StopOnFirstBug:  &stop,
		},
		Production: ProductionConfig{Timeout: "30s"},
		Log:        LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := loadToml(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	cfg.ApplyEnv(os.Getenv)
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

// ApplyEnv overrides the log settings from the environment.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := strings.TrimSpace(getenv(EnvLogLevel)); v != "" {
		c.Log.Level = v
	}
	if v := strings.TrimSpace(getenv(EnvLogFormat)); v != "" {
		c.Log.Format = v
	}
}

func Validate(cfg Config) error {
	if err := cfg.Engine().Validate(); err != nil {
		return fmt.Errorf("testing config invalid: %w", err)
	}
	if cfg.Production.Workers < 0 {
		return fmt.Errorf("production config: workers must not be negative")
	}
	if _, err := cfg.Production.TimeoutDuration(); err != nil {
		return fmt.Errorf("production config: %w", err)
	}
	if _, err := ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("log config: %w", err)
	}
	switch strings.ToLower(cfg.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log config: unknown format %q", cfg.Log.Format)
	}
	return nil
}

// Engine converts the [testing] section to an engine configuration.
func (c Config) Engine() engine.Config {
	t := c.Testing
	stop := true
	if t.StopOnFirstBug != nil {
		stop = *t.StopOnFirstBug
	}
	return engine.Config{
		Iterations:      t.Iterations,
		Strategy:        strings.ToLower(strings.TrimSpace(t.Strategy)),
		Seed:            t.Seed,
		MaxSteps:        t.MaxSteps,
		MaxTemperature:  t.MaxTemperature,
		DepthBound:      t.DepthBound,
		PCTChangePoints: t.PCTChangePoints,
		StopOnFirstBug:  stop,
	}
}

// TimeoutDuration parses Timeout; empty means no timeout.
func (p ProductionConfig) TimeoutDuration() (time.Duration, error) {
	if strings.TrimSpace(p.Timeout) == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(p.Timeout)
	if err != nil {
		return 0, fmt.Errorf("timeout %q: %w", p.Timeout, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("timeout %q is negative", p.Timeout)
	}
	return d, nil
}
