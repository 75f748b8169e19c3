package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/fniksic/PSharp/internal/engine"
	"github.com/fniksic/PSharp/internal/ir"
)

// Scenario defines a program run and what it must produce.
type Scenario struct {
	// Name uniquely identifies this scenario and its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Program is a name from the sample registry.
	Program string `yaml:"program"`

	// Params are passed to the program factory.
	Params map[string]string `yaml:"params,omitempty"`

	// Engine settings. Zero values take the engine defaults.
	Strategy       string `yaml:"strategy,omitempty"`
	Iterations     int    `yaml:"iterations,omitempty"`
	Seed           int64  `yaml:"seed,omitempty"`
	MaxSteps       int    `yaml:"max_steps,omitempty"`
	MaxTemperature int    `yaml:"max_temperature,omitempty"`

	// Expect is the expected verdict. Defaults to pass.
	Expect ExpectClause `yaml:"expect,omitempty"`

	// Assertions validate the step trace.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// ExpectClause specifies the expected outcome.
type ExpectClause struct {
	// Verdict is pass, fail or inconclusive.
	Verdict ir.Verdict `yaml:"verdict,omitempty"`

	// Error is the expected error code of the first bug (fail only).
	Error ir.ErrorCode `yaml:"error,omitempty"`
}

// Assertion validates the trace.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": event delivered at least once
	// - "trace_order": events first delivered in order
	// - "trace_count": event delivered exactly Count times
	Type string `yaml:"type"`

	// Event is the event kind (trace_contains, trace_count).
	Event string `yaml:"event,omitempty"`

	// MachineType restricts matches to one machine type (trace_contains,
	// trace_count).
	MachineType string `yaml:"machine_type,omitempty"`

	// Count is the expected number of deliveries (trace_count).
	Count int `yaml:"count"`

	// Events is the expected order (trace_order).
	Events []string `yaml:"events,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadDir loads every *.yaml and *.yml file in dir, sorted by file name.
func LoadDir(dir string) ([]*Scenario, error) {
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		paths = append(paths, matches...)
	}
	sort.Strings(paths)
	if len(paths) == 0 {
		return nil, fmt.Errorf("no scenario files in %s", dir)
	}

	seen := make(map[string]string, len(paths))
	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		if prev, dup := seen[s.Name]; dup {
			return nil, fmt.Errorf("%s: scenario name %q already used by %s", filepath.Base(p), s.Name, prev)
		}
		seen[s.Name] = filepath.Base(p)
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// EngineConfig applies the scenario's settings over the engine defaults.
func (s *Scenario) EngineConfig() engine.Config {
	cfg := engine.DefaultConfig()
	if s.Strategy != "" {
		cfg.Strategy = s.Strategy
	}
	if s.Iterations > 0 {
		cfg.Iterations = s.Iterations
	}
	if s.Seed != 0 {
		cfg.Seed = s.Seed
	}
	if s.MaxSteps > 0 {
		cfg.MaxSteps = s.MaxSteps
	}
	if s.MaxTemperature > 0 {
		cfg.MaxTemperature = s.MaxTemperature
	}
	return cfg
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Program == "" {
		return fmt.Errorf("program is required")
	}
	if s.Iterations < 0 || s.MaxSteps < 0 || s.MaxTemperature < 0 {
		return fmt.Errorf("iterations, max_steps and max_temperature must not be negative")
	}

	switch s.Expect.Verdict {
	case "":
		s.Expect.Verdict = ir.VerdictPass
	case ir.VerdictPass, ir.VerdictFail, ir.VerdictInconclusive:
	default:
		return fmt.Errorf("expect.verdict: unknown verdict %q", s.Expect.Verdict)
	}
	if s.Expect.Error != "" && s.Expect.Verdict != ir.VerdictFail {
		return fmt.Errorf("expect.error requires verdict fail")
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Events) == 0 {
			return fmt.Errorf("assertions[%d]: events list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
