package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/fniksic/PSharp/internal/ir"
)

// TraceSnapshot captures the outcome and trace of a scenario execution.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Verdict      ir.Verdict   `json:"verdict"`
	ErrorCode    ir.ErrorCode `json:"error_code,omitempty"`
	Trace        []TraceEvent `json:"trace"`
}

// toCanonicalMap converts a TraceSnapshot to a map[string]any for canonical JSON serialization.
// This is required because ir.MarshalCanonical only handles IR types and primitives.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, ev := range s.Trace {
		traceList[i] = map[string]any{
			"seq":          ev.Seq,
			"machine":      int64(ev.Machine),
			"machine_type": ev.MachineType,
			"state":        ev.State,
			"event":        ev.Event,
		}
	}

	result := map[string]any{
		"scenario_name": s.ScenarioName,
		"verdict":       string(s.Verdict),
		"trace":         traceList,
	}
	if s.ErrorCode != "" {
		result["error_code"] = string(s.ErrorCode)
	}
	return result
}

// Snapshot renders the result as canonical JSON.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	snapshot := TraceSnapshot{
		ScenarioName: scenarioName,
		Verdict:      result.Verdict,
		ErrorCode:    result.ErrorCode,
		Trace:        result.Trace,
	}
	return ir.MarshalCanonical(snapshot.toCanonicalMap())
}

func newGoldie(t *testing.T, opts []goldie.Option) *goldie.Goldie {
	t.Helper()
	return goldie.New(t, append([]goldie.Option{
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	}, opts...)...)
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden. opts override the goldie
// defaults.
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...goldie.Option) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	return AssertGolden(t, scenario.Name, result, opts...)
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result, opts ...goldie.Option) error {
	t.Helper()

	data, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}
	newGoldie(t, opts).Assert(t, scenarioName, data)
	return nil
}

// UpdateGolden writes the golden file for result.
func UpdateGolden(t *testing.T, scenarioName string, result *Result, opts ...goldie.Option) error {
	t.Helper()

	data, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}
	return newGoldie(t, opts).Update(t, scenarioName, data)
}
