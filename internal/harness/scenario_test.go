package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fniksic/PSharp/internal/engine"
	"github.com/fniksic/PSharp/internal/ir"
)

func TestLoadScenario_Valid(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/election_faulty.yaml")
	require.NoError(t, err)

	assert.Equal(t, "election_faulty", s.Name)
	assert.Equal(t, "election", s.Program)
	assert.Equal(t, map[string]string{"faulty": "true"}, s.Params)
	assert.Equal(t, ir.VerdictFail, s.Expect.Verdict)
	assert.Equal(t, ir.ErrCodeSafetyViolation, s.Expect.Error)
	require.Len(t, s.Assertions, 2)
	assert.Equal(t, AssertTraceContains, s.Assertions[0].Type)
	assert.Equal(t, "Node", s.Assertions[0].MachineType)
}

func TestParseScenario_DefaultsVerdictToPass(t *testing.T) {
	s, err := ParseScenario([]byte("name: x\ndescription: d\nprogram: ring\n"))
	require.NoError(t, err)
	assert.Equal(t, ir.VerdictPass, s.Expect.Verdict)
	assert.Equal(t, engine.DefaultConfig(), s.EngineConfig())
}

func TestScenario_EngineConfig(t *testing.T) {
	s := &Scenario{Strategy: "dfs", Iterations: 7, Seed: 3, MaxSteps: 50, MaxTemperature: 9}
	cfg := s.EngineConfig()
	assert.Equal(t, "dfs", cfg.Strategy)
	assert.Equal(t, 7, cfg.Iterations)
	assert.Equal(t, int64(3), cfg.Seed)
	assert.Equal(t, 50, cfg.MaxSteps)
	assert.Equal(t, 9, cfg.MaxTemperature)
	assert.True(t, cfg.StopOnFirstBug)
}

func TestParseScenario_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown field", "name: x\ndescription: d\nprogram: p\nassertion: []\n", "field assertion not found"},
		{"missing name", "description: d\nprogram: p\n", "name is required"},
		{"missing description", "name: x\nprogram: p\n", "description is required"},
		{"missing program", "name: x\ndescription: d\n", "program is required"},
		{"bad verdict", "name: x\ndescription: d\nprogram: p\nexpect: {verdict: maybe}\n", "unknown verdict"},
		{"error without fail", "name: x\ndescription: d\nprogram: p\nexpect: {error: SAFETY_VIOLATION}\n", "requires verdict fail"},
		{"negative iterations", "name: x\ndescription: d\nprogram: p\niterations: -1\n", "must not be negative"},
		{"assertion without type", "name: x\ndescription: d\nprogram: p\nassertions: [{event: e}]\n", "type is required"},
		{"unknown assertion", "name: x\ndescription: d\nprogram: p\nassertions: [{type: final_state}]\n", "unknown assertion type"},
		{"contains without event", "name: x\ndescription: d\nprogram: p\nassertions: [{type: trace_contains}]\n", "event is required"},
		{"order without events", "name: x\ndescription: d\nprogram: p\nassertions: [{type: trace_order}]\n", "events list is required"},
		{"negative count", "name: x\ndescription: d\nprogram: p\nassertions: [{type: trace_count, event: e, count: -1}]\n", "non-negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("testdata/scenarios/nope.yaml")
	assert.ErrorContains(t, err, "failed to read scenario file")
}

func TestLoadDir(t *testing.T) {
	scenarios, err := LoadDir("testdata/scenarios")
	require.NoError(t, err)

	var names []string
	for _, s := range scenarios {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"election_faulty", "election_pass", "election_split", "ring_pass"}, names)
}

func TestLoadDir_Errors(t *testing.T) {
	_, err := LoadDir(t.TempDir())
	assert.ErrorContains(t, err, "no scenario files")

	dir := t.TempDir()
	body := []byte("name: same\ndescription: d\nprogram: ring\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), body, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yml"), body, 0o644))
	_, err = LoadDir(dir)
	assert.ErrorContains(t, err, `scenario name "same" already used by a.yaml`)
}
