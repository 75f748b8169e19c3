package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fniksic/PSharp/internal/ir"
	"github.com/fniksic/PSharp/internal/testutil"
)

func TestRun_Scenarios(t *testing.T) {
	scenarios, err := LoadDir("testdata/scenarios")
	require.NoError(t, err)

	h := New(WithLogger(testutil.Logger(t)))
	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) {
			result, err := h.Run(context.Background(), s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Equal(t, s.Expect.Verdict, result.Verdict)
			assert.NotEmpty(t, result.Trace)
			assert.Equal(t, "scenario-"+s.Name, result.Report.RunID)
		})
	}
}

func TestRun_ReportsMismatches(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: wrong
description: "expects a bug in a correct program"
program: ring
iterations: 3
expect:
  verdict: fail
  error: SAFETY_VIOLATION
assertions:
  - type: trace_contains
    event: no.such.event
`))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Equal(t, ir.VerdictPass, result.Verdict)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "expected verdict fail, got pass")
	assert.Contains(t, result.Errors[1], "expected error SAFETY_VIOLATION, got none")
	assert.Contains(t, result.Errors[2], "no.such.event")
}

func TestRun_UnknownProgram(t *testing.T) {
	s, err := ParseScenario([]byte("name: x\ndescription: d\nprogram: paxos\n"))
	require.NoError(t, err)

	_, err = Run(s)
	require.Error(t, err)
	assert.True(t, ir.IsConfigError(err))
}

func TestRun_FailingTraceIsReplayOfFirstBug(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/election_faulty.yaml")
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	bug := result.Report.FirstBug()
	require.NotNil(t, bug)
	assert.Equal(t, bug.Error, result.Error)
	assert.Equal(t, int64(1), result.Trace[0].Seq)
}
