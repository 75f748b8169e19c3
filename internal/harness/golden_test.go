package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_Canonical(t *testing.T) {
	result := NewResult()
	result.Verdict = "fail"
	result.ErrorCode = "SAFETY_VIOLATION"
	result.Trace = []TraceEvent{{Seq: 1, Machine: 2, MachineType: "Node", State: "Init", Event: "peers"}}

	data, err := Snapshot("demo", result)
	require.NoError(t, err)
	assert.Equal(t,
		`{"error_code":"SAFETY_VIOLATION","scenario_name":"demo","trace":[{"event":"peers","machine":2,"machine_type":"Node","seq":1,"state":"Init"}],"verdict":"fail"}`,
		string(data))
}

// The scenarios are deterministic: a golden file written from one run must
// match a second, independent run.
func TestRunWithGolden_Deterministic(t *testing.T) {
	scenarios, err := LoadDir("testdata/scenarios")
	require.NoError(t, err)
	dir := t.TempDir()

	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) {
			first, err := Run(s)
			require.NoError(t, err)
			require.NoError(t, UpdateGolden(t, s.Name, first, goldie.WithFixtureDir(dir)))

			_, err = os.Stat(filepath.Join(dir, s.Name+".golden"))
			require.NoError(t, err)

			require.NoError(t, RunWithGolden(t, s, goldie.WithFixtureDir(dir)))
		})
	}
}
