package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCommandQuiesces(t *testing.T) {
	out, err := execute(t, "run", "ring", "--workers", "4", "--timeout", "10s")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ ring: quiescent after")
}

func TestRunCommandJSON(t *testing.T) {
	out, err := execute(t, "--format", "json", "run", "election", "--workers", "2", "--timeout", "10s")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "election", data["program"])
}

func TestRunCommandServesMetrics(t *testing.T) {
	_, err := execute(t, "run", "ring", "--metrics-addr", "127.0.0.1:0", "--timeout", "10s")
	require.NoError(t, err)
}

func TestRunCommandErrors(t *testing.T) {
	_, err := execute(t, "run", "paxos")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execute(t, "run", "ring", "--workers", "-1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
