package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceIDDeterministic(t *testing.T) {
	log := ChoiceLog{
		{Index: 0, Kind: DecisionSchedule, Value: 1},
		{Index: 1, Kind: DecisionBool, Value: 1},
	}

	a, err := TraceID("election", log)
	require.NoError(t, err)
	b, err := TraceID("election", log.Clone())
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestTraceIDDistinguishesInputs(t *testing.T) {
	log := ChoiceLog{{Index: 0, Kind: DecisionSchedule, Value: 1}}
	other := ChoiceLog{{Index: 0, Kind: DecisionSchedule, Value: 2}}

	base := MustTraceID("election", log)
	assert.NotEqual(t, base, MustTraceID("pingpong", log))
	assert.NotEqual(t, base, MustTraceID("election", other))
	assert.NotEqual(t, base, MustTraceID("election", nil))
}

func TestHashWithDomainSeparation(t *testing.T) {
	data := []byte("same")
	assert.NotEqual(t, hashWithDomain("a", data), hashWithDomain("b", data))
}
