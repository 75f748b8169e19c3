package ir

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventEqual(t *testing.T) {
	type vote struct {
		From MachineID
		Term int
	}
	a := NewEvent("vote", vote{From: 1, Term: 2})
	assert.True(t, a.Equal(NewEvent("vote", vote{From: 1, Term: 2})))
	assert.False(t, a.Equal(NewEvent("vote", vote{From: 2, Term: 2})))
	assert.False(t, a.Equal(NewEvent("ack", vote{From: 1, Term: 2})))
	assert.True(t, Event{}.IsZero())
	assert.False(t, Halt().IsZero())
}

func TestEventString(t *testing.T) {
	assert.Equal(t, "ping", NewEvent("ping", nil).String())
	assert.Equal(t, "ping(3)", NewEvent("ping", 3).String())
	assert.Equal(t, "#7", MachineID(7).String())
}

func TestRuntimeErrorMessage(t *testing.T) {
	err := &RuntimeError{
		Code:        ErrCodeUnhandledEvent,
		Message:     "no handler",
		Machine:     3,
		MachineType: "Node",
		State:       "Init",
		Event:       "vote",
	}
	msg := err.Error()
	assert.Contains(t, msg, "UNHANDLED_EVENT")
	assert.Contains(t, msg, "machine=Node(#3)")
	assert.Contains(t, msg, "state=Init")
	assert.Contains(t, msg, "event=vote")
}

func TestRuntimeErrorHelpers(t *testing.T) {
	cause := errors.New("boom")
	err := fmt.Errorf("iteration 4: %w", &RuntimeError{Code: ErrCodeActionFailed, Message: "handler failed", Err: cause})

	re, ok := AsRuntimeError(err)
	require.True(t, ok)
	assert.Equal(t, ErrCodeActionFailed, re.Code)
	assert.ErrorIs(t, err, cause)
	assert.False(t, IsConfigError(err))

	assert.True(t, IsConfigError(Errorf(ErrCodeConfig, "unknown type %q", "X")))
	assert.True(t, IsSafetyViolation(Errorf(ErrCodeSafetyViolation, "two leaders")))
	assert.True(t, IsLivenessViolation(Errorf(ErrCodeLivenessViolation, "hot")))
	assert.True(t, IsReplayDiverged(Errorf(ErrCodeReplayDiverged, "diverged")))
	assert.True(t, IsUnhandledEvent(Errorf(ErrCodeUnhandledEvent, "x")))
	assert.Equal(t, ErrorCode(""), CodeOf(cause))
}
