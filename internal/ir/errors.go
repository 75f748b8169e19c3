package ir

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode categorizes fatal runtime errors.
type ErrorCode string

const (
	// ErrCodeConfig marks an authoring mistake: unknown transition target,
	// duplicate handler, unknown machine type, send to a nonexistent id.
	ErrCodeConfig ErrorCode = "CONFIGURATION_ERROR"

	// ErrCodeUnhandledEvent marks an event no state on the stack handles.
	ErrCodeUnhandledEvent ErrorCode = "UNHANDLED_EVENT"

	// ErrCodeInvalidPop marks a pop on a single-element state stack.
	ErrCodeInvalidPop ErrorCode = "INVALID_POP"

	// ErrCodeActionFailed marks a handler that returned an error or panicked.
	ErrCodeActionFailed ErrorCode = "ACTION_FAILED"

	// ErrCodeSafetyViolation marks a failed monitor or machine assertion.
	ErrCodeSafetyViolation ErrorCode = "SAFETY_VIOLATION"

	// ErrCodeLivenessViolation marks suspected non-progress.
	ErrCodeLivenessViolation ErrorCode = "LIVENESS_VIOLATION"

	// ErrCodeReplayDiverged marks a replay whose execution no longer matches
	// the recorded choice log.
	ErrCodeReplayDiverged ErrorCode = "REPLAY_DIVERGED"
)

// RuntimeError is a fatal error attributed to the machine, state, event or
// monitor responsible for it.
type RuntimeError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Machine identifies the offending machine (zero if none).
	Machine MachineID

	// MachineType is the type name of the offending machine.
	MachineType string

	// State is the offending machine's current state.
	State StateName

	// Event is the kind of the event being handled.
	Event EventKind

	// Monitor names the monitor that reported a violation.
	Monitor string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	b.WriteString(": ")
	b.WriteString(e.Message)

	var attrs []string
	if e.Monitor != "" {
		attrs = append(attrs, "monitor="+e.Monitor)
	}
	if e.Machine != 0 {
		attrs = append(attrs, fmt.Sprintf("machine=%s(%s)", e.MachineType, e.Machine))
	} else if e.MachineType != "" {
		attrs = append(attrs, "type="+e.MachineType)
	}
	if e.State != "" {
		attrs = append(attrs, "state="+string(e.State))
	}
	if e.Event != "" {
		attrs = append(attrs, "event="+string(e.Event))
	}
	if len(attrs) > 0 {
		b.WriteString(" (")
		b.WriteString(strings.Join(attrs, ", "))
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// Errorf creates a RuntimeError with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *RuntimeError {
	return &RuntimeError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// AsRuntimeError extracts a RuntimeError from a (possibly wrapped) error.
func AsRuntimeError(err error) (*RuntimeError, bool) {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

// CodeOf returns the error's code, or "" if err is not a RuntimeError.
func CodeOf(err error) ErrorCode {
	if re, ok := AsRuntimeError(err); ok {
		return re.Code
	}
	return ""
}

// IsConfigError reports whether err is a configuration error.
func IsConfigError(err error) bool {
	return CodeOf(err) == ErrCodeConfig
}

// IsUnhandledEvent reports whether err is an unhandled-event error.
func IsUnhandledEvent(err error) bool {
	return CodeOf(err) == ErrCodeUnhandledEvent
}

// IsSafetyViolation reports whether err is a safety violation.
func IsSafetyViolation(err error) bool {
	return CodeOf(err) == ErrCodeSafetyViolation
}

// IsLivenessViolation reports whether err is a liveness violation.
func IsLivenessViolation(err error) bool {
	return CodeOf(err) == ErrCodeLivenessViolation
}

// IsReplayDiverged reports whether err is a replay divergence.
func IsReplayDiverged(err error) bool {
	return CodeOf(err) == ErrCodeReplayDiverged
}
