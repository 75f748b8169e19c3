package scheduler

import (
	"errors"
	"fmt"
)

// StepBound counts scheduling steps in one testing iteration and enforces a
// maximum. Hitting it ends the iteration as inconclusive rather than failed.
type StepBound struct {
	max     int
	current int
}

// NewStepBound creates a bound. max <= 0 means unbounded.
func NewStepBound(max int) *StepBound {
	return &StepBound{max: max}
}

// Check increments the step counter and returns a StepBoundError once the
// limit is exceeded.
func (b *StepBound) Check() error {
	b.current++
	if b.max > 0 && b.current > b.max {
		return &StepBoundError{Steps: b.current - 1, Limit: b.max}
	}
	return nil
}

// Current returns the number of steps checked so far.
func (b *StepBound) Current() int {
	return b.current
}

// StepBoundError reports that an iteration ran out of steps before reaching
// quiescence. It is not a bug.
type StepBoundError struct {
	Steps int
	Limit int
}

// Error implements the error interface.
func (e *StepBoundError) Error() string {
	return fmt.Sprintf("step bound reached: %d steps (limit %d)", e.Steps, e.Limit)
}

// IsStepBound reports whether err is (or wraps) a StepBoundError.
func IsStepBound(err error) bool {
	var se *StepBoundError
	return errors.As(err, &se)
}
