package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/fniksic/PSharp/internal/ir"
)

// RoundHook is called each time a scheduling round ends. A round ends once
// every machine enabled at its start has been scheduled or has become
// disabled. A returned error aborts the run.
type RoundHook func(round int) error

// Testing is the cooperative, choice-recording scheduler.
//
// It is not safe for concurrent use: machines step on the goroutine that
// called Run, one at a time.
type Testing struct {
	strategy  Strategy
	clock     *Clock
	bound     *StepBound
	logger    *slog.Logger
	roundHook RoundHook

	units map[ir.MachineID]Unit
	ids   []ir.MachineID // sorted
	log   ir.ChoiceLog
	err   error

	round        int
	roundPending map[ir.MachineID]bool
}

// TestingOption configures a Testing scheduler.
type TestingOption func(*Testing)

// WithMaxSteps bounds the number of scheduling steps (default: unbounded).
func WithMaxSteps(n int) TestingOption {
	return func(t *Testing) {
		t.bound = NewStepBound(n)
	}
}

// WithRoundHook sets the callback invoked at every round end.
func WithRoundHook(hook RoundHook) TestingOption {
	return func(t *Testing) {
		t.roundHook = hook
	}
}

// WithTestingLogger sets the logger.
func WithTestingLogger(logger *slog.Logger) TestingOption {
	return func(t *Testing) {
		t.logger = logger
	}
}

// NewTesting creates a testing scheduler for one iteration.
func NewTesting(strategy Strategy, opts ...TestingOption) *Testing {
	t := &Testing{
		strategy: strategy,
		clock:    NewClock(),
		bound:    NewStepBound(0),
		logger:   slog.Default(),
		units:    make(map[ir.MachineID]Unit),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Register adds a machine.
func (t *Testing) Register(u Unit) {
	id := u.ID()
	if _, exists := t.units[id]; exists {
		return
	}
	t.units[id] = u
	i, _ := slices.BinarySearch(t.ids, id)
	t.ids = slices.Insert(t.ids, i, id)
}

// RegisterTask adds a task shell. Under test, tasks are scheduled exactly
// like machines.
func (t *Testing) RegisterTask(u Unit) { t.Register(u) }

// Enable is a no-op: the enabled set is recomputed at every decision point.
func (t *Testing) Enable(ir.MachineID) {}

// Log returns a copy of the decisions made so far.
func (t *Testing) Log() ir.ChoiceLog { return t.log.Clone() }

// Steps returns the number of schedule decisions made so far.
func (t *Testing) Steps() int { return t.bound.Current() }

// Round returns the number of completed rounds.
func (t *Testing) Round() int { return t.round }

// NextBool asks the strategy for a boolean and records it.
func (t *Testing) NextBool(from ir.MachineID) (bool, error) {
	if t.err != nil {
		return false, t.err
	}
	v, err := t.strategy.NextBool()
	if err != nil {
		t.err = err
		return false, err
	}
	var val int64
	if v {
		val = 1
	}
	t.record(ir.DecisionBool, val)
	return v, nil
}

// NextInt asks the strategy for an integer in [0, n) and records it.
func (t *Testing) NextInt(from ir.MachineID, n int) (int, error) {
	if t.err != nil {
		return 0, t.err
	}
	v, err := t.strategy.NextInt(n)
	if err != nil {
		t.err = err
		return 0, err
	}
	if v < 0 || v >= n {
		t.err = fmt.Errorf("strategy %s returned %d outside [0, %d)", t.strategy.Description(), v, n)
		return 0, t.err
	}
	t.record(ir.DecisionInt, int64(v))
	return v, nil
}

// Run schedules machines one step at a time until quiescence, the step
// bound, a fatal error or ctx cancellation.
func (t *Testing) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if t.err != nil {
			return t.err
		}

		enabled := t.enabled()
		if len(enabled) == 0 {
			t.logger.Debug("quiescent", "steps", t.bound.Current(), "rounds", t.round)
			return nil
		}
		if err := t.advanceRound(enabled); err != nil {
			return err
		}
		if err := t.bound.Check(); err != nil {
			return err
		}

		id, err := t.strategy.NextMachine(enabled)
		if err != nil {
			return err
		}
		if _, found := slices.BinarySearch(enabled, id); !found {
			return fmt.Errorf("strategy %s picked machine %s which is not enabled", t.strategy.Description(), id)
		}
		t.record(ir.DecisionSchedule, int64(id))
		delete(t.roundPending, id)

		if _, err := t.units[id].Step(); err != nil {
			return err
		}
		// A handler may have swallowed a strategy error; it still ends the run.
		if t.err != nil {
			return t.err
		}
	}
}

func (t *Testing) enabled() []ir.MachineID {
	var out []ir.MachineID
	for _, id := range t.ids {
		if t.units[id].Enabled() {
			out = append(out, id)
		}
	}
	return out
}

// advanceRound drops machines that became disabled from the current round
// and starts a new round when it is complete.
func (t *Testing) advanceRound(enabled []ir.MachineID) error {
	for id := range t.roundPending {
		if _, found := slices.BinarySearch(enabled, id); !found {
			delete(t.roundPending, id)
		}
	}
	if len(t.roundPending) > 0 {
		return nil
	}
	if t.roundPending != nil {
		t.round++
		if t.roundHook != nil {
			if err := t.roundHook(t.round); err != nil {
				return err
			}
		}
	}
	t.roundPending = make(map[ir.MachineID]bool, len(enabled))
	for _, id := range enabled {
		t.roundPending[id] = true
	}
	return nil
}

func (t *Testing) record(kind ir.DecisionKind, value int64) {
	t.log = append(t.log, ir.Decision{Index: t.clock.Next(), Kind: kind, Value: value})
}
