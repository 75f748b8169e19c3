package scheduler

import (
	"slices"

	"github.com/fniksic/PSharp/internal/ir"
)

// Replay answers every decision from a recorded choice log. Any mismatch
// between the execution and the log is a REPLAY_DIVERGED error.
type Replay struct {
	log    ir.ChoiceLog
	cursor int
	done   bool
}

// NewReplayStrategy creates a strategy that replays log once.
func NewReplayStrategy(log ir.ChoiceLog) *Replay {
	return &Replay{log: log.Clone()}
}

func (r *Replay) PrepareIteration() bool {
	if r.done {
		return false
	}
	r.done = true
	r.cursor = 0
	return true
}

// Remaining returns the number of recorded decisions not yet consumed.
func (r *Replay) Remaining() int { return len(r.log) - r.cursor }

func (r *Replay) next(kind ir.DecisionKind) (ir.Decision, error) {
	if r.cursor >= len(r.log) {
		return ir.Decision{}, ir.Errorf(ir.ErrCodeReplayDiverged,
			"execution requested a %s decision after the %d recorded ones", kind, len(r.log))
	}
	d := r.log[r.cursor]
	if d.Kind != kind {
		return ir.Decision{}, ir.Errorf(ir.ErrCodeReplayDiverged,
			"decision %d: recorded %s, execution requested %s", d.Index, d.Kind, kind)
	}
	r.cursor++
	return d, nil
}

func (r *Replay) NextMachine(enabled []ir.MachineID) (ir.MachineID, error) {
	d, err := r.next(ir.DecisionSchedule)
	if err != nil {
		return 0, err
	}
	id := ir.MachineID(d.Value)
	if _, found := slices.BinarySearch(enabled, id); !found {
		return 0, ir.Errorf(ir.ErrCodeReplayDiverged,
			"decision %d: recorded machine %s is not enabled (enabled: %v)", d.Index, id, enabled)
	}
	return id, nil
}

func (r *Replay) NextBool() (bool, error) {
	d, err := r.next(ir.DecisionBool)
	return d.Value == 1, err
}

func (r *Replay) NextInt(n int) (int, error) {
	d, err := r.next(ir.DecisionInt)
	if err != nil {
		return 0, err
	}
	if d.Value < 0 || d.Value >= int64(n) {
		return 0, ir.Errorf(ir.ErrCodeReplayDiverged,
			"decision %d: recorded value %d outside [0, %d)", d.Index, d.Value, n)
	}
	return int(d.Value), nil
}

func (r *Replay) Description() string { return "replay" }
