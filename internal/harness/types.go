package harness

import (
	"github.com/fniksic/PSharp/internal/engine"
	"github.com/fniksic/PSharp/internal/ir"
)

// TraceEvent is one delivered event.
type TraceEvent struct {
	Seq         int64  `json:"seq"`
	Machine     uint64 `json:"machine"`
	MachineType string `json:"machine_type"`
	State       string `json:"state"`
	Event       string `json:"event"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if the verdict and every assertion matched.
	Pass bool `json:"pass"`

	Verdict   ir.Verdict   `json:"verdict"`
	ErrorCode ir.ErrorCode `json:"error_code,omitempty"`
	Error     string       `json:"error,omitempty"`

	// Trace of the first failing iteration, or of the first iteration.
	Trace []TraceEvent `json:"trace"`

	// Errors contains expectation and assertion failures.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	Report *engine.Report `json:"-"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends the step trace of an iteration.
func (r *Result) AddTrace(steps []ir.TraceStep) {
	for _, s := range steps {
		r.Trace = append(r.Trace, TraceEvent{
			Seq:         s.Seq,
			Machine:     uint64(s.Machine),
			MachineType: s.Type,
			State:       string(s.State),
			Event:       string(s.Event),
		})
	}
}
