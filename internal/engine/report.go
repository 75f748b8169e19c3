package engine

import (
	"time"

	"github.com/fniksic/PSharp/internal/ir"
)

// IterationResult is the outcome of one iteration.
type IterationResult struct {
	Iteration int            `json:"iteration"`
	Verdict   ir.Verdict     `json:"verdict"`
	Err       error          `json:"-"`
	Error     string         `json:"error,omitempty"`
	ErrorCode ir.ErrorCode   `json:"error_code,omitempty"`
	Steps     int            `json:"steps"`
	Rounds    int            `json:"rounds"`
	Choices   ir.ChoiceLog   `json:"choices,omitempty"`
	Trace     []ir.TraceStep `json:"trace,omitempty"`
}

func (r *IterationResult) setErr(err error) {
	r.Err = err
	if err == nil {
		return
	}
	r.Error = err.Error()
	r.ErrorCode = ir.CodeOf(err)
}

// Report summarizes a test.
type Report struct {
	RunID        string            `json:"run_id"`
	Program      string            `json:"program"`
	Strategy     string            `json:"strategy"`
	Seed         int64             `json:"seed"`
	Iterations   int               `json:"iterations"`
	Passed       int               `json:"passed"`
	Failed       int               `json:"failed"`
	Inconclusive int               `json:"inconclusive"`
	Exhausted    bool              `json:"exhausted"`
	Bugs         []IterationResult `json:"bugs,omitempty"`
	Duration     time.Duration     `json:"duration_ns"`
}

// Verdict is fail if any iteration failed, inconclusive if none passed,
// and pass otherwise.
func (r *Report) Verdict() ir.Verdict {
	switch {
	case r.Failed > 0:
		return ir.VerdictFail
	case r.Passed == 0 && r.Inconclusive > 0:
		return ir.VerdictInconclusive
	default:
		return ir.VerdictPass
	}
}

// FirstBug returns the first failing iteration, or nil.
func (r *Report) FirstBug() *IterationResult {
	if len(r.Bugs) == 0 {
		return nil
	}
	return &r.Bugs[0]
}

// Record converts the report to its stored form.
func (r *Report) Record() ir.RunRecord {
	return ir.RunRecord{
		ID:             r.RunID,
		Program:        r.Program,
		Strategy:       r.Strategy,
		Seed:           r.Seed,
		Iterations:     r.Iterations,
		Bugs:           r.Failed,
		Verdict:        r.Verdict(),
		RuntimeVersion: ir.RuntimeVersion,
	}
}

// TraceRecords converts the retained bugs to their stored form.
func (r *Report) TraceRecords() ([]ir.TraceRecord, error) {
	out := make([]ir.TraceRecord, 0, len(r.Bugs))
	for _, b := range r.Bugs {
		id, err := ir.TraceID(r.Program, b.Choices)
		if err != nil {
			return nil, err
		}
		out = append(out, ir.TraceRecord{
			ID:        id,
			RunID:     r.RunID,
			Program:   r.Program,
			Iteration: b.Iteration,
			ErrorCode: b.ErrorCode,
			Message:   b.Error,
			Steps:     b.Steps,
			Choices:   b.Choices,
		})
	}
	return out, nil
}
