package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fniksic/PSharp/internal/ir"
)

// WriteRun inserts or updates a run summary. A run is written once when it
// starts and again when it finishes, so the second write replaces the
// counters and verdict.
func (s *Store) WriteRun(ctx context.Context, run ir.RunRecord) error {
	if run.ID == "" {
		return fmt.Errorf("write run: empty id")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, program, strategy, seed, iterations, bugs, verdict, runtime_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			iterations = excluded.iterations,
			bugs = excluded.bugs,
			verdict = excluded.verdict
	`,
		run.ID,
		run.Program,
		run.Strategy,
		run.Seed,
		run.Iterations,
		run.Bugs,
		string(run.Verdict),
		run.RuntimeVersion,
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	return nil
}

// WriteTrace inserts a failing trace and its decisions in one transaction.
// Returns the trace id and whether a new record was inserted.
//
// The id is content-addressed: an empty ID is filled in from the program
// and choice log, and a non-empty ID must match it. Writing a trace that
// already exists is a no-op (inserted=false).
//
// Note: a non-empty RunID must reference a stored run (foreign key constraint).
func (s *Store) WriteTrace(ctx context.Context, trace ir.TraceRecord) (id string, inserted bool, err error) {
	want, err := ir.TraceID(trace.Program, trace.Choices)
	if err != nil {
		return "", false, fmt.Errorf("write trace: %w", err)
	}
	if trace.ID != "" && trace.ID != want {
		return "", false, fmt.Errorf("write trace: id %s does not match content %s", trace.ID, want)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", false, fmt.Errorf("write trace: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var runID sql.NullString
	if trace.RunID != "" {
		runID = sql.NullString{String: trace.RunID, Valid: true}
	}
	result, err := tx.ExecContext(ctx, `
		INSERT INTO traces
		(id, run_id, program, iteration, error_code, message, steps, trace_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		want,
		runID,
		trace.Program,
		trace.Iteration,
		string(trace.ErrorCode),
		trace.Message,
		trace.Steps,
		ir.TraceVersion,
	)
	if err != nil {
		return "", false, fmt.Errorf("write trace: insert: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return "", false, fmt.Errorf("write trace: rows affected: %w", err)
	}
	if rows == 0 {
		return want, false, nil
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO decisions (trace_id, position, clock, kind, value)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return "", false, fmt.Errorf("write trace: prepare decisions: %w", err)
	}
	defer stmt.Close()
	for i, d := range trace.Choices {
		if !d.Kind.Valid() {
			return "", false, fmt.Errorf("write trace: decision %d: unknown kind %q", i, d.Kind)
		}
		if _, err := stmt.ExecContext(ctx, want, i, d.Index, string(d.Kind), d.Value); err != nil {
			return "", false, fmt.Errorf("write trace: decision %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", false, fmt.Errorf("write trace: commit: %w", err)
	}
	return want, true, nil
}
